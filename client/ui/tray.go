package ui

import (
	"os"
	"runtime"
	"sync"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/client/internal/notify"
	"github.com/asarsync/asarsync/client/internal/quit"
)

const appID = "io.github.asarsync"

// Tray shows a system tray icon with the pipeline status and a Quit entry.
// Quit only requests shutdown; the tray stays until the pipeline closes it.
type Tray struct {
	app    fyne.App
	desk   desktop.App
	signal *quit.Signal

	menu   *fyne.Menu
	status *fyne.MenuItem
	quit   *fyne.MenuItem

	// mu guards running and the values held back until the driver starts
	mu            sync.Mutex
	running       bool
	pendingStatus string
	pendingIcon   fyne.Resource
	pending       []*fyne.Notification

	closed   atomic.Bool
	doneOnce sync.Once
	done     chan struct{}
}

// TrayAvailable reports whether a graphical session is there to host a tray
func TrayAvailable() bool {
	switch runtime.GOOS {
	case "windows", "darwin":
		return true
	default:
		return os.Getenv("DISPLAY") != "" || os.Getenv("WAYLAND_DISPLAY") != ""
	}
}

// NewTray returns nil when the fyne driver has no system tray support
func NewTray(title string, signal *quit.Signal) *Tray {
	a := app.NewWithID(appID)
	desk, ok := a.(desktop.App)
	if !ok {
		log.Warn("system tray is not supported by this driver")
		return nil
	}
	a.SetIcon(theme.DownloadIcon())

	t := &Tray{
		app:    a,
		desk:   desk,
		signal: signal,
		done:   make(chan struct{}),
	}

	t.status = fyne.NewMenuItem("Starting...", nil)
	t.status.Disabled = true

	t.quit = fyne.NewMenuItem("Quit", t.onQuit)
	t.quit.IsQuit = true

	t.menu = fyne.NewMenu(title, t.status, fyne.NewMenuItemSeparator(), t.quit)
	return t
}

func (t *Tray) onQuit() {
	log.Info("quit requested from the system tray")
	t.signal.Set()
	t.status.Label = "Stopping..."
	t.quit.Disabled = true
	t.menu.Refresh()
}

// Run starts the fyne event loop on the calling goroutine
func (t *Tray) Run() {
	defer t.doneOnce.Do(func() { close(t.done) })

	if t.closed.Load() {
		return
	}

	t.desk.SetSystemTrayMenu(t.menu)
	t.desk.SetSystemTrayIcon(theme.DownloadIcon())
	t.app.Lifecycle().SetOnStarted(t.onStarted)

	t.app.Run()
}

// onStarted runs on the fyne goroutine once the driver is up
func (t *Tray) onStarted() {
	t.mu.Lock()
	t.running = true
	status, icon, pending := t.pendingStatus, t.pendingIcon, t.pending
	t.pendingStatus, t.pendingIcon, t.pending = "", nil, nil
	t.mu.Unlock()

	if status != "" && !t.signal.IsSet() {
		t.status.Label = status
		t.menu.Refresh()
	}
	if icon != nil {
		t.desk.SetSystemTrayIcon(icon)
	}
	for _, n := range pending {
		t.app.SendNotification(n)
	}

	// Close may have raced with the driver start-up
	if t.closed.Load() {
		t.app.Quit()
	}
}

func (t *Tray) isRunning() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}

func (t *Tray) Close() {
	if t.closed.Swap(true) || !t.isRunning() {
		return
	}
	fyne.Do(t.app.Quit)
}

func (t *Tray) Done() <-chan struct{} {
	return t.done
}

// Notify shows a desktop notification and reflects the severity in the tray
// icon. Notifications sent before the driver starts are shown once it does.
func (t *Tray) Notify(title, body string, severity notify.Severity) {
	n := fyne.NewNotification(title, body)

	icon := theme.DownloadIcon()
	switch severity {
	case notify.SeverityError:
		icon = theme.ErrorIcon()
	case notify.SeverityWarning:
		icon = theme.WarningIcon()
	}

	t.mu.Lock()
	if !t.running {
		t.pending = append(t.pending, n)
		t.pendingIcon = icon
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	t.app.SendNotification(n)
	fyne.Do(func() {
		t.desk.SetSystemTrayIcon(icon)
	})
}

func (t *Tray) SetStatus(status string) {
	if t.signal.IsSet() {
		return
	}

	t.mu.Lock()
	if !t.running {
		t.pendingStatus = status
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()

	fyne.Do(func() {
		t.status.Label = status
		t.menu.Refresh()
	})
}
