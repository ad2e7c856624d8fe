package ui

import (
	"sync"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asarsync/asarsync/client/internal/notify"
	"github.com/asarsync/asarsync/client/internal/quit"
)

// newIdleTray builds a tray whose driver has not started
func newIdleTray() *Tray {
	t := &Tray{
		signal: quit.NewSignal(),
		done:   make(chan struct{}),
	}
	t.status = fyne.NewMenuItem("Starting...", nil)
	t.quit = fyne.NewMenuItem("Quit", nil)
	t.menu = fyne.NewMenu("asarsync", t.status, t.quit)
	return t
}

func TestTray_QueuesUntilStarted(t *testing.T) {
	test.NewTempApp(t)
	tray := newIdleTray()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tray.SetStatus("Watching Lisoph/mmottv")
			tray.Notify("asarsync - Cannot start", "app.asar not found", notify.SeverityError)
		}()
	}
	wg.Wait()

	// the menu is only touched on the fyne goroutine
	assert.Equal(t, "Starting...", tray.status.Label)

	tray.mu.Lock()
	defer tray.mu.Unlock()
	assert.Equal(t, "Watching Lisoph/mmottv", tray.pendingStatus)
	require.Len(t, tray.pending, 10)
	assert.Equal(t, "asarsync - Cannot start", tray.pending[0].Title)
	assert.NotNil(t, tray.pendingIcon)
}

func TestTray_CloseBeforeStart(t *testing.T) {
	tray := newIdleTray()
	tray.Close()
	tray.Close()

	assert.True(t, tray.closed.Load())
	tray.Run()

	select {
	case <-tray.Done():
	default:
		t.Fatal("run should return at once after close")
	}
}
