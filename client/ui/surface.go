// Package ui holds the status surfaces the agent runs next to the update
// pipeline: a system tray icon or a headless stand-in.
package ui

import (
	"github.com/asarsync/asarsync/client/internal/notify"
)

// Surface runs on the main goroutine until closed. Notify and SetStatus may be
// called from any goroutine and never block on the user.
type Surface interface {
	notify.Notifier

	// Run blocks until Close is called or the user quits
	Run()
	Close()
	Done() <-chan struct{}

	SetStatus(status string)
}
