package ui

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/asarsync/asarsync/client/internal/notify"
)

// Headless is the surface of service mode and of sessions without a tray.
// Notifications only reach the log.
type Headless struct {
	once sync.Once
	done chan struct{}
}

func NewHeadless() *Headless {
	return &Headless{
		done: make(chan struct{}),
	}
}

func (h *Headless) Run() {
	<-h.done
}

func (h *Headless) Close() {
	h.once.Do(func() {
		close(h.done)
	})
}

func (h *Headless) Done() <-chan struct{} {
	return h.done
}

func (h *Headless) Notify(string, string, notify.Severity) {}

func (h *Headless) SetStatus(status string) {
	log.Debugf("status: %s", status)
}
