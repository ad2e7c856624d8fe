package notify

import (
	log "github.com/sirupsen/logrus"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "Warning"
	case SeverityError:
		return "Error"
	default:
		return "Info"
	}
}

// Notifier displays a message to the user. Implementations must not block the
// caller on user interaction.
type Notifier interface {
	Notify(title, body string, severity Severity)
}

// LogNotifier writes notifications to the process log only. Used by the
// headless surface and as the fallback for every other sink.
type LogNotifier struct{}

func (LogNotifier) Notify(title, body string, severity Severity) {
	entry := log.WithField("title", title)
	switch severity {
	case SeverityError:
		entry.Error(body)
	case SeverityWarning:
		entry.Warn(body)
	default:
		entry.Info(body)
	}
}

// Multi fans a notification out to every sink in order.
type Multi []Notifier

func (m Multi) Notify(title, body string, severity Severity) {
	for _, n := range m {
		if n == nil {
			continue
		}
		n.Notify(title, body, severity)
	}
}

// Func adapts a function to the Notifier interface.
type Func func(title, body string, severity Severity)

func (f Func) Notify(title, body string, severity Severity) {
	f(title, body, severity)
}
