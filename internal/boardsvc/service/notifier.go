package service

import (
	"github.com/avvvet/kanban-services/internal/comm"
)

// Notifier receives every committed mutation. Implementations must not
// block the caller and must not report errors back; delivery is best-effort.
type Notifier interface {
	Notify(e comm.Event)
}

// Notifiers fans an event out to several notifiers.
type Notifiers []Notifier

func (ns Notifiers) Notify(e comm.Event) {
	for _, n := range ns {
		n.Notify(e)
	}
}

type NotifierFunc func(e comm.Event)

func (f NotifierFunc) Notify(e comm.Event) { f(e) }

type nopNotifier struct{}

func (nopNotifier) Notify(comm.Event) {}
