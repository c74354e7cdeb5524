package session

import (
	"context"
	"errors"

	"github.com/rcliao/mealtrack/internal/model"
)

// EventKind says what a listener should do with its per-user state.
type EventKind int

const (
	// EventActivate carries the identity whose namespace must become active.
	EventActivate EventKind = iota + 1
	// EventDeactivate means no namespace may stay active.
	EventDeactivate
)

func (k EventKind) String() string {
	switch k {
	case EventActivate:
		return "activate"
	case EventDeactivate:
		return "deactivate"
	default:
		return "unknown"
	}
}

// Event is delivered to listeners after a session change has been persisted.
type Event struct {
	Kind     EventKind
	Identity *model.Identity
}

// Listener reacts to session changes. Listeners run synchronously on the goroutine
// that changed the session, after the manager has released its lock.
type Listener interface {
	HandleSessionEvent(ctx context.Context, ev Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, ev Event) error

func (f ListenerFunc) HandleSessionEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Subscribe registers l for all future events.
func (m *Manager) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Manager) notify(ctx context.Context, ev Event) error {
	m.mu.Lock()
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	var errs []error
	for _, l := range listeners {
		if err := l.HandleSessionEvent(ctx, ev); err != nil {
			m.logger.Warn("session listener failed", "event", ev.Kind.String(), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
