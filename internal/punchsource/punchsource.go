// Package punchsource ingests punches from the timekeeping systems used
// at relay events. Sources poll for new punches, advance a durable cursor
// and fan the punches out to registered listeners.
package punchsource

import (
	"context"
	"sync"

	"github.com/klasvik/prewarn/internal/domain/model"
)

// Listener receives punches as a source fetches them.
type Listener interface {
	OnPunch(ctx context.Context, p model.Punch)
}

// Source delivers punches from one timekeeping system.
type Source interface {
	// Start begins polling. Punches flow to listeners until Stop.
	Start(ctx context.Context) error

	// Stop ends polling and waits for the poll loop to exit.
	Stop() error

	// IsRunning reports whether the source is polling.
	IsRunning() bool

	// AddListener registers a listener. Adding the same listener twice
	// is a no-op.
	AddListener(l Listener)
}

// notifier implements listener registration and fanout, shared by all
// source variants.
type notifier struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (n *notifier) AddListener(l Listener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, existing := range n.listeners {
		if existing == l {
			return
		}
	}
	n.listeners = append(n.listeners, l)
}

func (n *notifier) notify(ctx context.Context, p model.Punch) {
	n.mu.RLock()
	listeners := n.listeners
	n.mu.RUnlock()
	for _, l := range listeners {
		l.OnPunch(ctx, p)
	}
}
