// Package gate controls whether the node accepts network traffic that
// writes to the chain.
package gate

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrSuspended is the reason reported when the gate was suspended without one.
var ErrSuspended = errors.New("network suspended")

// Gate is opened and closed by the storage chaser. Handlers that write to
// the chain ask the gate before doing any work.
type Gate struct {
	log *zap.SugaredLogger

	mu     sync.RWMutex
	reason error
}

// New constructs an open gate.
func New(log *zap.SugaredLogger) *Gate {
	return &Gate{
		log: log,
	}
}

// Suspend closes the gate for the specified reason.
func (g *Gate) Suspend(reason error) {
	if reason == nil {
		reason = ErrSuspended
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reason == nil {
		g.log.Infow("gate", "status", "suspended", "reason", reason)
	}
	g.reason = reason
}

// Resume opens the gate.
func (g *Gate) Resume() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.reason != nil {
		g.log.Infow("gate", "status", "resumed")
	}
	g.reason = nil
}

// Suspended returns the reason the gate is closed, or nil when it is open.
func (g *Gate) Suspended() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return g.reason
}
