// Package chaser provides the reactive components that keep candidate,
// template and unconfirmed transaction state in step with the chain. Every
// chaser runs its handlers on a private strand and talks to the others only
// through the chase bus.
package chaser

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/strand"
	"go.uber.org/zap"
)

// ErrStopped is returned when starting a chaser that was stopped.
var ErrStopped = errors.New("chaser stopped")

// Chaser is the subscription and dispatch machinery shared by every
// concrete chaser.
type Chaser struct {
	name   string
	log    *zap.SugaredLogger
	bus    *chase.Bus
	strand *strand.Strand

	handle func(ev chase.Event) bool
	onStop func()

	mu      sync.Mutex
	started bool
	sub     chase.Subscription

	stopped  atomic.Bool
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// newChaser constructs the base for a concrete chaser. The handle function
// receives every event that is not a stop signal. The onStop function runs
// exactly once with no handler running, either on the strand or after the
// strand has terminated.
func newChaser(name string, log *zap.SugaredLogger, bus *chase.Bus, handle func(ev chase.Event) bool, onStop func()) *Chaser {
	if onStop == nil {
		onStop = func() {}
	}

	return &Chaser{
		name:   name,
		log:    log.With("chaser", name),
		bus:    bus,
		strand: strand.New(),
		handle: handle,
		onStop: onStop,
	}
}

// Name returns the name of the chaser.
func (c *Chaser) Name() string {
	return c.name
}

// Start subscribes the chaser to the bus. Calling Start on a running
// chaser does nothing. A chaser that failed to start is stopped.
func (c *Chaser) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped.Load() {
		return ErrStopped
	}

	if c.started {
		return nil
	}

	sub, err := c.bus.Subscribe(c.name, c.strand, c.dispatch)
	if err != nil {
		c.shutdown()
		return fmt.Errorf("%s: subscribe: %w", c.name, err)
	}

	c.sub = sub
	c.started = true

	c.log.Infow("chaser", "status", "started")

	return nil
}

// Stop unsubscribes the chaser and waits for the handler in flight and any
// background work to finish. Queued events are dropped. Once Stop returns
// no handler runs again. Stop is idempotent and must not be called from a
// handler.
func (c *Chaser) Stop() {
	c.mu.Lock()
	sub, started := c.sub, c.started
	c.mu.Unlock()

	if started {
		c.bus.Unsubscribe(sub)
	}

	c.shutdown()
	c.wg.Wait()
}

// Stopped reports whether the chaser was stopped.
func (c *Chaser) Stopped() bool {
	return c.stopped.Load()
}

// =============================================================================

// dispatch runs on the strand for every event delivered by the bus.
func (c *Chaser) dispatch(ev chase.Event) bool {
	if c.stopped.Load() {
		return false
	}

	updateHandledMetric(c.name, ev.Kind)

	// A failure status or a stop event means the bus is going away.
	if ev.Status != nil || ev.Kind == chase.KindStop {
		c.log.Infow("chaser", "status", "stopping", "event", ev.String())
		c.close()
		return false
	}

	if !c.handle(ev) {
		c.log.Infow("chaser", "status", "unsubscribing", "event", ev.String())
		c.close()
		return false
	}

	return true
}

// post queues work on the strand behind every event already delivered.
func (c *Chaser) post(fn func()) bool {
	return c.strand.Post(fn)
}

// async runs fn on its own goroutine. Stop waits for it to return.
func (c *Chaser) async(fn func()) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn()
	}()
}

// notify publishes an event on the bus.
func (c *Chaser) notify(status error, kind chase.Kind, payload chase.Payload) {
	c.bus.Notify(status, kind, payload)
}

// close stops the chaser from its own strand. It does not wait.
func (c *Chaser) close() {
	c.stopOnce.Do(func() {
		c.stopped.Store(true)
		c.onStop()
		c.strand.Close()
		c.log.Infow("chaser", "status", "stopped")
	})
}

// shutdown stops the chaser from outside the strand and waits for the
// strand to terminate before running the stop hook.
func (c *Chaser) shutdown() {
	c.stopped.Store(true)
	c.strand.Stop()

	c.stopOnce.Do(func() {
		c.onStop()
		c.log.Infow("chaser", "status", "stopped")
	})
}
