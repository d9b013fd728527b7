// Package chase provides the event bus the chasers coordinate through.
// Events are delivered to every subscriber on the subscriber's own execution
// context, in the order they were published.
package chase

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrStopped is returned when subscribing to a bus that was stopped. It is
// also the status of the final stop event when no other reason is given.
var ErrStopped = errors.New("chase bus stopped")

// Executor runs posted work on the subscriber's execution context. Post
// must not block and must return false when the work will never run.
type Executor interface {
	Post(fn func()) bool
}

// Handler receives an event. Returning false ends the subscription.
type Handler func(ev Event) bool

// Subscription identifies a subscriber on the bus.
type Subscription uint64

// subscriber is a registered handler and the context it runs on.
type subscriber struct {
	id      Subscription
	name    string
	exec    Executor
	handler Handler
	active  atomic.Bool
}

// Bus is an ordered, multi-subscriber notification channel. Notify may be
// called from any goroutine. Delivery to one subscriber follows publish
// order, and the publisher never waits on a subscriber.
type Bus struct {
	mu      sync.Mutex
	subs    []*subscriber
	nextID  Subscription
	stopped bool
}

// New constructs an empty bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers the handler to run on the executor for every event
// published from now on. The name is used for logging only.
func (b *Bus) Subscribe(name string, exec Executor, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return 0, ErrStopped
	}

	b.nextID++
	sub := subscriber{
		id:      b.nextID,
		name:    name,
		exec:    exec,
		handler: handler,
	}
	sub.active.Store(true)

	b.subs = append(b.subs, &sub)
	updateSubscribersMetric(len(b.subs))

	return sub.id, nil
}

// Unsubscribe removes the subscription. Events already handed to the
// subscriber's executor are dropped before they reach the handler. It is
// safe to call from within a handler and more than once.
func (b *Bus) Unsubscribe(id Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.remove(id)
}

// Notify publishes the event to every subscriber. It is a no-op once the
// bus is stopped.
func (b *Bus) Notify(status error, kind Kind, payload Payload) {
	ev := Event{
		Status:  status,
		Kind:    kind,
		Payload: payload,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	updatePublishedMetric(kind)
	b.dispatch(ev)
}

// Stop delivers a final stop event carrying the status to every subscriber
// and then tears the bus down. Work already posted to a subscriber is
// allowed to complete. Stop is idempotent.
func (b *Bus) Stop(status error) {
	if status == nil {
		status = ErrStopped
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}

	b.dispatch(Event{Status: status, Kind: KindStop})

	b.stopped = true
	b.subs = nil
	updateSubscribersMetric(0)
}

// Stopped reports whether the bus was stopped.
func (b *Bus) Stopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stopped
}

// Count returns the number of current subscribers.
func (b *Bus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// =============================================================================

// dispatch posts the event to every subscriber. The bus lock is held so all
// subscribers see publishes in one order. Subscribers whose executor no
// longer accepts work are removed.
func (b *Bus) dispatch(ev Event) {
	var dead []Subscription

	for _, sub := range b.subs {
		sub := sub

		posted := sub.exec.Post(func() {
			if !sub.active.Load() {
				return
			}

			if !sub.handler(ev) {
				b.Unsubscribe(sub.id)
			}
		})

		if !posted {
			dead = append(dead, sub.id)
		}
	}

	for _, id := range dead {
		b.remove(id)
	}
}

// remove drops the subscriber. The caller must hold the bus lock.
func (b *Bus) remove(id Subscription) {
	for i, sub := range b.subs {
		if sub.id == id {
			sub.active.Store(false)
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			updateSubscribersMetric(len(b.subs))
			return
		}
	}
}
