package chaser

import (
	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"go.uber.org/zap"
)

// Observer hands every event to a function. The node uses it to stream
// chase events to clients.
type Observer struct {
	*Chaser
	fn func(ev chase.Event)
}

// NewObserver constructs an observer chaser with the specified name.
func NewObserver(name string, log *zap.SugaredLogger, bus *chase.Bus, fn func(ev chase.Event)) *Observer {
	o := Observer{
		fn: fn,
	}
	o.Chaser = newChaser(name, log, bus, o.handleEvent, nil)

	return &o
}

func (o *Observer) handleEvent(ev chase.Event) bool {
	o.fn(ev)
	return true
}
