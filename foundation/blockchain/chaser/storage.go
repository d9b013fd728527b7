package chaser

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"go.uber.org/zap"
)

// Network is the traffic control surface the storage chaser drives.
type Network interface {
	Suspend(reason error)
	Resume()
}

// Capacity reports whether the chain store can accept more writes.
type Capacity interface {
	IsFull() (bool, error)
}

// StorageState is the state of the storage chaser.
type StorageState uint8

// Set of storage states.
const (
	StateNormal StorageState = iota
	StateFull
	StateStopped
)

// String implements the fmt.Stringer interface for logging.
func (s StorageState) String() string {
	switch s {
	case StateNormal:
		return "normal"
	case StateFull:
		return "full"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Storage watches for capacity exhaustion. When a write fails because the
// store is full it suspends the network and polls until space is restored.
type Storage struct {
	*Chaser
	capacity Capacity
	network  Network
	interval time.Duration

	state    atomic.Uint32
	tickStop chan struct{}
}

// DefaultPollInterval is used when the configured poll interval is not
// positive.
const DefaultPollInterval = 5 * time.Second

// NewStorage constructs the storage chaser. The interval sets how often
// capacity is checked while full.
func NewStorage(log *zap.SugaredLogger, bus *chase.Bus, capacity Capacity, network Network, interval time.Duration) *Storage {
	if interval <= 0 {
		log.Infow("storage", "status", "poll interval not positive, using default", "interval", interval, "default", DefaultPollInterval)
		interval = DefaultPollInterval
	}

	s := Storage{
		capacity: capacity,
		network:  network,
		interval: interval,
	}
	s.Chaser = newChaser("storage", log, bus, s.handleEvent, s.doStop)

	return &s
}

// Interval returns how often capacity is checked while full.
func (s *Storage) Interval() time.Duration {
	return s.interval
}

// =============================================================================

func (s *Storage) handleEvent(ev chase.Event) bool {
	if ev.Kind == chase.KindFull {
		height, _ := ev.Payload.Value()
		s.doFull(height)
	}

	return true
}

// doFull moves from normal to full. The network is suspended before the
// poll timer is armed.
func (s *Storage) doFull(height uint64) {
	if s.State() != StateNormal {
		return
	}

	s.setState(StateFull)
	updateStorageFullMetric(true)
	s.log.Infow("full", "status", "suspending network", "height", height)

	s.network.Suspend(fmt.Errorf("storage full at height %d: %w", height, database.ErrDiskFull))
	s.notify(nil, chase.KindSuspend, chase.ValuePayload(height))

	s.startTimer()
}

// handleTimer runs on the strand for every poll tick.
func (s *Storage) handleTimer() {
	if s.State() != StateFull {
		return
	}

	full, err := s.capacity.IsFull()
	if err != nil {
		s.log.Errorw("timer", "status", "capacity check failed, still full", "ERROR", err)
		return
	}

	if full {
		return
	}

	s.stopTimer()
	s.setState(StateNormal)
	updateStorageFullMetric(false)
	s.log.Infow("timer", "status", "capacity restored, resuming network")

	// Subscribers learn of the transition before writes can resume.
	s.notify(nil, chase.KindResume, chase.NoPayload())
	s.network.Resume()
}

// doStop is terminal. The timer is cancelled and no more polling happens.
func (s *Storage) doStop() {
	s.stopTimer()
	s.setState(StateStopped)
}

// =============================================================================

// startTimer arms the poll timer. Ticks are posted to the strand, so one
// that races a stop is dropped by the closed strand.
func (s *Storage) startTimer() {
	ticker := time.NewTicker(s.interval)
	stop := make(chan struct{})
	s.tickStop = stop

	s.async(func() {
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return

			case <-ticker.C:
				if !s.post(s.handleTimer) {
					return
				}
			}
		}
	})
}

// stopTimer cancels the poll timer if it is armed.
func (s *Storage) stopTimer() {
	if s.tickStop == nil {
		return
	}

	close(s.tickStop)
	s.tickStop = nil
}

// State returns the current state.
func (s *Storage) State() StorageState {
	return StorageState(s.state.Load())
}

// setState is only called from the strand or the stop hook.
func (s *Storage) setState(state StorageState) {
	s.state.Store(uint32(state))
}
