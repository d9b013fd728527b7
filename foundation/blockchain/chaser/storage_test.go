package chaser_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chaser"
	"github.com/fortytw2/leaktest"
)

// capacity reports whatever the test sets and counts the checks.
type capacity struct {
	mu     sync.Mutex
	full   bool
	err    error
	checks int
}

func (c *capacity) IsFull() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks++
	return c.full, c.err
}

func (c *capacity) set(full bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.full = full
	c.err = err
}

func (c *capacity) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.checks
}

// network counts the traffic control calls.
type network struct {
	mu       sync.Mutex
	suspends int
	resumes  int
	reason   error
}

func (n *network) Suspend(reason error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.suspends++
	n.reason = reason
}

func (n *network) Resume() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.resumes++
}

func (n *network) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.suspends, n.resumes
}

// =============================================================================

func Test_StorageFull(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to pause the node while storage is full.")
	{
		bus := chase.New()
		defer bus.Stop(nil)

		rec, obs := observe(t, bus)
		defer obs.Stop()

		capa := capacity{full: true}
		var net network

		s := chaser.NewStorage(log, bus, &capa, &net, 2*time.Millisecond)
		if err := s.Start(); err != nil {
			t.Fatalf("\t%s\tShould be able to start: %s", failed, err)
		}
		defer s.Stop()

		t.Logf("\tTest 0:\tWhen a write reports the store is full.")
		{
			bus.Notify(nil, chase.KindFull, chase.ValuePayload(42))
			bus.Notify(nil, chase.KindFull, chase.ValuePayload(43))

			if !waitFor(func() bool { return s.State() == chaser.StateFull }) {
				t.Fatalf("\t%s\tTest 0:\tShould move to the full state.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould move to the full state.", success)

			if !waitFor(func() bool { return len(rec.of(chase.KindSuspend)) == 1 }) {
				t.Fatalf("\t%s\tTest 0:\tShould publish the suspension.", failed)
			}
			suspends, _ := net.counts()
			if suspends != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould suspend the network once, got %d.", failed, suspends)
			}
			t.Logf("\t%s\tTest 0:\tShould suspend the network once.", success)
		}

		t.Logf("\tTest 1:\tWhen the poll keeps finding the store full.")
		{
			if !waitFor(func() bool { return capa.count() >= 5 }) {
				t.Fatalf("\t%s\tTest 1:\tShould keep polling.", failed)
			}

			if _, resumes := net.counts(); resumes != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould never resume, got %d.", failed, resumes)
			}
			t.Logf("\t%s\tTest 1:\tShould never resume.", success)
		}

		t.Logf("\tTest 2:\tWhen the capacity check fails.")
		{
			capa.set(false, errors.New("io error"))
			checks := capa.count()

			if !waitFor(func() bool { return capa.count() >= checks+5 }) {
				t.Fatalf("\t%s\tTest 2:\tShould keep polling.", failed)
			}

			if _, resumes := net.counts(); resumes != 0 || s.State() != chaser.StateFull {
				t.Fatalf("\t%s\tTest 2:\tShould treat the failure as still full.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould treat the failure as still full.", success)
		}

		t.Logf("\tTest 3:\tWhen space is restored.")
		{
			capa.set(false, nil)

			if !waitFor(func() bool { _, r := net.counts(); return r == 1 }) {
				t.Fatalf("\t%s\tTest 3:\tShould resume the network.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould resume the network.", success)

			if s.State() != chaser.StateNormal {
				t.Fatalf("\t%s\tTest 3:\tShould move back to normal.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould move back to normal.", success)

			checks := capa.count()
			time.Sleep(20 * time.Millisecond)

			if _, resumes := net.counts(); resumes != 1 {
				t.Fatalf("\t%s\tTest 3:\tShould resume exactly once, got %d.", failed, resumes)
			}
			t.Logf("\t%s\tTest 3:\tShould resume exactly once.", success)

			if capa.count() != checks {
				t.Fatalf("\t%s\tTest 3:\tShould cancel the poll timer.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould cancel the poll timer.", success)

			if !waitFor(func() bool { return len(rec.of(chase.KindResume)) == 1 }) {
				t.Fatalf("\t%s\tTest 3:\tShould publish the resume.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould publish the resume.", success)
		}
	}
}

func Test_StorageStop(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to stop polling for good.")
	{
		bus := chase.New()
		defer bus.Stop(nil)

		capa := capacity{full: true}
		var net network

		s := chaser.NewStorage(log, bus, &capa, &net, time.Millisecond)
		if err := s.Start(); err != nil {
			t.Fatalf("\t%s\tShould be able to start: %s", failed, err)
		}

		t.Logf("\tTest 0:\tWhen the chaser is stopped while full.")
		{
			bus.Notify(nil, chase.KindFull, chase.ValuePayload(1))
			if !waitFor(func() bool { return capa.count() > 0 }) {
				t.Fatalf("\t%s\tTest 0:\tShould be polling.", failed)
			}

			s.Stop()
			s.Stop()

			if s.State() != chaser.StateStopped {
				t.Fatalf("\t%s\tTest 0:\tShould end in the stopped state, got %s.", failed, s.State())
			}
			t.Logf("\t%s\tTest 0:\tShould end in the stopped state.", success)

			capa.set(false, nil)
			checks := capa.count()
			time.Sleep(10 * time.Millisecond)

			if capa.count() != checks {
				t.Fatalf("\t%s\tTest 0:\tShould stop polling.", failed)
			}
			if _, resumes := net.counts(); resumes != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould never resume after stop.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould stop polling.", success)
		}
	}
}

func Test_StorageInterval(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to poll with a usable interval.")
	{
		bus := chase.New()
		defer bus.Stop(nil)

		for testID, interval := range []time.Duration{0, -time.Second} {
			t.Logf("\tTest %d:\tWhen the interval is %v.", testID, interval)
			{
				capa := capacity{full: true}
				var net network

				s := chaser.NewStorage(log, bus, &capa, &net, interval)
				if s.Interval() != chaser.DefaultPollInterval {
					t.Fatalf("\t%s\tTest %d:\tShould use the default interval, got %v.", failed, testID, s.Interval())
				}
				t.Logf("\t%s\tTest %d:\tShould use the default interval.", success, testID)

				if err := s.Start(); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to start: %s", failed, testID, err)
				}

				bus.Notify(nil, chase.KindFull, chase.ValuePayload(1))
				if !waitFor(func() bool { return s.State() == chaser.StateFull }) {
					t.Fatalf("\t%s\tTest %d:\tShould arm the poll without failing.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould arm the poll without failing.", success, testID)

				s.Stop()
			}
		}
	}
}
