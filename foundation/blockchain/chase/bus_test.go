package chase_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/strand"
	"github.com/fortytw2/leaktest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// recorder collects the events a subscriber observes.
type recorder struct {
	mu     sync.Mutex
	events []chase.Event
}

func (r *recorder) handle(ev chase.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)
	return ev.Kind != chase.KindStop
}

func (r *recorder) snapshot() []chase.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]chase.Event(nil), r.events...)
}

// waitFor polls until the condition holds or a second has passed.
func waitFor(f func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if f() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return f()
}

// =============================================================================

func Test_Order(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to deliver events in publish order.")
	{
		bus := chase.New()

		var recs [2]recorder
		for i := range recs {
			s := strand.New()
			defer s.Stop()

			if _, err := bus.Subscribe("recorder", s, recs[i].handle); err != nil {
				t.Fatalf("\t%s\tShould be able to subscribe: %s", failed, err)
			}
		}

		t.Logf("\tTest 0:\tWhen one goroutine publishes a sequence.")
		{
			const count = 500
			for i := 0; i < count; i++ {
				bus.Notify(nil, chase.KindTransaction, chase.TxPayload(database.TxLink(i)))
			}

			for r := range recs {
				if !waitFor(func() bool { return len(recs[r].snapshot()) == count }) {
					t.Fatalf("\t%s\tTest 0:\tShould deliver every event to subscriber %d.", failed, r)
				}

				for i, ev := range recs[r].snapshot() {
					link, ok := ev.Payload.Tx()
					if !ok || link != database.TxLink(i) {
						t.Fatalf("\t%s\tTest 0:\tShould observe publish order, got %s at %d.", failed, ev, i)
					}
				}
			}
			t.Logf("\t%s\tTest 0:\tShould deliver every event to every subscriber in order.", success)
		}

		t.Logf("\tTest 1:\tWhen two goroutines take turns publishing.")
		{
			const base = 500
			const rounds = 200

			turnA := make(chan struct{})
			turnB := make(chan struct{})

			var wg sync.WaitGroup
			wg.Add(2)

			go func() {
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					bus.Notify(nil, chase.KindTransaction, chase.TxPayload(database.TxLink(base+2*i)))
					turnB <- struct{}{}
					<-turnA
				}
			}()

			go func() {
				defer wg.Done()
				for i := 0; i < rounds; i++ {
					<-turnB
					bus.Notify(nil, chase.KindTransaction, chase.TxPayload(database.TxLink(base+2*i+1)))
					turnA <- struct{}{}
				}
			}()

			wg.Wait()

			for r := range recs {
				if !waitFor(func() bool { return len(recs[r].snapshot()) == base+2*rounds }) {
					t.Fatalf("\t%s\tTest 1:\tShould deliver every event to subscriber %d.", failed, r)
				}

				for i, ev := range recs[r].snapshot()[base:] {
					link, ok := ev.Payload.Tx()
					if !ok || link != database.TxLink(base+i) {
						t.Fatalf("\t%s\tTest 1:\tShould observe the cross goroutine order, got %s at %d.", failed, ev, base+i)
					}
				}
			}
			t.Logf("\t%s\tTest 1:\tShould deliver events published by different goroutines in publish order.", success)
		}

		bus.Stop(nil)
	}
}

func Test_SlowSubscriber(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to never block the publisher.")
	{
		bus := chase.New()

		s := strand.New()
		defer s.Stop()

		release := make(chan struct{})
		bus.Subscribe("slow", s, func(ev chase.Event) bool {
			<-release
			return true
		})

		t.Logf("\tTest 0:\tWhen a subscriber is stuck in its handler.")
		{
			done := make(chan struct{})
			go func() {
				for i := 0; i < 100; i++ {
					bus.Notify(nil, chase.KindConfirmed, chase.HeaderPayload(database.HeaderLink(i)))
				}
				close(done)
			}()

			select {
			case <-done:
				t.Logf("\t%s\tTest 0:\tShould let the publisher continue.", success)
			case <-time.After(time.Second):
				t.Fatalf("\t%s\tTest 0:\tShould let the publisher continue.", failed)
			}
		}

		close(release)
		bus.Stop(nil)
	}
}

func Test_Unsubscribe(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to end subscriptions.")
	{
		bus := chase.New()

		s := strand.New()
		defer s.Stop()

		t.Logf("\tTest 0:\tWhen a handler returns false.")
		{
			var mu sync.Mutex
			var calls int
			bus.Subscribe("once", s, func(ev chase.Event) bool {
				mu.Lock()
				defer mu.Unlock()
				calls++
				return false
			})

			bus.Notify(nil, chase.KindResume, chase.NoPayload())
			bus.Notify(nil, chase.KindResume, chase.NoPayload())

			if !waitFor(func() bool { return bus.Count() == 0 }) {
				t.Fatalf("\t%s\tTest 0:\tShould remove the subscriber.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould remove the subscriber.", success)

			done := make(chan struct{})
			s.Post(func() { close(done) })
			<-done

			mu.Lock()
			defer mu.Unlock()
			if calls != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould not deliver after unsubscribing, got %d calls.", failed, calls)
			}
			t.Logf("\t%s\tTest 0:\tShould not deliver after unsubscribing.", success)
		}

		t.Logf("\tTest 1:\tWhen unsubscribing explicitly.")
		{
			var rec recorder
			id, err := bus.Subscribe("recorder", s, rec.handle)
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to subscribe: %s", failed, err)
			}

			bus.Unsubscribe(id)
			bus.Unsubscribe(id)
			bus.Notify(nil, chase.KindResume, chase.NoPayload())

			done := make(chan struct{})
			s.Post(func() { close(done) })
			<-done

			if n := len(rec.snapshot()); n != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould not deliver to a removed subscriber, got %d.", failed, n)
			}
			t.Logf("\t%s\tTest 1:\tShould not deliver to a removed subscriber.", success)
		}

		bus.Stop(nil)
	}
}

func Test_Stop(t *testing.T) {
	defer leaktest.Check(t)()

	t.Log("Given the need to stop the bus.")
	{
		bus := chase.New()

		s := strand.New()
		defer s.Stop()

		var rec recorder
		if _, err := bus.Subscribe("recorder", s, rec.handle); err != nil {
			t.Fatalf("\t%s\tShould be able to subscribe: %s", failed, err)
		}

		reason := errors.New("shutdown")

		t.Logf("\tTest 0:\tWhen the bus is stopped with a reason.")
		{
			bus.Notify(nil, chase.KindResume, chase.NoPayload())
			bus.Stop(reason)
			bus.Stop(nil)
			bus.Notify(nil, chase.KindResume, chase.NoPayload())

			if !waitFor(func() bool { return len(rec.snapshot()) == 2 }) {
				t.Fatalf("\t%s\tTest 0:\tShould deliver pending work and the stop event.", failed)
			}

			events := rec.snapshot()
			if events[1].Kind != chase.KindStop || !errors.Is(events[1].Status, reason) {
				t.Fatalf("\t%s\tTest 0:\tShould end with the stop event, got %s.", failed, events[1])
			}
			t.Logf("\t%s\tTest 0:\tShould deliver pending work and the stop event.", success)

			time.Sleep(10 * time.Millisecond)
			if n := len(rec.snapshot()); n != 2 {
				t.Fatalf("\t%s\tTest 0:\tShould ignore notify after stop, got %d events.", failed, n)
			}
			t.Logf("\t%s\tTest 0:\tShould ignore notify after stop.", success)
		}

		t.Logf("\tTest 1:\tWhen subscribing to a stopped bus.")
		{
			if _, err := bus.Subscribe("late", s, rec.handle); !errors.Is(err, chase.ErrStopped) {
				t.Fatalf("\t%s\tTest 1:\tShould get ErrStopped, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get ErrStopped.", success)
		}
	}
}

func Test_Payload(t *testing.T) {
	t.Log("Given the need to carry one value per event.")
	{
		t.Logf("\tTest 0:\tWhen reading a payload as the wrong type.")
		{
			p := chase.HeaderPayload(database.HeaderLink(7))

			if link, ok := p.Header(); !ok || link != 7 {
				t.Fatalf("\t%s\tTest 0:\tShould read back the header link.", failed)
			}
			if _, ok := p.Tx(); ok {
				t.Fatalf("\t%s\tTest 0:\tShould not read a header link as a tx link.", failed)
			}
			if _, ok := p.Value(); ok {
				t.Fatalf("\t%s\tTest 0:\tShould not read a header link as a value.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould only read back the carried type.", success)

			if _, ok := chase.NoPayload().Value(); ok {
				t.Fatalf("\t%s\tTest 0:\tShould carry nothing in the empty payload.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould carry nothing in the empty payload.", success)
		}
	}
}
