package gate_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/chasenode/foundation/gate"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Gate(t *testing.T) {
	t.Log("Given the need to suspend network writes.")
	{
		g := gate.New(zap.NewNop().Sugar())

		t.Logf("\tTest 0:\tWhen the gate is new.")
		{
			if err := g.Suspended(); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould be open, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould be open.", success)
		}

		t.Logf("\tTest 1:\tWhen the gate is suspended.")
		{
			reason := errors.New("disk full")
			g.Suspend(reason)

			if err := g.Suspended(); !errors.Is(err, reason) {
				t.Fatalf("\t%s\tTest 1:\tShould report the reason, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould report the reason.", success)

			g.Resume()
			g.Suspend(nil)
			if err := g.Suspended(); !errors.Is(err, gate.ErrSuspended) {
				t.Fatalf("\t%s\tTest 1:\tShould use the default reason, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould use the default reason.", success)
		}

		t.Logf("\tTest 2:\tWhen the gate is resumed.")
		{
			g.Resume()
			g.Resume()

			if err := g.Suspended(); err != nil {
				t.Fatalf("\t%s\tTest 2:\tShould be open, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 2:\tShould be open.", success)
		}
	}
}
