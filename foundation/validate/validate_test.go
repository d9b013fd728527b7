package validate_test

import (
	"testing"

	"github.com/ardanlabs/chasenode/foundation/validate"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

type request struct {
	ChainID uint16 `json:"chain_id" validate:"required"`
	To      string `json:"to" validate:"required,startswith=0x,len=42"`
	Nonce   uint64 `json:"nonce" validate:"gte=1"`
}

func Test_Check(t *testing.T) {
	t.Log("Given the need to validate request values.")
	{
		t.Logf("\tTest 0:\tWhen the value is valid.")
		{
			req := request{
				ChainID: 1,
				To:      "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32",
				Nonce:   1,
			}
			if err := validate.Check(req); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould pass validation: %s", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould pass validation.", success)
		}

		t.Logf("\tTest 1:\tWhen the value is missing fields.")
		{
			err := validate.Check(request{To: "bad"})
			if !validate.IsFieldErrors(err) {
				t.Fatalf("\t%s\tTest 1:\tShould get field errors, got %v.", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould get field errors.", success)

			fields := validate.GetFieldErrors(err).Fields()
			for _, name := range []string{"chain_id", "to", "nonce"} {
				if _, exists := fields[name]; !exists {
					t.Fatalf("\t%s\tTest 1:\tShould report the %q field by its json name, got %v.", failed, name, fields)
				}
			}
			t.Logf("\t%s\tTest 1:\tShould report every field by its json name.", success)
		}
	}
}
