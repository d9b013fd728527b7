package mid_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/ardanlabs/chasenode/business/web/errs"
	"github.com/ardanlabs/chasenode/business/web/mid"
	"github.com/ardanlabs/chasenode/foundation/gate"
	"github.com/ardanlabs/chasenode/foundation/web"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Gate(t *testing.T) {
	t.Log("Given the need to refuse writes while the node is suspended.")
	{
		log := zap.NewNop().Sugar()
		g := gate.New(log)

		app := web.NewApp(make(chan os.Signal, 1), mid.Errors(log), mid.Panics())

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.Respond(ctx, w, struct{}{}, http.StatusOK)
		}
		app.Handle(http.MethodPost, "v1", "/tx/submit", h, mid.Gate(g))

		call := func() *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/v1/tx/submit", nil)
			app.ServeHTTP(w, r)
			return w
		}

		t.Logf("\tTest 0:\tWhen the gate is open.")
		{
			if w := call(); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould get a 200, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould get a 200.", success)
		}

		t.Logf("\tTest 1:\tWhen the gate is suspended.")
		{
			g.Suspend(errors.New("disk full"))

			w := call()
			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("\t%s\tTest 1:\tShould get a 503, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 1:\tShould get a 503.", success)

			var resp errs.Response
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Error == "" {
				t.Fatalf("\t%s\tTest 1:\tShould report the reason.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould report the reason.", success)
		}

		t.Logf("\tTest 2:\tWhen the gate is resumed.")
		{
			g.Resume()

			if w := call(); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 2:\tShould get a 200, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 2:\tShould get a 200.", success)
		}
	}
}

func Test_Panics(t *testing.T) {
	t.Log("Given the need to survive a handler panic.")
	{
		log := zap.NewNop().Sugar()
		app := web.NewApp(make(chan os.Signal, 1), mid.Errors(log), mid.Panics())

		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			panic("boom")
		}
		app.Handle(http.MethodGet, "v1", "/panic", h)

		t.Logf("\tTest 0:\tWhen a handler panics.")
		{
			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/panic", nil))

			if w.Code != http.StatusInternalServerError {
				t.Fatalf("\t%s\tTest 0:\tShould get a 500, got %d.", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould get a 500.", success)
		}
	}
}

func Test_Cors(t *testing.T) {
	t.Log("Given the need to answer cross origin requests.")
	{
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			return web.Respond(ctx, w, struct{}{}, http.StatusOK)
		}

		call := func(app *web.App, origin string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/v1/template", nil)
			r.Header.Set("Origin", origin)
			app.ServeHTTP(w, r)
			return w
		}

		t.Logf("\tTest 0:\tWhen every origin is allowed.")
		{
			app := web.NewApp(make(chan os.Signal, 1), mid.Cors("*"))
			app.Handle(http.MethodGet, "v1", "/template", h)

			if got := call(app, "http://wallet").Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Fatalf("\t%s\tTest 0:\tShould allow any origin, got %q.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould allow any origin.", success)
		}

		t.Logf("\tTest 1:\tWhen only some origins are allowed.")
		{
			app := web.NewApp(make(chan os.Signal, 1), mid.Cors("http://wallet"))
			app.Handle(http.MethodGet, "v1", "/template", h)

			if got := call(app, "http://wallet").Header().Get("Access-Control-Allow-Origin"); got != "http://wallet" {
				t.Fatalf("\t%s\tTest 1:\tShould echo an allowed origin, got %q.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould echo an allowed origin.", success)

			if got := call(app, "http://other").Header().Get("Access-Control-Allow-Origin"); got != "" {
				t.Fatalf("\t%s\tTest 1:\tShould not allow other origins, got %q.", failed, got)
			}
			t.Logf("\t%s\tTest 1:\tShould not allow other origins.", success)
		}
	}
}
