package mid

import (
	"context"
	"fmt"
	"net/http"

	"github.com/ardanlabs/chasenode/business/web/errs"
	"github.com/ardanlabs/chasenode/foundation/web"
)

// Suspender reports why the node is not accepting network writes.
type Suspender interface {
	Suspended() error
}

// Gate refuses the request with a 503 while the node is suspended.
func Gate(s Suspender) web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
			if reason := s.Suspended(); reason != nil {
				return errs.NewTrusted(fmt.Errorf("node suspended: %w", reason), http.StatusServiceUnavailable)
			}

			return handler(ctx, w, r)
		}

		return h
	}

	return m
}
