// Package errs provides the error types the node handlers return and the
// mapping of chain failures onto HTTP status codes.
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chaser"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/organizer"
	"github.com/ardanlabs/chasenode/foundation/gate"
)

// Response is the form used for API responses from failures in the API.
type Response struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Trusted is an error whose message is safe to return to the caller along
// with the status to respond with.
type Trusted struct {
	Err    error
	Status int
}

// NewTrusted wraps a provided error with an HTTP status code. This
// function should be used when handlers encounter expected errors.
func NewTrusted(err error, status int) error {
	return &Trusted{err, status}
}

// Error implements the error interface.
func (re *Trusted) Error() string {
	return re.Err.Error()
}

// Unwrap gives errors.Is access to the wrapped chain error.
func (re *Trusted) Unwrap() error {
	return re.Err
}

// IsTrusted checks if an error of type Trusted exists.
func IsTrusted(err error) bool {
	var re *Trusted
	return errors.As(err, &re)
}

// GetTrusted returns a copy of the Trusted pointer.
func GetTrusted(err error) *Trusted {
	var re *Trusted
	if !errors.As(err, &re) {
		return nil
	}
	return re
}

// =============================================================================

// chainStatus maps the sentinel errors of the chain packages to the status
// a peer or wallet should see.
var chainStatus = []struct {
	err    error
	status int
}{
	{database.ErrDiskFull, http.StatusServiceUnavailable},
	{gate.ErrSuspended, http.StatusServiceUnavailable},
	{organizer.ErrStopped, http.StatusServiceUnavailable},
	{chaser.ErrStopped, http.StatusServiceUnavailable},
	{organizer.ErrBlockSize, http.StatusBadRequest},
	{database.ErrChainForked, http.StatusConflict},
	{database.ErrTxConfirmed, http.StatusConflict},
	{database.ErrNotFound, http.StatusNotFound},
}

// FromChain converts an error returned by the chain packages into a trusted
// error. Errors without a known sentinel are reported with the fallback
// status and the context message.
func FromChain(err error, fallback int, context string) error {
	if err == nil {
		return nil
	}

	for _, cs := range chainStatus {
		if errors.Is(err, cs.err) {
			return NewTrusted(err, cs.status)
		}
	}

	return NewTrusted(fmt.Errorf("%s: %w", context, err), fallback)
}
