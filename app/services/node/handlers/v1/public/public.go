// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/chasenode/business/web/errs"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chaser"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/genesis"
	"github.com/ardanlabs/chasenode/foundation/events"
	"github.com/ardanlabs/chasenode/foundation/nameservice"
	"github.com/ardanlabs/chasenode/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public node endpoints.
type Handlers struct {
	Log     *zap.SugaredLogger
	Genesis genesis.Genesis
	Tx      *chaser.Transaction
	Tmpl    *chaser.Template
	NS      *nameservice.NameService
	WS      websocket.Upgrader
	Evts    *events.Events
}

// Events handles a web socket to provide chase events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction hands a new user transaction to the transaction
// chaser. Validation against the chain happens on the chaser.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var st submitTx
	if err := web.Decode(r, &st); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	signedTx := st.toSignedTx()
	if err := signedTx.Validate(h.Genesis.ChainID); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "from:nonce", signedTx, "to", signedTx.ToID, "value", signedTx.Value, "tip", signedTx.Tip)

	blockTx := database.NewBlockTx(signedTx, h.Genesis.GasPrice, 1)
	if !h.Tx.Store(blockTx) {
		return errs.NewTrusted(errors.New("transaction chaser stopped"), http.StatusServiceUnavailable)
	}

	resp := struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}{
		Status: "transaction accepted",
		ID:     blockTx.ID(),
	}

	return web.Respond(ctx, w, resp, http.StatusAccepted)
}

// GenesisInfo returns the genesis information.
func (h Handlers) GenesisInfo(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Genesis, http.StatusOK)
}

// Mempool returns the set of unconfirmed transactions in arrival order.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := web.Param(r, "account")

	entries := h.Tx.Unconfirmed()

	trans := make([]tx, 0, len(entries))
	for _, entry := range entries {
		t := toTx(h.NS, entry.Link, entry.BlockTx)
		if acct != "" && acct != string(t.FromAccount) && acct != string(t.To) {
			continue
		}
		trans = append(trans, t)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Template returns the latest mining template.
func (h Handlers) Template(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	tmpl := h.Tmpl.Latest()
	if tmpl == nil {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	return web.Respond(ctx, w, tmpl, http.StatusOK)
}
