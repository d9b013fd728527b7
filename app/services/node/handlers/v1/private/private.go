// Package private maintains the group of handlers for node to node access.
package private

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ardanlabs/chasenode/business/web/errs"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chaser"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/organizer"
	"github.com/ardanlabs/chasenode/foundation/blockchain/peer"
	"github.com/ardanlabs/chasenode/foundation/gate"
	"github.com/ardanlabs/chasenode/foundation/web"
	"go.uber.org/zap"
)

// Handlers manages the set of node to node endpoints.
type Handlers struct {
	Log       *zap.SugaredLogger
	Bus       *chase.Bus
	DB        *database.Database
	Tx        *chaser.Transaction
	Storage   *chaser.Storage
	Organizer *organizer.Organizer
	Gate      *gate.Gate
	Peers     *peer.PeerSet
	Host      string
	ChainID   uint16
}

// SubmitNodeTransaction stores a transaction relayed by a peer and
// announces it with a store event.
func (h Handlers) SubmitNodeTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var tx database.BlockTx
	if err := web.Decode(r, &tx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	if err := tx.Validate(h.ChainID); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("relay tran", "traceid", v.TraceID, "from:nonce", tx, "to", tx.ToID, "value", tx.Value, "tip", tx.Tip)

	link, stored, err := h.DB.StoreTx(tx)
	switch {
	case errors.Is(err, database.ErrDiskFull):
		_, top, _ := h.DB.Top()
		h.Bus.Notify(nil, chase.KindFull, chase.ValuePayload(top.Number))
		return errs.FromChain(err, http.StatusInternalServerError, "store tx")

	case err != nil:
		return fmt.Errorf("store tx: %w", err)
	}

	if stored {
		h.Bus.Notify(nil, chase.KindStore, chase.TxPayload(link))
	}

	resp := struct {
		Status string          `json:"status"`
		Link   database.TxLink `json:"link"`
	}{
		Status: "transaction stored",
		Link:   link,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// ProposeBlock takes a block received from a peer and hands the wire bytes
// to the organizer.
func (h Handlers) ProposeBlock(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	link, err := h.Organizer.Organize(ctx, r.Body, int(r.ContentLength))
	if err != nil {
		return errs.FromChain(err, http.StatusNotAcceptable, "block not accepted")
	}

	resp := struct {
		Status string              `json:"status"`
		Link   database.HeaderLink `json:"link"`
	}{
		Status: "accepted",
		Link:   link,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Status returns the current status of the node.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	top, header, err := h.DB.Top()
	if err != nil {
		return err
	}

	size, err := h.DB.Size()
	if err != nil {
		return err
	}

	var suspended string
	if reason := h.Gate.Suspended(); reason != nil {
		suspended = reason.Error()
	}

	status := struct {
		LatestBlockHash   string              `json:"latest_block_hash"`
		LatestBlockNumber uint64              `json:"latest_block_number"`
		Top               database.HeaderLink `json:"top"`
		Candidate         database.HeaderLink `json:"candidate"`
		Unconfirmed       int                 `json:"unconfirmed"`
		Storage           string              `json:"storage"`
		StoreBytes        int64               `json:"store_bytes"`
		Suspended         string              `json:"suspended,omitempty"`
		KnownPeers        []peer.Peer         `json:"known_peers"`
	}{
		LatestBlockHash:   header.Hash,
		LatestBlockNumber: header.Number,
		Top:               top,
		Candidate:         h.DB.Candidate(),
		Unconfirmed:       h.Tx.Count(),
		Storage:           h.Storage.State().String(),
		StoreBytes:        size,
		Suspended:         suspended,
		KnownPeers:        h.Peers.Copy(h.Host),
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}
