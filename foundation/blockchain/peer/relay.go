package peer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"go.uber.org/zap"
)

// ChainReader reads stored transactions and blocks by link.
type ChainReader interface {
	Tx(link database.TxLink) (database.BlockTx, error)
	Block(link database.HeaderLink) (database.Block, error)
}

// Relay pushes every transaction and every confirmed block announced on the
// bus to the known peers. A peer that already has the transaction stores
// nothing and announces nothing, and a peer that already has the block
// refuses it, which ends the flood.
type Relay struct {
	log    *zap.SugaredLogger
	host   string
	peers  *PeerSet
	chain  ChainReader
	client *http.Client
}

// NewRelay constructs a relay for the node listening on host.
func NewRelay(log *zap.SugaredLogger, host string, peers *PeerSet, chain ChainReader) *Relay {
	return &Relay{
		log:   log,
		host:  host,
		peers: peers,
		chain: chain,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Observe is the callback of the observer chaser that feeds the relay.
func (r *Relay) Observe(ev chase.Event) {
	switch ev.Kind {
	case chase.KindTransaction:
		if link, ok := ev.Payload.Tx(); ok {
			r.relayTx(link)
		}

	case chase.KindConfirmed:
		if link, ok := ev.Payload.Header(); ok {
			r.relayBlock(link)
		}
	}
}

// =============================================================================

func (r *Relay) relayTx(link database.TxLink) {
	tx, err := r.chain.Tx(link)
	if err != nil {
		r.log.Errorw("relay", "status", "read tx", "link", link, "ERROR", err)
		return
	}

	data, err := json.Marshal(tx)
	if err != nil {
		r.log.Errorw("relay", "status", "encode tx", "link", link, "ERROR", err)
		return
	}

	for _, peer := range r.peers.Copy(r.host) {
		if err := r.send(peer, "/v1/node/tx/add", data); err != nil {
			r.log.Infow("relay", "status", "peer refused tx", "peer", peer.Host, "id", tx.ID(), "ERROR", err)
		}
	}
}

func (r *Relay) relayBlock(link database.HeaderLink) {
	block, err := r.chain.Block(link)
	if err != nil {
		r.log.Errorw("relay", "status", "read block", "header", link, "ERROR", err)
		return
	}

	data, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		r.log.Errorw("relay", "status", "encode block", "header", link, "ERROR", err)
		return
	}

	for _, peer := range r.peers.Copy(r.host) {
		if err := r.send(peer, "/v1/node/block/next", data); err != nil {
			r.log.Infow("relay", "status", "peer refused block", "peer", peer.Host, "number", block.Header.Number, "ERROR", err)
		}
	}
}

func (r *Relay) send(peer Peer, path string, data []byte) error {
	url := fmt.Sprintf("http://%s%s", peer.Host, path)

	resp, err := r.client.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	return nil
}
