package chaser

import (
	"errors"
	"time"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/genesis"
	"github.com/ardanlabs/chasenode/foundation/blockchain/mempool"
	"github.com/ardanlabs/chasenode/foundation/blockchain/merkle"
	"go.uber.org/zap"
)

// BlockSettings carries what every built block header needs.
type BlockSettings struct {
	Genesis     genesis.Genesis
	Beneficiary database.AccountID
}

// Candidate keeps the node's proposal for the next block current as
// transactions arrive and blocks are confirmed.
type Candidate struct {
	*Chaser
	query    Query
	settings BlockSettings
	pool     *mempool.Mempool

	dirty     bool
	scheduled bool
}

// NewCandidate constructs the candidate chaser.
func NewCandidate(log *zap.SugaredLogger, bus *chase.Bus, query Query, settings BlockSettings) (*Candidate, error) {
	pool, err := mempool.New()
	if err != nil {
		return nil, err
	}

	c := Candidate{
		query:    query,
		settings: settings,
		pool:     pool,
	}
	c.Chaser = newChaser("candidate", log, bus, c.handleEvent, nil)

	return &c, nil
}

// =============================================================================

func (c *Candidate) handleEvent(ev chase.Event) bool {
	switch ev.Kind {
	case chase.KindTransaction:
		link, ok := ev.Payload.Tx()
		if !ok {
			break
		}

		if confirmed(c.query, link) {
			c.log.Infow("transaction", "status", "already confirmed", "link", link)
			break
		}

		tx, err := c.query.Tx(link)
		if err != nil {
			c.log.Errorw("transaction", "link", link, "ERROR", err)
			break
		}

		if _, err := c.pool.Add(link, tx); err != nil {
			c.log.Errorw("transaction", "link", link, "ERROR", err)
			break
		}
		c.schedule()

	case chase.KindConfirmed:
		link, ok := ev.Payload.Header()
		if !ok {
			break
		}

		txs, err := c.query.BlockTxs(link)
		if err != nil {
			c.log.Errorw("confirmed", "header", link, "ERROR", err)
			break
		}

		c.pool.Delete(txs...)
		c.schedule()
	}

	return true
}

// schedule marks the candidate stale and queues one recompute behind the
// events already delivered. Triggers that arrive before it runs share it.
func (c *Candidate) schedule() {
	c.dirty = true
	if c.scheduled {
		return
	}

	c.scheduled = c.post(c.doCandidate)
}

// doCandidate rebuilds the candidate from the current pool.
func (c *Candidate) doCandidate() {
	c.scheduled = false
	if !c.dirty {
		return
	}
	c.dirty = false

	_, top, err := c.query.Top()
	if err != nil {
		c.log.Errorw("candidate", "ERROR", err)
		return
	}

	entries := c.pool.Ordered(int(c.settings.Genesis.TransPerBlock))

	trans := make([]database.BlockTx, len(entries))
	links := make([]database.TxLink, len(entries))
	for i, e := range entries {
		trans[i] = e.BlockTx
		links[i] = e.Link
	}

	root, err := merkle.RootHex(trans)
	if err != nil {
		c.log.Errorw("candidate", "ERROR", err)
		return
	}

	bh := database.BlockHeader{
		Number:        top.Number + 1,
		PrevBlockHash: top.Hash,
		TimeStamp:     uint64(time.Now().UTC().UnixMilli()),
		BeneficiaryID: c.settings.Beneficiary,
		Difficulty:    c.settings.Genesis.Difficulty,
		MiningReward:  c.settings.Genesis.MiningReward,
		TransRoot:     root,
	}

	link, err := c.query.AppendCandidate(bh, links)
	if err != nil {
		if errors.Is(err, database.ErrDiskFull) {
			c.log.Infow("candidate", "status", "disk full", "height", top.Number)
			c.notify(nil, chase.KindFull, chase.ValuePayload(top.Number))
			return
		}

		c.log.Errorw("candidate", "ERROR", err)
		return
	}

	updateCandidatesMetric()
	c.log.Infow("candidate", "status", "built", "header", link, "number", bh.Number, "txs", len(links))

	c.notify(nil, chase.KindCandidate, chase.HeaderPayload(link))
}
