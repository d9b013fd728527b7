package chaser

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/mempool"
	"github.com/ardanlabs/chasenode/foundation/blockchain/mempool/selector"
	"github.com/ardanlabs/chasenode/foundation/blockchain/merkle"
	"go.uber.org/zap"
)

// BlockTemplate is a mining ready block built from the candidate position
// and the best paying unconfirmed transactions.
type BlockTemplate struct {
	Header    database.BlockHeader `json:"header"`
	Trans     []database.BlockTx   `json:"trans"`
	Links     []database.TxLink    `json:"links"`
	Candidate database.HeaderLink  `json:"candidate"`
	Fees      uint64               `json:"fees"`
	Built     time.Time            `json:"built"`
}

// Template builds mining templates as new transactions arrive. Building
// runs off the chaser's strand and the result is posted back to it.
type Template struct {
	*Chaser
	query    Query
	settings BlockSettings
	pool     *mempool.Mempool

	candidate database.HeaderLink
	building  bool
	dirty     bool

	latest atomic.Pointer[BlockTemplate]
}

// NewTemplate constructs the template chaser. The strategy names the
// selector used to pick transactions.
func NewTemplate(log *zap.SugaredLogger, bus *chase.Bus, query Query, settings BlockSettings, strategy string) (*Template, error) {
	pool, err := mempool.NewWithStrategy(strategy)
	if err != nil {
		return nil, err
	}

	t := Template{
		query:     query,
		settings:  settings,
		pool:      pool,
		candidate: database.HeaderLink(database.Terminal),
	}
	t.Chaser = newChaser("template", log, bus, t.handleEvent, nil)

	return &t, nil
}

// Latest returns the most recently built template, nil before the first.
func (t *Template) Latest() *BlockTemplate {
	return t.latest.Load()
}

// =============================================================================

func (t *Template) handleEvent(ev chase.Event) bool {
	switch ev.Kind {
	case chase.KindTransaction:
		link, ok := ev.Payload.Tx()
		if !ok {
			break
		}

		if confirmed(t.query, link) {
			t.log.Infow("transaction", "status", "already confirmed", "link", link)
			break
		}

		tx, err := t.query.Tx(link)
		if err != nil {
			t.log.Errorw("transaction", "link", link, "ERROR", err)
			break
		}

		if _, err := t.pool.Add(link, tx); err != nil {
			t.log.Errorw("transaction", "link", link, "ERROR", err)
			break
		}
		t.doTransaction()

	case chase.KindConfirmed:
		link, ok := ev.Payload.Header()
		if !ok {
			break
		}

		txs, err := t.query.BlockTxs(link)
		if err != nil {
			t.log.Errorw("confirmed", "header", link, "ERROR", err)
			break
		}

		t.pool.Delete(txs...)
		t.doTransaction()

	case chase.KindCandidate:
		if link, ok := ev.Payload.Header(); ok {
			t.candidate = link
		}
	}

	return true
}

// doTransaction starts a build unless one is running, in which case the
// running build is followed by exactly one more.
func (t *Template) doTransaction() {
	if t.building {
		t.dirty = true
		return
	}

	t.building = true
	t.dirty = false

	entries := t.pool.PickBest(int(t.settings.Genesis.TransPerBlock))
	candidate := t.candidate

	t.async(func() {
		tmpl, err := t.build(candidate, entries)
		t.post(func() {
			t.finish(tmpl, err)
		})
	})
}

// finish runs on the strand with the result of a build.
func (t *Template) finish(tmpl BlockTemplate, err error) {
	t.building = false

	switch {
	case err != nil:
		t.log.Errorw("template", "ERROR", err)

	default:
		t.latest.Store(&tmpl)
		updateTemplatesMetric()
		t.log.Infow("template", "status", "built", "number", tmpl.Header.Number, "txs", len(tmpl.Links), "fees", tmpl.Fees)

		t.notify(nil, chase.KindTemplate, chase.ValuePayload(tmpl.Header.Number))
	}

	if t.dirty {
		t.doTransaction()
	}
}

// build materializes a template. It runs off the strand and only reads
// the values it was handed and the store.
func (t *Template) build(candidate database.HeaderLink, entries []selector.Entry) (BlockTemplate, error) {
	pos, err := t.position(candidate)
	if err != nil {
		return BlockTemplate{}, err
	}

	tmpl := BlockTemplate{
		Trans:     make([]database.BlockTx, len(entries)),
		Links:     make([]database.TxLink, len(entries)),
		Candidate: candidate,
		Built:     time.Now().UTC(),
	}

	for i, e := range entries {
		tmpl.Trans[i] = e.BlockTx
		tmpl.Links[i] = e.Link
		tmpl.Fees += e.Fee() + e.Tip
	}

	root, err := merkle.RootHex(tmpl.Trans)
	if err != nil {
		return BlockTemplate{}, fmt.Errorf("merkle root: %w", err)
	}

	tmpl.Header = database.BlockHeader{
		Number:        pos.Number,
		PrevBlockHash: pos.PrevBlockHash,
		TimeStamp:     uint64(tmpl.Built.UnixMilli()),
		BeneficiaryID: t.settings.Beneficiary,
		Difficulty:    pos.Difficulty,
		MiningReward:  t.settings.Genesis.MiningReward,
		TransRoot:     root,
	}

	return tmpl, nil
}

// position returns the header fields that place the template in the
// chain. They come from the candidate while it still extends the confirmed
// top, otherwise from the top itself.
func (t *Template) position(candidate database.HeaderLink) (database.BlockHeader, error) {
	_, top, err := t.query.Top()
	if err != nil {
		return database.BlockHeader{}, fmt.Errorf("top: %w", err)
	}

	next := database.BlockHeader{
		Number:        top.Number + 1,
		PrevBlockHash: top.Hash,
		Difficulty:    t.settings.Genesis.Difficulty,
	}

	if candidate.IsTerminal() {
		return next, nil
	}

	header, err := t.query.Header(candidate)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return next, nil
	case err != nil:
		return database.BlockHeader{}, fmt.Errorf("candidate: %w", err)
	}

	if header.PrevBlockHash != top.Hash {
		return next, nil
	}

	return header.BlockHeader, nil
}
