package chaser

import (
	"errors"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/mempool"
	"github.com/ardanlabs/chasenode/foundation/blockchain/mempool/selector"
	"go.uber.org/zap"
)

// Transaction is the authoritative tracker of unconfirmed transactions. It
// stores new transactions and forgets them once a block confirms them.
type Transaction struct {
	*Chaser
	query   Query
	chainID uint16
	pool    *mempool.Mempool
}

// NewTransaction constructs the transaction chaser. Transactions are
// validated against the chain id before they are stored.
func NewTransaction(log *zap.SugaredLogger, bus *chase.Bus, query Query, chainID uint16) (*Transaction, error) {
	pool, err := mempool.New()
	if err != nil {
		return nil, err
	}

	t := Transaction{
		query:   query,
		chainID: chainID,
		pool:    pool,
	}
	t.Chaser = newChaser("transaction", log, bus, t.handleEvent, nil)

	return &t, nil
}

// Store hands the transaction to the chaser. It returns false when the
// chaser is stopped and the transaction will not be stored.
func (t *Transaction) Store(tx database.BlockTx) bool {
	return t.post(func() {
		t.doStore(tx)
	})
}

// Unconfirmed returns the tracked transactions in arrival order.
func (t *Transaction) Unconfirmed() []selector.Entry {
	return t.pool.Ordered(-1)
}

// Count returns the number of tracked transactions.
func (t *Transaction) Count() int {
	return t.pool.Count()
}

// =============================================================================

func (t *Transaction) handleEvent(ev chase.Event) bool {
	switch ev.Kind {
	case chase.KindConfirmed:
		if link, ok := ev.Payload.Header(); ok {
			t.doConfirmed(link)
		}

	case chase.KindStore:
		if link, ok := ev.Payload.Tx(); ok {
			t.doStoreLink(link)
		}
	}

	return true
}

// doStore persists a transaction handed to the node and starts tracking it.
func (t *Transaction) doStore(tx database.BlockTx) {
	if err := tx.Validate(t.chainID); err != nil {
		t.log.Infow("store", "status", "rejected", "tx", tx.String(), "ERROR", err)
		return
	}

	link, _, err := t.query.StoreTx(tx)
	if err != nil {
		if errors.Is(err, database.ErrDiskFull) {
			t.log.Infow("store", "status", "disk full", "tx", tx.String())
			t.notify(nil, chase.KindFull, chase.ValuePayload(height(t.query)))
			return
		}

		t.log.Errorw("store", "tx", tx.String(), "ERROR", err)
		return
	}

	t.track(link, tx)
}

// doStoreLink starts tracking a transaction another source already stored.
func (t *Transaction) doStoreLink(link database.TxLink) {
	tx, err := t.query.Tx(link)
	if err != nil {
		t.log.Errorw("store", "link", link, "ERROR", err)
		return
	}

	if err := tx.Validate(t.chainID); err != nil {
		t.log.Infow("store", "status", "rejected", "link", link, "ERROR", err)
		return
	}

	t.track(link, tx)
}

// track adds the stored transaction to the unconfirmed set and announces
// it. Transactions already tracked or already confirmed are ignored.
func (t *Transaction) track(link database.TxLink, tx database.BlockTx) {
	if t.pool.Contains(link) {
		return
	}

	if _, err := t.query.TxBlock(link); err == nil {
		t.log.Infow("store", "status", "already confirmed", "link", link)
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		t.log.Errorw("store", "link", link, "ERROR", err)
		return
	}

	added, err := t.pool.Add(link, tx)
	if err != nil {
		t.log.Errorw("store", "link", link, "ERROR", err)
		return
	}
	if !added {
		return
	}

	updateUnconfirmedMetric(t.pool.Count())
	t.log.Infow("store", "status", "tracked", "link", link, "tx", tx.String())

	t.notify(nil, chase.KindTransaction, chase.TxPayload(link))
}

// doConfirmed removes the transactions the block includes from the
// unconfirmed set.
func (t *Transaction) doConfirmed(link database.HeaderLink) {
	txs, err := t.query.BlockTxs(link)
	if err != nil {
		t.log.Errorw("confirmed", "header", link, "ERROR", err)
		return
	}

	removed := t.pool.Delete(txs...)
	updateUnconfirmedMetric(t.pool.Count())

	t.log.Infow("confirmed", "header", link, "removed", removed, "remaining", t.pool.Count())
}
