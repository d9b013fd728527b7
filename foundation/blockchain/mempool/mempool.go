// Package mempool maintains the set of unconfirmed transactions.
package mempool

import (
	"sort"
	"sync"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/mempool/selector"
)

// entry is a pooled transaction with its sender and arrival position.
type entry struct {
	selector.Entry
	from database.AccountID
	seq  uint64
}

// Mempool represents a cache of unconfirmed transactions keyed by the link
// they are stored under.
type Mempool struct {
	mu       sync.RWMutex
	pool     map[database.TxLink]entry
	seq      uint64
	selectFn selector.Func
}

// New constructs a new mempool using the default select strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyTip)
}

// NewWithStrategy constructs a new mempool with specified select strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[database.TxLink]entry),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Contains reports whether the link is in the pool.
func (mp *Mempool) Contains(link database.TxLink) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[link]
	return exists
}

// Add puts the transaction in the pool. It returns false if the link is
// already pooled.
func (mp *Mempool) Add(link database.TxLink, tx database.BlockTx) (bool, error) {
	from, err := tx.FromAccount()
	if err != nil {
		return false, err
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[link]; exists {
		return false, nil
	}

	mp.seq++
	mp.pool[link] = entry{
		Entry: selector.Entry{Link: link, BlockTx: tx},
		from:  from,
		seq:   mp.seq,
	}

	return true, nil
}

// Delete removes the links from the pool and returns how many were pooled.
func (mp *Mempool) Delete(links ...database.TxLink) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var removed int
	for _, link := range links {
		if _, exists := mp.pool[link]; exists {
			delete(mp.pool, link)
			removed++
		}
	}

	return removed
}

// Truncate clears all the transactions from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[database.TxLink]entry)
}

// Ordered returns up to howMany transactions in arrival order. Pass -1 for
// all the transactions.
func (mp *Mempool) Ordered(howMany int) []selector.Entry {
	mp.mu.RLock()
	entries := make([]entry, 0, len(mp.pool))
	for _, e := range mp.pool {
		entries = append(entries, e)
	}
	mp.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	if howMany >= 0 && howMany < len(entries) {
		entries = entries[:howMany]
	}

	txs := make([]selector.Entry, len(entries))
	for i, e := range entries {
		txs[i] = e.Entry
	}

	return txs
}

// PickBest uses the configured select strategy to return the next set
// of transactions for the next block. Pass -1 for all the transactions.
func (mp *Mempool) PickBest(howMany int) []selector.Entry {

	// Group the transactions by account.
	m := make(map[database.AccountID][]selector.Entry)
	mp.mu.RLock()
	{
		if howMany == -1 {
			howMany = len(mp.pool)
		}

		for _, e := range mp.pool {
			m[e.from] = append(m[e.from], e.Entry)
		}
	}
	mp.mu.RUnlock()

	return mp.selectFn(m, howMany)
}
