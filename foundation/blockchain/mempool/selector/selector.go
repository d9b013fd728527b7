// Package selector provides different transaction selecting algorithms.
package selector

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyTip         = "tip"
	StrategyTipAdvanced = "advanced_tip"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyTip:         tipSelect,
	StrategyTipAdvanced: advancedTipSelect,
}

// Entry is an unconfirmed transaction and the link it's stored under.
type Entry struct {
	Link database.TxLink
	database.BlockTx
}

// Func defines a function that takes a mempool of transactions grouped by
// account and selects howMany of them in an order based on the functions
// strategy. All selector functions MUST respect nonce ordering. Receiving -1
// for howMany must return all the transactions in the strategies ordering.
type Func func(transactions map[database.AccountID][]Entry, howMany int) []Entry

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}

// =============================================================================

// accounts returns the accounts of the mempool in sorted order and sorts
// each account's transactions by nonce. Selection over the same mempool is
// repeatable.
func accounts(m map[database.AccountID][]Entry) []database.AccountID {
	keys := slices.Sorted(maps.Keys(m))

	for _, key := range keys {
		slices.SortStableFunc(m[key], func(a, b Entry) int {
			return cmp.Compare(a.Nonce, b.Nonce)
		})
	}

	return keys
}

// byTip orders the entries by tip, highest first. Equal tips keep the
// entry stored first in front.
func byTip(entries []Entry) {
	slices.SortStableFunc(entries, func(a, b Entry) int {
		if c := cmp.Compare(b.Tip, a.Tip); c != 0 {
			return c
		}
		return cmp.Compare(a.Link, b.Link)
	})
}

// total returns how many transactions the mempool holds.
func total(m map[database.AccountID][]Entry) int {
	var n int
	for _, entries := range m {
		n += len(entries)
	}
	return n
}
