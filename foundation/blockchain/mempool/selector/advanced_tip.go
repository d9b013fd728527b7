package selector

import (
	"maps"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
)

// advancedTipSelect returns transactions with the best tip while respecting the nonce
// for each account/transaction. This strategy takes into account high-value transactions
// that happens to be stuck on a low-nonce transaction with a low tip price.
var advancedTipSelect = func(m map[database.AccountID][]Entry, howMany int) []Entry {
	final := []Entry{}

	if howMany == -1 {
		howMany = total(m)
	}

	keys := accounts(m)

	at := newAdvancedTips(m, keys, howMany)
	best := at.findBest()
	for _, from := range keys {
		final = append(final, m[from][:best[from]]...)
	}

	return final
}

// =============================================================================

type advancedTips struct {
	howMany   int
	bestTip   uint64
	bestCount int
	bestPos   map[database.AccountID]int
	groupTips map[database.AccountID][]uint64
	groups    []database.AccountID
}

func newAdvancedTips(m map[database.AccountID][]Entry, groups []database.AccountID, howMany int) *advancedTips {
	groupTips := map[database.AccountID][]uint64{}

	for _, from := range groups {
		groupTips[from] = []uint64{0}
		for i, tx := range m[from] {
			if i > howMany {
				break
			}
			groupTips[from] = append(groupTips[from], tx.Tip+groupTips[from][i])
		}
	}

	return &advancedTips{
		howMany:   howMany,
		groupTips: groupTips,
		groups:    groups,
	}
}

func (at *advancedTips) findBest() map[database.AccountID]int {
	at.findBestTransactions(0, at.howMany, at.bestPos, 0)
	return at.bestPos
}

// findBestTransactions walks every combination of per account prefixes that
// fits. Ties on the total tip go to the combination with more transactions.
func (at *advancedTips) findBestTransactions(groupID int, left int, currPos map[database.AccountID]int, prevTip uint64) {
	count := at.howMany - left
	if prevTip > at.bestTip || (prevTip == at.bestTip && count > at.bestCount) {
		at.bestTip = prevTip
		at.bestCount = count
		at.bestPos = currPos
	}

	if groupID >= len(at.groups) {
		return
	}
	from := at.groups[groupID]

	for pos, tip := range at.groupTips[from] {
		if left-pos < 0 {
			break
		}

		newCurrPos := maps.Clone(currPos)
		if newCurrPos == nil {
			newCurrPos = map[database.AccountID]int{}
		}
		newCurrPos[from] = pos
		at.findBestTransactions(groupID+1, left-pos, newCurrPos, prevTip+tip)
	}
}
