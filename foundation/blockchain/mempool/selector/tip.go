package selector

import (
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
)

// tipSelect returns transactions with the best tip while respecting the nonce
// for each account/transaction.
//
// Selection works in rounds. Round N holds the Nth lowest nonce of every
// account, so taking whole rounds in order can never skip a nonce. Rounds
// are taken whole until the next one no longer fits, and that last round is
// cut down to its best tips.
var tipSelect = func(m map[database.AccountID][]Entry, howMany int) []Entry {
	if howMany == -1 {
		howMany = total(m)
	}

	keys := accounts(m)

	final := make([]Entry, 0, howMany)
	for round := 0; len(final) < howMany; round++ {
		var row []Entry
		for _, key := range keys {
			if round < len(m[key]) {
				row = append(row, m[key][round])
			}
		}

		if len(row) == 0 {
			break
		}

		if need := howMany - len(final); len(row) > need {
			byTip(row)
			row = row[:need]
		}

		final = append(final, row...)
	}

	return final
}
