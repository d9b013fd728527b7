package chaser

import (
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
)

// Query is the read and append surface of the chain store the chasers
// work against.
type Query interface {
	StoreTx(tx database.BlockTx) (database.TxLink, bool, error)
	Tx(link database.TxLink) (database.BlockTx, error)
	TxBlock(link database.TxLink) (database.HeaderLink, error)
	Header(link database.HeaderLink) (database.Header, error)
	BlockTxs(link database.HeaderLink) ([]database.TxLink, error)
	Top() (database.HeaderLink, database.Header, error)
	AppendCandidate(bh database.BlockHeader, txs []database.TxLink) (database.HeaderLink, error)
	IsFull() (bool, error)
}

// height returns the height of the confirmed top, zero when it can't be
// read.
func height(query Query) uint64 {
	_, top, err := query.Top()
	if err != nil {
		return 0
	}
	return top.Number
}

// confirmed reports whether the transaction is already part of a confirmed
// block. A confirmed event can be handled before the transaction event of
// one of its transactions, and the late transaction must not be pooled.
func confirmed(query Query, link database.TxLink) bool {
	_, err := query.TxBlock(link)
	return err == nil
}
