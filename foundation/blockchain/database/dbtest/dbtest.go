// Package dbtest contains supporting code for running tests that need
// chain data.
package dbtest

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database/storage"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	Success = "\u2713"
	Failed  = "\u2717"
)

// ChainID is the chain id every test transaction is signed for.
const ChainID = 1

// ToID is the account receiving every test transaction.
const ToID = database.AccountID("0xF01813E4B85e178A83e29B8E7bF26BD830a25f32")

// NewDB constructs a database over a fresh memory store. A maxBytes above
// zero limits the size of the store.
func NewDB(t *testing.T, maxBytes int64) *database.Database {
	t.Helper()

	db, err := database.New(database.Config{
		Store:    storage.NewMemory(),
		MaxBytes: maxBytes,
	})
	if err != nil {
		t.Fatalf("unable to construct database: %s", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}

// NewTx constructs a block transaction signed by a fresh key.
func NewTx(t *testing.T, nonce uint64, tip uint64) database.BlockTx {
	t.Helper()

	pk, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("unable to generate key: %s", err)
	}

	return NewTxFrom(t, pk, nonce, tip)
}

// NewTxFrom constructs a block transaction signed by the specified key.
func NewTxFrom(t *testing.T, pk *ecdsa.PrivateKey, nonce uint64, tip uint64) database.BlockTx {
	t.Helper()

	tx, err := database.NewTx(ChainID, nonce, ToID, 10, tip, nil)
	if err != nil {
		t.Fatalf("unable to construct tx: %s", err)
	}

	signed, err := tx.Sign(pk)
	if err != nil {
		t.Fatalf("unable to sign tx: %s", err)
	}

	return database.NewBlockTx(signed, 1, 1)
}
