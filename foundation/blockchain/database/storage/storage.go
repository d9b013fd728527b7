// Package storage provides the key/value backends the chain database is
// written to. The memory backend is meant for tests and throwaway nodes.
package storage

import (
	"errors"
	"fmt"
)

// ErrKeyNotFound is returned by Store implementations when a certain key is
// not found.
var ErrKeyNotFound = errors.New("key not found")

// Store represents the behavior required to be implemented by any package
// providing support for persisting chain data.
type Store interface {
	Get(key []byte) ([]byte, error)

	// PutChangeSet applies all the changes atomically. A nil value deletes
	// the key.
	PutChangeSet(changes map[string][]byte) error

	// Seek calls f for every key with the prefix in ascending key order
	// until f returns false. Key and value are only valid during the call.
	Seek(prefix []byte, f func(k, v []byte) bool) error

	// Size returns the number of bytes the store occupies.
	Size() (int64, error)

	Close() error
}

// Set of supported backends.
const (
	TypeMemory  = "memory"
	TypeBolt    = "bolt"
	TypeLevelDB = "leveldb"
)

// New constructs the store of the specified type at the specified path.
func New(typ string, path string) (Store, error) {
	switch typ {
	case TypeMemory:
		return NewMemory(), nil
	case TypeBolt:
		return NewBolt(path)
	case TypeLevelDB:
		return NewLevelDB(path)
	}

	return nil, fmt.Errorf("store type %q does not exist", typ)
}
