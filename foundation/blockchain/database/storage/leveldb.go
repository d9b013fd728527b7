package storage

import (
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB is the LevelDB implementation of a Store.
type LevelDB struct {
	db   *leveldb.DB
	path string
}

// NewLevelDB opens or creates the LevelDB database in the specified
// directory.
func NewLevelDB(path string) (*LevelDB, error) {
	opts := opt.Options{
		Filter: filter.NewBloomFilter(10),
	}

	db, err := leveldb.OpenFile(path, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB instance: %w", err)
	}

	return &LevelDB{
		db:   db,
		path: path,
	}, nil
}

// Get implements the Store interface.
func (s *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrKeyNotFound
	}

	return value, err
}

// PutChangeSet implements the Store interface.
func (s *LevelDB) PutChangeSet(changes map[string][]byte) error {
	var batch leveldb.Batch
	for k, v := range changes {
		if v == nil {
			batch.Delete([]byte(k))
			continue
		}
		batch.Put([]byte(k), v)
	}

	return s.db.Write(&batch, nil)
}

// Seek implements the Store interface.
func (s *LevelDB) Seek(prefix []byte, f func(k, v []byte) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	for iter.Next() {
		if !f(iter.Key(), iter.Value()) {
			break
		}
	}

	return iter.Error()
}

// Size implements the Store interface.
func (s *LevelDB) Size() (int64, error) {
	// Every key in the chain keyspace sorts below 0xff.
	sizes, err := s.db.SizeOf([]util.Range{{Limit: []byte{0xff}}})
	if err != nil {
		return 0, err
	}

	return sizes.Sum(), nil
}

// Close implements the Store interface.
func (s *LevelDB) Close() error {
	return s.db.Close()
}
