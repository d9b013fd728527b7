package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

// bucket is the single bucket all chain data is stored in.
var bucket = []byte("chain")

// Bolt is the BoltDB implementation of a Store.
type Bolt struct {
	db *bbolt.DB
}

// NewBolt opens or creates the BoltDB file at the specified path.
func NewBolt(path string) (*Bolt, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("could not create dir for BoltDB: %w", err)
	}

	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return fmt.Errorf("could not create root bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

// Get implements the Store interface.
func (s *Bolt) Get(key []byte) ([]byte, error) {
	var val []byte
	err := s.db.View(func(tx *bbolt.Tx) error {

		// Values returned by bolt are only valid during the transaction.
		val = bytes.Clone(tx.Bucket(bucket).Get(key))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if val == nil {
		return nil, ErrKeyNotFound
	}

	return val, nil
}

// PutChangeSet implements the Store interface.
func (s *Bolt) PutChangeSet(changes map[string][]byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucket)
		for k, v := range changes {
			var err error
			if v == nil {
				err = b.Delete([]byte(k))
			} else {
				err = b.Put([]byte(k), v)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Seek implements the Store interface.
func (s *Bolt) Seek(prefix []byte, f func(k, v []byte) bool) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucket).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if !f(k, v) {
				break
			}
		}
		return nil
	})
}

// Size implements the Store interface.
func (s *Bolt) Size() (int64, error) {
	var size int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		size = tx.Size()
		return nil
	})

	return size, err
}

// Close implements the Store interface.
func (s *Bolt) Close() error {
	return s.db.Close()
}
