// Package merkle computes merkle roots over block transactions for
// candidate and template headers.
package merkle

import (
	"crypto/sha256"
	"hash"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Hash() ([]byte, error)
}

// Option changes how a root is computed.
type Option func(*config)

type config struct {
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using
// sha256.
func WithHashStrategy(hashStrategy func() hash.Hash) Option {
	return func(c *config) {
		c.hashStrategy = hashStrategy
	}
}

// =============================================================================

// Root computes the merkle root of the values. An odd leaf on any level is
// paired with itself. The root of no values is a hash sized run of zeros.
func Root[T Hashable](values []T, options ...Option) ([]byte, error) {
	cfg := config{
		hashStrategy: sha256.New,
	}
	for _, option := range options {
		option(&cfg)
	}

	if len(values) == 0 {
		return make([]byte, cfg.hashStrategy().Size()), nil
	}

	level := make([][]byte, len(values))
	for i, value := range values {
		h, err := value.Hash()
		if err != nil {
			return nil, err
		}
		level[i] = h
	}

	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := make([][]byte, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			h := cfg.hashStrategy()
			h.Write(level[i])
			h.Write(level[i+1])
			next = append(next, h.Sum(nil))
		}
		level = next
	}

	return level[0], nil
}

// RootHex returns the merkle root as a hex string.
func RootHex[T Hashable](values []T, options ...Option) (string, error) {
	root, err := Root(values, options...)
	if err != nil {
		return "", err
	}

	return hexutil.Encode(root), nil
}
