package database

import (
	"encoding/binary"
	"strconv"
)

// Terminal is the link value that references nothing.
const Terminal = ^uint32(0)

// HeaderLink is an opaque reference to a header record in the store. A
// header link also identifies the block that carries the header.
type HeaderLink uint32

// IsTerminal reports whether the link references nothing.
func (l HeaderLink) IsTerminal() bool {
	return uint32(l) == Terminal
}

// String implements the fmt.Stringer interface for logging.
func (l HeaderLink) String() string {
	if l.IsTerminal() {
		return "terminal"
	}
	return strconv.FormatUint(uint64(l), 10)
}

// TxLink is an opaque reference to a transaction record in the store.
type TxLink uint32

// IsTerminal reports whether the link references nothing.
func (l TxLink) IsTerminal() bool {
	return uint32(l) == Terminal
}

// String implements the fmt.Stringer interface for logging.
func (l TxLink) String() string {
	if l.IsTerminal() {
		return "terminal"
	}
	return strconv.FormatUint(uint64(l), 10)
}

// =============================================================================

// keyPrefix is a constant byte added as a prefix for each key stored.
type keyPrefix uint8

// Keyspace of the chain data.
const (
	prefixTx      keyPrefix = 0x01
	prefixTxHash  keyPrefix = 0x02
	prefixHeader  keyPrefix = 0x03
	prefixTxBlock keyPrefix = 0x04
	prefixSystem  keyPrefix = 0xc0
)

// System records.
var (
	sysNextTx     = []byte{byte(prefixSystem), 0x01}
	sysNextHeader = []byte{byte(prefixSystem), 0x02}
	sysTop        = []byte{byte(prefixSystem), 0x03}
	sysCandidate  = []byte{byte(prefixSystem), 0x04}
)

// bytes returns the bytes representation of the prefix.
func (k keyPrefix) bytes() []byte {
	return []byte{byte(k)}
}

// linkKey forms the key for a record identified by a link.
func linkKey(prefix keyPrefix, link uint32) []byte {
	key := make([]byte, 5)
	key[0] = byte(prefix)
	binary.BigEndian.PutUint32(key[1:], link)
	return key
}

// hashKey forms the key for an index record identified by a hash.
func hashKey(prefix keyPrefix, hash []byte) []byte {
	key := make([]byte, 1+len(hash))
	key[0] = byte(prefix)
	copy(key[1:], hash)
	return key
}

// encodeLink encodes a link value for storage.
func encodeLink(link uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, link)
	return b
}

// decodeLink decodes a stored link value.
func decodeLink(b []byte) uint32 {
	if len(b) != 4 {
		return Terminal
	}
	return binary.BigEndian.Uint32(b)
}
