// Package database handles the chain data the node keeps on disk. Records are
// addressed by links, small integer ids handed out when a record is written,
// so the rest of the node never holds on to chain data it does not own.
package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ardanlabs/chasenode/foundation/blockchain/database/storage"
	lru "github.com/hashicorp/golang-lru"
)

// Set of errors the database can return.
var (
	ErrDiskFull    = errors.New("disk full")
	ErrNotFound    = errors.New("not found")
	ErrTxConfirmed = errors.New("transaction already confirmed")
)

// defaultCacheSize is the number of tx hash lookups kept in memory when no
// size is configured.
const defaultCacheSize = 4096

// Config represents the settings required to open the database.
type Config struct {
	Store        storage.Store
	Difficulty   uint16
	Path         string
	MaxBytes     int64
	MinFreeBytes uint64
	CacheSize    int
}

// Database manages the links and records of the chain.
type Database struct {
	mu sync.RWMutex

	store        storage.Store
	difficulty   uint16
	path         string
	maxBytes     int64
	minFreeBytes uint64

	hashes     *lru.Cache
	nextTx     uint32
	nextHeader uint32
	top        HeaderLink
	candidate  HeaderLink
}

// New constructs a database over the store and loads the system records.
func New(cfg Config) (*Database, error) {
	if cfg.Store == nil {
		return nil, errors.New("database requires a store")
	}

	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}

	hashes, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("construct hash cache: %w", err)
	}

	db := Database{
		store:        cfg.Store,
		difficulty:   cfg.Difficulty,
		path:         cfg.Path,
		maxBytes:     cfg.MaxBytes,
		minFreeBytes: cfg.MinFreeBytes,
		hashes:       hashes,
		top:          HeaderLink(Terminal),
		candidate:    HeaderLink(Terminal),
	}

	if db.nextTx, err = db.readSystem(sysNextTx, 0); err != nil {
		return nil, err
	}
	if db.nextHeader, err = db.readSystem(sysNextHeader, 0); err != nil {
		return nil, err
	}

	top, err := db.readSystem(sysTop, Terminal)
	if err != nil {
		return nil, err
	}
	db.top = HeaderLink(top)

	candidate, err := db.readSystem(sysCandidate, Terminal)
	if err != nil {
		return nil, err
	}
	db.candidate = HeaderLink(candidate)

	return &db, nil
}

// Close closes the underlying store.
func (db *Database) Close() error {
	return db.store.Close()
}

// =============================================================================

// StoreTx writes the transaction if it's not already known. The bool reports
// whether a new record was written. A known transaction returns its existing
// link and no error.
func (db *Database) StoreTx(tx BlockTx) (TxLink, bool, error) {
	hash, err := tx.Hash()
	if err != nil {
		return TxLink(Terminal), false, fmt.Errorf("hash tx: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if link, err := db.txByHash(hash); err == nil {
		return link, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return TxLink(Terminal), false, err
	}

	if err := db.checkCapacity(); err != nil {
		return TxLink(Terminal), false, err
	}

	changes := make(map[string][]byte)
	link, err := db.addTx(changes, tx, hash)
	if err != nil {
		return TxLink(Terminal), false, err
	}

	if err := db.commit(changes); err != nil {
		return TxLink(Terminal), false, err
	}

	db.nextTx++
	db.hashes.Add(string(hash), link)

	return link, true, nil
}

// TxByHash returns the link of the transaction with the specified hash.
func (db *Database) TxByHash(hash []byte) (TxLink, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.txByHash(hash)
}

// Tx reads the transaction referenced by the link.
func (db *Database) Tx(link TxLink) (BlockTx, error) {
	data, err := db.get(linkKey(prefixTx, uint32(link)))
	if err != nil {
		return BlockTx{}, fmt.Errorf("tx %s: %w", link, err)
	}

	var tx BlockTx
	if err := json.Unmarshal(data, &tx); err != nil {
		return BlockTx{}, fmt.Errorf("decode tx %s: %w", link, err)
	}

	return tx, nil
}

// TxBlock returns the link of the confirmed block that includes the
// transaction. An unconfirmed transaction returns ErrNotFound.
func (db *Database) TxBlock(link TxLink) (HeaderLink, error) {
	data, err := db.get(linkKey(prefixTxBlock, uint32(link)))
	if err != nil {
		return HeaderLink(Terminal), err
	}

	return HeaderLink(decodeLink(data)), nil
}

// =============================================================================

// AppendBlock writes the block as the new top of the confirmed chain. The
// block must already be validated against the current top. A block holding
// a transaction that is already confirmed, or holding one twice, is
// rejected with ErrTxConfirmed.
func (db *Database) AppendBlock(block Block) (HeaderLink, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkCapacity(); err != nil {
		return HeaderLink(Terminal), err
	}

	changes := make(map[string][]byte)
	added := make(map[string]TxLink)

	// Links handed out for new transactions are returned if the write fails.
	nextTx := db.nextTx
	committed := false
	defer func() {
		if !committed {
			db.nextTx = nextTx
		}
	}()

	links := make([]TxLink, 0, len(block.Trans))
	for _, tx := range block.Trans {
		hash, err := tx.Hash()
		if err != nil {
			return HeaderLink(Terminal), fmt.Errorf("hash tx: %w", err)
		}

		if _, exists := added[string(hash)]; exists {
			return HeaderLink(Terminal), fmt.Errorf("tx %s repeated in block: %w", tx, ErrTxConfirmed)
		}

		link, err := db.txByHash(hash)
		switch {
		case err == nil:
			if _, err := db.get(linkKey(prefixTxBlock, uint32(link))); err == nil {
				return HeaderLink(Terminal), fmt.Errorf("tx %s: %w", tx, ErrTxConfirmed)
			} else if !errors.Is(err, ErrNotFound) {
				return HeaderLink(Terminal), err
			}
			added[string(hash)] = link

		case errors.Is(err, ErrNotFound):
			if link, err = db.addTx(changes, tx, hash); err != nil {
				return HeaderLink(Terminal), err
			}
			db.nextTx++
			added[string(hash)] = link
		default:
			return HeaderLink(Terminal), err
		}

		links = append(links, link)
	}

	header := Header{
		BlockHeader: block.Header,
		Hash:        block.Hash(),
		State:       StateConfirmed,
		Txs:         links,
	}

	link, err := db.addHeader(changes, header)
	if err != nil {
		return HeaderLink(Terminal), err
	}
	changes[string(sysTop)] = encodeLink(uint32(link))
	for _, txLink := range links {
		changes[string(linkKey(prefixTxBlock, uint32(txLink)))] = encodeLink(uint32(link))
	}

	if err := db.commit(changes); err != nil {
		return HeaderLink(Terminal), err
	}
	committed = true

	db.nextHeader++
	db.top = link
	for hash, txLink := range added {
		db.hashes.Add(hash, txLink)
	}

	return link, nil
}

// AppendCandidate writes a candidate header over the transactions. Only one
// candidate is kept, the previous one is removed in the same change set.
func (db *Database) AppendCandidate(bh BlockHeader, txs []TxLink) (HeaderLink, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.checkCapacity(); err != nil {
		return HeaderLink(Terminal), err
	}

	header := Header{
		BlockHeader: bh,
		Hash:        bh.Hash(),
		State:       StateCandidate,
		Txs:         txs,
	}

	changes := make(map[string][]byte)
	link, err := db.addHeader(changes, header)
	if err != nil {
		return HeaderLink(Terminal), err
	}

	if !db.candidate.IsTerminal() {
		changes[string(linkKey(prefixHeader, uint32(db.candidate)))] = nil
	}
	changes[string(sysCandidate)] = encodeLink(uint32(link))

	if err := db.commit(changes); err != nil {
		return HeaderLink(Terminal), err
	}

	db.nextHeader++
	db.candidate = link

	return link, nil
}

// Header reads the header referenced by the link.
func (db *Database) Header(link HeaderLink) (Header, error) {
	data, err := db.get(linkKey(prefixHeader, uint32(link)))
	if err != nil {
		return Header{}, fmt.Errorf("header %s: %w", link, err)
	}

	var header Header
	if err := json.Unmarshal(data, &header); err != nil {
		return Header{}, fmt.Errorf("decode header %s: %w", link, err)
	}

	return header, nil
}

// BlockTxs returns the links of the transactions the header includes.
func (db *Database) BlockTxs(link HeaderLink) ([]TxLink, error) {
	header, err := db.Header(link)
	if err != nil {
		return nil, err
	}

	return header.Txs, nil
}

// Block materializes the header and its transactions.
func (db *Database) Block(link HeaderLink) (Block, error) {
	header, err := db.Header(link)
	if err != nil {
		return Block{}, err
	}

	block := Block{
		Header: header.BlockHeader,
		Trans:  make([]BlockTx, 0, len(header.Txs)),
	}

	for _, txLink := range header.Txs {
		tx, err := db.Tx(txLink)
		if err != nil {
			return Block{}, err
		}
		block.Trans = append(block.Trans, tx)
	}

	return block, nil
}

// Top returns the top of the confirmed chain. An empty chain reports the
// terminal link and the genesis header.
func (db *Database) Top() (HeaderLink, Header, error) {
	db.mu.RLock()
	top := db.top
	db.mu.RUnlock()

	if top.IsTerminal() {
		return top, genesisHeader(db.difficulty), nil
	}

	header, err := db.Header(top)
	if err != nil {
		return top, Header{}, err
	}

	return top, header, nil
}

// Candidate returns the link of the current candidate header.
func (db *Database) Candidate() HeaderLink {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.candidate
}

// =============================================================================

// IsFull reports whether the store has reached its configured capacity or
// the volume holding it is below the configured free space.
func (db *Database) IsFull() (bool, error) {
	if db.maxBytes > 0 {
		size, err := db.store.Size()
		if err != nil {
			return false, fmt.Errorf("store size: %w", err)
		}
		if size >= db.maxBytes {
			return true, nil
		}
	}

	if db.path != "" && db.minFreeBytes > 0 {
		free, err := freeBytes(db.path)
		if err != nil {
			return false, fmt.Errorf("free space: %w", err)
		}
		if free < db.minFreeBytes {
			return true, nil
		}
	}

	return false, nil
}

// Size returns the number of bytes the store occupies.
func (db *Database) Size() (int64, error) {
	return db.store.Size()
}

// ForEachTx calls f for every stored transaction in link order until f
// returns false.
func (db *Database) ForEachTx(f func(link TxLink, tx BlockTx) bool) error {
	var decodeErr error
	err := db.store.Seek(prefixTx.bytes(), func(k, v []byte) bool {
		var tx BlockTx
		if decodeErr = json.Unmarshal(v, &tx); decodeErr != nil {
			return false
		}
		return f(TxLink(decodeLink(k[1:])), tx)
	})

	if err != nil {
		return err
	}
	return decodeErr
}

// ForEachHeader calls f for every stored header in link order until f
// returns false.
func (db *Database) ForEachHeader(f func(link HeaderLink, header Header) bool) error {
	var decodeErr error
	err := db.store.Seek(prefixHeader.bytes(), func(k, v []byte) bool {
		var header Header
		if decodeErr = json.Unmarshal(v, &header); decodeErr != nil {
			return false
		}
		return f(HeaderLink(decodeLink(k[1:])), header)
	})

	if err != nil {
		return err
	}
	return decodeErr
}

// =============================================================================

// checkCapacity returns ErrDiskFull when no more writes should be accepted.
func (db *Database) checkCapacity() error {
	full, err := db.IsFull()
	if err != nil {
		return err
	}
	if full {
		return fmt.Errorf("write refused: %w", ErrDiskFull)
	}
	return nil
}

// txByHash looks the hash up in the cache and then the index.
func (db *Database) txByHash(hash []byte) (TxLink, error) {
	if v, ok := db.hashes.Get(string(hash)); ok {
		return v.(TxLink), nil
	}

	data, err := db.get(hashKey(prefixTxHash, hash))
	if err != nil {
		return TxLink(Terminal), err
	}

	link := TxLink(decodeLink(data))
	db.hashes.Add(string(hash), link)

	return link, nil
}

// addTx adds the transaction records to the change set under the next link.
func (db *Database) addTx(changes map[string][]byte, tx BlockTx, hash []byte) (TxLink, error) {
	if db.nextTx == Terminal {
		return TxLink(Terminal), errors.New("tx links exhausted")
	}

	data, err := json.Marshal(tx)
	if err != nil {
		return TxLink(Terminal), fmt.Errorf("encode tx: %w", err)
	}

	link := db.nextTx
	changes[string(linkKey(prefixTx, link))] = data
	changes[string(hashKey(prefixTxHash, hash))] = encodeLink(link)
	changes[string(sysNextTx)] = encodeLink(link + 1)

	return TxLink(link), nil
}

// addHeader adds the header record to the change set under the next link.
func (db *Database) addHeader(changes map[string][]byte, header Header) (HeaderLink, error) {
	if db.nextHeader == Terminal {
		return HeaderLink(Terminal), errors.New("header links exhausted")
	}

	data, err := json.Marshal(header)
	if err != nil {
		return HeaderLink(Terminal), fmt.Errorf("encode header: %w", err)
	}

	link := db.nextHeader
	changes[string(linkKey(prefixHeader, link))] = data
	changes[string(sysNextHeader)] = encodeLink(link + 1)

	return HeaderLink(link), nil
}

// commit writes the change set, reporting a failed write on a full store
// as ErrDiskFull.
func (db *Database) commit(changes map[string][]byte) error {
	if err := db.store.PutChangeSet(changes); err != nil {
		if full, _ := db.IsFull(); full {
			return fmt.Errorf("write failed: %v: %w", err, ErrDiskFull)
		}
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// get reads the key and maps a missing key to ErrNotFound.
func (db *Database) get(key []byte) ([]byte, error) {
	data, err := db.store.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// readSystem reads a system link record or returns the default.
func (db *Database) readSystem(key []byte, def uint32) (uint32, error) {
	data, err := db.get(key)
	switch {
	case errors.Is(err, ErrNotFound):
		return def, nil
	case err != nil:
		return 0, fmt.Errorf("read system record: %w", err)
	}
	return decodeLink(data), nil
}
