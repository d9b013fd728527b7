// Package organizer accepts blocks from the network and appends them to the
// chain. A fixed set of worker goroutines decodes blocks in parallel, each
// one into its own memory arena.
package organizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"github.com/ardanlabs/chasenode/foundation/blockchain/memory"
	"go.uber.org/zap"
)

// Set of errors returned by Organize.
var (
	ErrStopped   = errors.New("organizer stopped")
	ErrBlockSize = errors.New("block size out of range")
)

// Chain represents the storage behavior the organizer needs.
type Chain interface {
	Top() (database.HeaderLink, database.Header, error)
	AppendBlock(block database.Block) (database.HeaderLink, error)
}

// Config represents the dependencies of the organizer.
type Config struct {
	Log          *zap.SugaredLogger
	Bus          *chase.Bus
	Chain        Chain
	Memory       *memory.Memory
	Workers      int
	MaxBlockSize int
}

// Organizer manages the pool of block ingest workers.
type Organizer struct {
	log          *zap.SugaredLogger
	bus          *chase.Bus
	chain        Chain
	mem          *memory.Memory
	maxBlockSize int

	// mu serializes the check against the top and the append.
	mu sync.Mutex

	requests chan request
	shut     chan struct{}
	shutOnce sync.Once
	wg       sync.WaitGroup
}

type request struct {
	body  io.Reader
	size  int
	reply chan result
}

type result struct {
	link database.HeaderLink
	err  error
}

// New constructs an organizer and starts its workers. Every worker binds
// an arena of the memory pool the first time it handles a block.
func New(cfg Config) *Organizer {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	mem := cfg.Memory
	if mem == nil {
		mem = memory.New(0, 0, 0)
	}

	o := Organizer{
		log:          cfg.Log,
		bus:          cfg.Bus,
		chain:        cfg.Chain,
		mem:          mem,
		maxBlockSize: cfg.MaxBlockSize,
		requests:     make(chan request),
		shut:         make(chan struct{}),
	}

	o.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(id int) {
			defer o.wg.Done()
			o.worker(id)
		}(i)
	}

	return &o
}

// Shutdown stops the workers and waits for the blocks in flight.
func (o *Organizer) Shutdown() {
	o.log.Infow("organizer: shutdown: started")
	defer o.log.Infow("organizer: shutdown: completed")

	o.shutOnce.Do(func() {
		close(o.shut)
	})
	o.wg.Wait()
}

// Organize hands the wire encoding of a block to a worker and waits for the
// result. The size is the exact length of the body in bytes.
func (o *Organizer) Organize(ctx context.Context, body io.Reader, size int) (database.HeaderLink, error) {
	if size <= 0 || (o.maxBlockSize > 0 && size > o.maxBlockSize) {
		return database.HeaderLink(database.Terminal), fmt.Errorf("%w: %d", ErrBlockSize, size)
	}

	req := request{
		body:  body,
		size:  size,
		reply: make(chan result, 1),
	}

	select {
	case o.requests <- req:
	case <-o.shut:
		return database.HeaderLink(database.Terminal), ErrStopped
	case <-ctx.Done():
		return database.HeaderLink(database.Terminal), ctx.Err()
	}

	// The worker owns the body until it replies.
	r := <-req.reply
	return r.link, r.err
}

// =============================================================================

func (o *Organizer) worker(id int) {
	binding := o.mem.Bind()

	for {
		select {
		case <-o.shut:
			return

		case req := <-o.requests:
			link, err := o.organize(binding.Arena(), req)
			if err != nil {
				o.log.Infow("organizer", "worker", id, "status", "block rejected", "ERROR", err)
			}
			req.reply <- result{link: link, err: err}
		}
	}
}

// organize reads one block into the arena, decodes it and appends it to
// the chain. Everything allocated for the block is released at the end.
func (o *Organizer) organize(arena memory.Allocator, req request) (database.HeaderLink, error) {
	arena.Start(req.size)
	defer arena.Reset()

	wire := arena.Allocate(req.size)
	if _, err := io.ReadFull(req.body, wire); err != nil {
		return database.HeaderLink(database.Terminal), fmt.Errorf("read block: %w", err)
	}

	var blockData database.BlockData
	if err := json.NewDecoder(bytes.NewReader(wire)).Decode(&blockData); err != nil {
		return database.HeaderLink(database.Terminal), fmt.Errorf("decode block: %w", err)
	}

	block := database.ToBlock(blockData)
	if hash := block.Hash(); hash != blockData.Hash {
		return database.HeaderLink(database.Terminal), fmt.Errorf("block hash mismatch, got %s, exp %s", blockData.Hash, hash)
	}

	return o.append(block)
}

// append validates the block against the current top and stores it.
func (o *Organizer) append(block database.Block) (database.HeaderLink, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, top, err := o.chain.Top()
	if err != nil {
		return database.HeaderLink(database.Terminal), fmt.Errorf("top: %w", err)
	}

	if err := block.Validate(top); err != nil {
		updateBlocksMetric("invalid")
		return database.HeaderLink(database.Terminal), err
	}

	link, err := o.chain.AppendBlock(block)
	switch {
	case errors.Is(err, database.ErrDiskFull):
		updateBlocksMetric("full")
		o.bus.Notify(nil, chase.KindFull, chase.ValuePayload(top.Number))
		return database.HeaderLink(database.Terminal), err

	case err != nil:
		updateBlocksMetric("failed")
		return database.HeaderLink(database.Terminal), fmt.Errorf("append block: %w", err)
	}

	updateBlocksMetric("confirmed")
	o.log.Infow("organizer", "status", "block confirmed", "number", block.Header.Number, "link", link, "txs", len(block.Trans))
	o.bus.Notify(nil, chase.KindConfirmed, chase.HeaderPayload(link))

	return link, nil
}
