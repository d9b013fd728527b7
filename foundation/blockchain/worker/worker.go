// Package worker mines the templates built by the template chaser and
// hands the solved blocks to the organizer.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/ardanlabs/chasenode/foundation/blockchain/chase"
	"github.com/ardanlabs/chasenode/foundation/blockchain/chaser"
	"github.com/ardanlabs/chasenode/foundation/blockchain/database"
	"go.uber.org/zap"
)

// Templates provides the latest mining template.
type Templates interface {
	Latest() *chaser.BlockTemplate
}

// Organizer accepts the wire form of a solved block.
type Organizer interface {
	Organize(ctx context.Context, body io.Reader, size int) (database.HeaderLink, error)
}

// Worker manages the mining goroutine.
type Worker struct {
	log       *zap.SugaredLogger
	templates Templates
	organizer Organizer

	startMining chan struct{}
	shut        chan struct{}
	shutOnce    sync.Once
	wg          sync.WaitGroup

	// ctx outlives any one template and ends with Shutdown.
	ctx     context.Context
	stopCtx context.CancelFunc

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Run creates a worker and starts the mining goroutine.
func Run(log *zap.SugaredLogger, templates Templates, organizer Organizer) *Worker {
	ctx, stopCtx := context.WithCancel(context.Background())

	w := Worker{
		log:         log,
		templates:   templates,
		organizer:   organizer,
		startMining: make(chan struct{}, 1),
		shut:        make(chan struct{}),
		ctx:         ctx,
		stopCtx:     stopCtx,
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.miningOperations()
	}()

	return &w
}

// Shutdown cancels any mining in progress and waits for the goroutine.
func (w *Worker) Shutdown() {
	w.log.Infow("worker: shutdown: started")
	defer w.log.Infow("worker: shutdown: completed")

	w.shutOnce.Do(func() {
		close(w.shut)
		w.stopCtx()
	})
	w.SignalCancelMining()
	w.wg.Wait()
}

// Observe is the callback of the observer chaser that drives the worker. A
// new template replaces the one being mined.
func (w *Worker) Observe(ev chase.Event) {
	if ev.Kind != chase.KindTemplate {
		return
	}

	w.SignalCancelMining()
	w.SignalStartMining()
}

// SignalStartMining starts a mining operation. If there is already a signal
// pending in the channel, just return since a mining operation will start.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- struct{}{}:
	default:
	}
}

// SignalCancelMining stops the mining operation in progress, if any.
func (w *Worker) SignalCancelMining() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
}

// =============================================================================

func (w *Worker) miningOperations() {
	for {
		select {
		case <-w.startMining:
			w.runMiningOperation()

		case <-w.shut:
			return
		}
	}
}

// runMiningOperation solves the latest template and submits the block.
func (w *Worker) runMiningOperation() {
	tmpl := w.templates.Latest()
	if tmpl == nil || len(tmpl.Trans) == 0 {
		return
	}

	ctx, cancel := context.WithCancel(w.ctx)
	defer cancel()

	w.mu.Lock()
	select {
	case <-w.shut:
		w.mu.Unlock()
		return
	default:
	}
	w.cancel = cancel
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.cancel = nil
		w.mu.Unlock()
	}()

	block := database.Block{
		Header: tmpl.Header,
		Trans:  tmpl.Trans,
	}

	w.log.Infow("worker", "status", "mining started", "number", block.Header.Number, "txs", len(block.Trans), "fees", tmpl.Fees)

	attempts, err := block.Solve(ctx)
	if err != nil {
		w.log.Infow("worker", "status", "mining cancelled", "number", block.Header.Number, "attempts", attempts)
		return
	}

	w.log.Infow("worker", "status", "mining solved", "number", block.Header.Number, "hash", block.Hash(), "attempts", attempts)

	data, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		w.log.Errorw("worker", "status", "encode block", "ERROR", err)
		return
	}

	// A newer template cancels the solve, not the hand off of a solved block.
	if _, err := w.organizer.Organize(w.ctx, bytes.NewReader(data), len(data)); err != nil {
		w.log.Infow("worker", "status", "block not accepted", "number", block.Header.Number, "ERROR", err)
	}
}
