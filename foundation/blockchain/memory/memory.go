package memory

import (
	"sync/atomic"
)

// Memory is a pool of arenas, one per worker goroutine up to a configured
// bound. A goroutine gets its arena through a Binding the first time it asks
// for one and keeps it for the life of the process.
//
// The arena index counter is the only value shared between goroutines. It is
// only ever touched by a single atomic increment.
//
// Index slots are never returned, even when the goroutine that took one
// exits. Goroutines that bind must be long lived workers; short lived ones
// will exhaust the pool and fall back to the heap.
type Memory struct {
	arenas []*Arena
	next   atomic.Uint32
}

// New constructs a memory pool. A multiple of zero turns the pool off and
// every binding receives the heap allocator. Otherwise exactly threads
// arenas of multiple * wireSize bytes are allocated up front.
func New(multiple int, threads int, wireSize int) *Memory {
	if multiple <= 0 || threads <= 0 {
		return &Memory{}
	}

	arenas := make([]*Arena, threads)
	for i := range arenas {
		arenas[i] = newArena(multiple, wireSize)
	}

	return &Memory{
		arenas: arenas,
	}
}

// Enabled reports whether the pool hands out arenas at all.
func (m *Memory) Enabled() bool {
	return len(m.arenas) > 0
}

// Threads returns the number of arenas in the pool.
func (m *Memory) Threads() int {
	return len(m.arenas)
}

// Bound returns the number of indexes taken so far, including the ones that
// fell outside of the pool.
func (m *Memory) Bound() int {
	return int(m.next.Load())
}

// Bind returns a new binding for the calling goroutine. The binding is the
// goroutine's private slot and must not be shared.
func (m *Memory) Bind() *Binding {
	return &Binding{mem: m}
}

// arena takes the next unused index and returns the matching arena, or the
// heap when the pool is off or exhausted.
func (m *Memory) arena() Allocator {
	if len(m.arenas) == 0 {
		return Heap
	}

	index := m.next.Add(1) - 1
	if int(index) >= len(m.arenas) {
		return Heap
	}

	return m.arenas[index]
}

// =============================================================================

// Binding memoizes the arena of one goroutine.
type Binding struct {
	mem   *Memory
	alloc Allocator
}

// Arena returns the allocator for the owning goroutine. The first call
// takes an index from the pool and every later call returns the same value.
func (b *Binding) Arena() Allocator {
	if b.alloc == nil {
		b.alloc = b.mem.arena()
	}

	return b.alloc
}
