// Package memory provides bump allocation arenas for block and transaction
// data flowing through the node. Each arena is owned by a single goroutine
// and is emptied in bulk at block processing boundaries.
package memory

// Allocator represents the behavior required to hand out memory for the
// lifetime of one processing batch.
type Allocator interface {
	Start(wireSize int)
	Allocate(size int) []byte
	Deallocate(b []byte)
	Reset()
}

// alignment is the boundary every allocation offset is rounded up to.
const alignment = 8

// =============================================================================

// Arena is a bump allocator over one contiguous buffer. Allocation advances
// an offset, deallocation does nothing, and the only way to get memory back
// is to Reset the whole arena. Objects allocated in one batch die together.
//
// An Arena is not safe for concurrent use. It belongs to the goroutine that
// bound it through a Binding.
type Arena struct {
	multiple int
	buffer   []byte
	offset   int
	overflow int
}

// newArena constructs an arena and eagerly allocates multiple * wireSize
// bytes for it.
func newArena(multiple int, wireSize int) *Arena {
	return &Arena{
		multiple: multiple,
		buffer:   make([]byte, multiple*wireSize),
	}
}

// Start prepares the arena for a new batch whose wire encoding is wireSize
// bytes. The buffer grows to multiple * wireSize when it is too small and is
// otherwise reused as is.
func (a *Arena) Start(wireSize int) {
	need := a.multiple * wireSize
	if need > len(a.buffer) {
		a.buffer = make([]byte, need)
	}

	a.offset = 0
	a.overflow = 0
}

// Allocate returns size bytes from the arena. When the arena cannot satisfy
// the request the bytes come from the heap instead, so a batch that is
// larger than anticipated still completes.
func (a *Arena) Allocate(size int) []byte {
	if size <= 0 {
		return nil
	}

	start := align(a.offset)
	end := start + size
	if end > len(a.buffer) {
		a.overflow += size
		return make([]byte, size)
	}

	a.offset = end

	// The full slice expression keeps an append by the caller from
	// writing into the next allocation.
	return a.buffer[start:end:end]
}

// Deallocate does nothing. Memory is released in bulk by Reset.
func (a *Arena) Deallocate(b []byte) {}

// Reset empties the arena for the next batch. The buffer is kept.
func (a *Arena) Reset() {
	a.offset = 0
	a.overflow = 0
}

// Capacity returns the size of the underlying buffer.
func (a *Arena) Capacity() int {
	return len(a.buffer)
}

// Used returns the number of buffer bytes handed out since the last reset.
func (a *Arena) Used() int {
	return a.offset
}

// Overflow returns the number of bytes that had to come from the heap since
// the last reset.
func (a *Arena) Overflow() int {
	return a.overflow
}

// align rounds the offset up to the next allocation boundary.
func align(offset int) int {
	return (offset + alignment - 1) &^ (alignment - 1)
}

// =============================================================================

// heap is the default allocator. Every call goes to the Go heap and the
// garbage collector reclaims the memory.
type heap struct{}

// Heap is the shared default heap allocator.
var Heap Allocator = heap{}

// Start implements the Allocator interface.
func (heap) Start(wireSize int) {}

// Allocate implements the Allocator interface.
func (heap) Allocate(size int) []byte {
	if size <= 0 {
		return nil
	}
	return make([]byte, size)
}

// Deallocate implements the Allocator interface.
func (heap) Deallocate(b []byte) {}

// Reset implements the Allocator interface.
func (heap) Reset() {}
