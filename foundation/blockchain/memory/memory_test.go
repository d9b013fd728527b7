package memory_test

import (
	"sync"
	"testing"

	"github.com/ardanlabs/chasenode/foundation/blockchain/memory"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

// bindAll binds one goroutine per worker and returns the allocator each
// worker saw on its first and second calls.
func bindAll(mem *memory.Memory, workers int) ([]memory.Allocator, []memory.Allocator) {
	first := make([]memory.Allocator, workers)
	second := make([]memory.Allocator, workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()

			binding := mem.Bind()
			first[i] = binding.Arena()
			second[i] = binding.Arena()
		}(i)
	}

	wg.Wait()

	return first, second
}

func Test_Binding(t *testing.T) {
	t.Log("Given the need to bind worker goroutines to arenas.")
	{
		const threads = 8
		mem := memory.New(2, threads, 1024)

		first, second := bindAll(mem, threads)

		t.Logf("\tTest 0:\tWhen %d goroutines bind to a pool of %d arenas.", threads, threads)
		{
			seen := make(map[memory.Allocator]bool)
			for i := range first {
				if first[i] != second[i] {
					t.Fatalf("\t%s\tTest 0:\tShould get the same arena on every call.", failed)
				}
				if first[i] == memory.Heap {
					t.Fatalf("\t%s\tTest 0:\tShould not get the heap allocator.", failed)
				}
				if seen[first[i]] {
					t.Fatalf("\t%s\tTest 0:\tShould get pairwise distinct arenas.", failed)
				}
				seen[first[i]] = true
			}
			t.Logf("\t%s\tTest 0:\tShould get the same arena on every call.", success)
			t.Logf("\t%s\tTest 0:\tShould get pairwise distinct arenas.", success)

			if mem.Bound() != threads {
				t.Fatalf("\t%s\tTest 0:\tShould have taken %d indexes, got %d.", failed, threads, mem.Bound())
			}
			t.Logf("\t%s\tTest 0:\tShould have taken %d indexes.", success, threads)
		}
	}
}

func Test_Exhaustion(t *testing.T) {
	t.Log("Given the need to survive more goroutines than arenas.")
	{
		const threads = 3
		mem := memory.New(2, threads, 1024)

		first, _ := bindAll(mem, threads)

		t.Logf("\tTest 0:\tWhen goroutine %d binds to a pool of %d arenas.", threads+1, threads)
		{
			extra := mem.Bind().Arena()
			if extra != memory.Heap {
				t.Fatalf("\t%s\tTest 0:\tShould receive the heap allocator.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould receive the heap allocator.", success)

			for _, alloc := range first {
				if alloc == memory.Heap {
					t.Fatalf("\t%s\tTest 0:\tShould leave the first %d bindings on arenas.", failed, threads)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould leave the first %d bindings on arenas.", success, threads)
		}
	}
}

func Test_Disabled(t *testing.T) {
	t.Log("Given the need to turn the arena pool off.")
	{
		mem := memory.New(0, 4, 1024)

		t.Logf("\tTest 0:\tWhen the multiple is zero.")
		{
			if mem.Enabled() {
				t.Fatalf("\t%s\tTest 0:\tShould report the pool as disabled.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould report the pool as disabled.", success)

			first, _ := bindAll(mem, 16)
			for _, alloc := range first {
				if alloc != memory.Heap {
					t.Fatalf("\t%s\tTest 0:\tShould always receive the heap allocator.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould always receive the heap allocator.", success)
		}
	}
}
