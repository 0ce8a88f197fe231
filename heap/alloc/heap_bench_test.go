package alloc

import (
	"math/rand"
	"testing"
)

func newBenchHeap(b *testing.B) *Heap {
	b.Helper()
	h, err := New(nil)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = h.Close() })
	return h
}

// Benchmark_Alloc_SmallBlocks measures the fast path on a warm heap.
func Benchmark_Alloc_SmallBlocks(b *testing.B) {
	h := newBenchHeap(b)
	refs := make([]Ref, 0, 1024)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		ref, _, err := h.Alloc(16 + (i%64)*8)
		if err != nil {
			b.Fatal(err)
		}
		refs = append(refs, ref)
		if len(refs) == cap(refs) {
			for _, r := range refs {
				h.Free(r)
			}
			refs = refs[:0]
		}
	}
}

// Benchmark_AllocFree_Random mixes allocations and frees of varied sizes.
func Benchmark_AllocFree_Random(b *testing.B) {
	h := newBenchHeap(b)
	rng := rand.New(rand.NewSource(1))
	live := make([]Ref, 0, 4096)

	b.ResetTimer()
	b.ReportAllocs()

	for n := 0; n < b.N; n++ {
		if len(live) > 0 && (rng.Intn(2) == 0 || len(live) == cap(live)) {
			i := rng.Intn(len(live))
			h.Free(live[i])
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
			continue
		}
		ref, _, err := h.Alloc(1 + rng.Intn(4096))
		if err != nil {
			b.Fatal(err)
		}
		live = append(live, ref)
	}
}

func Benchmark_Realloc_Growing(b *testing.B) {
	h := newBenchHeap(b)

	b.ResetTimer()
	b.ReportAllocs()

	ref := Nil
	for i := 0; i < b.N; i++ {
		n := 1 + i%65536
		if n == 1 && ref != Nil {
			h.Free(ref)
			ref = Nil
		}
		var err error
		ref, _, err = h.Realloc(ref, n)
		if err != nil {
			b.Fatal(err)
		}
	}
}
