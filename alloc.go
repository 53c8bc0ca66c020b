package sfs

import "sync"

// freeBitmap is the in-memory free-block bitmap: one cell per block,
// rebuilt from disk at Mount and never persisted, per the design note that
// the free list is deliberately re-derived rather than stored (it keeps
// Format trivial and avoids a bitmap-consistency problem of its own).
type freeBitmap struct {
	mu   sync.Mutex
	used []bool
}

func newFreeBitmap(n uint32) *freeBitmap {
	return &freeBitmap{used: make([]bool, n)}
}

func (f *freeBitmap) mark(bn BlockNum, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.used[bn] = v
}

// markMany marks every nonzero pointer in ptrs, matching the reference's
// set_free_block_map helper which is called once with the 5 direct
// pointers and once with the single indirect pointer. 0 is the "unused
// pointer slot" sentinel, not a real block, so it is skipped here rather
// than in mark itself — callers that mean block 0 (the superblock) call
// mark directly.
func (f *freeBitmap) markMany(ptrs []BlockNum, v bool) {
	for _, bn := range ptrs {
		if bn != 0 {
			f.mark(bn, v)
		}
	}
}

// allocate performs a linear scan from start (inclusive) for the first
// unused cell, marks it used, and returns it. It returns ok=false if the
// device is full. The scan always restarts at start — there is no rotating
// cursor — so that freeing a low block makes it the next one handed out,
// matching the reference allocator.
func (f *freeBitmap) allocate(start BlockNum) (BlockNum, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for bn := uint32(start); bn < uint32(len(f.used)); bn++ {
		if !f.used[bn] {
			f.used[bn] = true
			return BlockNum(bn), true
		}
	}
	return 0, false
}
