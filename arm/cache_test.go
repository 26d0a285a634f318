package arm

import "testing"

func TestBlockCacheGetSetRoundTrip(t *testing.T) {
	c := newBlockCache()
	key := NewBlockKey(0x1000, 0x10, false)
	block := &BasicBlock{Key: key, spanLo: 0x1000, spanHi: 0x1004}

	if c.get(key) != nil {
		t.Fatal("get on empty cache returned non-nil")
	}
	c.set(block)
	if got := c.get(key); got != block {
		t.Fatalf("get = %v, want %v", got, block)
	}
}

func TestBlockCacheSetReplacesPriorEntry(t *testing.T) {
	c := newBlockCache()
	key := NewBlockKey(0x2000, 0x10, false)
	first := &BasicBlock{Key: key, spanLo: 0x2000, spanHi: 0x2004}
	second := &BasicBlock{Key: key, spanLo: 0x2000, spanHi: 0x2004}

	c.set(first)
	c.set(second)
	if got := c.get(key); got != second {
		t.Fatalf("get = %v, want the replacement block", got)
	}
	if len(c.arena) != 1 {
		t.Errorf("arena len = %d, want 1 (replacement should reuse or grow by exactly one slot)", len(c.arena))
	}
}

func TestBlockCacheFlushEvictsEverything(t *testing.T) {
	c := newBlockCache()
	k1 := NewBlockKey(0x1000, 0x10, false)
	k2 := NewBlockKey(0x2000, 0x10, false)
	c.set(&BasicBlock{Key: k1, spanLo: 0x1000, spanHi: 0x1004})
	c.set(&BasicBlock{Key: k2, spanLo: 0x2000, spanHi: 0x2004})

	c.flush()
	if c.get(k1) != nil || c.get(k2) != nil {
		t.Fatal("flush left a block reachable")
	}
}

// Range flush must evict every block whose span intersects the range, and
// leave every disjoint block untouched — the quantified invariant from
// the testable-properties list.
func TestBlockCacheFlushRangeIntersectionOnly(t *testing.T) {
	c := newBlockCache()
	inRange := NewBlockKey(0x1000, 0x10, false)
	adjacent := NewBlockKey(0x2000, 0x10, false)
	disjoint := NewBlockKey(0x3000, 0x10, false)

	c.set(&BasicBlock{Key: inRange, spanLo: 0x1000, spanHi: 0x1004})
	c.set(&BasicBlock{Key: adjacent, spanLo: 0x1ffc, spanHi: 0x2000}) // touches the range boundary
	c.set(&BasicBlock{Key: disjoint, spanLo: 0x3000, spanHi: 0x3004})

	c.flushRange(0x1000, 0x1ffc)

	if c.get(inRange) != nil {
		t.Error("block wholly inside the flush range survived")
	}
	if c.get(adjacent) != nil {
		t.Error("block whose span touches the flush range boundary survived")
	}
	if c.get(disjoint) == nil {
		t.Error("disjoint block was evicted by an unrelated range flush")
	}
}

// A flushed slot must be reusable rather than leaking arena capacity
// forever under sustained flush/recompile churn.
func TestBlockCacheReusesEvictedSlots(t *testing.T) {
	c := newBlockCache()
	key := NewBlockKey(0x4000, 0x10, false)
	c.set(&BasicBlock{Key: key, spanLo: 0x4000, spanHi: 0x4004})
	c.flush() // flush() resets the arena outright; use flushRange to exercise slot reuse instead.

	c.set(&BasicBlock{Key: key, spanLo: 0x4000, spanHi: 0x4004})
	c.flushRange(0x4000, 0x4004)
	c.set(&BasicBlock{Key: key, spanLo: 0x4000, spanHi: 0x4004})

	if len(c.arena) != 1 {
		t.Errorf("arena len = %d, want 1 (the freed slot from flushRange should be reused)", len(c.arena))
	}
}
