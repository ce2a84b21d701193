// Package cache is a fixed-size, direct-mapped table of values keyed by a
// 64-bit position hash. It sits in front of slower position stores. A slot
// holds one entry; a newer entry for the same slot simply replaces the older
// one, so the table never grows past the size chosen at Reset.
package cache

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

const (
	minSizePowerOf2 = 10
	maxSizePowerOf2 = 30
)

type TableLock interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

type FakeLock struct{}

func (f FakeLock) Lock()    {}
func (f FakeLock) Unlock()  {}
func (f FakeLock) RLock()   {}
func (f FakeLock) RUnlock() {}

type entry[V any] struct {
	hash  uint64
	valid bool
	val   V
}

// Table is the cache proper. The zero Table is unusable; call New or Reset.
type Table[V any] struct {
	TableLock
	table        []entry[V]
	sizePowerOf2 int
	sizeMask     uint64

	created    atomic.Uint64
	lookups    atomic.Uint64
	hits       atomic.Uint64
	collisions atomic.Uint64
}

// New returns a table with 2^sizePowerOf2 slots, safe for concurrent use.
func New[V any](sizePowerOf2 int) *Table[V] {
	t := &Table[V]{TableLock: new(sync.RWMutex)}
	t.resize(sizePowerOf2)
	return t
}

// NewFromMemory sizes the table to use about fractionOfMemory of the
// machine's memory, given the size in bytes of one entry.
func NewFromMemory[V any](fractionOfMemory float64, entryBytes int) *Table[V] {
	t := &Table[V]{TableLock: new(sync.RWMutex)}
	t.Reset(fractionOfMemory, entryBytes)
	return t
}

// SetSingleThreadedMode drops locking. Neither mode switch may run while
// another goroutine is using the table.
func (t *Table[V]) SetSingleThreadedMode() {
	if t.MultiThreaded() {
		t.TableLock = &FakeLock{}
	}
}

func (t *Table[V]) SetMultiThreadedMode() {
	if !t.MultiThreaded() {
		t.TableLock = new(sync.RWMutex)
	}
}

func (t *Table[V]) MultiThreaded() bool {
	_, fake := t.TableLock.(*FakeLock)
	return !fake
}

func clampPower(p int) int {
	if p < minSizePowerOf2 {
		return minSizePowerOf2
	}
	if p > maxSizePowerOf2 {
		return maxSizePowerOf2
	}
	return p
}

func (t *Table[V]) resize(sizePowerOf2 int) {
	t.sizePowerOf2 = clampPower(sizePowerOf2)
	numElems := 1 << t.sizePowerOf2
	t.sizeMask = uint64(numElems - 1)
	if t.table != nil && len(t.table) == numElems {
		clear(t.table)
	} else {
		t.table = make([]entry[V], numElems)
	}
	t.created.Store(0)
	t.lookups.Store(0)
	t.hits.Store(0)
	t.collisions.Store(0)
}

// Reset empties the table and resizes it to the biggest power of two that
// fits in fractionOfMemory of the total system memory.
func (t *Table[V]) Reset(fractionOfMemory float64, entryBytes int) {
	t.Lock()
	defer t.Unlock()
	totalMem := memory.TotalMemory()
	desiredNElems := fractionOfMemory * (float64(totalMem) / float64(entryBytes))
	power := minSizePowerOf2
	if desiredNElems >= 1 {
		power = int(math.Log2(desiredNElems))
	}
	t.resize(power)

	log.Info().Int("num-elems", len(t.table)).
		Float64("desired-num-elems", desiredNElems).
		Int("estimated-total-memory-bytes", len(t.table)*entryBytes).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("record-cache-size")
}

// Clear drops every entry but keeps the size.
func (t *Table[V]) Clear() {
	t.Lock()
	defer t.Unlock()
	t.resize(t.sizePowerOf2)
}

// Get returns the value cached for hash.
func (t *Table[V]) Get(hash uint64) (V, bool) {
	t.RLock()
	defer t.RUnlock()
	t.lookups.Add(1)
	e := t.table[hash&t.sizeMask]
	if !e.valid || e.hash != hash {
		if e.valid {
			// another position lives in this slot
			t.collisions.Add(1)
		}
		var zero V
		return zero, false
	}
	t.hits.Add(1)
	return e.val, true
}

// Put stores val for hash, replacing whatever held the slot.
func (t *Table[V]) Put(hash uint64, val V) {
	t.Lock()
	defer t.Unlock()
	t.table[hash&t.sizeMask] = entry[V]{hash: hash, valid: true, val: val}
	t.created.Add(1)
}

// GetOrLoad returns the cached value, or calls load and caches what it
// returns. A load error is returned and nothing is cached; ok=false from
// load means "absent" and is not cached either.
func (t *Table[V]) GetOrLoad(hash uint64, load func(uint64) (V, bool, error)) (V, bool, error) {
	if v, ok := t.Get(hash); ok {
		return v, true, nil
	}
	v, ok, err := load(hash)
	if err != nil || !ok {
		return v, ok, err
	}
	t.Put(hash, v)
	return v, true, nil
}

// Size is the number of slots.
func (t *Table[V]) Size() int {
	t.RLock()
	defer t.RUnlock()
	return len(t.table)
}

// Stats reports lookups, hits, stores and slot collisions since the last
// Reset or Clear.
type Stats struct {
	Lookups    uint64
	Hits       uint64
	Created    uint64
	Collisions uint64
}

func (t *Table[V]) Stats() Stats {
	return Stats{
		Lookups:    t.lookups.Load(),
		Hits:       t.hits.Load(),
		Created:    t.created.Load(),
		Collisions: t.collisions.Load(),
	}
}
