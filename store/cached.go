package store

import (
	"context"
	"errors"
	"unsafe"

	"github.com/domino14/retrograde/cache"
)

// Cached puts an in-process record cache in front of another store. The
// cache only ever holds records the backend has accepted, so clearing it
// never loses data.
type Cached struct {
	PositionStore
	tbl *cache.Table[Record]
}

// NewCached sizes the cache to fractionOfMemory of the system memory.
func NewCached(backend PositionStore, fractionOfMemory float64) *Cached {
	return &Cached{
		PositionStore: backend,
		tbl:           cache.NewFromMemory[Record](fractionOfMemory, int(unsafe.Sizeof(Record{}))+16),
	}
}

// NewCachedSize uses a cache of 2^sizePowerOf2 slots.
func NewCachedSize(backend PositionStore, sizePowerOf2 int) *Cached {
	return &Cached{PositionStore: backend, tbl: cache.New[Record](sizePowerOf2)}
}

func (c *Cached) Get(ctx context.Context, hash uint64) (Record, error) {
	r, ok, err := c.tbl.GetOrLoad(hash, func(h uint64) (Record, bool, error) {
		r, err := c.PositionStore.Get(ctx, h)
		if errors.Is(err, ErrNotFound) {
			return Record{}, false, nil
		}
		return r, err == nil, err
	})
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrNotFound
	}
	return r, nil
}

func (c *Cached) Contains(ctx context.Context, hash uint64) (bool, error) {
	_, err := c.Get(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (c *Cached) InsertIfAbsent(ctx context.Context, r Record) (bool, error) {
	if _, ok := c.tbl.Get(r.Hash); ok {
		return false, nil
	}
	inserted, err := c.PositionStore.InsertIfAbsent(ctx, r)
	if err != nil {
		return false, err
	}
	if inserted {
		c.tbl.Put(r.Hash, r)
	}
	return inserted, nil
}

// SetSingleThreadedMode drops the cache's locking. Call it only while no
// other goroutine is using the store.
func (c *Cached) SetSingleThreadedMode() {
	c.tbl.SetSingleThreadedMode()
}

func (c *Cached) SetMultiThreadedMode() {
	c.tbl.SetMultiThreadedMode()
}

func (c *Cached) MultiThreaded() bool {
	return c.tbl.MultiThreaded()
}

func (c *Cached) ClearCache() {
	c.tbl.Clear()
}

func (c *Cached) CacheStats() cache.Stats {
	return c.tbl.Stats()
}

// Backend returns the wrapped store.
func (c *Cached) Backend() PositionStore {
	return c.PositionStore
}
