// Package store persists solved positions. Every engine keeps exactly one
// record per position hash: the first writer wins and later inserts of the
// same hash are silently ignored, so independent builds can share a store.
package store

import (
	"context"
	"errors"

	"github.com/domino14/retrograde/game"
)

var ErrNotFound = errors.New("position not found")

// Record is a solved position.
type Record struct {
	Hash            uint64
	Value           game.Value
	DepthToTerminal int
	IsTerminal      bool
	// BestNext is the hash of the position reached by the best move. It is
	// meaningful only when HasBest is set.
	BestNext uint64
	HasBest  bool
}

// Statistics summarizes a store. Values are from the maximizer's point of
// view.
type Statistics struct {
	Total    int `yaml:"total"`
	WinMax   int `yaml:"win_max"`
	WinMin   int `yaml:"win_min"`
	Draws    int `yaml:"draws"`
	Terminal int `yaml:"terminal"`
	MaxDepth int `yaml:"max_depth"`
}

// Add counts one record.
func (s *Statistics) Add(r Record) {
	s.Total++
	switch r.Value {
	case game.WinMax:
		s.WinMax++
	case game.WinMin:
		s.WinMin++
	case game.Draw:
		s.Draws++
	}
	if r.IsTerminal {
		s.Terminal++
	}
	if r.DepthToTerminal > s.MaxDepth {
		s.MaxDepth = r.DepthToTerminal
	}
}

// PositionStore is the contract the tablebase builder writes through. All
// methods are safe for concurrent use.
type PositionStore interface {
	// Get returns ErrNotFound for an unknown hash.
	Get(ctx context.Context, hash uint64) (Record, error)
	Contains(ctx context.Context, hash uint64) (bool, error)
	// InsertIfAbsent stores r unless its hash is already present. It reports
	// whether r was stored.
	InsertIfAbsent(ctx context.Context, r Record) (bool, error)
	// Flush makes every accepted record durable.
	Flush(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	Statistics(ctx context.Context) (Statistics, error)
	// ForEach calls fn for every record in ascending hash order until fn
	// returns an error.
	ForEach(ctx context.Context, fn func(Record) error) error
	Close() error
}

// CacheClearer is implemented by stores that keep an in-process cache in
// front of durable storage.
type CacheClearer interface {
	ClearCache()
}

// ThreadModer is implemented by stores whose locking can be dropped while a
// single goroutine uses them.
type ThreadModer interface {
	SetSingleThreadedMode()
	SetMultiThreadedMode()
}
