// Package tablebase solves a game by retrograde (backward induction)
// analysis. Every position reachable from a root is resolved to a win, loss
// or draw together with its distance to the end of the game, and written to
// a store.PositionStore.
package tablebase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/stats"
	"github.com/domino14/retrograde/store"
)

const DefaultBatchSize = 100000

var (
	ErrRootUnresolved = errors.New("root position is not in the tablebase")
	ErrHashCollision  = errors.New("two different positions share a hash")
	ErrValueMismatch  = errors.New("stored value disagrees with minimax over its children")
	ErrBadState       = errors.New("game state broke its contract")
)

// StalematePolicy values a non-terminal position whose side to move has no
// legal move.
type StalematePolicy uint8

const (
	StalemateDraw StalematePolicy = iota
	StalemateLossForMover
)

func (p StalematePolicy) String() string {
	if p == StalemateLossForMover {
		return "loss"
	}
	return "draw"
}

// ParseStalematePolicy accepts "draw" or "loss".
func ParseStalematePolicy(s string) (StalematePolicy, error) {
	switch strings.ToLower(s) {
	case "", "draw":
		return StalemateDraw, nil
	case "loss", "loss-for-mover":
		return StalemateLossForMover, nil
	}
	return StalemateDraw, fmt.Errorf("unknown stalemate policy %q", s)
}

// Builder fills a store with solved positions.
type Builder struct {
	store     store.PositionStore
	batchSize int
	stalemate StalematePolicy
	seed      uint64
	threads   int

	sinceFlush atomic.Int64
	nodes      atomic.Uint64
	// held while the store is flushed and its cache cleared
	flushMu sync.Mutex
}

// NewBuilder writes through s. The builder does not own s; closing it is up
// to the caller. Each build sets the locking of a store that implements
// store.ThreadModer to suit its own goroutines, so builds sharing a store
// must not run at the same time.
func NewBuilder(s store.PositionStore) *Builder {
	return &Builder{
		store:     s,
		batchSize: DefaultBatchSize,
		threads:   1,
	}
}

// SetBatchSize sets how many new records are written between store flushes.
// n <= 0 flushes only at the end of a build.
func (b *Builder) SetBatchSize(n int) {
	b.batchSize = n
}

func (b *Builder) SetStalematePolicy(p StalematePolicy) {
	b.stalemate = p
}

// SetSeed seeds the playout generator used by Build.
func (b *Builder) SetSeed(seed uint64) {
	b.seed = seed
}

func (b *Builder) SetThreads(threads int) {
	if threads < 1 {
		threads = 1
	}
	b.threads = threads
}

func (b *Builder) Store() store.PositionStore {
	return b.store
}

// Report describes one build call.
type Report struct {
	Added      int           `yaml:"records_added"`
	Expanded   int           `yaml:"nodes_expanded"`
	CycleEdges int           `yaml:"cycle_edges"`
	Endless    int           `yaml:"endless_positions"`
	Playouts   int           `yaml:"playouts,omitempty"`
	Branching  stats.Summary `yaml:"branching_factor"`
	Elapsed    time.Duration `yaml:"elapsed"`
	RootValue  game.Value    `yaml:"root_value"`
	RootDepth  int           `yaml:"root_depth"`
	RootKnown  bool          `yaml:"root_known"`

	branching stats.Statistic
}

func (r *Report) merge(o *Report) {
	r.Added += o.Added
	r.Expanded += o.Expanded
	r.CycleEdges += o.CycleEdges
	r.Endless += o.Endless
	r.Playouts += o.Playouts
	r.branching.Merge(&o.branching)
}

func (r *Report) finish(start time.Time) {
	r.Branching = r.branching.Summary()
	r.Elapsed = time.Since(start)
}

func (r *Report) setRoot(rec store.Record) {
	r.RootValue, r.RootDepth, r.RootKnown = rec.Value, rec.DepthToTerminal, true
}

// threadMode switches the store's locking for a build on one goroutine
// (multi false) or several.
func (b *Builder) threadMode(multi bool) {
	m, ok := b.store.(store.ThreadModer)
	if !ok {
		return
	}
	if multi {
		m.SetMultiThreadedMode()
	} else {
		m.SetSingleThreadedMode()
	}
}

// leafRecord returns the record of a position that needs no search: a
// finished game, or one where the side to move is stuck.
func (b *Builder) leafRecord(st game.State) (store.Record, bool, error) {
	if st.IsTerminal() {
		v := st.Value()
		if !v.Valid() {
			return store.Record{}, false, fmt.Errorf("%w: terminal position %x has value %v",
				ErrBadState, st.Hash(), v)
		}
		return store.Record{Hash: st.Hash(), Value: v, IsTerminal: true}, true, nil
	}
	if len(st.LegalMoves()) == 0 {
		return store.Record{Hash: st.Hash(), Value: b.stalemateValue(st), IsTerminal: true}, true, nil
	}
	return store.Record{}, false, nil
}

func (b *Builder) stalemateValue(st game.State) game.Value {
	if b.stalemate == StalemateLossForMover {
		return game.WinFor(!st.IsMaximizerToMove())
	}
	return game.Draw
}

// insert stores r and returns the record the store actually holds, which is
// an earlier writer's when r lost the race.
func (b *Builder) insert(ctx context.Context, r store.Record, rep *Report) (store.Record, error) {
	ok, err := b.store.InsertIfAbsent(ctx, r)
	if err != nil {
		return store.Record{}, fmt.Errorf("saving position %x: %w", r.Hash, err)
	}
	if !ok {
		held, err := b.store.Get(ctx, r.Hash)
		if err != nil {
			return store.Record{}, fmt.Errorf("reading position %x: %w", r.Hash, err)
		}
		return held, nil
	}
	rep.Added++
	if b.batchSize > 0 && b.sinceFlush.Add(1)%int64(b.batchSize) == 0 {
		if err := b.flush(ctx); err != nil {
			return store.Record{}, err
		}
	}
	return r, nil
}

func (b *Builder) flush(ctx context.Context) error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()
	if err := b.store.Flush(ctx); err != nil {
		return fmt.Errorf("flushing store: %w", err)
	}
	if c, ok := b.store.(store.CacheClearer); ok {
		c.ClearCache()
	}
	log.Info().Int64("records", b.sinceFlush.Load()).Msg("tablebase-batch-saved")
	return nil
}

// lookup returns the stored record for hash, if any.
func (b *Builder) lookup(ctx context.Context, hash uint64) (store.Record, bool, error) {
	r, err := b.store.Get(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return store.Record{}, false, nil
	}
	if err != nil {
		return store.Record{}, false, fmt.Errorf("reading position %x: %w", hash, err)
	}
	return r, true, nil
}
