package tablebase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
	"github.com/domino14/retrograde/store"
)

// errLimit stops a search once a build has added as many records as it was
// asked for. It never leaves this package.
var errLimit = errors.New("position limit reached")

// frame is one position being expanded on the explicit search stack.
type frame struct {
	state game.State
	hash  uint64
	moves []move.Move
	next  int

	hasBest   bool
	best      game.Value
	bestHash  uint64
	bestDepth int
}

// preferable reports whether a child of value v at distance d beats the
// current choice of f. A winning side takes the quickest win, a losing side
// the slowest loss, and a drawing side the shortest line.
func (f *frame) preferable(v game.Value, d int) bool {
	if !f.hasBest {
		return true
	}
	maxToMove := f.state.IsMaximizerToMove()
	if v != f.best {
		return game.Better(v, f.best, maxToMove)
	}
	if v == game.WinFor(!maxToMove) {
		return d > f.bestDepth
	}
	return d < f.bestDepth
}

func (f *frame) consider(v game.Value, d int, hash uint64) {
	if f.preferable(v, d) {
		f.hasBest, f.best, f.bestDepth, f.bestHash = true, v, d, hash
	}
}

func (f *frame) record() store.Record {
	return store.Record{
		Hash:            f.hash,
		Value:           f.best,
		DepthToTerminal: f.bestDepth + 1,
		BestNext:        f.bestHash,
		HasBest:         true,
	}
}

// search is one depth-first solve. Each goroutine of a parallel build runs
// its own search; they share only the store.
type search struct {
	b      *Builder
	rep    Report
	onPath map[uint64]bool
	// stop once rep.Added reaches limit; 0 means no limit
	limit int
}

func (b *Builder) newSearch(limit int) *search {
	return &search{b: b, onPath: make(map[uint64]bool), limit: limit}
}

// solve resolves root and everything reachable from it that is not stored
// yet. Children are finished before their parent, so every record written
// is final.
//
// A move back to a position that is still being expanded on the stack is a
// repetition; that edge counts as a draw at distance 0.
func (s *search) solve(ctx context.Context, root game.State) (store.Record, error) {
	b := s.b
	if rec, ok, err := b.lookup(ctx, root.Hash()); err != nil || ok {
		return rec, err
	}
	if rec, ok, err := b.leafRecord(root); err != nil {
		return store.Record{}, err
	} else if ok {
		return b.insert(ctx, rec, &s.rep)
	}

	stack := []*frame{s.push(root)}
	for {
		if err := ctx.Err(); err != nil {
			return store.Record{}, err
		}
		if s.limit > 0 && s.rep.Added >= s.limit {
			return store.Record{}, errLimit
		}
		f := stack[len(stack)-1]
		if f.next == len(f.moves) {
			rec, err := b.insert(ctx, f.record(), &s.rep)
			if err != nil {
				return store.Record{}, err
			}
			delete(s.onPath, f.hash)
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return rec, nil
			}
			stack[len(stack)-1].consider(rec.Value, rec.DepthToTerminal, rec.Hash)
			continue
		}

		child := f.state.ApplyMove(f.moves[f.next])
		f.next++
		h := child.Hash()
		if s.onPath[h] {
			s.rep.CycleEdges++
			f.consider(game.Draw, 0, h)
			continue
		}
		rec, ok, err := b.lookup(ctx, h)
		if err != nil {
			return store.Record{}, err
		}
		if ok {
			f.consider(rec.Value, rec.DepthToTerminal, h)
			continue
		}
		if rec, ok, err = b.leafRecord(child); err != nil {
			return store.Record{}, err
		} else if ok {
			if rec, err = b.insert(ctx, rec, &s.rep); err != nil {
				return store.Record{}, err
			}
			f.consider(rec.Value, rec.DepthToTerminal, h)
			continue
		}
		stack = append(stack, s.push(child))
	}
}

func (s *search) push(st game.State) *frame {
	s.onPath[st.Hash()] = true
	moves := st.LegalMoves()
	s.rep.Expanded++
	s.rep.branching.Push(float64(len(moves)))
	s.b.nodes.Add(1)
	return &frame{state: st, hash: st.Hash(), moves: moves}
}

// BuildComplete solves every position reachable from root.
func (b *Builder) BuildComplete(ctx context.Context, root game.State) (Report, error) {
	start := time.Now()
	log.Info().Uint64("root", root.Hash()).Msg("tablebase-build-complete-start")
	b.threadMode(false)
	stop := b.watch()
	defer stop()

	s := b.newSearch(0)
	rec, err := s.solve(ctx, root)
	if err == nil {
		s.rep.setRoot(rec)
		err = b.flush(ctx)
	}
	s.rep.finish(start)
	b.logReport("tablebase-build-complete-done", &s.rep, err)
	return s.rep, err
}

// watch logs search speed every second until the returned func is called.
func (b *Builder) watch() func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		last := b.nodes.Load()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				nodes := b.nodes.Load()
				log.Debug().Uint64("nps", nodes-last).Msg("nodes-per-second")
				last = nodes
			}
		}
	}()
	return func() { close(done) }
}

func (b *Builder) logReport(msg string, r *Report, err error) {
	ev := log.Info()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Int("added", r.Added).
		Int("expanded", r.Expanded).
		Int("cycle-edges", r.CycleEdges).
		Int("endless-positions", r.Endless).
		Float64("mean-branching", r.Branching.Mean).
		Bool("root-known", r.RootKnown).
		Str("root-value", r.RootValue.String()).
		Int("root-depth", r.RootDepth).
		Float64("time-elapsed-sec", r.Elapsed.Seconds()).
		Msg(msg)
}
