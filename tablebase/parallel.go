package tablebase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/domino14/retrograde/game"
)

// BuildParallel solves the subtrees below root's children on up to threads
// goroutines, then resolves root from their stored values. Workers that
// reach the same position race to store it; the first record written wins
// and the others adopt it. Without threads > 1 this is BuildComplete.
func (b *Builder) BuildParallel(ctx context.Context, root game.State, threads int) (Report, error) {
	if threads <= 0 {
		threads = b.threads
	}
	if threads < 2 {
		return b.BuildComplete(ctx, root)
	}
	start := time.Now()
	log.Info().Uint64("root", root.Hash()).Int("threads", threads).Msg("tablebase-build-parallel-start")
	b.threadMode(true)
	stop := b.watch()
	defer stop()

	var rep Report
	var mu sync.Mutex

	if rec, ok, err := b.lookup(ctx, root.Hash()); err != nil {
		return rep, err
	} else if ok {
		rep.setRoot(rec)
		rep.finish(start)
		return rep, nil
	}
	children, err := b.unsolvedChildren(ctx, root)
	if err != nil {
		return rep, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(threads)
	for _, child := range children {
		child := child
		g.Go(func() error {
			s := b.newSearch(0)
			// the root is on every worker's path
			s.onPath[root.Hash()] = true
			_, err := s.solve(gctx, child)
			mu.Lock()
			rep.merge(&s.rep)
			mu.Unlock()
			return err
		})
	}
	err = g.Wait()
	if err == nil {
		s := b.newSearch(0)
		rec, serr := s.solve(ctx, root)
		rep.merge(&s.rep)
		if err = serr; err == nil {
			rep.setRoot(rec)
			err = b.flush(ctx)
		}
	}
	rep.finish(start)
	b.logReport("tablebase-build-parallel-done", &rep, err)
	return rep, err
}

// unsolvedChildren lists the distinct positions one move from root that
// still need solving. A finished or stuck root has none.
func (b *Builder) unsolvedChildren(ctx context.Context, root game.State) ([]game.State, error) {
	if root.IsTerminal() {
		return nil, nil
	}
	seen := map[uint64]bool{root.Hash(): true}
	var out []game.State
	for _, m := range root.LegalMoves() {
		child := root.ApplyMove(m)
		h := child.Hash()
		if seen[h] {
			continue
		}
		seen[h] = true
		_, ok, err := b.lookup(ctx, h)
		if err != nil {
			return nil, err
		}
		if !ok {
			out = append(out, child)
		}
	}
	return out, nil
}
