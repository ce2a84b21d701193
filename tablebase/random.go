package tablebase

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/retrograde/game"
)

// Build grows the tablebase by random playouts from root. Each playout walks
// at most maxRandomPlies random moves, stopping early at a finished game or
// just before a position that is already stored, and then solves the last
// unstored position it reached. Build returns once root itself is solved or
// maxPositions new records have been written (maxPositions <= 0 means no
// limit). The walk is driven by the builder's seed, so equal seeds over
// equal stores take the same path.
func (b *Builder) Build(ctx context.Context, root game.State, maxPositions, maxRandomPlies int) (Report, error) {
	start := time.Now()
	log.Info().Uint64("root", root.Hash()).
		Int("max-positions", maxPositions).
		Int("max-random-plies", maxRandomPlies).
		Uint64("seed", b.seed).
		Msg("tablebase-build-start")
	b.threadMode(false)
	stop := b.watch()
	defer stop()

	var seed [32]byte
	binary.LittleEndian.PutUint64(seed[:], b.seed)
	copy(seed[8:], "tablebase-playouts")
	rng := frand.NewCustom(seed[:], 1024, 12)

	var rep Report
	err := b.playouts(ctx, root, maxPositions, maxRandomPlies, rng, &rep)
	if errors.Is(err, errLimit) {
		err = nil
	}
	if err == nil {
		if rec, ok, lerr := b.lookup(ctx, root.Hash()); lerr != nil {
			err = lerr
		} else if ok {
			rep.setRoot(rec)
		}
	}
	if err == nil {
		err = b.flush(ctx)
	}
	rep.finish(start)
	b.logReport("tablebase-build-done", &rep, err)
	return rep, err
}

func (b *Builder) playouts(ctx context.Context, root game.State, maxPositions, maxRandomPlies int,
	rng *frand.RNG, rep *Report) error {

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if maxPositions > 0 && rep.Added >= maxPositions {
			return errLimit
		}
		if _, ok, err := b.lookup(ctx, root.Hash()); err != nil || ok {
			return err
		}
		target, err := b.walk(ctx, root, maxRandomPlies, rng)
		if err != nil {
			return err
		}
		limit := 0
		if maxPositions > 0 {
			limit = maxPositions - rep.Added
		}
		s := b.newSearch(limit)
		_, err = s.solve(ctx, target)
		rep.merge(&s.rep)
		rep.Playouts++
		if err != nil {
			return err
		}
		log.Debug().Int("playout", rep.Playouts).Int("added", rep.Added).Msg("playout-solved")
	}
}

// walk plays random moves from an unstored root and returns the last
// unstored position on the way.
func (b *Builder) walk(ctx context.Context, root game.State, plies int, rng *frand.RNG) (game.State, error) {
	st := root
	for ply := 0; ply < plies; ply++ {
		if st.IsTerminal() {
			break
		}
		moves := st.LegalMoves()
		if len(moves) == 0 {
			break
		}
		next := st.ApplyMove(moves[rng.Intn(len(moves))])
		_, ok, err := b.lookup(ctx, next.Hash())
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		st = next
	}
	return st, nil
}
