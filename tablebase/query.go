package tablebase

import (
	"context"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
	"github.com/domino14/retrograde/store"
)

// PositionInfo returns the record for hash, or nil if it is not solved.
func (b *Builder) PositionInfo(ctx context.Context, hash uint64) (*store.Record, error) {
	rec, ok, err := b.lookup(ctx, hash)
	if err != nil || !ok {
		return nil, err
	}
	return &rec, nil
}

// BestMove returns the move from st that leads to its stored best successor.
// ok is false when st is unsolved, finished, or has no recorded best move.
func (b *Builder) BestMove(ctx context.Context, st game.State) (m move.Move, ok bool, err error) {
	rec, found, err := b.lookup(ctx, st.Hash())
	if err != nil || !found || !rec.HasBest {
		return move.Move{}, false, err
	}
	for _, m := range st.LegalMoves() {
		if st.ApplyMove(m).Hash() == rec.BestNext {
			return m, true, nil
		}
	}
	return move.Move{}, false, nil
}

// PrincipalVariation follows best moves from st for at most maxPlies plies,
// stopping at the end of the game or at the first repeated position.
func (b *Builder) PrincipalVariation(ctx context.Context, st game.State, maxPlies int) ([]move.Move, error) {
	var line []move.Move
	seen := map[uint64]bool{st.Hash(): true}
	for len(line) < maxPlies {
		m, ok, err := b.BestMove(ctx, st)
		if err != nil {
			return line, err
		}
		if !ok {
			break
		}
		line = append(line, m)
		st = st.ApplyMove(m)
		if seen[st.Hash()] {
			break
		}
		seen[st.Hash()] = true
	}
	return line, nil
}

// Statistics summarizes the whole store.
func (b *Builder) Statistics(ctx context.Context) (store.Statistics, error) {
	return b.store.Statistics(ctx)
}
