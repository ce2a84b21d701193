package tablebase

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/retrograde/game"
)

// VerifyReport describes a Verify pass.
type VerifyReport struct {
	Checked   int `yaml:"checked"`
	Terminal  int `yaml:"terminal"`
	Canonical int `yaml:"canonical_checked"`
	MaxDepth  int `yaml:"max_depth"`
}

// Verify walks every position reachable from root and checks its record:
// a finished game must carry the game's own value, a stuck position the
// stalemate value, and any other position the minimax value over its
// children's records, with a best move that leads to one of those children.
// For decided positions the stored distance must also match.
//
// States that implement game.Canonicalizer are also checked for hash
// collisions: two different positions sharing a hash fail with
// ErrHashCollision.
//
// Positions solved by BuildComplete in a game with repetitions can fail this
// check, since their values were fixed with part of the line still open;
// BuildRetrograde output always passes.
func (b *Builder) Verify(ctx context.Context, root game.State) (VerifyReport, error) {
	start := time.Now()
	var rep VerifyReport
	if _, ok, err := b.lookup(ctx, root.Hash()); err != nil {
		return rep, err
	} else if !ok {
		return rep, ErrRootUnresolved
	}

	canon := map[uint64][]byte{}
	visited := map[uint64]bool{root.Hash(): true}
	pending := []game.State{root}
	for len(pending) > 0 {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		st := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if c, ok := st.(game.Canonicalizer); ok {
			rep.Canonical++
			enc := c.Canonical()
			if prev, seen := canon[st.Hash()]; seen && !bytes.Equal(prev, enc) {
				return rep, fmt.Errorf("%w: %x", ErrHashCollision, st.Hash())
			}
			canon[st.Hash()] = enc
		}
		children, err := b.check(ctx, st, &rep)
		if err != nil {
			return rep, err
		}
		for _, c := range children {
			if !visited[c.Hash()] {
				visited[c.Hash()] = true
				pending = append(pending, c)
			} else if cc, ok := c.(game.Canonicalizer); ok {
				if prev, seen := canon[c.Hash()]; seen && !bytes.Equal(prev, cc.Canonical()) {
					return rep, fmt.Errorf("%w: %x", ErrHashCollision, c.Hash())
				}
			}
		}
	}
	log.Info().Int("checked", rep.Checked).
		Int("terminal", rep.Terminal).
		Int("canonical", rep.Canonical).
		Float64("time-elapsed-sec", time.Since(start).Seconds()).
		Msg("tablebase-verified")
	return rep, nil
}

// check verifies the record of st and returns the children to visit next.
func (b *Builder) check(ctx context.Context, st game.State, rep *VerifyReport) ([]game.State, error) {
	rec, ok, err := b.lookup(ctx, st.Hash())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: position %x is missing", ErrValueMismatch, st.Hash())
	}
	rep.Checked++
	rep.MaxDepth = max(rep.MaxDepth, rec.DepthToTerminal)

	if leaf, ok, err := b.leafRecord(st); err != nil {
		return nil, err
	} else if ok {
		rep.Terminal++
		if rec.Value != leaf.Value || !rec.IsTerminal || rec.DepthToTerminal != 0 {
			return nil, fmt.Errorf("%w: finished position %x stored as %v/%d, want %v/0",
				ErrValueMismatch, st.Hash(), rec.Value, rec.DepthToTerminal, leaf.Value)
		}
		return nil, nil
	}

	f := &frame{state: st, hash: st.Hash()}
	var children []game.State
	bestFound := !rec.HasBest
	for _, m := range st.LegalMoves() {
		child := st.ApplyMove(m)
		children = append(children, child)
		crec, ok, err := b.lookup(ctx, child.Hash())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: child %x of %x is missing", ErrValueMismatch, child.Hash(), st.Hash())
		}
		f.consider(crec.Value, crec.DepthToTerminal, crec.Hash)
		if rec.HasBest && crec.Hash == rec.BestNext {
			bestFound = true
			if rec.Value != game.Draw && (crec.Value != rec.Value || crec.DepthToTerminal+1 != rec.DepthToTerminal) {
				return nil, fmt.Errorf("%w: best move of %x leads to %v/%d, record says %v/%d",
					ErrValueMismatch, st.Hash(), crec.Value, crec.DepthToTerminal, rec.Value, rec.DepthToTerminal)
			}
		}
	}
	if !bestFound {
		return nil, fmt.Errorf("%w: best move of %x leads nowhere", ErrValueMismatch, st.Hash())
	}
	if f.best != rec.Value || rec.IsTerminal {
		return nil, fmt.Errorf("%w: position %x stored as %v, children give %v",
			ErrValueMismatch, st.Hash(), rec.Value, f.best)
	}
	if rec.Value != game.Draw && f.bestDepth+1 != rec.DepthToTerminal {
		return nil, fmt.Errorf("%w: position %x stored at distance %d, children give %d",
			ErrValueMismatch, st.Hash(), rec.DepthToTerminal, f.bestDepth+1)
	}
	return children, nil
}
