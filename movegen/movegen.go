// Package movegen enumerates the legal destinations of pieces on a
// bitboard set, given per-plane movement offsets and occupancy rules.
package movegen

import (
	"github.com/samber/lo"

	"github.com/domino14/retrograde/board"
	"github.com/domino14/retrograde/move"
)

// Offset is a relative (row, column) displacement.
type Offset struct {
	DI, DJ int
}

// Mirror flips every offset through the origin; the second player of a game
// played from the opposite side uses mirrored offsets.
func Mirror(offsets []Offset) []Offset {
	return lo.Map(offsets, func(o Offset, _ int) Offset {
		return Offset{DI: -o.DI, DJ: -o.DJ}
	})
}

// Mode restricts what a destination square may hold.
type Mode uint8

const (
	// ModeAny allows quiet moves and captures.
	ModeAny Mode = iota
	// ModeQuietOnly requires an empty destination.
	ModeQuietOnly
	// ModeCaptureOnly requires a destination held by a capturable plane.
	ModeCaptureOnly
)

// Options describe the occupancy rules for one piece.
type Options struct {
	// Own lists the mover's planes. A destination held by any of them, or by
	// the moving plane itself, is illegal.
	Own board.PlaneMask
	// Captures lists the planes that may be captured. A destination held by a
	// plane that is in neither Captures nor Ignore is illegal.
	Captures board.PlaneMask
	// Ignore lists planes that never block, such as terrain markers.
	Ignore board.PlaneMask
	Mode   Mode
	// Aux is stamped on every generated move when UseAux is set; otherwise
	// moves carry move.NoAux.
	Aux    int
	UseAux bool
}

// GenerateMovesForPiece returns the legal moves of the piece of plane p
// standing on (fromI, fromJ). An empty origin is not an error; it just has
// no moves.
func GenerateMovesForPiece(s *board.Set, p board.Plane, fromI, fromJ int,
	offsets []Offset, opts Options) []move.Move {

	if !s.IsSet(p, fromI, fromJ) {
		return nil
	}
	aux := move.NoAux
	if opts.UseAux {
		aux = opts.Aux
	}
	blockers := opts.Own | board.MaskOf(p)
	var moves []move.Move
	for _, o := range offsets {
		toI, toJ := fromI+o.DI, fromJ+o.DJ
		if !s.Layout().InBounds(toI, toJ) {
			continue
		}
		if !destinationOK(s.PlanesAt(toI, toJ)&^opts.Ignore, blockers, opts) {
			continue
		}
		moves = append(moves, move.Move{
			Action: move.MoveTypeStep,
			Plane:  p,
			FromI:  fromI,
			FromJ:  fromJ,
			ToI:    toI,
			ToJ:    toJ,
			Aux:    aux,
		})
	}
	return moves
}

func destinationOK(at, blockers board.PlaneMask, opts Options) bool {
	if at&blockers != 0 {
		return false
	}
	if at == 0 {
		return opts.Mode != ModeCaptureOnly
	}
	if at&^opts.Captures != 0 {
		return false
	}
	return opts.Mode != ModeQuietOnly
}

// Rule is one movement pattern of a piece class.
type Rule struct {
	Offsets []Offset
	Mode    Mode
}

// Rules maps a plane to its movement patterns.
type Rules map[board.Plane][]Rule

// Generate returns every move of every piece of the given planes, in plane
// order, then square order, then rule order. base supplies the side's
// occupancy masks; each rule's Mode overrides base.Mode.
func Generate(s *board.Set, planes []board.Plane, rules Rules, base Options) []move.Move {
	var moves []move.Move
	for _, p := range planes {
		prules := rules[p]
		if len(prules) == 0 {
			continue
		}
		for _, sq := range s.Squares(p) {
			for _, r := range prules {
				opts := base
				opts.Mode = r.Mode
				moves = append(moves, GenerateMovesForPiece(s, p, sq.I, sq.J, r.Offsets, opts)...)
			}
		}
	}
	return moves
}
