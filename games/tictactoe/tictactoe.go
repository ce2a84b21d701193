// Package tictactoe implements noughts and crosses. X moves first and is the
// maximizer.
package tictactoe

import (
	"fmt"
	"strings"

	"github.com/domino14/retrograde/board"
	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
	"github.com/domino14/retrograde/zobrist"
)

const (
	XPlane = "x"
	OPlane = "o"
	size   = 3
)

type rules struct {
	layout *board.Layout
	zob    *zobrist.Zobrist
	x, o   board.Plane
	lines  []board.Bitboard
}

func newRules(seed uint64) *rules {
	l, err := board.NewLayout(size, size, XPlane, OPlane)
	if err != nil {
		// 3x3 with two distinct names always fits.
		panic(err)
	}
	r := &rules{
		layout: l,
		zob:    zobrist.New(seed, l),
		x:      l.MustPlane(XPlane),
		o:      l.MustPlane(OPlane),
	}
	var diag, anti board.Bitboard
	for k := 0; k < size; k++ {
		r.lines = append(r.lines, l.RowMask(k), l.ColumnMask(k))
		diag |= 1 << uint(l.Index(k, k))
		anti |= 1 << uint(l.Index(k, size-1-k))
	}
	r.lines = append(r.lines, diag, anti)
	return r
}

func (r *rules) hasLine(b board.Bitboard) bool {
	for _, line := range r.lines {
		if b&line == line {
			return true
		}
	}
	return false
}

// State is a Tic-Tac-Toe position.
type State struct {
	r     *rules
	set   *board.Set
	xTurn bool
	hash  uint64
	value game.Value
	moves []move.Move
}

// New returns the empty board with X to move.
func New(seed uint64) *State {
	r := newRules(seed)
	s := board.NewSet(r.layout)
	st := &State{r: r, set: s, xTurn: true, hash: r.zob.Hash(s, r.zob.SideKey())}
	st.settle()
	return st
}

func (st *State) settle() {
	r := st.r
	st.value = game.Undetermined
	switch {
	case r.hasLine(st.set.Get(r.x)):
		st.value = game.WinMax
		return
	case r.hasLine(st.set.Get(r.o)):
		st.value = game.WinMin
		return
	}
	occupied := st.set.Occupancy(r.x, r.o)
	if occupied == r.layout.FullMask() {
		st.value = game.Draw
		return
	}
	p := r.o
	if st.xTurn {
		p = r.x
	}
	for k := 0; k < r.layout.NumSquares(); k++ {
		if !occupied.Has(k) {
			sq := r.layout.SquareOf(k)
			st.moves = append(st.moves, move.NewPlace(p, sq.I, sq.J))
		}
	}
}

func (st *State) IsTerminal() bool                 { return st.value != game.Undetermined }
func (st *State) Value() game.Value                { return st.value }
func (st *State) IsMaximizerToMove() bool          { return st.xTurn }
func (st *State) LegalMoves() []move.Move          { return st.moves }
func (st *State) Hash() uint64                     { return st.hash }
func (st *State) Board() *board.Set                { return st.set }
func (st *State) Canonical() []byte                { return st.set.Canonical() }
func (st *State) ApplyMove(m move.Move) game.State { return st.place(m) }

func (st *State) place(m move.Move) *State {
	r := st.r
	p := r.o
	if st.xTurn {
		p = r.x
	}
	if m.Action != move.MoveTypePlace || m.Plane != p ||
		!r.layout.InBounds(m.ToI, m.ToJ) || st.set.PlanesAt(m.ToI, m.ToJ) != 0 {
		panic(fmt.Sprintf("tictactoe: illegal move %v", m))
	}
	s := st.set.Clone()
	s.SetPiece(p, m.ToI, m.ToJ)
	next := &State{r: r, set: s, xTurn: !st.xTurn, hash: r.zob.AddMove(st.hash, m, nil)}
	next.settle()
	return next
}

func (st *State) String() string {
	var sb strings.Builder
	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			switch {
			case st.set.IsSet(st.r.x, i, j):
				sb.WriteByte('X')
			case st.set.IsSet(st.r.o, i, j):
				sb.WriteByte('O')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
