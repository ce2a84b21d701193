// Package hexapawn implements Hexapawn on an arbitrary rectangular board.
// White starts on the last row and moves toward row 0; black starts on row
// 0 and moves toward the last row. Pawns step forward onto empty squares and
// capture diagonally. A side wins by reaching the far row, by capturing
// every enemy pawn, or when the opponent has no legal move.
package hexapawn

import (
	"errors"
	"fmt"
	"strings"

	"github.com/domino14/retrograde/board"
	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
	"github.com/domino14/retrograde/movegen"
	"github.com/domino14/retrograde/zobrist"
)

const (
	WhitePlane = "white"
	BlackPlane = "black"
)

const (
	DefaultRows = 3
	DefaultCols = 3
)

var ErrBadDiagram = errors.New("bad hexapawn diagram")

// Config selects the board size and the hashing seed.
type Config struct {
	Rows int
	Cols int
	Seed uint64
}

// DefaultConfig is the classic 3x3 game.
func DefaultConfig(seed uint64) Config {
	return Config{Rows: DefaultRows, Cols: DefaultCols, Seed: seed}
}

// rules holds everything that never changes during a game. It is shared
// by every state derived from the same root.
type rules struct {
	layout       *board.Layout
	zob          *zobrist.Zobrist
	white, black board.Plane
	whiteRules   movegen.Rules
	blackRules   movegen.Rules
}

func newRules(cfg Config) (*rules, error) {
	if cfg.Rows < 3 {
		return nil, fmt.Errorf("hexapawn needs at least 3 rows, got %d", cfg.Rows)
	}
	l, err := board.NewLayout(cfg.Rows, cfg.Cols, WhitePlane, BlackPlane)
	if err != nil {
		return nil, err
	}
	r := &rules{
		layout: l,
		zob:    zobrist.New(cfg.Seed, l),
		white:  l.MustPlane(WhitePlane),
		black:  l.MustPlane(BlackPlane),
	}
	forward := []movegen.Offset{{DI: -1, DJ: 0}}
	diagonals := []movegen.Offset{{DI: -1, DJ: -1}, {DI: -1, DJ: 1}}
	r.whiteRules = movegen.Rules{r.white: {
		{Offsets: forward, Mode: movegen.ModeQuietOnly},
		{Offsets: diagonals, Mode: movegen.ModeCaptureOnly},
	}}
	r.blackRules = movegen.Rules{r.black: {
		{Offsets: movegen.Mirror(forward), Mode: movegen.ModeQuietOnly},
		{Offsets: movegen.Mirror(diagonals), Mode: movegen.ModeCaptureOnly},
	}}
	return r, nil
}

// State is a Hexapawn position. It is immutable.
type State struct {
	r           *rules
	set         *board.Set
	whiteToMove bool
	hash        uint64
	value       game.Value
	moves       []move.Move
}

// New returns the starting position: a full row of pawns for each side,
// white to move.
func New(cfg Config) (*State, error) {
	r, err := newRules(cfg)
	if err != nil {
		return nil, err
	}
	s := board.NewSet(r.layout)
	s.SetAllBitsAtRow(r.white, cfg.Rows-1)
	s.SetAllBitsAtRow(r.black, 0)
	return r.newState(s, true), nil
}

// FromDiagram parses a position, one string per row from row 0 down. 'W'
// is a white pawn, 'B' a black pawn and '.' an empty square.
func FromDiagram(seed uint64, rows []string, whiteToMove bool) (*State, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no rows", ErrBadDiagram)
	}
	cfg := Config{Rows: len(rows), Cols: len(rows[0]), Seed: seed}
	r, err := newRules(cfg)
	if err != nil {
		return nil, err
	}
	s := board.NewSet(r.layout)
	for i, row := range rows {
		if len(row) != cfg.Cols {
			return nil, fmt.Errorf("%w: row %d has %d squares, want %d",
				ErrBadDiagram, i, len(row), cfg.Cols)
		}
		for j, c := range row {
			switch c {
			case 'W', 'w':
				s.SetPiece(r.white, i, j)
			case 'B', 'b':
				s.SetPiece(r.black, i, j)
			case '.':
			default:
				return nil, fmt.Errorf("%w: unexpected %q", ErrBadDiagram, c)
			}
		}
	}
	return r.newState(s, whiteToMove), nil
}

func (r *rules) newState(s *board.Set, whiteToMove bool) *State {
	var h uint64
	if whiteToMove {
		h = r.zob.Hash(s, r.zob.SideKey())
	} else {
		h = r.zob.Hash(s)
	}
	st := &State{r: r, set: s, whiteToMove: whiteToMove, hash: h}
	st.settle()
	return st
}

// settle computes the outcome and, for an unfinished game, the legal moves.
// States are shared between goroutines, so nothing is computed lazily.
func (st *State) settle() {
	r := st.r
	st.value = game.Undetermined
	switch {
	case st.set.AnyInRow(r.white, 0):
		st.value = game.WinMax
	case st.set.AnyInRow(r.black, r.layout.SizeI()-1):
		st.value = game.WinMin
	case st.set.IsEmpty(r.black):
		st.value = game.WinMax
	case st.set.IsEmpty(r.white):
		st.value = game.WinMin
	}
	if st.value != game.Undetermined {
		return
	}
	if st.whiteToMove {
		st.moves = movegen.Generate(st.set, []board.Plane{r.white}, r.whiteRules,
			movegen.Options{Captures: board.MaskOf(r.black)})
	} else {
		st.moves = movegen.Generate(st.set, []board.Plane{r.black}, r.blackRules,
			movegen.Options{Captures: board.MaskOf(r.white)})
	}
	if len(st.moves) == 0 {
		// A side that cannot move loses.
		st.value = game.WinFor(!st.whiteToMove)
	}
}

func (st *State) IsTerminal() bool {
	return st.value != game.Undetermined
}

func (st *State) Value() game.Value {
	return st.value
}

func (st *State) IsMaximizerToMove() bool {
	return st.whiteToMove
}

// LegalMoves returns the moves of the side to move. It is empty once the
// game is over. Callers must not modify the returned slice.
func (st *State) LegalMoves() []move.Move {
	return st.moves
}

// ApplyMove returns the position after m. It panics if m does not start
// from one of the mover's pawns.
func (st *State) ApplyMove(m move.Move) game.State {
	r := st.r
	mover, opp := r.white, r.black
	if !st.whiteToMove {
		mover, opp = r.black, r.white
	}
	if m.Plane != mover || !st.set.IsSet(mover, m.FromI, m.FromJ) {
		panic(fmt.Sprintf("hexapawn: illegal move %v", m))
	}
	s := st.set.Clone()
	captured := s.MoveWithCapture(mover, m.FromI, m.FromJ, m.ToI, m.ToJ, opp)
	next := &State{
		r:           r,
		set:         s,
		whiteToMove: !st.whiteToMove,
		hash:        r.zob.AddMove(st.hash, m, captured),
	}
	next.settle()
	return next
}

func (st *State) Hash() uint64 {
	return st.hash
}

// Board exposes the pawn bitboards. The returned set must not be modified.
func (st *State) Board() *board.Set {
	return st.set
}

// Canonical is the board encoding followed by the side to move.
func (st *State) Canonical() []byte {
	b := st.set.Canonical()
	if st.whiteToMove {
		return append(b, 1)
	}
	return append(b, 0)
}

// String renders the position in the same form FromDiagram reads.
func (st *State) String() string {
	var sb strings.Builder
	l := st.r.layout
	for i := 0; i < l.SizeI(); i++ {
		for j := 0; j < l.SizeJ(); j++ {
			switch {
			case st.set.IsSet(st.r.white, i, j):
				sb.WriteByte('W')
			case st.set.IsSet(st.r.black, i, j):
				sb.WriteByte('B')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	if st.whiteToMove {
		sb.WriteString("white to move\n")
	} else {
		sb.WriteString("black to move\n")
	}
	return sb.String()
}
