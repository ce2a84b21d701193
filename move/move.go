package move

import (
	"fmt"

	"github.com/domino14/retrograde/board"
)

// MoveType is the kind of move: a piece stepping from one square to
// another, a new piece placed on an empty square, or a pass that leaves the
// board alone (a game may still change its auxiliary state on a pass).
type MoveType uint8

const (
	MoveTypeStep MoveType = iota
	MoveTypePlace
	MoveTypePass
)

// NoAux marks a move that does not use an auxiliary selector.
const NoAux = -1

// Move is a single move on a bitboard set. Aux selects a game-specific
// resource used by the move, such as which card was played; it is NoAux when
// the game has no such resource.
type Move struct {
	Action MoveType
	Plane  board.Plane
	FromI  int
	FromJ  int
	ToI    int
	ToJ    int
	Aux    int
}

// NewStep returns a step move without an auxiliary selector.
func NewStep(p board.Plane, fromI, fromJ, toI, toJ int) Move {
	return Move{Action: MoveTypeStep, Plane: p, FromI: fromI, FromJ: fromJ,
		ToI: toI, ToJ: toJ, Aux: NoAux}
}

// NewPlace returns a placement of a new piece of plane p on (i, j).
func NewPlace(p board.Plane, i, j int) Move {
	return Move{Action: MoveTypePlace, Plane: p, FromI: i, FromJ: j,
		ToI: i, ToJ: j, Aux: NoAux}
}

// NewPass returns a pass.
func NewPass() Move {
	return Move{Action: MoveTypePass, Aux: NoAux}
}

// WithAux returns a copy of m using auxiliary selector aux.
func (m Move) WithAux(aux int) Move {
	m.Aux = aux
	return m
}

// Reverse returns the step that moves the piece back. Reversing a quiet step
// and applying both restores the board; captures are not undone.
func (m Move) Reverse() Move {
	m.FromI, m.ToI = m.ToI, m.FromI
	m.FromJ, m.ToJ = m.ToJ, m.FromJ
	return m
}

// Equals compares every field.
func (m Move) Equals(o Move) bool {
	return m == o
}

func (m Move) String() string {
	switch m.Action {
	case MoveTypePass:
		if m.Aux != NoAux {
			return fmt.Sprintf("<pass aux %d>", m.Aux)
		}
		return "<pass>"
	case MoveTypePlace:
		if m.Aux != NoAux {
			return fmt.Sprintf("<place p%d (%d,%d) aux %d>", m.Plane, m.ToI, m.ToJ, m.Aux)
		}
		return fmt.Sprintf("<place p%d (%d,%d)>", m.Plane, m.ToI, m.ToJ)
	default:
		if m.Aux != NoAux {
			return fmt.Sprintf("<step p%d (%d,%d)->(%d,%d) aux %d>", m.Plane,
				m.FromI, m.FromJ, m.ToI, m.ToJ, m.Aux)
		}
		return fmt.Sprintf("<step p%d (%d,%d)->(%d,%d)>", m.Plane,
			m.FromI, m.FromJ, m.ToI, m.ToJ)
	}
}

// ShortDescription names the plane using the layout.
func (m Move) ShortDescription(l *board.Layout) string {
	if m.Action == MoveTypePass {
		if m.Aux != NoAux {
			return fmt.Sprintf("pass [%d]", m.Aux)
		}
		return "pass"
	}
	if m.Action == MoveTypePlace {
		return fmt.Sprintf("%s@%d,%d", l.Name(m.Plane), m.ToI, m.ToJ)
	}
	s := fmt.Sprintf("%s %d,%d-%d,%d", l.Name(m.Plane), m.FromI, m.FromJ, m.ToI, m.ToJ)
	if m.Aux != NoAux {
		s += fmt.Sprintf(" [%d]", m.Aux)
	}
	return s
}
