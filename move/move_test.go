package move

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/retrograde/board"
)

func TestReverse(t *testing.T) {
	is := is.New(t)
	m := NewStep(1, 2, 0, 1, 1).WithAux(3)
	r := m.Reverse()
	is.Equal(r, Move{Action: MoveTypeStep, Plane: 1, FromI: 1, FromJ: 1, ToI: 2, ToJ: 0, Aux: 3})
	is.True(r.Reverse().Equals(m))
}

func TestPlace(t *testing.T) {
	is := is.New(t)
	m := NewPlace(0, 1, 2)
	is.Equal(m.FromI, m.ToI)
	is.Equal(m.FromJ, m.ToJ)
	is.Equal(m.Aux, NoAux)
}

func TestShortDescription(t *testing.T) {
	is := is.New(t)
	l, err := board.NewLayout(3, 3, "white", "black")
	is.NoErr(err)
	is.Equal(NewStep(1, 0, 0, 1, 1).ShortDescription(l), "black 0,0-1,1")
	is.Equal(NewStep(0, 2, 2, 1, 2).WithAux(1).ShortDescription(l), "white 2,2-1,2 [1]")
	is.Equal(NewPlace(0, 1, 1).ShortDescription(l), "white@1,1")
}
