package tictactoe

import (
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
)

func play(t *testing.T, squares ...[2]int) game.State {
	t.Helper()
	st := game.State(New(7))
	for _, sq := range squares {
		var found bool
		for _, m := range st.LegalMoves() {
			if m.ToI == sq[0] && m.ToJ == sq[1] {
				st = st.ApplyMove(m)
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("no move to %v", sq)
		}
	}
	return st
}

func TestEmptyBoard(t *testing.T) {
	is := is.New(t)
	st := New(7)
	is.Equal(len(st.LegalMoves()), 9)
	is.True(st.IsMaximizerToMove())
	is.True(!st.IsTerminal())
}

func TestRowWin(t *testing.T) {
	is := is.New(t)
	st := play(t, [2]int{0, 0}, [2]int{1, 0}, [2]int{0, 1}, [2]int{1, 1}, [2]int{0, 2})
	is.True(st.IsTerminal())
	is.Equal(st.Value(), game.WinMax)
	is.Equal(len(st.LegalMoves()), 0)
}

func TestAntiDiagonalWinForO(t *testing.T) {
	is := is.New(t)
	st := play(t, [2]int{0, 0}, [2]int{0, 2}, [2]int{0, 1}, [2]int{1, 1}, [2]int{2, 2}, [2]int{2, 0})
	is.True(st.IsTerminal())
	is.Equal(st.Value(), game.WinMin)
}

func TestFullBoardDraw(t *testing.T) {
	is := is.New(t)
	// X O X
	// X O O
	// O X X
	st := play(t,
		[2]int{0, 0}, [2]int{0, 1}, [2]int{0, 2}, [2]int{1, 1}, [2]int{1, 0},
		[2]int{1, 2}, [2]int{2, 1}, [2]int{2, 0}, [2]int{2, 2})
	is.True(st.IsTerminal())
	is.Equal(st.Value(), game.Draw)
	is.Equal(st.(*State).String(), "XOX\nXOO\nOXX\n")
}

func TestTranspositionsShareHash(t *testing.T) {
	is := is.New(t)
	a := play(t, [2]int{0, 0}, [2]int{1, 1}, [2]int{2, 2})
	b := play(t, [2]int{2, 2}, [2]int{1, 1}, [2]int{0, 0})
	is.Equal(a.Hash(), b.Hash())
	c := play(t, [2]int{0, 0}, [2]int{2, 2}, [2]int{1, 1})
	is.True(a.Hash() != c.Hash())
}

func TestPlaceOnOccupiedPanics(t *testing.T) {
	is := is.New(t)
	st := play(t, [2]int{1, 1})
	defer func() {
		is.True(recover() != nil)
	}()
	st.ApplyMove(move.NewPlace(st.(*State).r.o, 1, 1))
}
