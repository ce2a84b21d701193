package hexapawn

import (
	"strings"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
)

const testSeed = 1234

func TestStartingPosition(t *testing.T) {
	is := is.New(t)
	st, err := New(DefaultConfig(testSeed))
	is.NoErr(err)
	is.True(!st.IsTerminal())
	is.Equal(st.Value(), game.Undetermined)
	is.True(st.IsMaximizerToMove())
	// three forward steps, no captures
	is.Equal(len(st.LegalMoves()), 3)
	for _, m := range st.LegalMoves() {
		is.Equal(m.FromI, 2)
		is.Equal(m.ToI, 1)
		is.Equal(m.FromJ, m.ToJ)
	}
	is.Equal(st.String(), "BBB\n...\nWWW\nwhite to move\n")
}

func TestBadConfig(t *testing.T) {
	is := is.New(t)
	_, err := New(Config{Rows: 2, Cols: 3})
	is.True(err != nil)
	_, err = New(Config{Rows: 9, Cols: 9})
	is.True(err != nil)
	_, err = FromDiagram(testSeed, []string{"B..", "..", "W.."}, true)
	is.True(err != nil)
	_, err = FromDiagram(testSeed, []string{"B..", ".x.", "W.."}, true)
	is.True(err != nil)
}

func TestCapture(t *testing.T) {
	is := is.New(t)
	st, err := FromDiagram(testSeed, []string{
		"B.B",
		".B.",
		"W.W",
	}, true)
	is.NoErr(err)
	var captures []move.Move
	for _, m := range st.LegalMoves() {
		if m.ToI == 1 && m.ToJ == 1 {
			captures = append(captures, m)
		}
	}
	is.Equal(len(captures), 2)
	next := st.ApplyMove(captures[0]).(*State)
	is.Equal(next.Board().Count(next.r.black), 2)
	is.True(!next.IsMaximizerToMove())
}

func TestIncrementalHashMatchesDiagram(t *testing.T) {
	is := is.New(t)
	var st game.State
	st, err := New(DefaultConfig(testSeed))
	is.NoErr(err)
	for !st.IsTerminal() {
		st = st.ApplyMove(st.LegalMoves()[0])
		hs := st.(*State)
		lines := strings.Split(hs.String(), "\n")
		fresh, err := FromDiagram(testSeed, lines[:3], hs.IsMaximizerToMove())
		is.NoErr(err)
		is.Equal(fresh.Hash(), st.Hash())
		is.Equal(fresh.Canonical(), hs.Canonical())
	}
}

func TestSideToMoveChangesHash(t *testing.T) {
	is := is.New(t)
	rows := []string{"B..", "...", "..W"}
	a, err := FromDiagram(testSeed, rows, true)
	is.NoErr(err)
	b, err := FromDiagram(testSeed, rows, false)
	is.NoErr(err)
	is.True(a.Hash() != b.Hash())
}

func TestOnlyMoveReachesBackRank(t *testing.T) {
	is := is.New(t)
	st, err := FromDiagram(testSeed, []string{
		"B..",
		"..W",
		"...",
	}, true)
	is.NoErr(err)
	is.True(!st.IsTerminal())
	is.Equal(len(st.LegalMoves()), 1)
	child := st.ApplyMove(st.LegalMoves()[0])
	is.True(child.IsTerminal())
	is.Equal(child.Value(), game.WinMax)
	is.Equal(len(child.LegalMoves()), 0)
}

func TestNoMovesLoses(t *testing.T) {
	is := is.New(t)
	st, err := FromDiagram(testSeed, []string{
		"...",
		"B..",
		"W..",
	}, true)
	is.NoErr(err)
	is.True(st.IsTerminal())
	is.Equal(st.Value(), game.WinMin)
}

func TestAllCapturedWins(t *testing.T) {
	is := is.New(t)
	st, err := FromDiagram(testSeed, []string{
		"...",
		".W.",
		"...",
	}, false)
	is.NoErr(err)
	is.True(st.IsTerminal())
	is.Equal(st.Value(), game.WinMax)
}

func TestApplyIllegalMovePanics(t *testing.T) {
	is := is.New(t)
	st, err := New(DefaultConfig(testSeed))
	is.NoErr(err)
	defer func() {
		is.True(recover() != nil)
	}()
	st.ApplyMove(move.NewStep(st.r.white, 1, 1, 0, 1))
}
