package onitama

import (
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
)

const testSeed = 99

// fullHash recomputes a state's hash from scratch.
func fullHash(st *State) uint64 {
	r := st.r
	var aux []uint64
	if st.blueToMove {
		aux = append(aux, r.zob.SideKey())
	}
	for _, c := range st.blue {
		aux = append(aux, r.zob.Feature(slotBlue, r.cardKeys[c]))
	}
	for _, c := range st.red {
		aux = append(aux, r.zob.Feature(slotRed, r.cardKeys[c]))
	}
	aux = append(aux, r.zob.Feature(slotNeutral, r.cardKeys[st.neutral]))
	return r.zob.Hash(st.set, aux...)
}

func TestOpening(t *testing.T) {
	is := is.New(t)
	st, err := New(Config{Seed: testSeed})
	is.NoErr(err)
	// Crab is stamped blue
	is.True(st.IsMaximizerToMove())
	is.True(!st.IsTerminal())
	blue, red, neutral := st.Cards()
	is.Equal(blue, [2]string{"Tiger", "Frog"})
	is.Equal(red, [2]string{"Dragon", "Rabbit"})
	is.Equal(neutral, "Crab")
	// five Tiger jumps, four Frog diagonals
	is.Equal(len(st.LegalMoves()), 9)
	is.Equal(strings.Split(st.String(), "\n")[0], "bbBbb")
	is.Equal(strings.Split(st.String(), "\n")[4], "rrRrr")
}

func TestRedPlaysMirroredOffsets(t *testing.T) {
	is := is.New(t)
	st, err := FromDiagram(Config{Seed: testSeed}, []string{
		"..B..",
		".....",
		".....",
		".....",
		"..R..",
	}, false)
	is.NoErr(err)
	var found bool
	for _, m := range st.LegalMoves() {
		// Rabbit's forward-right step
		if m.FromI == 4 && m.FromJ == 2 && m.ToI == 3 && m.ToJ == 3 && m.Aux == 1 {
			found = true
		}
	}
	is.True(found)
}

func TestMasterReachesTemple(t *testing.T) {
	is := is.New(t)
	st, err := FromDiagram(Config{Seed: testSeed}, []string{
		".....",
		".....",
		"..B..",
		".....",
		"R....",
	}, true)
	is.NoErr(err)
	var win move.Move
	var found bool
	for _, m := range st.LegalMoves() {
		if m.ToI == RedTemple.I && m.ToJ == RedTemple.J {
			win, found = m, true
		}
	}
	is.True(found)
	is.Equal(win.Aux, 0) // Tiger
	next := st.ApplyMove(win).(*State)
	is.True(next.IsTerminal())
	is.Equal(next.Value(), game.WinMax)
	blue, _, neutral := next.Cards()
	is.Equal(neutral, "Tiger")
	is.Equal(blue, [2]string{"Frog", "Crab"})
	is.Equal(next.Hash(), fullHash(next))
}

func TestCaptureMaster(t *testing.T) {
	is := is.New(t)
	st, err := FromDiagram(Config{Seed: testSeed}, []string{
		"B....",
		".R...",
		".....",
		".....",
		".....",
	}, true)
	is.NoErr(err)
	for _, m := range st.LegalMoves() {
		if m.ToI == 1 && m.ToJ == 1 {
			next := st.ApplyMove(m)
			is.True(next.IsTerminal())
			is.Equal(next.Value(), game.WinMax)
			return
		}
	}
	t.Fatal("frog capture not generated")
}

func TestIncrementalHash(t *testing.T) {
	is := is.New(t)
	var st game.State
	st, err := New(Config{Seed: testSeed})
	is.NoErr(err)
	for ply := 0; ply < 40 && !st.IsTerminal(); ply++ {
		moves := st.LegalMoves()
		st = st.ApplyMove(moves[ply%len(moves)])
		is.Equal(st.Hash(), fullHash(st.(*State)))
	}
}

func TestCardOwnershipChangesHash(t *testing.T) {
	is := is.New(t)
	rows := []string{"..B..", ".....", ".....", ".....", "..R.."}
	a, err := FromDiagram(Config{Seed: testSeed}, rows, true)
	is.NoErr(err)
	b, err := FromDiagram(Config{Seed: testSeed, Selection: Selection{
		Blue:    [2]string{"Dragon", "Rabbit"},
		Red:     [2]string{"Tiger", "Frog"},
		Neutral: "Crab",
	}}, rows, true)
	is.NoErr(err)
	is.Equal(a.Board().Canonical(), b.Board().Canonical())
	is.True(a.Hash() != b.Hash())
}

func TestPassWhenStuck(t *testing.T) {
	is := is.New(t)
	var deck []Card
	for _, n := range []string{"A", "B", "C", "D", "E"} {
		deck = append(deck, Card{Name: n, Stamp: Blue, Moves: [][]int{{2, 0}}})
	}
	cfg := Config{Seed: testSeed, Deck: deck, Selection: Selection{
		Blue: [2]string{"A", "B"}, Red: [2]string{"C", "D"}, Neutral: "E",
	}}
	st, err := FromDiagram(cfg, []string{
		"....R",
		".....",
		".....",
		".....",
		"B....",
	}, true)
	is.NoErr(err)
	moves := st.LegalMoves()
	is.Equal(len(moves), 2)
	is.Equal(moves[0].Action, move.MoveTypePass)
	next := st.ApplyMove(moves[1]).(*State)
	is.Equal(next.Board().Canonical(), st.Board().Canonical())
	is.True(!next.IsMaximizerToMove())
	blue, _, neutral := next.Cards()
	is.Equal(blue, [2]string{"A", "E"})
	is.Equal(neutral, "B")
	is.Equal(next.Hash(), fullHash(next))
}

func TestDrawIsDeterministic(t *testing.T) {
	is := is.New(t)
	deck := DefaultDeck()
	a, err := Draw(deck, 5)
	is.NoErr(err)
	b, err := Draw(deck, 5)
	is.NoErr(err)
	is.Equal(a, b)
	differs := false
	for seed := uint64(6); seed < 16; seed++ {
		c, err := Draw(deck, seed)
		is.NoErr(err)
		if c != a {
			differs = true
		}
	}
	is.True(differs)

	st1, err := New(Config{Seed: testSeed, Shuffle: true, DeckSeed: 5})
	is.NoErr(err)
	st2, err := New(Config{Seed: testSeed, Shuffle: true, DeckSeed: 5})
	is.NoErr(err)
	is.Equal(st1.Hash(), st2.Hash())
}

func TestDefaultDeckIsCopied(t *testing.T) {
	is := is.New(t)
	d := DefaultDeck()
	is.Equal(len(d), 16)
	d[0].Moves[0][0] = 9
	d[1].Name = "Nope"
	fresh := DefaultDeck()
	is.Equal(fresh[0].Moves[0][0], 2)
	is.Equal(fresh[1].Name, "Dragon")
}

func TestLoadDeckErrors(t *testing.T) {
	cases := map[string]string{
		"too few": `cards: [{name: A, stamp: red, moves: [[1, 0]]}]`,
		"dup": `cards:
  - {name: A, stamp: red, moves: [[1, 0]]}
  - {name: A, stamp: red, moves: [[1, 0]]}
  - {name: B, stamp: red, moves: [[1, 0]]}
  - {name: C, stamp: red, moves: [[1, 0]]}
  - {name: D, stamp: red, moves: [[1, 0]]}`,
		"stamp": `cards:
  - {name: A, stamp: green, moves: [[1, 0]]}
  - {name: B, stamp: red, moves: [[1, 0]]}
  - {name: C, stamp: red, moves: [[1, 0]]}
  - {name: D, stamp: red, moves: [[1, 0]]}
  - {name: E, stamp: red, moves: [[1, 0]]}`,
		"short move": `cards:
  - {name: A, stamp: red, moves: [[1]]}
  - {name: B, stamp: red, moves: [[1, 0]]}
  - {name: C, stamp: red, moves: [[1, 0]]}
  - {name: D, stamp: red, moves: [[1, 0]]}
  - {name: E, stamp: red, moves: [[1, 0]]}`,
		"syntax": `cards: [`,
	}
	for name, doc := range cases {
		_, err := LoadDeck(strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrBadDeck, name)
	}
	_, err := New(Config{Selection: Selection{
		Blue: [2]string{"Tiger", "Tiger"}, Red: [2]string{"Dragon", "Rabbit"}, Neutral: "Crab",
	}})
	assert.ErrorIs(t, err, ErrBadSelection)
	_, err = New(Config{Selection: Selection{
		Blue: [2]string{"Tiger", "Yeti"}, Red: [2]string{"Dragon", "Rabbit"}, Neutral: "Crab",
	}})
	assert.ErrorIs(t, err, ErrUnknownCard)
}
