package zobrist

import (
	"encoding/binary"
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"

	"github.com/domino14/retrograde/board"
	"github.com/domino14/retrograde/move"
)

const testSeed = 42

func randomSet(l *board.Layout) *board.Set {
	s := board.NewSet(l)
	var taken board.Bitboard
	for p := 0; p < l.NumPlanes(); p++ {
		b := board.Bitboard(binary.LittleEndian.Uint64(frand.Bytes(8))) &^ taken
		s.Put(board.Plane(p), b)
		taken |= s.Get(board.Plane(p))
	}
	return s
}

func TestSameSeedSameHash(t *testing.T) {
	is := is.New(t)
	l, err := board.NewLayout(5, 5, "B", "b", "R", "r")
	is.NoErr(err)
	z1 := New(testSeed, l)
	z2 := New(testSeed, l)
	for i := 0; i < 100; i++ {
		s := randomSet(l)
		is.Equal(z1.Hash(s), z2.Hash(s))
		is.Equal(z1.Hash(s, z1.SideKey()), z2.Hash(s.Clone(), z2.SideKey()))
	}
	z3 := New(testSeed+1, l)
	s := randomSet(l)
	is.True(z1.Hash(s) != z3.Hash(s))
}

func TestKeysIndependentOfPlaneOrder(t *testing.T) {
	is := is.New(t)
	l1, _ := board.NewLayout(3, 3, "white", "black")
	l2, _ := board.NewLayout(3, 3, "black", "white")
	z1 := New(testSeed, l1)
	z2 := New(testSeed, l2)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			is.Equal(z1.Key(l1.MustPlane("white"), i, j), z2.Key(l2.MustPlane("white"), i, j))
			is.Equal(z1.Key(l1.MustPlane("black"), i, j), z2.Key(l2.MustPlane("black"), i, j))
		}
	}
	is.Equal(z1.SideKey(), z2.SideKey())
}

func TestKeysNonZero(t *testing.T) {
	is := is.New(t)
	l, _ := board.NewLayout(8, 8, "a", "b")
	for _, z := range []*Zobrist{New(testSeed, l), NewUnseeded(l)} {
		for p := 0; p < 2; p++ {
			for k := 0; k < 64; k++ {
				sq := l.SquareOf(k)
				is.True(z.Key(board.Plane(p), sq.I, sq.J) != 0)
			}
		}
		is.Equal(z.Key(0, 8, 0), uint64(0))
	}
}

func TestDistinctBoardsDistinctHashes(t *testing.T) {
	is := is.New(t)
	l, _ := board.NewLayout(5, 5, "B", "b", "R", "r")
	z := New(testSeed, l)
	seen := map[uint64]string{}
	for i := 0; i < 20000; i++ {
		s := randomSet(l)
		h := z.Hash(s)
		c := string(s.Canonical())
		if prev, ok := seen[h]; ok {
			is.Equal(prev, c) // same hash must mean same board
		}
		seen[h] = c
	}
}

func TestAuxChangesHash(t *testing.T) {
	is := is.New(t)
	l, _ := board.NewLayout(3, 3, "x", "o")
	z := New(testSeed, l)
	s := randomSet(l)
	is.True(z.Hash(s) != z.Hash(s, z.SideKey()))
	is.True(z.Feature(0, AuxKey("Tiger")) != z.Feature(1, AuxKey("Tiger")))
	is.True(z.Feature(0, AuxKey("Tiger")) != z.Feature(0, AuxKey("Dragon")))
	is.Equal(AuxKey("Tiger"), AuxKey("Tiger"))
	// XOR is order independent
	a, b := z.Feature(0, 1), z.Feature(1, 2)
	is.Equal(z.Hash(s, a, b), z.Hash(s, b, a))
}

func TestIncrementalMatchesFull(t *testing.T) {
	is := is.New(t)
	l, _ := board.NewLayout(3, 3, "white", "black")
	z := New(testSeed, l)
	white, black := l.MustPlane("white"), l.MustPlane("black")

	s := board.NewSet(l)
	s.SetAllBitsAtRow(white, 2)
	s.SetAllBitsAtRow(black, 0)
	s.SetPiece(black, 1, 1)
	key := z.Hash(s, z.SideKey())

	// quiet move by white
	m1 := move.NewStep(white, 2, 0, 1, 0)
	capt := s.MoveWithCapture(m1.Plane, m1.FromI, m1.FromJ, m1.ToI, m1.ToJ, black)
	key = z.AddMove(key, m1, capt)
	is.Equal(key, z.Hash(s))

	// black steps, then white captures on (1,1)
	m2 := move.NewStep(black, 0, 2, 1, 2)
	capt = s.MoveWithCapture(m2.Plane, m2.FromI, m2.FromJ, m2.ToI, m2.ToJ, white)
	key = z.AddMove(key, m2, capt)
	is.Equal(key, z.Hash(s, z.SideKey()))

	m3 := move.NewStep(white, 2, 2, 1, 1)
	capt = s.MoveWithCapture(m3.Plane, m3.FromI, m3.FromJ, m3.ToI, m3.ToJ, black)
	is.Equal(capt, []board.Plane{black})
	key = z.AddMove(key, m3, capt)
	is.Equal(key, z.Hash(s))

	m4 := move.NewPlace(black, 2, 2)
	s.SetPiece(black, 2, 2)
	key = z.AddMove(key, m4, nil)
	is.Equal(key, z.Hash(s, z.SideKey()))
}

func TestUnseededIsNotSeeded(t *testing.T) {
	is := is.New(t)
	l, _ := board.NewLayout(3, 3, "x")
	is.True(!NewUnseeded(l).Seeded())
	is.True(New(0, l).Seeded())
}

func TestToggleMatchesHash(t *testing.T) {
	is := is.New(t)
	l, err := board.NewLayout(4, 5, "w", "b")
	is.NoErr(err)
	z := New(testSeed, l)
	s := board.NewSet(l)
	s.SetPiece(l.MustPlane("w"), 0, 1)
	key := z.Hash(s, z.SideKey())

	added := z.Toggle(key, l.MustPlane("b"), 3, 4)
	s2 := s.Clone()
	s2.SetPiece(l.MustPlane("b"), 3, 4)
	is.Equal(added, z.Hash(s2, z.SideKey()))

	removed := z.Toggle(key, l.MustPlane("w"), 0, 1)
	is.Equal(removed, z.Hash(board.NewSet(l), z.SideKey()))

	is.Equal(z.Toggle(added, l.MustPlane("b"), 3, 4), key)
	// off the board changes nothing
	is.Equal(z.Toggle(key, l.MustPlane("b"), 4, 0), key)
}

func TestSeed(t *testing.T) {
	is := is.New(t)
	l, _ := board.NewLayout(3, 3, "x")
	is.Equal(New(testSeed, l).Seed(), uint64(testSeed))
	is.Equal(NewUnseeded(l).Seed(), uint64(0))
}
