package zobrist

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/cespare/xxhash"
	"lukechampine.com/frand"

	"github.com/domino14/retrograde/board"
	"github.com/domino14/retrograde/move"
)

const bignum = 1<<63 - 2

// chacha rounds used to expand a seed into keys.
const streamRounds = 12

// Zobrist generates hashes for positions on a bitboard set.
// https://en.wikipedia.org/wiki/Zobrist_hashing
//
// With a seed, every key is a function of the seed, the plane name and the
// board size only, so identical boards hash identically across processes and
// machines. Keys never depend on plane order.
type Zobrist struct {
	seed   uint64
	seeded bool

	layout      *board.Layout
	posTable    [][]uint64
	sideToMove  uint64
	featureSalt uint64
}

// New builds the key tables for layout l from seed.
func New(seed uint64, l *board.Layout) *Zobrist {
	z := &Zobrist{seed: seed, seeded: true, layout: l}
	z.posTable = make([][]uint64, l.NumPlanes())
	for p, name := range l.Names() {
		rng := stream(seed, "plane:"+name, l)
		z.posTable[p] = make([]uint64, l.NumSquares())
		for k := range z.posTable[p] {
			z.posTable[p][k] = rng.Uint64n(bignum) + 1
		}
	}
	rng := stream(seed, "aux", l)
	z.sideToMove = rng.Uint64n(bignum) + 1
	z.featureSalt = rng.Uint64n(bignum) + 1
	return z
}

// NewUnseeded draws keys from the process-wide entropy source. Hashes from
// an unseeded Zobrist mean nothing outside the process that made them; never
// persist them.
func NewUnseeded(l *board.Layout) *Zobrist {
	z := &Zobrist{layout: l}
	z.posTable = make([][]uint64, l.NumPlanes())
	for p := range z.posTable {
		z.posTable[p] = make([]uint64, l.NumSquares())
		for k := range z.posTable[p] {
			z.posTable[p][k] = frand.Uint64n(bignum) + 1
		}
	}
	z.sideToMove = frand.Uint64n(bignum) + 1
	z.featureSalt = frand.Uint64n(bignum) + 1
	return z
}

func stream(seed uint64, label string, l *board.Layout) *frand.RNG {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], seed)
	binary.LittleEndian.PutUint64(buf[8:], xxhash.Sum64String(label))
	binary.LittleEndian.PutUint64(buf[16:], uint64(l.SizeI()))
	binary.LittleEndian.PutUint64(buf[24:], uint64(l.SizeJ()))
	return frand.NewCustom(buf[:], 1024, streamRounds)
}

// Seeded reports whether the tables were derived from a seed.
func (z *Zobrist) Seeded() bool { return z.seeded }

// Seed returns the seed, or 0 for an unseeded Zobrist.
func (z *Zobrist) Seed() uint64 { return z.seed }

func (z *Zobrist) Layout() *board.Layout { return z.layout }

// Key returns the key of a piece of plane p on (i, j), or 0 off the board.
func (z *Zobrist) Key(p board.Plane, i, j int) uint64 {
	if !z.layout.InBounds(i, j) {
		return 0
	}
	return z.posTable[p][z.layout.Index(i, j)]
}

// SideKey is XORed into the hash when the maximizer is to move.
func (z *Zobrist) SideKey() uint64 {
	return z.sideToMove
}

// Feature returns a key for an auxiliary feature, e.g. "card 7 is in blue's
// hand" as Feature(blueHandSlot, 7). Different (slot, value) pairs get
// unrelated keys.
func (z *Zobrist) Feature(slot int, value uint64) uint64 {
	return hashUint64(z.featureSalt ^ hashUint64(uint64(slot)*0x9e3779b97f4a7c15+value))
}

// AuxKey names a game resource with a stable 64-bit value, suitable as the
// value argument of Feature.
func AuxKey(name string) uint64 {
	return xxhash.Sum64String(name)
}

// https://stackoverflow.com/a/12996028/1737333
func hashUint64(x uint64) uint64 {
	x = (x ^ (x >> 30)) * uint64(0xbf58476d1ce4e5b9)
	x = (x ^ (x >> 27)) * uint64(0x94d049bb133111eb)
	x = x ^ (x >> 31)
	return x
}

// Hash XORs the key of every set bit of every plane, then every aux value.
func (z *Zobrist) Hash(s *board.Set, aux ...uint64) uint64 {
	if s.Layout().NumPlanes() != len(z.posTable) {
		panic(fmt.Sprintf("zobrist: set has %d planes, table has %d",
			s.Layout().NumPlanes(), len(z.posTable)))
	}
	key := uint64(0)
	for p, table := range z.posTable {
		b := uint64(s.Get(board.Plane(p)))
		for b != 0 {
			k := bits.TrailingZeros64(b)
			key ^= table[k]
			b &= b - 1
		}
	}
	for _, a := range aux {
		key ^= a
	}
	return key
}

// Toggle adds or removes a piece of plane p on (i, j).
func (z *Zobrist) Toggle(key uint64, p board.Plane, i, j int) uint64 {
	return key ^ z.Key(p, i, j)
}

// AddMove updates key for move m, given the planes it captured, and flips the
// side to move. Applying the same move with the same captures again undoes
// it.
func (z *Zobrist) AddMove(key uint64, m move.Move, captured []board.Plane) uint64 {
	switch m.Action {
	case move.MoveTypePass:
	case move.MoveTypePlace:
		key ^= z.Key(m.Plane, m.ToI, m.ToJ)
	default:
		key ^= z.Key(m.Plane, m.FromI, m.FromJ)
		key ^= z.Key(m.Plane, m.ToI, m.ToJ)
	}
	for _, c := range captured {
		key ^= z.Key(c, m.ToI, m.ToJ)
	}
	key ^= z.sideToMove
	return key
}
