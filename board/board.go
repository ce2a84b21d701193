package board

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// MaxSquares is the number of cells a single Bitboard can hold.
const MaxSquares = 64

var (
	ErrBadDimensions  = errors.New("board dimensions must be positive and fit in 64 squares")
	ErrUnknownPlane   = errors.New("unknown plane")
	ErrDuplicatePlane = errors.New("duplicate plane name")
)

// A Bitboard holds the occupancy of one piece class. Bit k = i*sizeJ + j
// represents cell (i, j).
type Bitboard uint64

// Has returns whether bit k is set.
func (b Bitboard) Has(k int) bool {
	return b&(1<<uint(k)) != 0
}

// Count returns the number of set bits.
func (b Bitboard) Count() int {
	return bits.OnesCount64(uint64(b))
}

// Plane identifies a bitboard within a Layout. Planes are small integers
// resolved from their names once, when a game is constructed.
type Plane uint8

// PlaneMask is a set of planes, one bit per Plane.
type PlaneMask uint64

// MaskOf builds a PlaneMask from a list of planes.
func MaskOf(planes ...Plane) PlaneMask {
	var m PlaneMask
	for _, p := range planes {
		m |= 1 << p
	}
	return m
}

func (m PlaneMask) Has(p Plane) bool {
	return m&(1<<p) != 0
}

// Square is a cell coordinate.
type Square struct {
	I, J int
}

// Layout describes the shape shared by every Set of a game: the board
// dimensions, the ordered plane names and the precomputed row and column
// masks. A Layout is never modified after construction, so it can be shared
// freely between sets and goroutines.
type Layout struct {
	sizeI, sizeJ int
	names        []string
	index        map[string]Plane
	rowMasks     []Bitboard
	colMasks     []Bitboard
	full         Bitboard
}

// NewLayout returns a layout of sizeI rows by sizeJ columns with the given
// plane names, in order.
func NewLayout(sizeI, sizeJ int, names ...string) (*Layout, error) {
	if sizeI <= 0 || sizeJ <= 0 || sizeI*sizeJ > MaxSquares {
		return nil, fmt.Errorf("%w: %dx%d", ErrBadDimensions, sizeI, sizeJ)
	}
	l := &Layout{
		sizeI: sizeI,
		sizeJ: sizeJ,
		index: make(map[string]Plane, len(names)),
	}
	for _, n := range names {
		if err := l.addPlane(n); err != nil {
			return nil, err
		}
	}
	l.rowMasks = make([]Bitboard, sizeI)
	l.colMasks = make([]Bitboard, sizeJ)
	for i := 0; i < sizeI; i++ {
		for j := 0; j < sizeJ; j++ {
			bit := Bitboard(1) << uint(i*sizeJ+j)
			l.rowMasks[i] |= bit
			l.colMasks[j] |= bit
			l.full |= bit
		}
	}
	return l, nil
}

func (l *Layout) addPlane(name string) error {
	if _, ok := l.index[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePlane, name)
	}
	if len(l.names) >= MaxSquares {
		return fmt.Errorf("too many planes (max %d)", MaxSquares)
	}
	l.index[name] = Plane(len(l.names))
	l.names = append(l.names, name)
	return nil
}

// withPlane returns a copy of l with one more plane.
func (l *Layout) withPlane(name string) (*Layout, error) {
	nl := &Layout{
		sizeI:    l.sizeI,
		sizeJ:    l.sizeJ,
		names:    append([]string(nil), l.names...),
		index:    make(map[string]Plane, len(l.names)+1),
		rowMasks: l.rowMasks,
		colMasks: l.colMasks,
		full:     l.full,
	}
	for k, v := range l.index {
		nl.index[k] = v
	}
	if err := nl.addPlane(name); err != nil {
		return nil, err
	}
	return nl, nil
}

func (l *Layout) SizeI() int { return l.sizeI }
func (l *Layout) SizeJ() int { return l.sizeJ }

// NumSquares is sizeI * sizeJ.
func (l *Layout) NumSquares() int { return l.sizeI * l.sizeJ }

// NumPlanes returns how many planes the layout has.
func (l *Layout) NumPlanes() int { return len(l.names) }

// Names returns the plane names in plane order. Do not modify.
func (l *Layout) Names() []string { return l.names }

// Name returns the name of plane p.
func (l *Layout) Name(p Plane) string {
	if int(p) >= len(l.names) {
		return fmt.Sprintf("plane(%d)", p)
	}
	return l.names[p]
}

// Plane resolves a plane name.
func (l *Layout) Plane(name string) (Plane, error) {
	p, ok := l.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownPlane, name)
	}
	return p, nil
}

// MustPlane is like Plane but panics on an unknown name. Only use it with
// names that are fixed in code.
func (l *Layout) MustPlane(name string) Plane {
	p, err := l.Plane(name)
	if err != nil {
		panic(err)
	}
	return p
}

// InBounds reports whether (i, j) is on the board.
func (l *Layout) InBounds(i, j int) bool {
	return i >= 0 && i < l.sizeI && j >= 0 && j < l.sizeJ
}

// Index converts (i, j) to a bit index. The caller checks bounds.
func (l *Layout) Index(i, j int) int {
	return i*l.sizeJ + j
}

// SquareOf converts a bit index back to a coordinate.
func (l *Layout) SquareOf(k int) Square {
	return Square{I: k / l.sizeJ, J: k % l.sizeJ}
}

// RowMask returns the mask of every cell in row i, or 0 if i is off the board.
func (l *Layout) RowMask(i int) Bitboard {
	if i < 0 || i >= l.sizeI {
		return 0
	}
	return l.rowMasks[i]
}

// ColumnMask returns the mask of every cell in column j, or 0 if j is off the
// board.
func (l *Layout) ColumnMask(j int) Bitboard {
	if j < 0 || j >= l.sizeJ {
		return 0
	}
	return l.colMasks[j]
}

// FullMask has every on-board bit set.
func (l *Layout) FullMask() Bitboard {
	return l.full
}

// Set holds one Bitboard per plane of its Layout.
type Set struct {
	layout *Layout
	planes []Bitboard
}

// NewSet returns an empty set for the layout.
func NewSet(l *Layout) *Set {
	return &Set{layout: l, planes: make([]Bitboard, len(l.names))}
}

// Build allocates a new, empty plane. It fails if the dimensions are invalid,
// differ from the set's existing planes or the name is already taken. The
// zero Set takes its dimensions from the first Build.
func (s *Set) Build(name string, sizeI, sizeJ int) (Plane, error) {
	if s.layout == nil {
		l, err := NewLayout(sizeI, sizeJ)
		if err != nil {
			return 0, err
		}
		s.layout = l
	}
	if sizeI <= 0 || sizeJ <= 0 || sizeI != s.layout.sizeI || sizeJ != s.layout.sizeJ {
		return 0, fmt.Errorf("%w: plane %q is %dx%d, set is %dx%d", ErrBadDimensions,
			name, sizeI, sizeJ, s.layout.sizeI, s.layout.sizeJ)
	}
	nl, err := s.layout.withPlane(name)
	if err != nil {
		return 0, err
	}
	s.layout = nl
	s.planes = append(s.planes, 0)
	return Plane(len(s.planes) - 1), nil
}

// Layout returns the set's layout.
func (s *Set) Layout() *Layout { return s.layout }

// Clone returns a deep copy of the set. The layout is shared.
func (s *Set) Clone() *Set {
	c := &Set{layout: s.layout, planes: make([]Bitboard, len(s.planes))}
	copy(c.planes, s.planes)
	return c
}

// CopyFrom overwrites s's planes with other's. Both must share a layout.
func (s *Set) CopyFrom(other *Set) {
	copy(s.planes, other.planes)
}

// Get returns the bitboard of plane p.
func (s *Set) Get(p Plane) Bitboard {
	return s.planes[p]
}

// Put overwrites plane p. Bits off the board are dropped.
func (s *Set) Put(p Plane, b Bitboard) {
	s.planes[p] = b & s.layout.full
}

func (s *Set) SetPiece(p Plane, i, j int) {
	if !s.layout.InBounds(i, j) {
		return
	}
	s.planes[p] |= 1 << uint(s.layout.Index(i, j))
}

func (s *Set) ClearPiece(p Plane, i, j int) {
	if !s.layout.InBounds(i, j) {
		return
	}
	s.planes[p] &^= 1 << uint(s.layout.Index(i, j))
}

// IsSet is a bounds-checked read; off-board cells are never set.
func (s *Set) IsSet(p Plane, i, j int) bool {
	if !s.layout.InBounds(i, j) {
		return false
	}
	return s.planes[p].Has(s.layout.Index(i, j))
}

// MoveWithCapture toggles the from and to bits of plane p and clears the
// destination bit in every opponent plane that holds it. Nothing is checked
// besides bounds: the caller has already established legality. The planes
// whose piece was captured are returned (nil if none).
func (s *Set) MoveWithCapture(p Plane, fromI, fromJ, toI, toJ int, opponents ...Plane) []Plane {
	if !s.layout.InBounds(fromI, fromJ) || !s.layout.InBounds(toI, toJ) {
		return nil
	}
	from := Bitboard(1) << uint(s.layout.Index(fromI, fromJ))
	to := Bitboard(1) << uint(s.layout.Index(toI, toJ))
	s.planes[p] ^= from | to
	var captured []Plane
	for _, o := range opponents {
		if o == p {
			continue
		}
		if s.planes[o]&to != 0 {
			s.planes[o] &^= to
			captured = append(captured, o)
		}
	}
	return captured
}

// SetAllBitsAtRow fills row i of plane p.
func (s *Set) SetAllBitsAtRow(p Plane, i int) {
	s.planes[p] |= s.layout.RowMask(i)
}

// AnyInRow reports whether plane p has a piece anywhere in row i.
func (s *Set) AnyInRow(p Plane, i int) bool {
	return s.planes[p]&s.layout.RowMask(i) != 0
}

// AnyInColumn reports whether plane p has a piece anywhere in column j.
func (s *Set) AnyInColumn(p Plane, j int) bool {
	return s.planes[p]&s.layout.ColumnMask(j) != 0
}

func (s *Set) IsEmpty(p Plane) bool {
	return s.planes[p] == 0
}

func (s *Set) Count(p Plane) int {
	return s.planes[p].Count()
}

// Occupancy ORs together the given planes, or every plane if none are given.
func (s *Set) Occupancy(planes ...Plane) Bitboard {
	var occ Bitboard
	if len(planes) == 0 {
		for _, b := range s.planes {
			occ |= b
		}
		return occ
	}
	for _, p := range planes {
		occ |= s.planes[p]
	}
	return occ
}

// PlanesAt returns the mask of planes occupying (i, j).
func (s *Set) PlanesAt(i, j int) PlaneMask {
	if !s.layout.InBounds(i, j) {
		return 0
	}
	k := s.layout.Index(i, j)
	var m PlaneMask
	for p, b := range s.planes {
		if b.Has(k) {
			m |= 1 << uint(p)
		}
	}
	return m
}

// Squares lists the occupied cells of plane p in ascending bit order.
func (s *Set) Squares(p Plane) []Square {
	b := uint64(s.planes[p])
	sqs := make([]Square, 0, bits.OnesCount64(b))
	for b != 0 {
		k := bits.TrailingZeros64(b)
		sqs = append(sqs, s.layout.SquareOf(k))
		b &= b - 1
	}
	return sqs
}

// Equal reports whether both sets have identical planes.
func (s *Set) Equal(other *Set) bool {
	if len(s.planes) != len(other.planes) {
		return false
	}
	for i := range s.planes {
		if s.planes[i] != other.planes[i] {
			return false
		}
	}
	return true
}

// Canonical returns a byte encoding of every plane, suitable for comparing
// boards that share a hash.
func (s *Set) Canonical() []byte {
	out := make([]byte, 0, 8*len(s.planes))
	for _, b := range s.planes {
		out = append(out,
			byte(b), byte(b>>8), byte(b>>16), byte(b>>24),
			byte(b>>32), byte(b>>40), byte(b>>48), byte(b>>56))
	}
	return out
}

// String draws every plane as a grid, row 0 on top.
func (s *Set) String() string {
	var sb strings.Builder
	for p, b := range s.planes {
		fmt.Fprintf(&sb, "%s:\n", s.layout.names[p])
		for i := 0; i < s.layout.sizeI; i++ {
			for j := 0; j < s.layout.sizeJ; j++ {
				if b.Has(s.layout.Index(i, j)) {
					sb.WriteString("[1]")
				} else {
					sb.WriteString("[0]")
				}
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
