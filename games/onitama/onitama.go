// Package onitama implements Onitama on a 5x5 board. Blue is the maximizer
// and starts on row 0; red starts on row 4. Each side holds two movement
// cards; a move uses one of them, which is then exchanged for the neutral
// card. A side wins by capturing the enemy master or by moving its own
// master onto the enemy temple.
package onitama

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/domino14/retrograde/board"
	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/move"
	"github.com/domino14/retrograde/movegen"
	"github.com/domino14/retrograde/zobrist"
)

const (
	BlueMaster = "blue-master"
	BluePawn   = "blue-pawn"
	RedMaster  = "red-master"
	RedPawn    = "red-pawn"

	Size = 5
)

// Temples are the masters' starting squares.
var (
	BlueTemple = board.Square{I: 0, J: 2}
	RedTemple  = board.Square{I: Size - 1, J: 2}
)

// hash feature slots for card ownership
const (
	slotBlue = iota
	slotRed
	slotNeutral
)

var ErrBadDiagram = errors.New("bad onitama diagram")

// Config configures a game. A nil Deck means the standard deck. With Shuffle
// set, five cards are dealt from the deck using DeckSeed; otherwise
// Selection (or DefaultSelection when empty) names them.
type Config struct {
	Seed      uint64
	DeckSeed  uint64
	Shuffle   bool
	Deck      []Card
	Selection Selection
}

type rules struct {
	layout *board.Layout
	zob    *zobrist.Zobrist

	blueMaster, bluePawn board.Plane
	redMaster, redPawn   board.Plane

	cards    [5]Card
	cardKeys [5]uint64
	// per card, per side (0 blue, 1 red)
	moveRules [5][2]movegen.Rules
}

func newRules(cfg Config) (*rules, error) {
	deck := cfg.Deck
	if deck == nil {
		deck = DefaultDeck()
	}
	if err := validateDeck(deck); err != nil {
		return nil, err
	}
	sel := cfg.Selection
	if cfg.Shuffle {
		var err error
		if sel, err = Draw(deck, cfg.DeckSeed); err != nil {
			return nil, err
		}
	} else if sel == (Selection{}) {
		sel = DefaultSelection
	}
	cards, err := sel.resolve(deck)
	if err != nil {
		return nil, err
	}
	l, err := board.NewLayout(Size, Size, BlueMaster, BluePawn, RedMaster, RedPawn)
	if err != nil {
		return nil, err
	}
	r := &rules{
		layout:     l,
		zob:        zobrist.New(cfg.Seed, l),
		blueMaster: l.MustPlane(BlueMaster),
		bluePawn:   l.MustPlane(BluePawn),
		redMaster:  l.MustPlane(RedMaster),
		redPawn:    l.MustPlane(RedPawn),
		cards:      cards,
	}
	for k, c := range cards {
		r.cardKeys[k] = zobrist.AuxKey(c.Name)
		for side, color := range []Color{Blue, Red} {
			rule := []movegen.Rule{{Offsets: c.Offsets(color), Mode: movegen.ModeAny}}
			if color == Blue {
				r.moveRules[k][side] = movegen.Rules{r.blueMaster: rule, r.bluePawn: rule}
			} else {
				r.moveRules[k][side] = movegen.Rules{r.redMaster: rule, r.redPawn: rule}
			}
		}
	}
	return r, nil
}

// State is an Onitama position. Cards are indices into the five cards in
// play; each hand is kept sorted so equal positions compare equal.
type State struct {
	r          *rules
	set        *board.Set
	blueToMove bool
	blue, red  [2]uint8
	neutral    uint8
	hash       uint64
	value      game.Value
	moves      []move.Move
}

// New returns the opening position. The side whose colour is stamped on the
// neutral card moves first.
func New(cfg Config) (*State, error) {
	r, err := newRules(cfg)
	if err != nil {
		return nil, err
	}
	s := board.NewSet(r.layout)
	for j := 0; j < Size; j++ {
		s.SetPiece(r.bluePawn, 0, j)
		s.SetPiece(r.redPawn, Size-1, j)
	}
	s.ClearPiece(r.bluePawn, BlueTemple.I, BlueTemple.J)
	s.ClearPiece(r.redPawn, RedTemple.I, RedTemple.J)
	s.SetPiece(r.blueMaster, BlueTemple.I, BlueTemple.J)
	s.SetPiece(r.redMaster, RedTemple.I, RedTemple.J)
	return r.newState(s, r.cards[4].Stamp == Blue), nil
}

// FromDiagram parses a position, one string per row from row 0 down: 'B'
// blue master, 'b' blue pawn, 'R' red master, 'r' red pawn, '.' empty.
// Cards come from cfg as for New.
func FromDiagram(cfg Config, rows []string, blueToMove bool) (*State, error) {
	r, err := newRules(cfg)
	if err != nil {
		return nil, err
	}
	if len(rows) != Size {
		return nil, fmt.Errorf("%w: %d rows", ErrBadDiagram, len(rows))
	}
	s := board.NewSet(r.layout)
	for i, row := range rows {
		if len(row) != Size {
			return nil, fmt.Errorf("%w: row %d has %d squares", ErrBadDiagram, i, len(row))
		}
		for j, c := range row {
			switch c {
			case 'B':
				s.SetPiece(r.blueMaster, i, j)
			case 'b':
				s.SetPiece(r.bluePawn, i, j)
			case 'R':
				s.SetPiece(r.redMaster, i, j)
			case 'r':
				s.SetPiece(r.redPawn, i, j)
			case '.':
			default:
				return nil, fmt.Errorf("%w: unexpected %q", ErrBadDiagram, c)
			}
		}
	}
	return r.newState(s, blueToMove), nil
}

func (r *rules) newState(s *board.Set, blueToMove bool) *State {
	st := &State{
		r:          r,
		set:        s,
		blueToMove: blueToMove,
		blue:       [2]uint8{0, 1},
		red:        [2]uint8{2, 3},
		neutral:    4,
	}
	var aux []uint64
	if blueToMove {
		aux = append(aux, r.zob.SideKey())
	}
	for _, c := range st.blue {
		aux = append(aux, r.zob.Feature(slotBlue, r.cardKeys[c]))
	}
	for _, c := range st.red {
		aux = append(aux, r.zob.Feature(slotRed, r.cardKeys[c]))
	}
	aux = append(aux, r.zob.Feature(slotNeutral, r.cardKeys[st.neutral]))
	st.hash = r.zob.Hash(s, aux...)
	st.settle()
	return st
}

func (st *State) settle() {
	r := st.r
	st.value = game.Undetermined
	switch {
	case st.set.IsSet(r.blueMaster, RedTemple.I, RedTemple.J):
		st.value = game.WinMax
	case st.set.IsSet(r.redMaster, BlueTemple.I, BlueTemple.J):
		st.value = game.WinMin
	case st.set.IsEmpty(r.redMaster):
		st.value = game.WinMax
	case st.set.IsEmpty(r.blueMaster):
		st.value = game.WinMin
	}
	if st.value != game.Undetermined {
		return
	}
	hand, side := st.red, 1
	planes := []board.Plane{r.redMaster, r.redPawn}
	opts := movegen.Options{
		Own:      board.MaskOf(r.redMaster, r.redPawn),
		Captures: board.MaskOf(r.blueMaster, r.bluePawn),
		UseAux:   true,
	}
	if st.blueToMove {
		hand, side = st.blue, 0
		planes = []board.Plane{r.blueMaster, r.bluePawn}
		opts.Own, opts.Captures = opts.Captures, opts.Own
	}
	for h, c := range hand {
		opts.Aux = h
		st.moves = append(st.moves, movegen.Generate(st.set, planes, r.moveRules[c][side], opts)...)
	}
	if len(st.moves) == 0 {
		// Without a move the player still exchanges a card.
		for h := range hand {
			st.moves = append(st.moves, move.NewPass().WithAux(h))
		}
	}
}

func (st *State) IsTerminal() bool {
	return st.value != game.Undetermined
}

func (st *State) Value() game.Value {
	return st.value
}

func (st *State) IsMaximizerToMove() bool {
	return st.blueToMove
}

// LegalMoves returns the moves of the side to move, each tagged with the
// hand slot of the card it uses. Callers must not modify the slice.
func (st *State) LegalMoves() []move.Move {
	return st.moves
}

// ApplyMove plays m and exchanges the card it used with the neutral card.
// It panics on a move that is not the mover's.
func (st *State) ApplyMove(m move.Move) game.State {
	r := st.r
	if m.Aux < 0 || m.Aux > 1 {
		panic(fmt.Sprintf("onitama: move without a card %v", m))
	}
	own := []board.Plane{r.redMaster, r.redPawn}
	opp := []board.Plane{r.blueMaster, r.bluePawn}
	hand, slot := st.red, slotRed
	if st.blueToMove {
		own, opp = opp, own
		hand, slot = st.blue, slotBlue
	}
	s := st.set
	var captured []board.Plane
	if m.Action != move.MoveTypePass {
		if !slices.Contains(own, m.Plane) || !st.set.IsSet(m.Plane, m.FromI, m.FromJ) {
			panic(fmt.Sprintf("onitama: illegal move %v", m))
		}
		s = st.set.Clone()
		captured = s.MoveWithCapture(m.Plane, m.FromI, m.FromJ, m.ToI, m.ToJ, opp...)
	}

	used := hand[m.Aux]
	hash := r.zob.AddMove(st.hash, m, captured)
	hash ^= r.zob.Feature(slot, r.cardKeys[used]) ^ r.zob.Feature(slotNeutral, r.cardKeys[st.neutral])
	hash ^= r.zob.Feature(slot, r.cardKeys[st.neutral]) ^ r.zob.Feature(slotNeutral, r.cardKeys[used])
	hand[m.Aux] = st.neutral
	if hand[0] > hand[1] {
		hand[0], hand[1] = hand[1], hand[0]
	}

	next := &State{
		r:          r,
		set:        s,
		blueToMove: !st.blueToMove,
		blue:       st.blue,
		red:        st.red,
		neutral:    used,
		hash:       hash,
	}
	if st.blueToMove {
		next.blue = hand
	} else {
		next.red = hand
	}
	next.settle()
	return next
}

func (st *State) Hash() uint64 {
	return st.hash
}

// Board exposes the piece bitboards. It must not be modified.
func (st *State) Board() *board.Set {
	return st.set
}

// Cards returns the names of blue's, red's and the neutral card.
func (st *State) Cards() (blue, red [2]string, neutral string) {
	c := st.r.cards
	blue = [2]string{c[st.blue[0]].Name, c[st.blue[1]].Name}
	red = [2]string{c[st.red[0]].Name, c[st.red[1]].Name}
	return blue, red, c[st.neutral].Name
}

// Canonical is the board encoding, the side to move and the card indices.
func (st *State) Canonical() []byte {
	b := st.set.Canonical()
	side := byte(0)
	if st.blueToMove {
		side = 1
	}
	return append(b, side, st.blue[0], st.blue[1], st.red[0], st.red[1], st.neutral)
}

func (st *State) String() string {
	var sb strings.Builder
	r := st.r
	for i := 0; i < Size; i++ {
		for j := 0; j < Size; j++ {
			switch {
			case st.set.IsSet(r.blueMaster, i, j):
				sb.WriteByte('B')
			case st.set.IsSet(r.bluePawn, i, j):
				sb.WriteByte('b')
			case st.set.IsSet(r.redMaster, i, j):
				sb.WriteByte('R')
			case st.set.IsSet(r.redPawn, i, j):
				sb.WriteByte('r')
			default:
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	blue, red, neutral := st.Cards()
	fmt.Fprintf(&sb, "blue %s %s, red %s %s, neutral %s, ", blue[0], blue[1], red[0], red[1], neutral)
	if st.blueToMove {
		sb.WriteString("blue to move\n")
	} else {
		sb.WriteString("red to move\n")
	}
	return sb.String()
}
