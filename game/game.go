// Package game defines the contract every solvable game implements. A
// concrete game (Hexapawn, Onitama, Tic-Tac-Toe) is a variant of State
// selected at construction; the solver never needs to know which one it is
// walking.
package game

import "github.com/domino14/retrograde/move"

// Value is the game-theoretic value of a position, from the maximizer's
// point of view.
type Value int8

const (
	WinMin Value = -1
	Draw   Value = 0
	WinMax Value = 1
	// Undetermined is the value of a non-terminal position. It is never
	// persisted.
	Undetermined Value = -128
)

func (v Value) String() string {
	switch v {
	case WinMax:
		return "win-max"
	case WinMin:
		return "win-min"
	case Draw:
		return "draw"
	case Undetermined:
		return "undetermined"
	}
	return "invalid"
}

// MarshalYAML writes the value by name.
func (v Value) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// Valid reports whether v is one of the three resolved values.
func (v Value) Valid() bool {
	return v == WinMin || v == Draw || v == WinMax
}

// Better reports whether a is preferable to b for the side to move.
func Better(a, b Value, maximizer bool) bool {
	if maximizer {
		return a > b
	}
	return a < b
}

// WinFor returns the value of a win for the given side.
func WinFor(maximizer bool) Value {
	if maximizer {
		return WinMax
	}
	return WinMin
}

// State is a game position. Implementations are immutable: ApplyMove returns
// a new State and leaves the receiver alone, so a state may be hashed once
// and stored.
type State interface {
	// IsTerminal is true exactly when Value is not Undetermined, or when the
	// game treats a position without legal moves as finished.
	IsTerminal() bool
	Value() Value
	IsMaximizerToMove() bool
	// LegalMoves may be empty.
	LegalMoves() []move.Move
	ApplyMove(m move.Move) State
	Hash() uint64
}

// Canonicalizer is implemented by states that can produce an exact encoding
// of themselves. It is used to catch hash collisions.
type Canonicalizer interface {
	Canonical() []byte
}
