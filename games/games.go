// Package games builds the root position of a game by name.
package games

import (
	"errors"
	"fmt"
	"sort"

	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/games/hexapawn"
	"github.com/domino14/retrograde/games/onitama"
	"github.com/domino14/retrograde/games/tictactoe"
)

var ErrUnknownGame = errors.New("unknown game")

const (
	Hexapawn  = "hexapawn"
	Onitama   = "onitama"
	TicTacToe = "tictactoe"
)

// Options collects the settings of every game. Each game reads only its own.
type Options struct {
	ZobristSeed uint64

	HexapawnRows int
	HexapawnCols int

	// OnitamaDeck is the path of a YAML deck; empty means the standard deck.
	OnitamaDeck string
	// DeckSeed shuffles the Onitama deal when non-zero.
	DeckSeed uint64
}

type constructor func(Options) (game.State, error)

var registry = map[string]constructor{
	Hexapawn: func(o Options) (game.State, error) {
		cfg := hexapawn.DefaultConfig(o.ZobristSeed)
		if o.HexapawnRows > 0 {
			cfg.Rows = o.HexapawnRows
		}
		if o.HexapawnCols > 0 {
			cfg.Cols = o.HexapawnCols
		}
		return hexapawn.New(cfg)
	},
	Onitama: func(o Options) (game.State, error) {
		cfg := onitama.Config{
			Seed:     o.ZobristSeed,
			DeckSeed: o.DeckSeed,
			Shuffle:  o.DeckSeed != 0,
		}
		if o.OnitamaDeck != "" {
			deck, err := onitama.LoadDeckFile(o.OnitamaDeck)
			if err != nil {
				return nil, err
			}
			cfg.Deck = deck
		}
		return onitama.New(cfg)
	},
	TicTacToe: func(o Options) (game.State, error) {
		return tictactoe.New(o.ZobristSeed), nil
	},
}

// New returns the starting position of the named game.
func New(name string, opts Options) (game.State, error) {
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownGame, name, Names())
	}
	st, err := c(opts)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	return st, nil
}

// Names lists the registered games in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
