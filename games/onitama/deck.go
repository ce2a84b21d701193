package onitama

import (
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
	"lukechampine.com/frand"

	"github.com/domino14/retrograde/movegen"
)

//go:embed cards.yaml
var defaultDeckYAML []byte

var (
	ErrBadDeck      = errors.New("bad onitama deck")
	ErrUnknownCard  = errors.New("unknown card")
	ErrBadSelection = errors.New("bad card selection")
)

// Color is a side of the board.
type Color string

const (
	Blue Color = "blue"
	Red  Color = "red"
)

// Card is a movement card. Moves are [forward, right] pairs seen from the
// side holding the card.
type Card struct {
	Name  string  `yaml:"name"`
	Stamp Color   `yaml:"stamp"`
	Moves [][]int `yaml:"moves"`
}

type deckFile struct {
	Cards []Card `yaml:"cards"`
}

// Offsets returns the card's board displacements when played by red, who
// starts on the last row and moves toward row 0. Blue plays the mirror image.
func (c Card) Offsets(side Color) []movegen.Offset {
	red := lo.Map(c.Moves, func(mv []int, _ int) movegen.Offset {
		return movegen.Offset{DI: -mv[0], DJ: mv[1]}
	})
	if side == Blue {
		return movegen.Mirror(red)
	}
	return red
}

// LoadDeck decodes and validates a YAML deck.
func LoadDeck(r io.Reader) ([]Card, error) {
	var df deckFile
	if err := yaml.NewDecoder(r).Decode(&df); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadDeck, err)
	}
	if err := validateDeck(df.Cards); err != nil {
		return nil, err
	}
	return df.Cards, nil
}

// LoadDeckFile reads a deck from a YAML file.
func LoadDeckFile(path string) ([]Card, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDeck(f)
}

// DefaultDeck returns a fresh copy of the sixteen standard cards.
func DefaultDeck() []Card {
	var df deckFile
	if err := yaml.Unmarshal(defaultDeckYAML, &df); err != nil {
		panic(err)
	}
	return df.Cards
}

func validateDeck(cards []Card) error {
	if len(cards) < 5 {
		return fmt.Errorf("%w: need at least 5 cards, got %d", ErrBadDeck, len(cards))
	}
	seen := map[string]bool{}
	for _, c := range cards {
		if c.Name == "" {
			return fmt.Errorf("%w: card without a name", ErrBadDeck)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate card %s", ErrBadDeck, c.Name)
		}
		seen[c.Name] = true
		if c.Stamp != Blue && c.Stamp != Red {
			return fmt.Errorf("%w: card %s has stamp %q", ErrBadDeck, c.Name, c.Stamp)
		}
		if len(c.Moves) == 0 {
			return fmt.Errorf("%w: card %s has no moves", ErrBadDeck, c.Name)
		}
		for _, mv := range c.Moves {
			if len(mv) != 2 {
				return fmt.Errorf("%w: card %s has move %v", ErrBadDeck, c.Name, mv)
			}
		}
	}
	return nil
}

// Selection names the five cards in play.
type Selection struct {
	Blue    [2]string
	Red     [2]string
	Neutral string
}

// DefaultSelection is the fixed opening used when no shuffle is asked for.
var DefaultSelection = Selection{
	Blue:    [2]string{"Tiger", "Frog"},
	Red:     [2]string{"Dragon", "Rabbit"},
	Neutral: "Crab",
}

func (s Selection) names() []string {
	return []string{s.Blue[0], s.Blue[1], s.Red[0], s.Red[1], s.Neutral}
}

// Draw deals five cards from deck with a generator seeded from seed, so the
// same seed always deals the same hands.
func Draw(deck []Card, seed uint64) (Selection, error) {
	if err := validateDeck(deck); err != nil {
		return Selection{}, err
	}
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:], seed)
	copy(buf[8:], "onitama-deck")
	rng := frand.NewCustom(buf[:], 32, 12)
	perm := rng.Perm(len(deck))
	return Selection{
		Blue:    [2]string{deck[perm[0]].Name, deck[perm[1]].Name},
		Red:     [2]string{deck[perm[2]].Name, deck[perm[3]].Name},
		Neutral: deck[perm[4]].Name,
	}, nil
}

// resolve looks the selected cards up in deck, returning copies in selection
// order.
func (s Selection) resolve(deck []Card) ([5]Card, error) {
	var out [5]Card
	names := s.names()
	if len(lo.Uniq(names)) != len(names) {
		return out, fmt.Errorf("%w: repeated card in %v", ErrBadSelection, names)
	}
	byName := lo.KeyBy(deck, func(c Card) string { return c.Name })
	for k, n := range names {
		c, ok := byName[n]
		if !ok {
			return out, fmt.Errorf("%w: %s", ErrUnknownCard, n)
		}
		c.Moves = lo.Map(c.Moves, func(mv []int, _ int) []int {
			return []int{mv[0], mv[1]}
		})
		out[k] = c
	}
	return out, nil
}
