package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
)

func TestDefaults(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	is.NoErr(c.Load(nil))
	is.Equal(c.GetString(ConfigGame), "hexapawn")
	is.Equal(c.GetInt(ConfigBatchSize), 100000)
	is.Equal(c.GetInt(ConfigHexapawnRows), 3)
	is.Equal(c.GetString(ConfigStalemate), "draw")
	is.Equal(c.GetUint64(ConfigPlayoutSeed), uint64(0))
}

func TestSeedsAreSeparate(t *testing.T) {
	is := is.New(t)
	t.Setenv("RETROGRADE_PLAYOUT_SEED", "11")
	c := DefaultConfig()
	is.NoErr(c.Load([]string{"--zobrist-seed", "5"}))
	is.Equal(c.GetUint64(ConfigZobristSeed), uint64(5))
	is.Equal(c.GetUint64(ConfigPlayoutSeed), uint64(11))
}

func TestPrecedence(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "tb.yaml")
	is.NoErr(os.WriteFile(path, []byte("game: onitama\nbatch-size: 50\nthreads: 3\n"), 0o644))
	t.Setenv("RETROGRADE_BATCH_SIZE", "70")

	c := DefaultConfig()
	is.NoErr(c.Load([]string{"--config", path, "--threads", "5"}))
	is.Equal(c.GetString(ConfigGame), "onitama") // file over default
	is.Equal(c.GetInt(ConfigBatchSize), 70)      // environment over file
	is.Equal(c.GetInt(ConfigThreads), 5)         // flag over file
}

func TestValidate(t *testing.T) {
	is := is.New(t)
	for _, args := range [][]string{
		{"--cache-fraction", "1.5"},
		{"--threads", "0"},
		{"--stalemate", "maybe"},
		{"--max-random-plies", "0"},
	} {
		c := DefaultConfig()
		err := c.Load(args)
		is.True(errors.Is(err, ErrBadConfig))
	}
	c := DefaultConfig()
	is.True(c.Load([]string{"--no-such-flag"}) != nil)
}

func TestAdjustRelativePaths(t *testing.T) {
	is := is.New(t)
	c := DefaultConfig()
	is.NoErr(c.Load([]string{"--db-path", "data/tb.db", "--onitama-deck", "/decks/all.yaml"}))
	c.AdjustRelativePaths("/srv")
	is.Equal(c.GetString(ConfigDBPath), "/srv/data/tb.db")
	is.Equal(c.GetString(ConfigOnitamaDeck), "/decks/all.yaml")
}

func TestSanitizedSettings(t *testing.T) {
	is := is.New(t)
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	c := DefaultConfig()
	is.NoErr(c.Load([]string{"--db-path", filepath.Join(home, "tb.db")}))
	s := c.SanitizedSettings()
	is.Equal(s[ConfigDBPath], "~/tb.db")
}
