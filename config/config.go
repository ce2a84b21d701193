package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigGame           = "game"
	ConfigDBPath         = "db-path"
	ConfigZobristSeed    = "zobrist-seed"
	ConfigDeckSeed       = "deck-seed"
	ConfigPlayoutSeed    = "playout-seed"
	ConfigBatchSize      = "batch-size"
	ConfigCacheFraction  = "cache-fraction"
	ConfigThreads        = "threads"
	ConfigMaxPositions   = "max-positions"
	ConfigMaxRandomPlies = "max-random-plies"
	ConfigStalemate      = "stalemate"
	ConfigLogLevel       = "log-level"
	ConfigHexapawnRows   = "hexapawn-rows"
	ConfigHexapawnCols   = "hexapawn-cols"
	ConfigOnitamaDeck    = "onitama-deck"
	ConfigFile           = "config"
)

const EnvPrefix = "RETROGRADE"

// Config holds every setting of a tablebase run. Values come from, in
// order of precedence, command-line flags, RETROGRADE_* environment
// variables, an optional config file, and the defaults below.
type Config struct {
	viper.Viper
}

// DefaultConfig returns a config holding only the defaults.
func DefaultConfig() *Config {
	c := &Config{Viper: *viper.New()}
	setDefaults(c)
	return c
}

func setDefaults(c *Config) {
	c.SetDefault(ConfigGame, "hexapawn")
	c.SetDefault(ConfigDBPath, "./tablebase.db")
	c.SetDefault(ConfigZobristSeed, 0)
	c.SetDefault(ConfigDeckSeed, 0)
	c.SetDefault(ConfigPlayoutSeed, 0)
	c.SetDefault(ConfigBatchSize, 100000)
	c.SetDefault(ConfigCacheFraction, 0.05)
	c.SetDefault(ConfigThreads, runtime.NumCPU())
	c.SetDefault(ConfigMaxPositions, 0)
	c.SetDefault(ConfigMaxRandomPlies, 40)
	c.SetDefault(ConfigStalemate, "draw")
	c.SetDefault(ConfigLogLevel, "info")
	c.SetDefault(ConfigHexapawnRows, 3)
	c.SetDefault(ConfigHexapawnCols, 3)
	c.SetDefault(ConfigOnitamaDeck, "")
}

// Flags registers one flag per setting on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String(ConfigGame, "hexapawn", "game to solve: hexapawn, onitama or tictactoe")
	fs.String(ConfigDBPath, "./tablebase.db", "path of the SQLite tablebase; empty keeps it in memory")
	fs.Uint64(ConfigZobristSeed, 0, "seed for the position hash keys")
	fs.Uint64(ConfigDeckSeed, 0, "shuffle the Onitama deck with this seed; 0 deals the standard cards")
	fs.Uint64(ConfigPlayoutSeed, 0, "seed for the random playouts of build")
	fs.Int(ConfigBatchSize, 100000, "new records between store flushes")
	fs.Float64(ConfigCacheFraction, 0.05, "fraction of system memory for the record cache; 0 disables it")
	fs.Int(ConfigThreads, runtime.NumCPU(), "worker goroutines for parallel builds")
	fs.Int(ConfigMaxPositions, 0, "stop a random build after this many new records; 0 means no limit")
	fs.Int(ConfigMaxRandomPlies, 40, "longest random walk of one playout")
	fs.String(ConfigStalemate, "draw", "value of a position without legal moves: draw or loss")
	fs.String(ConfigLogLevel, "info", "debug, info, warn or error")
	fs.Int(ConfigHexapawnRows, 3, "hexapawn board rows")
	fs.Int(ConfigHexapawnCols, 3, "hexapawn board columns")
	fs.String(ConfigOnitamaDeck, "", "YAML file of Onitama cards; empty uses the built-in deck")
	fs.String(ConfigFile, "", "YAML config file")
}

// Load parses args and merges them over the environment and, if one is
// named, a config file.
func (c *Config) Load(args []string) error {
	fs := pflag.NewFlagSet("retrograde", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.LoadFlags(fs)
}

// LoadFlags merges an already parsed flag set.
func (c *Config) LoadFlags(fs *pflag.FlagSet) error {
	c.SetEnvPrefix(EnvPrefix)
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if err := c.BindPFlags(fs); err != nil {
		return err
	}
	if path := c.GetString(ConfigFile); path != "" {
		c.SetConfigFile(path)
		if err := c.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("config-file-loaded")
	}
	return c.Validate()
}

var ErrBadConfig = errors.New("bad config")

// Validate checks the settings that have a restricted range.
func (c *Config) Validate() error {
	if f := c.GetFloat64(ConfigCacheFraction); f < 0 || f >= 1 {
		return fmt.Errorf("%w: %s must be in [0, 1), got %v", ErrBadConfig, ConfigCacheFraction, f)
	}
	if c.GetInt(ConfigThreads) < 1 {
		return fmt.Errorf("%w: %s must be at least 1", ErrBadConfig, ConfigThreads)
	}
	if c.GetInt(ConfigMaxRandomPlies) < 1 {
		return fmt.Errorf("%w: %s must be at least 1", ErrBadConfig, ConfigMaxRandomPlies)
	}
	switch strings.ToLower(c.GetString(ConfigStalemate)) {
	case "draw", "loss", "loss-for-mover":
	default:
		return fmt.Errorf("%w: unknown %s %q", ErrBadConfig, ConfigStalemate, c.GetString(ConfigStalemate))
	}
	return nil
}

// AdjustRelativePaths makes the file settings absolute against basePath, so
// a config file's paths keep meaning the same thing from any directory.
func (c *Config) AdjustRelativePaths(basePath string) {
	for _, key := range []string{ConfigDBPath, ConfigOnitamaDeck} {
		p := c.GetString(key)
		if p == "" || filepath.IsAbs(p) {
			continue
		}
		c.Set(key, filepath.Join(basePath, p))
	}
}

// SanitizedSettings returns every setting, for logging. Home directories
// are shortened to "~".
func (c *Config) SanitizedSettings() map[string]any {
	out := c.AllSettings()
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return out
	}
	for k, v := range out {
		if s, ok := v.(string); ok && strings.HasPrefix(s, home) {
			out[k] = "~" + strings.TrimPrefix(s, home)
		}
	}
	return out
}
