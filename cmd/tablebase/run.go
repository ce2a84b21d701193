package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/domino14/retrograde/board"
	"github.com/domino14/retrograde/config"
	"github.com/domino14/retrograde/game"
	"github.com/domino14/retrograde/games"
	"github.com/domino14/retrograde/move"
	"github.com/domino14/retrograde/store"
	"github.com/domino14/retrograde/tablebase"
)

const usage = `usage: tablebase <command> [flags]

commands:
  build     grow the tablebase by random playouts
  complete  solve every position reachable from the start
  analyze   summarize the tablebase
  probe     show the record and best line of a position
  verify    check every reachable record against its children
  export    write the tablebase to a compressed file
  import    read records from an export`

var errUsage = errors.New("bad usage")

// command carries everything one invocation needs.
type command struct {
	cfg *config.Config
	fs  *pflag.FlagSet
	out io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	name, args := args[0], args[1:]
	actions := map[string]func(context.Context, *command) error{
		"build":    build,
		"complete": complete,
		"analyze":  analyze,
		"probe":    probe,
		"verify":   verify,
		"export":   export,
		"import":   importRecords,
	}
	action, ok := actions[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	config.Flags(fs)
	fs.String("method", "dfs", "complete: dfs, retrograde or parallel")
	fs.String("hash", "", "probe: position hash in hex; empty probes the start")
	fs.Int("line", 20, "probe: longest best line to print")
	fs.String("file", "tablebase.rtb", "export/import: file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if err := cfg.LoadFlags(fs); err != nil {
		return err
	}
	if cfg.GetString(config.ConfigFile) != "" {
		if wd, err := os.Getwd(); err == nil {
			cfg.AdjustRelativePaths(wd)
		}
	}
	lvl, err := zerolog.ParseLevel(cfg.GetString(config.ConfigLogLevel))
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrBadConfig, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Debug().Interface("config", cfg.SanitizedSettings()).Msg("config-loaded")

	return action(ctx, &command{cfg: cfg, fs: fs, out: out})
}

func (c *command) root() (game.State, error) {
	return games.New(c.cfg.GetString(config.ConfigGame), games.Options{
		ZobristSeed:  c.cfg.GetUint64(config.ConfigZobristSeed),
		HexapawnRows: c.cfg.GetInt(config.ConfigHexapawnRows),
		HexapawnCols: c.cfg.GetInt(config.ConfigHexapawnCols),
		OnitamaDeck:  c.cfg.GetString(config.ConfigOnitamaDeck),
		DeckSeed:     c.cfg.GetUint64(config.ConfigDeckSeed),
	})
}

// openStore opens the configured store. An empty db-path keeps records in
// memory for the length of the run.
func (c *command) openStore(ctx context.Context) (store.PositionStore, error) {
	var s store.PositionStore
	if path := c.cfg.GetString(config.ConfigDBPath); path == "" {
		s = store.NewMemoryStore()
	} else {
		sq, err := store.OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		s = sq
	}
	if f := c.cfg.GetFloat64(config.ConfigCacheFraction); f > 0 {
		s = store.NewCached(s, f)
	}
	return s, nil
}

func (c *command) builder(s store.PositionStore) (*tablebase.Builder, error) {
	policy, err := tablebase.ParseStalematePolicy(c.cfg.GetString(config.ConfigStalemate))
	if err != nil {
		return nil, err
	}
	b := tablebase.NewBuilder(s)
	b.SetBatchSize(c.cfg.GetInt(config.ConfigBatchSize))
	b.SetStalematePolicy(policy)
	b.SetSeed(c.cfg.GetUint64(config.ConfigPlayoutSeed))
	b.SetThreads(c.cfg.GetInt(config.ConfigThreads))
	return b, nil
}

// withBuilder opens the store, runs fn and closes the store again.
func (c *command) withBuilder(ctx context.Context, fn func(*tablebase.Builder, game.State) error) (err error) {
	root, err := c.root()
	if err != nil {
		return err
	}
	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	b, err := c.builder(s)
	if err != nil {
		return err
	}
	return fn(b, root)
}

func (c *command) print(v any) error {
	enc := yaml.NewEncoder(c.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func build(ctx context.Context, c *command) error {
	return c.withBuilder(ctx, func(b *tablebase.Builder, root game.State) error {
		rep, err := b.Build(ctx, root,
			c.cfg.GetInt(config.ConfigMaxPositions),
			c.cfg.GetInt(config.ConfigMaxRandomPlies))
		if err != nil {
			return err
		}
		return c.print(rep)
	})
}

func complete(ctx context.Context, c *command) error {
	method, _ := c.fs.GetString("method")
	return c.withBuilder(ctx, func(b *tablebase.Builder, root game.State) error {
		var rep tablebase.Report
		var err error
		switch method {
		case "dfs":
			rep, err = b.BuildComplete(ctx, root)
		case "retrograde":
			rep, err = b.BuildRetrograde(ctx, root)
		case "parallel":
			rep, err = b.BuildParallel(ctx, root, 0)
		default:
			return fmt.Errorf("%w: unknown method %q", errUsage, method)
		}
		if err != nil {
			return err
		}
		return c.print(rep)
	})
}

type recordView struct {
	Hash       string     `yaml:"hash"`
	Value      game.Value `yaml:"value"`
	Depth      int        `yaml:"depth_to_terminal"`
	IsTerminal bool       `yaml:"is_terminal"`
	BestNext   string     `yaml:"best_next,omitempty"`
}

func viewOf(r *store.Record) *recordView {
	if r == nil {
		return nil
	}
	v := &recordView{
		Hash:       fmt.Sprintf("%016x", r.Hash),
		Value:      r.Value,
		Depth:      r.DepthToTerminal,
		IsTerminal: r.IsTerminal,
	}
	if r.HasBest {
		v.BestNext = fmt.Sprintf("%016x", r.BestNext)
	}
	return v
}

type analysis struct {
	Game       string           `yaml:"game"`
	Root       *recordView      `yaml:"root"`
	Statistics store.Statistics `yaml:"statistics"`
}

func analyze(ctx context.Context, c *command) error {
	return c.withBuilder(ctx, func(b *tablebase.Builder, root game.State) error {
		st, err := b.Statistics(ctx)
		if err != nil {
			return err
		}
		rec, err := b.PositionInfo(ctx, root.Hash())
		if err != nil {
			return err
		}
		return c.print(analysis{
			Game:       c.cfg.GetString(config.ConfigGame),
			Root:       viewOf(rec),
			Statistics: st,
		})
	})
}

type probeResult struct {
	Record *recordView `yaml:"record"`
	Line   []string    `yaml:"best_line,omitempty"`
}

func probe(ctx context.Context, c *command) error {
	hashArg, _ := c.fs.GetString("hash")
	maxLine, _ := c.fs.GetInt("line")
	return c.withBuilder(ctx, func(b *tablebase.Builder, root game.State) error {
		if hashArg != "" {
			h, err := strconv.ParseUint(strings.TrimPrefix(hashArg, "0x"), 16, 64)
			if err != nil {
				return fmt.Errorf("%w: bad hash %q", errUsage, hashArg)
			}
			rec, err := b.PositionInfo(ctx, h)
			if err != nil {
				return err
			}
			if rec == nil {
				return fmt.Errorf("%016x: %w", h, store.ErrNotFound)
			}
			return c.print(probeResult{Record: viewOf(rec)})
		}
		rec, err := b.PositionInfo(ctx, root.Hash())
		if err != nil {
			return err
		}
		if rec == nil {
			return tablebase.ErrRootUnresolved
		}
		line, err := b.PrincipalVariation(ctx, root, maxLine)
		if err != nil {
			return err
		}
		res := probeResult{Record: viewOf(rec)}
		st := root
		for _, m := range line {
			res.Line = append(res.Line, describe(st, m))
			st = st.ApplyMove(m)
		}
		return c.print(res)
	})
}

type boarded interface {
	Board() *board.Set
}

func describe(st game.State, m move.Move) string {
	if bs, ok := st.(boarded); ok {
		return m.ShortDescription(bs.Board().Layout())
	}
	return m.String()
}

func verify(ctx context.Context, c *command) error {
	return c.withBuilder(ctx, func(b *tablebase.Builder, root game.State) error {
		rep, err := b.Verify(ctx, root)
		if err != nil {
			return err
		}
		return c.print(rep)
	})
}

func export(ctx context.Context, c *command) (err error) {
	path, _ := c.fs.GetString("file")
	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := store.Export(ctx, s, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Info().Int("records", n).Str("file", path).Msg("tablebase-exported")
	return c.print(map[string]int{"exported": n})
}

func importRecords(ctx context.Context, c *command) (err error) {
	path, _ := c.fs.GetString("file")
	s, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close())
	}()
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	added, skipped, err := store.Import(ctx, s, f)
	if err != nil {
		return err
	}
	log.Info().Int("added", added).Int("skipped", skipped).Str("file", path).Msg("tablebase-imported")
	return c.print(map[string]int{"added": added, "skipped": skipped})
}
