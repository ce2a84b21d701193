package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	args = append(args, "--cache-fraction", "0", "--log-level", "warn")
	err := run(context.Background(), args, &out)
	return out.String(), err
}

func TestCompleteAnalyzeProbe(t *testing.T) {
	is := is.New(t)
	db := filepath.Join(t.TempDir(), "hexapawn.db")

	out, err := runCmd(t, "complete", "--db-path", db, "--method", "retrograde")
	is.NoErr(err)
	var rep map[string]any
	is.NoErr(yaml.Unmarshal([]byte(out), &rep))
	is.Equal(rep["root_value"], "win-min")
	is.Equal(rep["records_added"], 135)

	out, err = runCmd(t, "analyze", "--db-path", db)
	is.NoErr(err)
	var an struct {
		Game string `yaml:"game"`
		Root struct {
			Value string `yaml:"value"`
			Depth int    `yaml:"depth_to_terminal"`
		} `yaml:"root"`
		Statistics struct {
			Total int `yaml:"total"`
		} `yaml:"statistics"`
	}
	is.NoErr(yaml.Unmarshal([]byte(out), &an))
	is.Equal(an.Game, "hexapawn")
	is.Equal(an.Root.Value, "win-min")
	is.Equal(an.Root.Depth, 6)
	is.Equal(an.Statistics.Total, 135)

	out, err = runCmd(t, "probe", "--db-path", db)
	is.NoErr(err)
	var pr struct {
		Line []string `yaml:"best_line"`
	}
	is.NoErr(yaml.Unmarshal([]byte(out), &pr))
	is.Equal(len(pr.Line), 6)

	_, err = runCmd(t, "verify", "--db-path", db)
	is.NoErr(err)
}

func TestExportImport(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	file := filepath.Join(dir, "tictactoe.rtb")

	_, err := runCmd(t, "complete", "--game", "tictactoe", "--db-path", src, "--method", "parallel", "--threads", "2")
	is.NoErr(err)
	out, err := runCmd(t, "export", "--db-path", src, "--file", file)
	is.NoErr(err)
	assert.Contains(t, out, "exported: 5478")

	out, err = runCmd(t, "import", "--db-path", dst, "--file", file)
	is.NoErr(err)
	assert.Contains(t, out, "added: 5478")
	_, err = runCmd(t, "verify", "--game", "tictactoe", "--db-path", dst)
	is.NoErr(err)
}

func TestRandomBuildSeeds(t *testing.T) {
	is := is.New(t)
	var outs []string
	for _, seed := range []string{"3", "3"} {
		out, err := runCmd(t, "build", "--db-path", "", "--playout-seed", seed,
			"--zobrist-seed", "9", "--max-positions", "30")
		is.NoErr(err)
		var rep struct {
			Added    int `yaml:"records_added"`
			Playouts int `yaml:"playouts"`
		}
		is.NoErr(yaml.Unmarshal([]byte(out), &rep))
		is.Equal(rep.Added, 30)
		is.True(rep.Playouts > 0)
		outs = append(outs, fmt.Sprint(rep))
	}
	is.Equal(outs[0], outs[1])
}

func TestBadUsage(t *testing.T) {
	_, err := runCmd(t)
	assert.True(t, errors.Is(err, errUsage))
	_, err = runCmd(t, "solve")
	assert.True(t, errors.Is(err, errUsage))
	_, err = runCmd(t, "complete", "--db-path", "", "--method", "magic")
	assert.True(t, errors.Is(err, errUsage))
	_, err = runCmd(t, "probe", "--db-path", "", "--hash", "zz")
	assert.True(t, errors.Is(err, errUsage))
	_, err = runCmd(t, "probe", "--db-path", "")
	assert.Error(t, err)
	_, err = runCmd(t, "analyze", "--game", "chess", "--db-path", "")
	assert.Error(t, err)
}
