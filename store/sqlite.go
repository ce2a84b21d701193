package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/domino14/retrograde/game"
)

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	state_hash INTEGER PRIMARY KEY,
	value INTEGER NOT NULL,
	depth_to_terminal INTEGER NOT NULL,
	is_terminal BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS best_moves (
	state_hash INTEGER PRIMARY KEY REFERENCES positions(state_hash),
	best_next_state_hash INTEGER NOT NULL
);
`

// Pending records are written out once this many have accumulated, even
// without an explicit Flush.
const DefaultAutoFlush = 10000

const (
	commitAttempts = 8
	commitDelay    = 20 * time.Millisecond
)

// SQLiteStore keeps records in a SQLite file using the pure-Go driver.
// Accepted records are buffered and written in one transaction per Flush.
type SQLiteStore struct {
	mu        sync.Mutex
	db        *sql.DB
	path      string
	pending   map[uint64]Record
	autoFlush int
}

// OpenSQLite opens (creating if needed) the tablebase at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection serializes writers inside the process; the mutex below
	// keeps pending and durable records consistent.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema in %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("sqlite-store-opened")
	return &SQLiteStore{
		db:        db,
		path:      path,
		pending:   make(map[uint64]Record),
		autoFlush: DefaultAutoFlush,
	}, nil
}

// SetAutoFlush changes how many pending records trigger a write. n <= 0
// disables automatic writes.
func (s *SQLiteStore) SetAutoFlush(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoFlush = n
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Get(ctx context.Context, hash uint64) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, hash)
}

func (s *SQLiteStore) get(ctx context.Context, hash uint64) (Record, error) {
	if r, ok := s.pending[hash]; ok {
		return r, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT p.value, p.depth_to_terminal, p.is_terminal, b.best_next_state_hash
		FROM positions p LEFT JOIN best_moves b ON b.state_hash = p.state_hash
		WHERE p.state_hash = ?`, int64(hash))
	r := Record{Hash: hash}
	var value int
	var best sql.NullInt64
	err := row.Scan(&value, &r.DepthToTerminal, &r.IsTerminal, &best)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("reading position %x: %w", hash, err)
	}
	r.Value = game.Value(value)
	if best.Valid {
		r.BestNext, r.HasBest = uint64(best.Int64), true
	}
	return r, nil
}

func (s *SQLiteStore) Contains(ctx context.Context, hash uint64) (bool, error) {
	_, err := s.Get(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *SQLiteStore) InsertIfAbsent(ctx context.Context, r Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.get(ctx, r.Hash)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	s.pending[r.Hash] = r
	if s.autoFlush > 0 && len(s.pending) >= s.autoFlush {
		if err := s.flush(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (s *SQLiteStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush(ctx)
}

func (s *SQLiteStore) flush(ctx context.Context) error {
	if len(s.pending) == 0 {
		return nil
	}
	err := retry.Do(
		func() error { return s.commit(ctx) },
		retry.Context(ctx),
		retry.Attempts(commitAttempts),
		retry.Delay(commitDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBusy),
		retry.OnRetry(func(n uint, err error) {
			log.Debug().Err(err).Uint("n", n).Msg("sqlite-busy-retrying")
		}),
	)
	if err != nil {
		return fmt.Errorf("writing %d positions to %s: %w", len(s.pending), s.path, err)
	}
	log.Debug().Int("records", len(s.pending)).Msg("sqlite-batch-committed")
	clear(s.pending)
	return nil
}

func (s *SQLiteStore) commit(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	posStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO positions
		(state_hash, value, depth_to_terminal, is_terminal) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer posStmt.Close()
	bestStmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO best_moves
		(state_hash, best_next_state_hash) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer bestStmt.Close()
	for _, r := range s.pending {
		res, err := posStmt.ExecContext(ctx, int64(r.Hash), int(r.Value), r.DepthToTerminal, r.IsTerminal)
		if err != nil {
			return err
		}
		// another process may have written this hash first
		if n, err := res.RowsAffected(); err != nil || n == 0 || !r.HasBest {
			continue
		}
		if _, err := bestStmt.ExecContext(ctx, int64(r.Hash), int64(r.BestNext)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func isBusy(err error) bool {
	var serr *sqlite.Error
	if errors.As(err, &serr) {
		code := serr.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	return false
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if err := s.Flush(ctx); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting positions: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Statistics(ctx context.Context) (Statistics, error) {
	if err := s.Flush(ctx); err != nil {
		return Statistics{}, err
	}
	var st Statistics
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(value = 1), 0),
			COALESCE(SUM(value = -1), 0),
			COALESCE(SUM(value = 0), 0),
			COALESCE(SUM(is_terminal), 0),
			COALESCE(MAX(depth_to_terminal), 0)
		FROM positions`).Scan(&st.Total, &st.WinMax, &st.WinMin, &st.Draws, &st.Terminal, &st.MaxDepth)
	if err != nil {
		return Statistics{}, fmt.Errorf("computing statistics: %w", err)
	}
	return st, nil
}

// ForEach lists the table in ascending hash order. Hashes are stored as
// signed integers, so the non-negative half is listed first.
func (s *SQLiteStore) ForEach(ctx context.Context, fn func(Record) error) error {
	if err := s.Flush(ctx); err != nil {
		return err
	}
	if err := s.forEachRange(ctx, `p.state_hash >= 0`, fn); err != nil {
		return err
	}
	return s.forEachRange(ctx, `p.state_hash < 0`, fn)
}

func (s *SQLiteStore) forEachRange(ctx context.Context, where string, fn func(Record) error) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.state_hash, p.value, p.depth_to_terminal, p.is_terminal, b.best_next_state_hash
		FROM positions p LEFT JOIN best_moves b ON b.state_hash = p.state_hash
		WHERE `+where+` ORDER BY p.state_hash`)
	if err != nil {
		return fmt.Errorf("listing positions: %w", err)
	}
	var recs []Record
	for rows.Next() {
		var h int64
		var value int
		var best sql.NullInt64
		var r Record
		if err := rows.Scan(&h, &value, &r.DepthToTerminal, &r.IsTerminal, &best); err != nil {
			rows.Close()
			return fmt.Errorf("listing positions: %w", err)
		}
		r.Hash = uint64(h)
		r.Value = game.Value(value)
		if best.Valid {
			r.BestNext, r.HasBest = uint64(best.Int64), true
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("listing positions: %w", err)
	}
	rows.Close()
	// fn may write back to the store, so rows are closed first.
	for _, r := range recs {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending records and closes the database.
func (s *SQLiteStore) Close() error {
	ferr := s.Flush(context.Background())
	cerr := s.db.Close()
	return errors.Join(ferr, cerr)
}
