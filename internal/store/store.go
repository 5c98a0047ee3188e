// Package store persists distance matrix runs to a SQL database.
//
// Two backends are supported, chosen by the URL scheme:
//
//	sqlite:///path/to/file.db, sqlite:file.db, file:file.db  -> modernc.org/sqlite
//	postgres://..., postgresql://...                        -> pgx
//
// Every run is written inside one transaction under a ULID run id, so a
// failed run leaves nothing behind.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/utkarsh5026/distmatrix/matrix"
)

// ErrUnsupportedURL is returned by Open for an unknown URL scheme.
var ErrUnsupportedURL = errors.New("unsupported database url")

type dialect struct {
	driver string
	// numbered placeholders ($1, $2) instead of ?
	numbered bool
}

var (
	sqliteDialect   = dialect{driver: "sqlite"}
	postgresDialect = dialect{driver: "pgx", numbered: true}
)

// Store writes and reads runs.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to the database at url and makes sure the schema exists.
func Open(ctx context.Context, url string) (*Store, error) {
	d, dsn, err := parseURL(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.driver, err)
	}

	if d == sqliteDialect {
		// A single connection serialises writers and keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify %s connection: %w", d.driver, err)
	}

	s := &Store{db: db, dialect: d}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func parseURL(url string) (dialect, string, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return postgresDialect, url, nil
	case strings.HasPrefix(url, "sqlite://"):
		return sqliteDialect, strings.TrimPrefix(url, "sqlite://"), nil
	case strings.HasPrefix(url, "sqlite:"):
		return sqliteDialect, strings.TrimPrefix(url, "sqlite:"), nil
	case strings.HasPrefix(url, "file:"), url == ":memory:":
		return sqliteDialect, url, nil
	default:
		return dialect{}, "", fmt.Errorf("%w: %q", ErrUnsupportedURL, url)
	}
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{`
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		strategy TEXT NOT NULL,
		formula TEXT NOT NULL,
		records INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);`, `
	CREATE TABLE IF NOT EXISTS distances (
		run_id TEXT NOT NULL REFERENCES runs(run_id),
		seq INTEGER NOT NULL,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		origin_index INTEGER NOT NULL,
		destination_index INTEGER NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, seq)
	);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders for dialects that number them.
func (s *Store) rebind(query string) string {
	if !s.dialect.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// RunInfo describes a run.
type RunInfo struct {
	ID        string
	Strategy  string
	Formula   string
	Records   int
	CreatedAt time.Time
}

// Run is an open run. It implements matrix.Sink; records become visible
// only after Commit.
type Run struct {
	info RunInfo
	tx     *sql.Tx
	stmt   *sql.Stmt
	finish string
	seq    int
}

// BeginRun opens a transaction and registers a new run.
func (s *Store) BeginRun(ctx context.Context, strategy, formula string) (*Run, error) {
	info := RunInfo{
		ID:        ulid.Make().String(),
		Strategy:  strategy,
		Formula:   formula,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin run: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		s.rebind(`INSERT INTO runs (run_id, strategy, formula, records, created_at) VALUES (?, ?, ?, 0, ?)`),
		info.ID, info.Strategy, info.Formula, info.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("begin run: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.rebind(`
	INSERT INTO distances (run_id, seq, origin, destination, origin_index, destination_index, distance_km)
	VALUES (?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("begin run: prepare insert: %w", err)
	}

	return &Run{info: info, tx: tx, stmt: stmt, finish: s.rebind(`UPDATE runs SET records = ? WHERE run_id = ?`)}, nil
}

// ID returns the run's ULID.
func (r *Run) ID() string { return r.info.ID }

// Info returns the run's metadata.
func (r *Run) Info() RunInfo {
	info := r.info
	info.Records = r.seq
	return info
}

// Count returns the number of records written so far.
func (r *Run) Count() int { return r.seq }

// Write inserts one record. It is not safe for concurrent use.
func (r *Run) Write(ctx context.Context, rec matrix.Record) error {
	_, err := r.stmt.ExecContext(ctx, r.info.ID, r.seq, rec.Origin, rec.Destination,
		rec.OriginIndex, rec.DestinationIndex, rec.Distance)
	if err != nil {
		return fmt.Errorf("insert distance %s -> %s: %w", rec.Origin, rec.Destination, err)
	}
	r.seq++
	return nil
}

// WriteAll inserts records in order.
func (r *Run) WriteAll(ctx context.Context, records []matrix.Record) error {
	for _, rec := range records {
		if err := r.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Commit records the final count and makes the run visible.
func (r *Run) Commit() error {
	_ = r.stmt.Close()
	if _, err := r.tx.Exec(r.finish, r.seq, r.info.ID); err != nil {
		_ = r.tx.Rollback()
		return fmt.Errorf("commit run %s: update count: %w", r.info.ID, err)
	}
	if err := r.tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", r.info.ID, err)
	}
	return nil
}

// Rollback discards the run. It is safe to call after Commit.
func (r *Run) Rollback() error {
	_ = r.stmt.Close()
	if err := r.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback run %s: %w", r.info.ID, err)
	}
	return nil
}

// Records returns the records of a committed run in write order.
func (s *Store) Records(ctx context.Context, runID string) ([]matrix.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
	SELECT origin, destination, origin_index, destination_index, distance_km
	FROM distances
	WHERE run_id = ?
	ORDER BY seq`), runID)
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []matrix.Record
	for rows.Next() {
		var rec matrix.Record
		if err := rows.Scan(&rec.Origin, &rec.Destination, &rec.OriginIndex, &rec.DestinationIndex, &rec.Distance); err != nil {
			return nil, fmt.Errorf("scan run %s: %w", runID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run %s: %w", runID, err)
	}
	return out, nil
}

// Runs lists every run, newest first.
func (s *Store) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT run_id, strategy, formula, records, created_at
	FROM runs
	ORDER BY run_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var (
			info    RunInfo
			created string
		)
		if err := rows.Scan(&info.ID, &info.Strategy, &info.Formula, &info.Records, &created); err != nil {
			return nil, fmt.Errorf("scan runs: %w", err)
		}
		if info.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, fmt.Errorf("parse run %s created_at: %w", info.ID, err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}
