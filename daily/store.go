package daily

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists daily sets in SQLite.
type Store struct {
	db *sql.DB
}

// Open prepares the database at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS daily_sets (
			date TEXT PRIMARY KEY,
			payload_json TEXT NOT NULL,
			created_at TEXT NOT NULL,
			model_name TEXT,
			input_tokens INTEGER,
			output_tokens INTEGER,
			total_tokens INTEGER
		);`,
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the set stored for date, or ErrNotFound.
func (s *Store) Get(ctx context.Context, date string) (Set, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload_json FROM daily_sets WHERE date = ?`, date,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Set{}, ErrNotFound
	}
	if err != nil {
		return Set{}, fmt.Errorf("load daily set: %w", err)
	}

	var set Set
	if err := json.Unmarshal([]byte(payload), &set); err != nil {
		return Set{}, fmt.Errorf("decode daily set %s: %w", date, err)
	}
	return set, nil
}

// Meta returns the metadata stored for date, or ErrNotFound.
func (s *Store) Meta(ctx context.Context, date string) (Meta, error) {
	var (
		m            Meta
		model        sql.NullString
		in, out, tot sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT date, created_at, model_name, input_tokens, output_tokens, total_tokens
		FROM daily_sets WHERE date = ?`, date,
	).Scan(&m.Date, &m.CreatedAt, &model, &in, &out, &tot)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, ErrNotFound
	}
	if err != nil {
		return Meta{}, fmt.Errorf("load daily meta: %w", err)
	}

	if model.Valid {
		m.Model = &model.String
	}
	m.InputTokens = nullInt(in)
	m.OutputTokens = nullInt(out)
	m.TotalTokens = nullInt(tot)
	return m, nil
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// Exists reports whether a set is stored for date.
func (s *Store) Exists(ctx context.Context, date string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM daily_sets WHERE date = ? LIMIT 1`, date,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check daily set: %w", err)
	}
	return true, nil
}

// Insert stores r under its set's date. It reports false when a set for
// that date already exists; the stored set is left untouched.
func (s *Store) Insert(ctx context.Context, r Result, createdAt time.Time) (bool, error) {
	payload, err := json.Marshal(r.Set)
	if err != nil {
		return false, fmt.Errorf("encode daily set: %w", err)
	}

	var (
		model        sql.NullString
		in, out, tot sql.NullInt64
	)
	if r.Model != "" {
		model = sql.NullString{String: r.Model, Valid: true}
	}
	if r.Usage != nil {
		in = sql.NullInt64{Int64: int64(r.Usage.InputTokens), Valid: true}
		out = sql.NullInt64{Int64: int64(r.Usage.OutputTokens), Valid: true}
		tot = sql.NullInt64{Int64: int64(r.Usage.TotalTokens), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO daily_sets (
			date, payload_json, created_at, model_name, input_tokens, output_tokens, total_tokens
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(date) DO NOTHING`,
		r.Set.Date, string(payload), createdAt.UTC().Format(time.RFC3339), model, in, out, tot,
	)
	if err != nil {
		return false, fmt.Errorf("store daily set: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store daily set: %w", err)
	}
	return n == 1, nil
}
