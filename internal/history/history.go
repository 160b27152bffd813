// Package history keeps past probe results in SQLite.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/raysh454/headprobe/internal/logging"
)

//go:embed schema.sql
var schemaFS embed.FS

var ErrRecordNotFound = errors.New("probe record not found")

const defaultListLimit = 50

// Store reads and writes probe records.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring history database: %w", err)
	}
	return db, nil
}

// NewStore returns a Store and runs migrations from schema.sql.
func NewStore(db *sql.DB, logger logging.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}

	schemaSQL, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema.sql: %w", err)
	}
	if _, err := db.Exec(string(schemaSQL)); err != nil {
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "history"}),
	}, nil
}

// Save inserts rec, filling in ID and CreatedAt when they are empty.
func (s *Store) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return fmt.Errorf("nil record")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO probes (id, url, method, status_code, final_url, document, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.URL, rec.Method, rec.StatusCode, rec.FinalURL, rec.Document, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert probe: %w", err)
	}

	s.logger.Debug("probe saved",
		logging.Field{Key: "id", Value: rec.ID},
		logging.Field{Key: "url", Value: rec.URL})
	return nil
}

// Get returns the record with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, url, method, status_code, final_url, document, created_at
         FROM probes
         WHERE id = ?
         LIMIT 1`,
		id,
	)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("get probe %s: %w", id, err)
	}
	return rec, nil
}

// List returns up to limit records, newest first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, method, status_code, final_url, document, created_at
         FROM probes
         ORDER BY created_at DESC, rowid DESC
         LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list probes: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan probe: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (*Record, error) {
	var r Record
	if err := sc.Scan(&r.ID, &r.URL, &r.Method, &r.StatusCode, &r.FinalURL, &r.Document, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
