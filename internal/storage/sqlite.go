package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/devtally/internal/apperr"
	"github.com/starford/devtally/internal/models"
)

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS users (
	handle     TEXT PRIMARY KEY,
	done       INTEGER NOT NULL DEFAULT 0,
	fail       INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT
);

CREATE TABLE IF NOT EXISTS notes (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	handle TEXT NOT NULL REFERENCES users(handle) ON DELETE CASCADE,
	type   TEXT NOT NULL,
	n      INTEGER NOT NULL,
	note   TEXT NOT NULL,
	at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_handle ON notes(handle, id);
`

// SQLite implements Provider on a SQLite database. Save rewrites every row
// inside one transaction, keeping the whole-document replace semantics.
type SQLite struct {
	conn *sql.DB
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(sqliteSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Load rebuilds the document from the users and notes tables.
func (s *SQLite) Load(ctx context.Context) (models.Document, error) {
	doc := models.Document{}

	rows, err := s.conn.QueryContext(ctx, `SELECT handle, done, fail, updated_at FROM users`)
	if err != nil {
		return nil, fmt.Errorf("storage: load users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key     string
			rec     = models.NewUserRecord()
			updated sql.NullString
		)
		if err := rows.Scan(&key, &rec.Done, &rec.Fail, &updated); err != nil {
			return nil, fmt.Errorf("storage: scan user: %w", err)
		}
		if updated.Valid {
			ts, err := models.ParseTimestamp(updated.String)
			if err != nil {
				return nil, fmt.Errorf("storage: %w: user %q: %w", apperr.ErrCorrupt, key, err)
			}
			rec.UpdatedAt = &ts
		}
		doc[key] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: load users: %w", err)
	}

	noteRows, err := s.conn.QueryContext(ctx, `SELECT handle, type, n, note, at FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("storage: load notes: %w", err)
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var (
			key, kind, note, at string
			n                   int
		)
		if err := noteRows.Scan(&key, &kind, &n, &note, &at); err != nil {
			return nil, fmt.Errorf("storage: scan note: %w", err)
		}
		rec, ok := doc[key]
		if !ok {
			return nil, fmt.Errorf("storage: %w: note for unknown user %q", apperr.ErrCorrupt, key)
		}
		ts, err := models.ParseTimestamp(at)
		if err != nil {
			return nil, fmt.Errorf("storage: %w: user %q: %w", apperr.ErrCorrupt, key, err)
		}
		rec.Notes = append(rec.Notes, models.NoteEntry{Type: models.Kind(kind), N: n, Note: note, At: ts})
	}
	if err := noteRows.Err(); err != nil {
		return nil, fmt.Errorf("storage: load notes: %w", err)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("storage: %w: %w", apperr.ErrCorrupt, err)
	}
	return doc, nil
}

// Save replaces every stored row with the contents of doc.
func (s *SQLite) Save(ctx context.Context, doc models.Document) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.ExecContext(ctx, `DELETE FROM notes`); err != nil {
		return fmt.Errorf("storage: clear notes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("storage: clear users: %w", err)
	}

	userStmt, err := tx.PrepareContext(ctx, `INSERT INTO users (handle, done, fail, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare user insert: %w", err)
	}
	defer userStmt.Close()
	noteStmt, err := tx.PrepareContext(ctx, `INSERT INTO notes (handle, type, n, note, at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage: prepare note insert: %w", err)
	}
	defer noteStmt.Close()

	for key, rec := range doc {
		var updated sql.NullString
		if rec.UpdatedAt != nil {
			updated = sql.NullString{String: rec.UpdatedAt.String(), Valid: true}
		}
		if _, err := userStmt.ExecContext(ctx, key, rec.Done, rec.Fail, updated); err != nil {
			return fmt.Errorf("storage: insert user %q: %w", key, err)
		}
		for _, n := range rec.Notes {
			if _, err := noteStmt.ExecContext(ctx, key, string(n.Type), n.N, n.Note, n.At.String()); err != nil {
				return fmt.Errorf("storage: insert note for %q: %w", key, err)
			}
		}
	}

	return tx.Commit()
}
