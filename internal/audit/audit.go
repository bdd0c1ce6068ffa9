// Package audit records every redacted export in a SQLite database so
// operators can answer which document was redacted, when, how much, and
// under which attestation.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS exports (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	document    TEXT    NOT NULL,
	file_name   TEXT    NOT NULL,
	confirmed   INTEGER NOT NULL,
	applied     INTEGER NOT NULL,
	pages       INTEGER NOT NULL,
	digest      TEXT    NOT NULL,
	signature   TEXT    NOT NULL DEFAULT '',
	signer      TEXT    NOT NULL DEFAULT '',
	created_at  TEXT    NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS exports_document ON exports(document)`,
}

// Entry is one recorded export.
type Entry struct {
	ID        int64     `json:"id"`
	Document  string    `json:"document"` // fingerprint of the source text
	FileName  string    `json:"file_name"`
	Confirmed int       `json:"confirmed"` // confirmed spans at export time
	Applied   int       `json:"applied"`   // mask runs actually written
	Pages     int       `json:"pages"`
	Digest    string    `json:"digest"`
	Signature string    `json:"signature,omitempty"`
	Signer    string    `json:"signer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is an append-only export log.
type Log struct {
	db *sql.DB
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	// One writer; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("audit: migrate: %w", err)
		}
	}
	return &Log{db: db}, nil
}

// Close closes the database.
func (l *Log) Close() error { return l.db.Close() }

// Record appends e and returns its id. A zero CreatedAt is set to now.
func (l *Log) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO exports (document, file_name, confirmed, applied, pages, digest, signature, signer, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Document, e.FileName, e.Confirmed, e.Applied, e.Pages, e.Digest, e.Signature, e.Signer,
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("audit: insert: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, document, file_name, confirmed, applied, pages, digest, signature, signer, created_at
		 FROM exports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created string
		)
		if err := rows.Scan(&e.ID, &e.Document, &e.FileName, &e.Confirmed, &e.Applied, &e.Pages,
			&e.Digest, &e.Signature, &e.Signer, &created); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("audit: created_at %q: %w", created, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
