// Package history keeps every evaluation a lisper core handles in a SQLite
// database, so traces outlive the daemon.
package history

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	lisper "github.com/rphilander/lisper/core"
)

const schema = `CREATE TABLE IF NOT EXISTS evals (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	op         TEXT NOT NULL,
	input      TEXT NOT NULL,
	output     TEXT NOT NULL,
	ok         INTEGER NOT NULL,
	created_at TEXT NOT NULL
)`

// Store implements lisper.HistoryStore on top of a single SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

var _ lisper.HistoryStore = (*Store)(nil)

// Open opens (or creates) the database at path and ensures the evals table
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	log.Printf("opened history database: %s", path)
	return &Store{db: db, path: path}, nil
}

func (s *Store) Append(e lisper.HistoryEntry) error {
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO evals (op, input, output, ok, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.Op, e.Input, e.Output, ok, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert eval: %w", err)
	}
	return nil
}

// Recent returns the last n entries, oldest first.
func (s *Store) Recent(n int) ([]lisper.HistoryEntry, error) {
	rows, err := s.db.Query(
		`SELECT op, input, output, ok, created_at FROM (
			SELECT id, op, input, output, ok, created_at FROM evals ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("query evals: %w", err)
	}
	defer rows.Close()

	entries := make([]lisper.HistoryEntry, 0)
	for rows.Next() {
		var e lisper.HistoryEntry
		var ok int
		if err := rows.Scan(&e.Op, &e.Input, &e.Output, &ok, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan eval: %w", err)
		}
		e.OK = ok != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query evals: %w", err)
	}
	return entries, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM evals`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count evals: %w", err)
	}
	return n, nil
}

func (s *Store) Close() error {
	log.Printf("closing history database: %s", s.path)
	return s.db.Close()
}
