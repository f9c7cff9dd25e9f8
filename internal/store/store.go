package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// Collection names shared with the agent.
const (
	CollectionRecipes  = "recipes"
	CollectionProjects = "projects"
	CollectionJobs     = "jobs"
)

var ErrNotFound = errors.New("document not found")

// Store is a small document database: JSON documents grouped by collection,
// each with a store-assigned id and timestamps.
type Store struct {
	DB *sql.DB

	clockMu sync.Mutex
	last    time.Time
}

// Document is one stored record.
type Document struct {
	ID         string
	Collection string
	Data       []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Fields is a partial or full document. Values equal to ServerTimestamp()
// are replaced with the store clock when written.
type Fields map[string]any

type serverTimestamp struct{}

// ServerTimestamp marks a field to be filled with Now() on write.
func ServerTimestamp() any { return serverTimestamp{} }

// OrderBy sorts GetAll and Subscribe results. Field is "createdAt",
// "updatedAt" or a top-level document field.
type OrderBy struct {
	Field string
	Desc  bool
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	queries := []string{
		`PRAGMA busy_timeout = 5000;`,
		`CREATE TABLE IF NOT EXISTS documents (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (collection, id)
		);`,
		`CREATE INDEX IF NOT EXISTS documents_collection_created
			ON documents (collection, created_at);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply schema: %w", err)
		}
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Now returns the store clock. Successive calls are strictly increasing so
// writes made in the same tick still have a total order.
func (s *Store) Now() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000Z07:00")
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func orderClause(order []OrderBy) (string, error) {
	if len(order) == 0 {
		return " ORDER BY seq", nil
	}
	clause := " ORDER BY "
	for i, o := range order {
		if i > 0 {
			clause += ", "
		}
		switch o.Field {
		case "createdAt":
			clause += "created_at"
		case "updatedAt":
			clause += "updated_at"
		default:
			if !fieldPattern.MatchString(o.Field) {
				return "", fmt.Errorf("invalid order field %q", o.Field)
			}
			clause += "json_extract(data, '$." + o.Field + "')"
		}
		if o.Desc {
			clause += " DESC"
		}
	}
	return clause + ", seq", nil
}

func newID() string {
	return uuid.NewString()
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var d Document
		var data, created, updated string
		if err := rows.Scan(&d.Collection, &d.ID, &data, &created, &updated); err != nil {
			return nil, err
		}
		d.Data = []byte(data)
		var err error
		if d.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		if d.UpdatedAt, err = parseTime(updated); err != nil {
			return nil, fmt.Errorf("document %s: %w", d.ID, err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
