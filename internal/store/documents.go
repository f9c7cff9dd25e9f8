package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// resolve returns a copy of fields with server timestamps filled in.
func resolve(fields Fields, now string) Fields {
	out := make(Fields, len(fields))
	for k, v := range fields {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}

// Create inserts a new document and returns its id.
func (s *Store) Create(ctx context.Context, collection string, fields Fields) (string, error) {
	doc, err := s.CreateDocument(ctx, collection, fields)
	if err != nil {
		return "", err
	}
	return doc.ID, nil
}

// CreateDocument inserts a new document and returns it as written.
func (s *Store) CreateDocument(ctx context.Context, collection string, fields Fields) (Document, error) {
	at := s.Now()
	now := formatTime(at)
	data, err := json.Marshal(resolve(fields, now))
	if err != nil {
		return Document{}, fmt.Errorf("encode %s document: %w", collection, err)
	}

	id := newID()
	query := `INSERT INTO documents (collection, id, data, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	if _, err := s.DB.ExecContext(ctx, query, collection, id, string(data), now, now); err != nil {
		return Document{}, fmt.Errorf("insert %s document: %w", collection, err)
	}
	return Document{ID: id, Collection: collection, Data: data, CreatedAt: at, UpdatedAt: at}, nil
}

// UpdateFields merges fields into an existing document. Top-level keys are
// replaced wholesale, so arrays are overwritten rather than merged.
func (s *Store) UpdateFields(ctx context.Context, collection, id string, fields Fields) error {
	_, err := s.UpdateDocument(ctx, collection, id, fields)
	return err
}

// UpdateDocument is UpdateFields returning the new updated_at time.
func (s *Store) UpdateDocument(ctx context.Context, collection, id string, fields Fields) (time.Time, error) {
	at := s.Now()
	now := formatTime(at)
	patch, err := json.Marshal(resolve(fields, now))
	if err != nil {
		return time.Time{}, fmt.Errorf("encode %s patch: %w", collection, err)
	}

	query := `UPDATE documents SET data = json_patch(data, ?), updated_at = ? WHERE collection = ? AND id = ?`
	res, err := s.DB.ExecContext(ctx, query, string(patch), now, collection, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return time.Time{}, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return time.Time{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return at, nil
}

// DeleteByID removes a document permanently.
func (s *Store) DeleteByID(ctx context.Context, collection, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return nil
}

// Get fetches one document.
func (s *Store) Get(ctx context.Context, collection, id string) (Document, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT collection, id, data, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return Document{}, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if len(docs) == 0 {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return docs[0], nil
}

// GetAll returns every document in a collection.
func (s *Store) GetAll(ctx context.Context, collection string, order ...OrderBy) ([]Document, error) {
	clause, err := orderClause(order)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT collection, id, data, created_at, updated_at FROM documents WHERE collection = ?`+clause,
		collection)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	docs, err := scanDocuments(rows)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

// IsNotFound reports whether err means the document does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, sql.ErrNoRows)
}
