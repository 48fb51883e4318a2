package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/types"
)

// UpsertDocument inserts a document or refreshes content, hash, and category
// for an existing path. The caller keeps the ID stable across updates.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, doc *types.Document) error {
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, path, content, content_hash, category, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			content = excluded.content,
			content_hash = excluded.content_hash,
			category = excluded.category,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Path, doc.Content, doc.ContentHash, doc.Category, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.Path, err)
	}
	return nil
}

func (s *SQLiteStorage) DocumentByID(ctx context.Context, id string) (*types.Document, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx, `
		SELECT id, path, content, content_hash, category, created_at, updated_at
		FROM documents WHERE id = ?`, id))
}

func (s *SQLiteStorage) DocumentByPath(ctx context.Context, relPath string) (*types.Document, error) {
	return s.scanDocument(s.db.QueryRowContext(ctx, `
		SELECT id, path, content, content_hash, category, created_at, updated_at
		FROM documents WHERE path = ?`, relPath))
}

func (s *SQLiteStorage) scanDocument(row *sql.Row) (*types.Document, error) {
	var doc types.Document
	err := row.Scan(&doc.ID, &doc.Path, &doc.Content, &doc.ContentHash, &doc.Category,
		&doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return &doc, nil
}

// DeleteDocumentRow removes only the documents row. Cascade ordering is the
// deleter's responsibility; summaries must already be gone.
func (s *SQLiteStorage) DeleteDocumentRow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}
