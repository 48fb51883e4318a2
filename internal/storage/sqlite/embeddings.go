package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/untoldecay/Distillery/internal/storage"
)

// ReplaceEmbedding stores the vector for a summary or insight, overwriting
// any previous one.
func (s *SQLiteStorage) ReplaceEmbedding(ctx context.Context, ownerID string, vector []float32) error {
	raw, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("marshal vector: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO embeddings (owner_id, vector) VALUES (?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET vector = excluded.vector, created_at = CURRENT_TIMESTAMP
	`, ownerID, string(raw))
	if err != nil {
		return fmt.Errorf("store embedding for %s: %w", ownerID, err)
	}
	return nil
}

func (s *SQLiteStorage) EmbeddingFor(ctx context.Context, ownerID string) ([]float32, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE owner_id = ?`, ownerID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load embedding for %s: %w", ownerID, err)
	}
	var vec []float32
	if err := json.Unmarshal([]byte(raw), &vec); err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", ownerID, err)
	}
	return vec, nil
}

func (s *SQLiteStorage) DeleteEmbeddings(ctx context.Context, ownerIDs []string) error {
	if len(ownerIDs) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM embeddings WHERE owner_id IN (`+placeholders(len(ownerIDs))+`)`,
		toArgs(ownerIDs)...)
	if err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CountEmbeddingsFor(ctx context.Context, ownerIDs []string) (int, error) {
	if len(ownerIDs) == 0 {
		return 0, nil
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM embeddings WHERE owner_id IN (`+placeholders(len(ownerIDs))+`)`,
		toArgs(ownerIDs)...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count embeddings: %w", err)
	}
	return count, nil
}

// ActiveSummaryEmbeddings loads every embedded active summary with its
// source context. This is the corpus similarity search scores against.
func (s *SQLiteStorage) ActiveSummaryEmbeddings(ctx context.Context) ([]storage.SummaryEmbedding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sv.id, sv.source_id, sv.content, d.path, d.category, e.vector
		FROM embeddings e
		JOIN summary_versions sv ON sv.id = e.owner_id
		JOIN documents d ON d.id = sv.source_id
		WHERE sv.status = 'ACTIVE'
	`)
	if err != nil {
		return nil, fmt.Errorf("load active embeddings: %w", err)
	}
	defer rows.Close()

	var out []storage.SummaryEmbedding
	for rows.Next() {
		var se storage.SummaryEmbedding
		var raw string
		if err := rows.Scan(&se.SummaryID, &se.SourceID, &se.Content, &se.Path, &se.Category, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &se.Vector); err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", se.SummaryID, err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}
