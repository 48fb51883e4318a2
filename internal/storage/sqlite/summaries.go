package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/types"
)

// isUniqueConstraintError checks if error is a UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}

// SaveSummaryVersion performs the version handoff atomically:
//
//  1. the next version number is max(version)+1 for the source
//  2. the current ACTIVE version (if any) flips to SUPERSEDED and loses
//     its embedding
//  3. the new row is inserted as ACTIVE
//
// The assigned version is returned and also written back to sv.
func (s *SQLiteStorage) SaveSummaryVersion(ctx context.Context, sv *types.SummaryVersion) (int, error) {
	cfg, err := json.Marshal(sv.Model)
	if err != nil {
		return 0, fmt.Errorf("marshal model config: %w", err)
	}
	if sv.CreatedAt.IsZero() {
		sv.CreatedAt = time.Now().UTC()
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		var maxVersion int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(version), 0) FROM summary_versions WHERE source_id = ?`,
			sv.SourceID).Scan(&maxVersion)
		if err != nil {
			return fmt.Errorf("read max version: %w", err)
		}
		sv.Version = maxVersion + 1

		rows, err := tx.QueryContext(ctx,
			`SELECT id FROM summary_versions WHERE source_id = ? AND status = 'ACTIVE'`,
			sv.SourceID)
		if err != nil {
			return fmt.Errorf("find active version: %w", err)
		}
		var activeIDs []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			activeIDs = append(activeIDs, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		if len(activeIDs) > 0 {
			args := toArgs(activeIDs)
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM embeddings WHERE owner_id IN (`+placeholders(len(activeIDs))+`)`,
				args...); err != nil {
				return fmt.Errorf("drop superseded embeddings: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE summary_versions SET status = 'SUPERSEDED' WHERE id IN (`+placeholders(len(activeIDs))+`)`,
				args...); err != nil {
				return fmt.Errorf("supersede versions: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO summary_versions (id, source_id, version, content, status, model_config, prompt_id, created_at)
			VALUES (?, ?, ?, ?, 'ACTIVE', ?, ?, ?)
		`, sv.ID, sv.SourceID, sv.Version, sv.Content, string(cfg), sv.PromptID, sv.CreatedAt)
		if isUniqueConstraintError(err) {
			return fmt.Errorf("insert summary version %s: %w", sv.ID, storage.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("insert summary version: %w", err)
		}
		sv.Status = types.StatusActive
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sv.Version, nil
}

func (s *SQLiteStorage) SummaryByID(ctx context.Context, id string) (*types.SummaryVersion, error) {
	return scanSummary(s.db.QueryRowContext(ctx, `
		SELECT id, source_id, version, content, status, model_config, prompt_id, created_at
		FROM summary_versions WHERE id = ?`, id))
}

func (s *SQLiteStorage) ActiveSummaryForSource(ctx context.Context, sourceID string) (*types.SummaryVersion, error) {
	return scanSummary(s.db.QueryRowContext(ctx, `
		SELECT id, source_id, version, content, status, model_config, prompt_id, created_at
		FROM summary_versions WHERE source_id = ? AND status = 'ACTIVE'`, sourceID))
}

func (s *SQLiteStorage) SummariesForSource(ctx context.Context, sourceID string) ([]*types.SummaryVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, version, content, status, model_config, prompt_id, created_at
		FROM summary_versions WHERE source_id = ? ORDER BY version`, sourceID)
	if err != nil {
		return nil, fmt.Errorf("list summaries for %s: %w", sourceID, err)
	}
	defer rows.Close()

	var out []*types.SummaryVersion
	for rows.Next() {
		sv, err := scanSummaryRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sv)
	}
	return out, rows.Err()
}

// UpdateSummaryContent rewrites an active summary in place. No version bump:
// the model config is stamped so provenance shows a manual refinement rather
// than a generation. The embedding is dropped; the caller re-embeds.
func (s *SQLiteStorage) UpdateSummaryContent(ctx context.Context, summaryID, content string) error {
	manual, _ := json.Marshal(types.ModelConfig{Model: "manual_refinement"})
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE summary_versions SET content = ?, model_config = ?
			WHERE id = ? AND status = 'ACTIVE'
		`, content, string(manual), summaryID)
		if err != nil {
			return fmt.Errorf("update summary %s: %w", summaryID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return storage.ErrNotFound
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM embeddings WHERE owner_id = ?`, summaryID)
		return err
	})
}

func (s *SQLiteStorage) DeleteSummaryRow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM summary_versions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete summary %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSummary(row *sql.Row) (*types.SummaryVersion, error) {
	sv, err := scanSummaryFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return sv, err
}

func scanSummaryRows(rows *sql.Rows) (*types.SummaryVersion, error) {
	return scanSummaryFrom(rows)
}

func scanSummaryFrom(r rowScanner) (*types.SummaryVersion, error) {
	var sv types.SummaryVersion
	var cfg string
	err := r.Scan(&sv.ID, &sv.SourceID, &sv.Version, &sv.Content, &sv.Status, &cfg, &sv.PromptID, &sv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if cfg != "" {
		_ = json.Unmarshal([]byte(cfg), &sv.Model)
	}
	return &sv, nil
}
