package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/types"
)

// EnsurePromptVersion registers a prompt snapshot if it is not already known.
// IDs are content-derived, so this is safe to call on every build.
func (s *SQLiteStorage) EnsurePromptVersion(ctx context.Context, pv *types.PromptVersion) error {
	cfg, err := json.Marshal(pv.Model)
	if err != nil {
		return fmt.Errorf("marshal model config: %w", err)
	}
	if pv.CreatedAt.IsZero() {
		pv.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO prompt_versions (id, name, content, model_config, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, pv.ID, pv.Name, pv.Content, string(cfg), pv.CreatedAt)
	if err != nil {
		return fmt.Errorf("register prompt %s: %w", pv.Name, err)
	}
	return nil
}

func (s *SQLiteStorage) PromptVersionByID(ctx context.Context, id string) (*types.PromptVersion, error) {
	var pv types.PromptVersion
	var cfg string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, content, model_config, created_at
		FROM prompt_versions WHERE id = ?`, id).
		Scan(&pv.ID, &pv.Name, &pv.Content, &cfg, &pv.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load prompt %s: %w", id, err)
	}
	_ = json.Unmarshal([]byte(cfg), &pv.Model)
	return &pv, nil
}
