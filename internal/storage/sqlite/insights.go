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

// SaveInsight inserts the insight and its cluster membership in one
// transaction.
func (s *SQLiteStorage) SaveInsight(ctx context.Context, ins *types.Insight, memberSummaryIDs []string) error {
	cfg, err := json.Marshal(ins.Model)
	if err != nil {
		return fmt.Errorf("marshal model config: %w", err)
	}
	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = time.Now().UTC()
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO insights (id, title, content, category, model_config, prompt_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ins.ID, ins.Title, ins.Content, ins.Category, string(cfg), ins.PromptID, ins.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert insight: %w", err)
		}
		for _, summaryID := range memberSummaryIDs {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO cluster_members (insight_id, summary_id) VALUES (?, ?)`,
				ins.ID, summaryID)
			if err != nil {
				return fmt.Errorf("insert cluster member %s: %w", summaryID, err)
			}
		}
		return nil
	})
}

func (s *SQLiteStorage) InsightByID(ctx context.Context, id string) (*types.Insight, error) {
	var ins types.Insight
	var cfg string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, content, category, model_config, prompt_id, created_at
		FROM insights WHERE id = ?`, id).
		Scan(&ins.ID, &ins.Title, &ins.Content, &ins.Category, &cfg, &ins.PromptID, &ins.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load insight %s: %w", id, err)
	}
	_ = json.Unmarshal([]byte(cfg), &ins.Model)
	return &ins, nil
}

func (s *SQLiteStorage) InsightIDsForSummary(ctx context.Context, summaryID string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT insight_id FROM cluster_members WHERE summary_id = ?`, summaryID)
}

func (s *SQLiteStorage) SummaryIDsForInsight(ctx context.Context, insightID string) ([]string, error) {
	return s.stringColumn(ctx,
		`SELECT summary_id FROM cluster_members WHERE insight_id = ?`, insightID)
}

func (s *SQLiteStorage) DeleteInsightRow(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM insights WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete insight %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteClusterMembersForSummary(ctx context.Context, summaryID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cluster_members WHERE summary_id = ?`, summaryID)
	if err != nil {
		return fmt.Errorf("delete cluster members for summary %s: %w", summaryID, err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteClusterMembersForInsight(ctx context.Context, insightID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM cluster_members WHERE insight_id = ?`, insightID)
	if err != nil {
		return fmt.Errorf("delete cluster members for insight %s: %w", insightID, err)
	}
	return nil
}

// UnclusteredActiveSummaries returns active summaries that belong to no
// cluster yet, oldest first, so the sweep works through the backlog in
// arrival order.
func (s *SQLiteStorage) UnclusteredActiveSummaries(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `
		SELECT sv.id FROM summary_versions sv
		WHERE sv.status = 'ACTIVE'
		AND sv.id NOT IN (SELECT summary_id FROM cluster_members)
		ORDER BY sv.created_at`)
}

func (s *SQLiteStorage) SummaryContexts(ctx context.Context, summaryIDs []string) ([]types.SummaryContext, error) {
	if len(summaryIDs) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sv.id, sv.source_id, sv.content, d.path, d.category
		FROM summary_versions sv
		JOIN documents d ON d.id = sv.source_id
		WHERE sv.id IN (`+placeholders(len(summaryIDs))+`)`,
		toArgs(summaryIDs)...)
	if err != nil {
		return nil, fmt.Errorf("load summary contexts: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]types.SummaryContext, len(summaryIDs))
	for rows.Next() {
		var sc types.SummaryContext
		if err := rows.Scan(&sc.SummaryID, &sc.SourceID, &sc.Content, &sc.Path, &sc.Category); err != nil {
			return nil, err
		}
		byID[sc.SummaryID] = sc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Preserve caller order; it determines source numbering in the prompt.
	out := make([]types.SummaryContext, 0, len(summaryIDs))
	for _, id := range summaryIDs {
		if sc, ok := byID[id]; ok {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *SQLiteStorage) stringColumn(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
