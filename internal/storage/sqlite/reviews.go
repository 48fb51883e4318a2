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

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// UpsertReview inserts or refreshes the parsed state of a review file.
func (s *SQLiteStorage) UpsertReview(ctx context.Context, r *types.Review) error {
	issues, err := json.Marshal(r.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reviews (id, summary_id, insight_id, rating, decision, issues, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rating = excluded.rating,
			decision = excluded.decision,
			issues = excluded.issues,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, r.ID, nullable(r.SummaryID), nullable(r.InsightID), r.Rating, r.Decision,
		string(issues), r.Notes, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert review %s: %w", r.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) ReviewByID(ctx context.Context, id string) (*types.Review, error) {
	var r types.Review
	var summaryID, insightID sql.NullString
	var issues string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, summary_id, insight_id, rating, decision, issues, notes, created_at, updated_at
		FROM reviews WHERE id = ?`, id).
		Scan(&r.ID, &summaryID, &insightID, &r.Rating, &r.Decision, &issues, &r.Notes,
			&r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load review %s: %w", id, err)
	}
	r.SummaryID = summaryID.String
	r.InsightID = insightID.String
	_ = json.Unmarshal([]byte(issues), &r.Issues)
	return &r, nil
}

func (s *SQLiteStorage) DeleteReview(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete review %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteReviewsForTargets removes reviews attached to any of the given
// summary or insight IDs.
func (s *SQLiteStorage) DeleteReviewsForTargets(ctx context.Context, targetIDs []string) error {
	if len(targetIDs) == 0 {
		return nil
	}
	ph := placeholders(len(targetIDs))
	args := append(toArgs(targetIDs), toArgs(targetIDs)...)
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM reviews WHERE summary_id IN (`+ph+`) OR insight_id IN (`+ph+`)`, args...)
	if err != nil {
		return fmt.Errorf("delete reviews: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) CountReviewsFor(ctx context.Context, targetIDs []string) (int, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	ph := placeholders(len(targetIDs))
	args := append(toArgs(targetIDs), toArgs(targetIDs)...)
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE summary_id IN (`+ph+`) OR insight_id IN (`+ph+`)`,
		args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}
	return count, nil
}
