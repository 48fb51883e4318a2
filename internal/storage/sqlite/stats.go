package sqlite

import (
	"context"
	"fmt"

	"github.com/untoldecay/Distillery/internal/types"
)

// Stats aggregates pipeline state in a single pass over each table.
func (s *SQLiteStorage) Stats(ctx context.Context) (*types.Stats, error) {
	stats := &types.Stats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{`SELECT COUNT(*) FROM documents`, &stats.Documents},
		{`SELECT COUNT(*) FROM summary_versions WHERE status = 'ACTIVE'`, &stats.ActiveSummaries},
		{`SELECT COUNT(*) FROM summary_versions`, &stats.TotalVersions},
		{`SELECT COUNT(*) FROM insights`, &stats.Insights},
		{`SELECT COUNT(*) FROM reviews WHERE decision = 'PENDING'`, &stats.PendingReviews},
		{`SELECT COUNT(*) FROM summary_versions
			WHERE status = 'ACTIVE' AND id NOT IN (SELECT summary_id FROM cluster_members)`, &stats.Unclustered},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("stats query: %w", err)
		}
	}
	return stats, nil
}
