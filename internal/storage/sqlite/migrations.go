// Package sqlite - database migrations
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration represents a single database migration. Migrations run in order
// during initialization and must be idempotent.
type Migration struct {
	Name string
	Func func(ctx context.Context, db *sql.DB) error
}

var migrationsList = []Migration{
	{"review_notes_column", migrateReviewNotesColumn},
	{"cluster_members_summary_index", migrateClusterMembersSummaryIndex},
}

func (s *SQLiteStorage) runMigrations(ctx context.Context) error {
	for _, m := range migrationsList {
		var applied int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, m.Name).Scan(&applied)
		if err != nil {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}
		if applied > 0 {
			continue
		}
		if err := m.Func(ctx, s.db); err != nil {
			return fmt.Errorf("migration %s: %w", m.Name, err)
		}
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO schema_migrations (name) VALUES (?)`, m.Name); err != nil {
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
	}
	return nil
}

// migrateReviewNotesColumn adds the notes column to reviews created before it
// existed in the base schema.
func migrateReviewNotesColumn(ctx context.Context, db *sql.DB) error {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pragma_table_info('reviews') WHERE name = 'notes'`).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = db.ExecContext(ctx, `ALTER TABLE reviews ADD COLUMN notes TEXT NOT NULL DEFAULT ''`)
	return err
}

// migrateClusterMembersSummaryIndex backfills the summary_id index for
// databases created before it was in the base schema.
func migrateClusterMembersSummaryIndex(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_cluster_members_summary ON cluster_members(summary_id)`)
	return err
}
