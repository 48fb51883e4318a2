// Package storage defines the persistence interface for the distillation
// pipeline. The concrete implementation lives in storage/sqlite; consumers
// depend on this interface so tests can substitute fakes.
package storage

import (
	"context"
	"errors"

	"github.com/untoldecay/Distillery/internal/types"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with an existing row,
// typically a reused id.
var ErrConflict = errors.New("conflict")

// SummaryEmbedding pairs a stored vector with the summary context it belongs
// to. Similarity search loads all active rows and scores them in memory.
type SummaryEmbedding struct {
	types.SummaryContext
	Vector []float32
}

// Store is the persistence surface for documents, summary versions, reviews,
// insights, and embeddings.
//
// Mutations that touch multiple tables (version supersession, cascade
// deletes) are atomic: they either fully apply or leave the database
// untouched.
//
// # SQLite Specifics
//
//   - Write transactions use BEGIN IMMEDIATE to acquire the write lock early
//   - This serializes concurrent writers instead of failing mid-transaction
type Store interface {
	// Documents
	UpsertDocument(ctx context.Context, doc *types.Document) error
	DocumentByID(ctx context.Context, id string) (*types.Document, error)
	DocumentByPath(ctx context.Context, relPath string) (*types.Document, error)
	DeleteDocumentRow(ctx context.Context, id string) error

	// Summary versions. SaveSummaryVersion assigns the next version number,
	// supersedes the previous active version (removing its embedding), and
	// inserts the new row as ACTIVE, all in one transaction. The assigned
	// version is returned.
	SaveSummaryVersion(ctx context.Context, sv *types.SummaryVersion) (int, error)
	SummaryByID(ctx context.Context, id string) (*types.SummaryVersion, error)
	SummariesForSource(ctx context.Context, sourceID string) ([]*types.SummaryVersion, error)
	ActiveSummaryForSource(ctx context.Context, sourceID string) (*types.SummaryVersion, error)
	// UpdateSummaryContent rewrites an active summary in place without a
	// version bump. Used when the user hand-edits a shadow file.
	UpdateSummaryContent(ctx context.Context, summaryID, content string) error
	DeleteSummaryRow(ctx context.Context, id string) error

	// Embeddings are keyed by the ID of the summary or insight they encode.
	ReplaceEmbedding(ctx context.Context, ownerID string, vector []float32) error
	EmbeddingFor(ctx context.Context, ownerID string) ([]float32, error)
	DeleteEmbeddings(ctx context.Context, ownerIDs []string) error
	CountEmbeddingsFor(ctx context.Context, ownerIDs []string) (int, error)
	ActiveSummaryEmbeddings(ctx context.Context) ([]SummaryEmbedding, error)

	// Reviews
	UpsertReview(ctx context.Context, r *types.Review) error
	ReviewByID(ctx context.Context, id string) (*types.Review, error)
	DeleteReview(ctx context.Context, id string) error
	DeleteReviewsForTargets(ctx context.Context, targetIDs []string) error
	CountReviewsFor(ctx context.Context, targetIDs []string) (int, error)

	// Insights and cluster membership
	SaveInsight(ctx context.Context, ins *types.Insight, memberSummaryIDs []string) error
	InsightByID(ctx context.Context, id string) (*types.Insight, error)
	InsightIDsForSummary(ctx context.Context, summaryID string) ([]string, error)
	SummaryIDsForInsight(ctx context.Context, insightID string) ([]string, error)
	DeleteInsightRow(ctx context.Context, id string) error
	DeleteClusterMembersForSummary(ctx context.Context, summaryID string) error
	DeleteClusterMembersForInsight(ctx context.Context, insightID string) error
	UnclusteredActiveSummaries(ctx context.Context) ([]string, error)
	SummaryContexts(ctx context.Context, summaryIDs []string) ([]types.SummaryContext, error)

	// Prompt registry. Registration is idempotent: the ID is derived from
	// content, so an unchanged prompt inserts nothing.
	EnsurePromptVersion(ctx context.Context, pv *types.PromptVersion) error
	PromptVersionByID(ctx context.Context, id string) (*types.PromptVersion, error)

	// Stats aggregates pipeline state for the status command.
	Stats(ctx context.Context) (*types.Stats, error)

	Close() error
}
