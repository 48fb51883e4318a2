// Package distillery provides a minimal public API for extending dst with
// custom tooling.
//
// Most extensions should use direct SQL queries against dst's database. This
// package exports only the essential types and functions needed for Go-based
// extensions that want to use dst's storage layer programmatically.
package distillery

import (
	"context"

	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/storage/sqlite"
	"github.com/untoldecay/Distillery/internal/types"
)

// Store is the interface for distillery storage operations.
type Store = storage.Store

// ErrNotFound is returned by lookups that match no record.
var ErrNotFound = storage.ErrNotFound

// NewSQLiteStore opens (or creates) a distillery database at the given path.
func NewSQLiteStore(ctx context.Context, dbPath string) (Store, error) {
	return sqlite.New(ctx, dbPath)
}

// Core types from internal/types.
type (
	Document       = types.Document
	SummaryVersion = types.SummaryVersion
	SummaryStatus  = types.SummaryStatus
	Insight        = types.Insight
	Review         = types.Review
	Rating         = types.Rating
	Decision       = types.Decision
	ModelConfig    = types.ModelConfig
	PromptVersion  = types.PromptVersion
	DeleteImpact   = types.DeleteImpact
	Stats          = types.Stats
)

// Summary lifecycle states.
const (
	StatusActive     = types.StatusActive
	StatusSuperseded = types.StatusSuperseded
)

// Review decisions.
const (
	DecisionPending = types.DecisionPending
	DecisionAccept  = types.DecisionAccept
	DecisionRebuild = types.DecisionRebuild
	DecisionDiscard = types.DecisionDiscard
)
