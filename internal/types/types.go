// Package types defines the core data model for the distillation pipeline:
// source documents, versioned summaries, clustered insights, and the review
// records that tie user feedback back into rebuilds.
package types

import "time"

// SummaryStatus tracks whether a summary version is the live one for its
// source or has been replaced by a newer build.
type SummaryStatus string

const (
	StatusActive     SummaryStatus = "ACTIVE"
	StatusSuperseded SummaryStatus = "SUPERSEDED"
)

// Rating is the user's quality verdict recorded in a review file.
type Rating string

const (
	RatingPending Rating = "PENDING"
	RatingGood    Rating = "GOOD"
	RatingOK      Rating = "OK"
	RatingBad     Rating = "BAD"
)

// Decision is the action the pipeline takes in response to a review.
type Decision string

const (
	DecisionPending Decision = "PENDING"
	DecisionAccept  Decision = "ACCEPT"
	DecisionRebuild Decision = "REBUILD"
	DecisionDiscard Decision = "DISCARD"
)

// Document is a tracked source note. Path is relative to the sources root.
type Document struct {
	ID          string
	Path        string
	Content     string
	ContentHash string
	Category    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ModelConfig captures the generation parameters a summary or insight was
// built with. It is stored alongside the artifact so a rebuild with different
// parameters is distinguishable from a rebuild of the same prompt.
type ModelConfig struct {
	Provider    string  `json:"provider" yaml:"provider"`
	Model       string  `json:"model" yaml:"model"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens"`
}

// SummaryVersion is one generated summary of a source document. Versions are
// append-only: a rebuild inserts a new row and supersedes the previous active
// one rather than updating in place.
type SummaryVersion struct {
	ID        string
	SourceID  string
	Version   int
	Content   string
	Status    SummaryStatus
	Model     ModelConfig
	PromptID  string
	CreatedAt time.Time
}

// Insight is a cross-document synthesis built from a cluster of related
// summaries.
type Insight struct {
	ID        string
	Title     string
	Content   string
	Category  string
	Model     ModelConfig
	PromptID  string
	CreatedAt time.Time
}

// Review is the parsed state of a review companion file. Exactly one of
// SummaryID or InsightID is set.
type Review struct {
	ID        string
	SummaryID string
	InsightID string
	Rating    Rating
	Decision  Decision
	Issues    []string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PromptVersion is a content-addressed snapshot of a prompt file plus its
// model configuration. The ID is deterministic, so re-registering an
// unchanged prompt is a no-op.
type PromptVersion struct {
	ID        string
	Name      string
	Content   string
	Model     ModelConfig
	CreatedAt time.Time
}

// SummaryContext is the joined view of a summary used when assembling
// clustering context: the summary text plus where its source lives.
type SummaryContext struct {
	SummaryID string
	SourceID  string
	Content   string
	Path      string
	Category  string
}

// Neighbor is one similarity-search hit against the active summary
// embeddings.
type Neighbor struct {
	SummaryID  string
	Similarity float64
	Content    string
	Path       string
	Category   string
}

// DeleteImpact describes everything a cascade delete will remove. Preview
// operations return it without deleting; delete operations return what was
// actually removed.
type DeleteImpact struct {
	Documents      int      `json:"documents"`
	Summaries      int      `json:"summaries"`
	Insights       int      `json:"insights"`
	Reviews        int      `json:"reviews"`
	Embeddings     int      `json:"embeddings"`
	ClusterMembers int      `json:"cluster_members"`
	Files          []string `json:"files"`
}

// Stats is the aggregate pipeline state shown by the status command.
type Stats struct {
	Documents       int `json:"documents"`
	ActiveSummaries int `json:"active_summaries"`
	TotalVersions   int `json:"total_versions"`
	Insights        int `json:"insights"`
	PendingReviews  int `json:"pending_reviews"`
	Unclustered     int `json:"unclustered"`
}
