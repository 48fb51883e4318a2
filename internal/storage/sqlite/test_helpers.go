package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/utils"
)

// testEnv provides a test environment with common setup and helpers.
// Use newTestEnv(t) to create a test environment with automatic cleanup.
type testEnv struct {
	t     *testing.T
	Store *SQLiteStorage
	Ctx   context.Context
}

// newTestEnv creates a store on a temp-dir database, cleaned up with the
// test.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := newTestStore(t, "")
	return &testEnv{
		t:     t,
		Store: store,
		Ctx:   context.Background(),
	}
}

// newTestStore creates a SQLiteStorage backed by a file in a temp dir.
// File-based databases are more reliable than in-memory for connection pool
// scenarios.
func newTestStore(t *testing.T, dbPath string) *SQLiteStorage {
	t.Helper()
	if dbPath == "" {
		dbPath = filepath.Join(t.TempDir(), "test.db")
	}
	store, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if cerr := store.Close(); cerr != nil {
			t.Fatalf("Failed to close test database: %v", cerr)
		}
	})
	return store
}

// CreateDocument inserts a source document with sensible defaults.
func (e *testEnv) CreateDocument(relPath, content string) *types.Document {
	e.t.Helper()
	category := "General"
	if dir := filepath.Dir(relPath); dir != "." {
		category = filepath.ToSlash(dir)
	}
	doc := &types.Document{
		ID:          utils.NewID(),
		Path:        relPath,
		Content:     content,
		ContentHash: utils.ContentHash(relPath, content),
		Category:    category,
	}
	if err := e.Store.UpsertDocument(e.Ctx, doc); err != nil {
		e.t.Fatalf("UpsertDocument(%q) failed: %v", relPath, err)
	}
	return doc
}

// CreateSummary inserts a new summary version for the document.
func (e *testEnv) CreateSummary(sourceID, content string) *types.SummaryVersion {
	e.t.Helper()
	sv := &types.SummaryVersion{
		ID:       utils.NewID(),
		SourceID: sourceID,
		Content:  content,
		Model:    types.ModelConfig{Provider: "anthropic", Model: "test-model", Temperature: 0.7, MaxTokens: 1024},
	}
	if _, err := e.Store.SaveSummaryVersion(e.Ctx, sv); err != nil {
		e.t.Fatalf("SaveSummaryVersion failed: %v", err)
	}
	return sv
}

// CreateEmbedded inserts a summary with an embedding vector attached.
func (e *testEnv) CreateEmbedded(sourceID, content string, vector []float32) *types.SummaryVersion {
	e.t.Helper()
	sv := e.CreateSummary(sourceID, content)
	if err := e.Store.ReplaceEmbedding(e.Ctx, sv.ID, vector); err != nil {
		e.t.Fatalf("ReplaceEmbedding failed: %v", err)
	}
	return sv
}
