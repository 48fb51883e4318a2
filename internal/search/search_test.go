package search

import (
	"context"
	"math"
	"testing"

	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/storage/sqlite"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/utils"
)

func newStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := sqlite.New(context.Background(), t.TempDir()+"/test.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func addEmbedded(t *testing.T, store storage.Store, path string, vector []float32) *types.SummaryVersion {
	t.Helper()
	ctx := context.Background()
	doc := &types.Document{
		ID:          utils.NewID(),
		Path:        path,
		Content:     "content of " + path,
		ContentHash: utils.ContentHash(path, "content of "+path),
		Category:    "General",
	}
	if err := store.UpsertDocument(ctx, doc); err != nil {
		t.Fatal(err)
	}
	sv := &types.SummaryVersion{ID: utils.NewID(), SourceID: doc.ID, Content: "summary of " + path}
	if _, err := store.SaveSummaryVersion(ctx, sv); err != nil {
		t.Fatal(err)
	}
	if err := store.ReplaceEmbedding(ctx, sv.ID, vector); err != nil {
		t.Fatal(err)
	}
	return sv
}

func TestRelatedOrdersBySimilarity(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	target := addEmbedded(t, store, "target.md", []float32{1, 0, 0})
	near := addEmbedded(t, store, "near.md", []float32{0.9, 0.1, 0})
	mid := addEmbedded(t, store, "mid.md", []float32{0.7, 0.7, 0})
	addEmbedded(t, store, "far.md", []float32{0, 0, 1})

	got, err := New(store).Related(ctx, target.ID, 5, 0.5)
	if err != nil {
		t.Fatalf("Related: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d neighbors, want 2: %+v", len(got), got)
	}
	if got[0].SummaryID != near.ID || got[1].SummaryID != mid.ID {
		t.Errorf("order = %s, %s", got[0].SummaryID, got[1].SummaryID)
	}
	for _, n := range got {
		if n.SummaryID == target.ID {
			t.Error("target included in its own neighbors")
		}
	}
}

func TestRelatedRespectsLimit(t *testing.T) {
	store := newStore(t)
	target := addEmbedded(t, store, "target.md", []float32{1, 0})
	for _, p := range []string{"a.md", "b.md", "c.md"} {
		addEmbedded(t, store, p, []float32{1, 0.01})
	}

	got, err := New(store).Related(context.Background(), target.ID, 2, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d neighbors, want 2", len(got))
	}
}

func TestRelatedExcludesSuperseded(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	target := addEmbedded(t, store, "target.md", []float32{1, 0})
	old := addEmbedded(t, store, "other.md", []float32{1, 0})

	// Supersede: new version for the same source without an embedding.
	sv := &types.SummaryVersion{ID: utils.NewID(), SourceID: old.SourceID, Content: "rebuilt"}
	if _, err := store.SaveSummaryVersion(ctx, sv); err != nil {
		t.Fatal(err)
	}

	got, err := New(store).Related(ctx, target.ID, 5, 0.0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("superseded summary surfaced as neighbor: %+v", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %f, want %f", got, tt.want)
			}
		})
	}
}
