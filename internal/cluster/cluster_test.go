package cluster

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/untoldecay/Distillery/internal/builder"
	"github.com/untoldecay/Distillery/internal/coordinator"
	"github.com/untoldecay/Distillery/internal/llm"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/prompt"
	"github.com/untoldecay/Distillery/internal/search"
	"github.com/untoldecay/Distillery/internal/storage/sqlite"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/utils"
	"github.com/untoldecay/Distillery/internal/vaultpath"
)

type fakeGen struct{ calls int }

func (f *fakeGen) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	f.calls++
	return "Title: Cluster Insight\n\nSynthesis body.", nil
}

type fakeEmbed struct{}

func (fakeEmbed) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

type sweepEnv struct {
	t     *testing.T
	ctx   context.Context
	store *sqlite.SQLiteStorage
	gen   *fakeGen
	sw    *Sweeper
}

func newSweepEnv(t *testing.T) *sweepEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })

	gen := &fakeGen{}
	paths := vaultpath.New(filepath.Join(dir, "shadow"))
	resolver := prompt.NewResolver(filepath.Join(dir, "prompts"), types.ModelConfig{
		Provider: "anthropic", Model: "test-model", MaxTokens: 1024,
	})
	l2 := builder.NewL2Builder(store, coordinator.New(), resolver, gen, fakeEmbed{}, paths, logging.Nop())
	sw := NewSweeper(store, search.New(store), l2, logging.Nop())

	return &sweepEnv{t: t, ctx: context.Background(), store: store, gen: gen, sw: sw}
}

func (e *sweepEnv) addEmbedded(path string, vector []float32) *types.SummaryVersion {
	e.t.Helper()
	doc := &types.Document{
		ID:          utils.NewID(),
		Path:        path,
		Content:     "content",
		ContentHash: utils.ContentHash(path, "content"),
		Category:    "General",
	}
	if err := e.store.UpsertDocument(e.ctx, doc); err != nil {
		e.t.Fatal(err)
	}
	sv := &types.SummaryVersion{ID: utils.NewID(), SourceID: doc.ID, Content: "summary of " + path}
	if _, err := e.store.SaveSummaryVersion(e.ctx, sv); err != nil {
		e.t.Fatal(err)
	}
	if err := e.store.ReplaceEmbedding(e.ctx, sv.ID, vector); err != nil {
		e.t.Fatal(err)
	}
	return sv
}

func TestSweepFormsClusterFromCloseNeighbors(t *testing.T) {
	env := newSweepEnv(t)
	env.addEmbedded("a.md", []float32{1, 0, 0})
	env.addEmbedded("b.md", []float32{0.99, 0.05, 0})
	env.addEmbedded("c.md", []float32{0.98, 0.1, 0})
	env.addEmbedded("far.md", []float32{0, 0, 1})

	built, err := env.sw.Run(env.ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if built != 1 {
		t.Fatalf("built = %d, want 1", built)
	}

	unclustered, _ := env.store.UnclusteredActiveSummaries(env.ctx)
	if len(unclustered) != 1 {
		t.Errorf("unclustered after sweep = %d, want 1 (the far one)", len(unclustered))
	}
}

func TestSweepSkipsWhenTooFewNeighbors(t *testing.T) {
	env := newSweepEnv(t)
	env.addEmbedded("a.md", []float32{1, 0})
	env.addEmbedded("b.md", []float32{0.99, 0.05})
	// Only one close pair: no seed has two qualifying neighbors.

	built, err := env.sw.Run(env.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if built != 0 {
		t.Errorf("built = %d, want 0", built)
	}
	if env.gen.calls != 0 {
		t.Errorf("generation ran %d times for no cluster", env.gen.calls)
	}
}

func TestSweepTakesEveryQualifyingNeighbor(t *testing.T) {
	env := newSweepEnv(t)
	// Five mutually close summaries: the first seed pulls in all four
	// neighbors, so one cluster forms and nothing is left behind.
	for _, p := range []string{"a.md", "b.md", "c.md", "d.md", "e.md"} {
		env.addEmbedded(p, []float32{1, 0.001})
	}

	built, err := env.sw.Run(env.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if built != 1 {
		t.Errorf("built = %d, want 1", built)
	}
	if env.gen.calls != 1 {
		t.Errorf("generation ran %d times, want 1", env.gen.calls)
	}
	unclustered, _ := env.store.UnclusteredActiveSummaries(env.ctx)
	if len(unclustered) != 0 {
		t.Errorf("unclustered after sweep = %d, want 0", len(unclustered))
	}
}

func TestSweepDoesNotDoubleBookSummaries(t *testing.T) {
	env := newSweepEnv(t)
	// Two tight groups far apart: consuming the first group must not let
	// its members re-seed or join the second.
	for _, p := range []string{"a.md", "b.md", "c.md"} {
		env.addEmbedded(p, []float32{1, 0.001, 0})
	}
	for _, p := range []string{"x.md", "y.md", "z.md"} {
		env.addEmbedded(p, []float32{0, 0.001, 1})
	}

	built, err := env.sw.Run(env.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if built != 2 {
		t.Errorf("built = %d, want 2", built)
	}
	if env.gen.calls != 2 {
		t.Errorf("generation ran %d times, want 2", env.gen.calls)
	}
	unclustered, _ := env.store.UnclusteredActiveSummaries(env.ctx)
	if len(unclustered) != 0 {
		t.Errorf("unclustered after sweep = %d, want 0", len(unclustered))
	}
}

func TestSweepSkipsUnembeddedSummaries(t *testing.T) {
	env := newSweepEnv(t)
	doc := &types.Document{ID: utils.NewID(), Path: "plain.md", Content: "c", ContentHash: "h", Category: "General"}
	if err := env.store.UpsertDocument(env.ctx, doc); err != nil {
		t.Fatal(err)
	}
	sv := &types.SummaryVersion{ID: utils.NewID(), SourceID: doc.ID, Content: "no embedding"}
	if _, err := env.store.SaveSummaryVersion(env.ctx, sv); err != nil {
		t.Fatal(err)
	}

	built, err := env.sw.Run(env.ctx)
	if err != nil {
		t.Fatalf("sweep errored on unembedded summary: %v", err)
	}
	if built != 0 {
		t.Errorf("built = %d", built)
	}
}
