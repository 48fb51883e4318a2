package builder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/untoldecay/Distillery/internal/coordinator"
	"github.com/untoldecay/Distillery/internal/frontmatter"
	"github.com/untoldecay/Distillery/internal/llm"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/prompt"
	"github.com/untoldecay/Distillery/internal/storage/sqlite"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/utils"
	"github.com/untoldecay/Distillery/internal/vaultpath"
)

type fakeGen struct {
	response string
	lastReq  llm.GenerateRequest
	calls    int
}

func (f *fakeGen) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	f.calls++
	f.lastReq = req
	return f.response, nil
}

type fakeEmbed struct {
	vector []float32
	calls  int
}

func (f *fakeEmbed) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vector, nil
}

type buildEnv struct {
	t      *testing.T
	ctx    context.Context
	store  *sqlite.SQLiteStorage
	coord  *coordinator.Coordinator
	paths  *vaultpath.Paths
	gen    *fakeGen
	embed  *fakeEmbed
	shadow string
}

func newBuildEnv(t *testing.T) *buildEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlite.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	shadow := filepath.Join(dir, "shadow")
	return &buildEnv{
		t:      t,
		ctx:    context.Background(),
		store:  store,
		coord:  coordinator.New(),
		paths:  vaultpath.New(shadow),
		gen:    &fakeGen{response: "A concise summary.\n\nkeywords: alpha, beta"},
		embed:  &fakeEmbed{vector: []float32{0.1, 0.2, 0.3}},
		shadow: shadow,
	}
}

func (e *buildEnv) l1() *L1Builder {
	resolver := prompt.NewResolver(filepath.Join(e.shadow, "no-prompts"), types.ModelConfig{
		Provider: "anthropic", Model: "test-model", Temperature: 0.5, MaxTokens: 1024,
	})
	return NewL1Builder(e.store, e.coord, resolver, e.gen, e.embed, e.paths, logging.Nop())
}

func (e *buildEnv) l2() *L2Builder {
	resolver := prompt.NewResolver(filepath.Join(e.shadow, "no-prompts"), types.ModelConfig{
		Provider: "anthropic", Model: "test-model", Temperature: 0.5, MaxTokens: 1024,
	})
	return NewL2Builder(e.store, e.coord, resolver, e.gen, e.embed, e.paths, logging.Nop())
}

func (e *buildEnv) addDocument(relPath, content string) *types.Document {
	e.t.Helper()
	category, _ := vaultpath.Category(relPath)
	doc := &types.Document{
		ID:          utils.NewID(),
		Path:        relPath,
		Content:     content,
		ContentHash: utils.ContentHash(relPath, content),
		Category:    category,
	}
	if err := e.store.UpsertDocument(e.ctx, doc); err != nil {
		e.t.Fatal(err)
	}
	return doc
}

func TestL1BuildFullPipeline(t *testing.T) {
	env := newBuildEnv(t)
	doc := env.addDocument("Research/note.md", "Raw thoughts about distributed systems.")

	if err := env.l1().Build(env.ctx, doc.ID, ""); err != nil {
		t.Fatalf("Build: %v", err)
	}

	sv, err := env.store.ActiveSummaryForSource(env.ctx, doc.ID)
	if err != nil {
		t.Fatalf("ActiveSummaryForSource: %v", err)
	}
	if sv.Version != 1 {
		t.Errorf("version = %d, want 1", sv.Version)
	}
	if !strings.Contains(sv.Content, "A concise summary.") {
		t.Errorf("content = %q", sv.Content)
	}
	if sv.PromptID == "" {
		t.Error("prompt ID not recorded")
	}
	if _, err := env.store.PromptVersionByID(env.ctx, sv.PromptID); err != nil {
		t.Errorf("prompt version not registered: %v", err)
	}
	if _, err := env.store.EmbeddingFor(env.ctx, sv.ID); err != nil {
		t.Errorf("embedding not stored: %v", err)
	}

	shadowPath := env.paths.L1Path(doc.Path)
	raw, err := os.ReadFile(shadowPath)
	if err != nil {
		t.Fatalf("shadow file missing: %v", err)
	}
	meta, body := frontmatter.Parse(string(raw))
	if frontmatter.GetString(meta, "source_id") != doc.ID {
		t.Errorf("shadow source_id = %q", frontmatter.GetString(meta, "source_id"))
	}
	if frontmatter.GetString(meta, "summary_id") != sv.ID {
		t.Errorf("shadow summary_id = %q", frontmatter.GetString(meta, "summary_id"))
	}
	tags := frontmatter.GetStringList(meta, "tags")
	if len(tags) != 2 || tags[0] != "alpha" {
		t.Errorf("tags = %v", tags)
	}
	if !strings.Contains(body, "[[Research/note]]") {
		t.Errorf("shadow body missing source link: %q", body)
	}

	reviewPath := vaultpath.ReviewPath(shadowPath)
	raw, err = os.ReadFile(reviewPath)
	if err != nil {
		t.Fatalf("review template missing: %v", err)
	}
	meta, _ = frontmatter.Parse(string(raw))
	if frontmatter.GetString(meta, "l1_id") != sv.ID {
		t.Errorf("review l1_id = %q", frontmatter.GetString(meta, "l1_id"))
	}
	if frontmatter.GetString(meta, "decision") != "PENDING" {
		t.Errorf("review decision = %q", frontmatter.GetString(meta, "decision"))
	}

	// Both writes must be attributed to the daemon.
	shadowRaw, _ := os.ReadFile(shadowPath)
	if !env.coord.IsSystemWrite(shadowPath, utils.RawHash(string(shadowRaw))) {
		t.Error("shadow write not marked as system write")
	}
}

func TestL1RebuildSupersedesAndInjectsFeedback(t *testing.T) {
	env := newBuildEnv(t)
	doc := env.addDocument("note.md", "Original content.")
	b := env.l1()

	if err := b.Build(env.ctx, doc.ID, ""); err != nil {
		t.Fatal(err)
	}
	v1, _ := env.store.ActiveSummaryForSource(env.ctx, doc.ID)

	env.gen.response = "A better summary."
	if err := b.Build(env.ctx, doc.ID, "shorter please; keep the examples"); err != nil {
		t.Fatal(err)
	}

	if !strings.Contains(env.gen.lastReq.User, FeedbackMarker) {
		t.Error("rebuild prompt missing feedback marker")
	}
	if !strings.Contains(env.gen.lastReq.User, "shorter please") {
		t.Error("rebuild prompt missing feedback notes")
	}

	v2, err := env.store.ActiveSummaryForSource(env.ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if v2.Version != 2 || v2.ID == v1.ID {
		t.Errorf("active after rebuild: version %d id %s", v2.Version, v2.ID)
	}
	old, _ := env.store.SummaryByID(env.ctx, v1.ID)
	if old.Status != types.StatusSuperseded {
		t.Errorf("v1 status = %s", old.Status)
	}
}

func TestL1BuildSkipsWhenInFlight(t *testing.T) {
	env := newBuildEnv(t)
	doc := env.addDocument("note.md", "content")

	if !env.coord.TryAcquire(doc.ID) {
		t.Fatal("setup acquire failed")
	}
	defer env.coord.Release(doc.ID)

	if err := env.l1().Build(env.ctx, doc.ID, ""); err != nil {
		t.Fatalf("Build during in-flight returned error: %v", err)
	}
	if env.gen.calls != 0 {
		t.Error("generation ran despite in-flight build")
	}
	if _, err := env.store.ActiveSummaryForSource(env.ctx, doc.ID); err == nil {
		t.Error("summary saved despite in-flight build")
	}
}

func TestStripFeedbackEcho(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"no marker", "clean summary", "clean summary"},
		{"trailing echo", "summary\n\n" + FeedbackMarker + "\nshorter please", "summary"},
		{"echo mid-text", "head\n\n" + FeedbackMarker + " fix it\n\ntail", "head\n\ntail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFeedbackEcho(tt.in); got != tt.want {
				t.Errorf("stripFeedbackEcho(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestL2BuildFromCluster(t *testing.T) {
	env := newBuildEnv(t)
	var members []string
	for _, p := range []string{"Research/a.md", "Research/b.md", "Ideas/c.md"} {
		doc := env.addDocument(p, "content of "+p)
		sv := &types.SummaryVersion{ID: utils.NewID(), SourceID: doc.ID, Content: "summary of " + p}
		if _, err := env.store.SaveSummaryVersion(env.ctx, sv); err != nil {
			t.Fatal(err)
		}
		members = append(members, sv.ID)
	}

	env.gen.response = "Title: Convergent Themes\n\nAll three notes describe the same shift."
	ins, err := env.l2().BuildFromCluster(env.ctx, members)
	if err != nil {
		t.Fatalf("BuildFromCluster: %v", err)
	}

	if ins.Title != "Convergent Themes" {
		t.Errorf("title = %q", ins.Title)
	}
	if ins.Category != "Research" {
		t.Errorf("category = %q, want majority Research", ins.Category)
	}
	if !strings.Contains(env.gen.lastReq.User, "--- Source 1: Research/a.md ---") {
		t.Errorf("context assembly missing numbered source: %q", env.gen.lastReq.User)
	}

	gotMembers, _ := env.store.SummaryIDsForInsight(env.ctx, ins.ID)
	if len(gotMembers) != 3 {
		t.Errorf("members recorded = %d", len(gotMembers))
	}

	insightPath := env.paths.L2Path("Research", "Convergent Themes")
	if _, err := os.Stat(insightPath); err != nil {
		t.Errorf("insight file missing at %s: %v", insightPath, err)
	}
	if _, err := os.Stat(vaultpath.ReviewPath(insightPath)); err != nil {
		t.Errorf("insight review template missing: %v", err)
	}

	unclustered, _ := env.store.UnclusteredActiveSummaries(env.ctx)
	if len(unclustered) != 0 {
		t.Errorf("members still unclustered: %v", unclustered)
	}
}

func TestL2BuildRejectsTinyCluster(t *testing.T) {
	env := newBuildEnv(t)
	if _, err := env.l2().BuildFromCluster(env.ctx, []string{"only-one"}); err == nil {
		t.Error("single-member cluster accepted")
	}
}

func TestMajorityCategory(t *testing.T) {
	mk := func(cats ...string) []types.SummaryContext {
		out := make([]types.SummaryContext, len(cats))
		for i, c := range cats {
			out[i] = types.SummaryContext{Category: c}
		}
		return out
	}
	tests := []struct {
		name string
		in   []types.SummaryContext
		want string
	}{
		{"clear majority", mk("A", "A", "B"), "A"},
		{"exact half counts", mk("A", "A", "B", "C"), "A"},
		{"no majority", mk("A", "B", "C"), "General"},
		{"tie keeps first seen", mk("A", "A", "B", "B"), "A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := majorityCategory(tt.in); got != tt.want {
				t.Errorf("majorityCategory = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		in, title string
	}{
		{"Title: The Point\n\nBody text.", "The Point"},
		{"Title: **Bold Point**\nBody.", "Bold Point"},
		{"**Title: Emphasized**\nBody.", "Emphasized"},
		{"Preamble.\ntitle: Lowercase Later\nBody.", "Lowercase Later"},
		{"# Just A Heading\nBody.", "Untitled Insight"},
	}
	for _, tt := range tests {
		title, _ := splitTitle(tt.in)
		if title != tt.title {
			t.Errorf("splitTitle(%q) = %q, want %q", tt.in, title, tt.title)
		}
	}
}
