// Package builder turns source documents into summary versions (L1) and
// clusters of summaries into insights (L2). Builders own the full write
// path: database rows, embeddings, shadow files, and review templates.
package builder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/untoldecay/Distillery/internal/coordinator"
	"github.com/untoldecay/Distillery/internal/frontmatter"
	"github.com/untoldecay/Distillery/internal/llm"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/prompt"
	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/utils"
	"github.com/untoldecay/Distillery/internal/vaultpath"
)

// FeedbackMarker introduces user review notes appended to a rebuild prompt.
// The builder strips it back out of whatever the model returns.
const FeedbackMarker = "[USER FEEDBACK FOR REBUILD]:"

// L1Builder produces summary versions for single documents.
type L1Builder struct {
	store   storage.Store
	coord   *coordinator.Coordinator
	prompts *prompt.Resolver
	gen     llm.Generator
	embed   llm.Embedder
	paths   *vaultpath.Paths
	log     logging.Logger
}

func NewL1Builder(store storage.Store, coord *coordinator.Coordinator, prompts *prompt.Resolver,
	gen llm.Generator, embed llm.Embedder, paths *vaultpath.Paths, log logging.Logger) *L1Builder {
	if log == nil {
		log = logging.Nop()
	}
	return &L1Builder{store: store, coord: coord, prompts: prompts,
		gen: gen, embed: embed, paths: paths, log: log}
}

// Build runs the full summary pipeline for one document. feedback, when
// non-empty, carries review notes for a rebuild.
//
// A build already in flight for the same document makes this a silent no-op:
// the debounced watcher will fire again if the document keeps changing.
func (b *L1Builder) Build(ctx context.Context, docID, feedback string) error {
	if !b.coord.TryAcquire(docID) {
		b.log.Logf("build skipped, already in flight: %s", docID)
		return nil
	}
	defer b.coord.Release(docID)

	doc, err := b.store.DocumentByID(ctx, docID)
	if err != nil {
		return fmt.Errorf("load document %s: %w", docID, err)
	}

	_, segments := vaultpath.Category(doc.Path)
	p, err := b.prompts.ForSource(segments)
	if err != nil {
		return fmt.Errorf("resolve prompt for %s: %w", doc.Path, err)
	}
	if err := b.store.EnsurePromptVersion(ctx, &types.PromptVersion{
		ID: p.ID, Name: p.Name, Content: p.Content, Model: p.Config,
	}); err != nil {
		return err
	}

	user := doc.Content
	if feedback != "" {
		user = user + "\n\n" + FeedbackMarker + "\n" + feedback
	}

	response, err := b.gen.Generate(ctx, llm.GenerateRequest{
		System: p.Content,
		User:   user,
		Config: p.Config,
	})
	if err != nil {
		return fmt.Errorf("generate summary for %s: %w", doc.Path, err)
	}
	summary := stripFeedbackEcho(strings.TrimSpace(response))
	if summary == "" {
		return fmt.Errorf("empty summary for %s", doc.Path)
	}

	sv := &types.SummaryVersion{
		ID:       utils.NewID(),
		SourceID: doc.ID,
		Content:  summary,
		Model:    p.Config,
		PromptID: p.ID,
	}
	version, err := b.store.SaveSummaryVersion(ctx, sv)
	if err != nil {
		return fmt.Errorf("save summary for %s: %w", doc.Path, err)
	}

	// Embedding failures degrade clustering, not summarization. Log and move
	// on.
	if vec, err := b.embed.Embed(ctx, summary); err != nil {
		b.log.Logf("embed summary %s: %v", sv.ID, err)
	} else if err := b.store.ReplaceEmbedding(ctx, sv.ID, vec); err != nil {
		b.log.Logf("store embedding %s: %v", sv.ID, err)
	}

	if err := b.writeShadow(doc, sv, p, version); err != nil {
		return err
	}
	if err := b.writeReviewTemplate(doc, sv, p); err != nil {
		return err
	}

	b.log.Logf("built summary v%d for %s", version, doc.Path)
	return nil
}

// l1Header is the frontmatter of a shadow summary. Field order is the file
// order.
type l1Header struct {
	SourceID  string   `yaml:"source_id"`
	Source    string   `yaml:"source"`
	SummaryID string   `yaml:"summary_id"`
	Version   int      `yaml:"version"`
	Prompt    string   `yaml:"prompt"`
	PromptID  string   `yaml:"prompt_id"`
	Tags      []string `yaml:"tags,omitempty"`
}

func (b *L1Builder) writeShadow(doc *types.Document, sv *types.SummaryVersion, p *prompt.Prompt, version int) error {
	header := l1Header{
		SourceID:  doc.ID,
		Source:    doc.Path,
		SummaryID: sv.ID,
		Version:   version,
		Prompt:    p.Name,
		PromptID:  p.ID,
		Tags:      frontmatter.ExtractTags(sv.Content),
	}
	body := sv.Content + "\n\n---\nSource: [[" + strings.TrimSuffix(doc.Path, ".md") + "]]"
	content, err := frontmatter.Render(header, body)
	if err != nil {
		return err
	}
	return b.writeFile(b.paths.L1Path(doc.Path), content)
}

// reviewHeader is the frontmatter of a review companion file. The user edits
// rating and decision; everything else is linkage.
type reviewHeader struct {
	ReviewID  string   `yaml:"review_id"`
	L1ID      string   `yaml:"l1_id,omitempty"`
	L2ID      string   `yaml:"l2_id,omitempty"`
	Rating    string   `yaml:"rating"`
	Decision  string   `yaml:"decision"`
	Issues    []string `yaml:"issues"`
	Source    string   `yaml:"source,omitempty"`
	Prompt    string   `yaml:"prompt,omitempty"`
	CreatedAt string   `yaml:"created_at"`
}

func (b *L1Builder) writeReviewTemplate(doc *types.Document, sv *types.SummaryVersion, p *prompt.Prompt) error {
	header := reviewHeader{
		ReviewID:  utils.NewID(),
		L1ID:      sv.ID,
		Rating:    string(types.RatingPending),
		Decision:  string(types.DecisionPending),
		Issues:    []string{},
		Source:    doc.Path,
		Prompt:    p.Name,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	body := "Edit rating and decision above, add notes below, then save.\n\n" +
		frontmatter.Quote(sv.Content)
	content, err := frontmatter.Render(header, body)
	if err != nil {
		return err
	}
	return b.writeFile(vaultpath.ReviewPath(b.paths.L1Path(doc.Path)), content)
}

func (b *L1Builder) writeFile(path, content string) error {
	return writeVaultFile(b.coord, path, content)
}

// stripFeedbackEcho removes an echoed feedback block from a generated
// summary. Models sometimes repeat the appended instructions verbatim.
func stripFeedbackEcho(s string) string {
	idx := strings.Index(s, FeedbackMarker)
	if idx < 0 {
		return s
	}
	head := strings.TrimRight(s[:idx], "\n ")
	// Feedback echo usually trails the summary; anything after the marker's
	// paragraph is kept.
	rest := s[idx:]
	if nl := strings.Index(rest, "\n\n"); nl >= 0 {
		tail := strings.TrimLeft(rest[nl:], "\n")
		if tail != "" {
			return head + "\n\n" + tail
		}
	}
	return head
}
