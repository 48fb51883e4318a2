package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/untoldecay/Distillery/internal/builder"
	"github.com/untoldecay/Distillery/internal/coordinator"
	"github.com/untoldecay/Distillery/internal/deleter"
	"github.com/untoldecay/Distillery/internal/frontmatter"
	"github.com/untoldecay/Distillery/internal/llm"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/queue"
	"github.com/untoldecay/Distillery/internal/storage"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/utils"
	"github.com/untoldecay/Distillery/internal/vaultpath"
)

// Processor executes the classified filesystem events. Handlers run on the
// worker pool; each one owns a single file and returns its error to the queue
// for logging, so one bad file never stops the watcher.
type Processor struct {
	store       storage.Store
	coord       *coordinator.Coordinator
	builder     *builder.L1Builder
	deleter     *deleter.Deleter
	embed       llm.Embedder
	queue       *queue.Queue
	sourcesRoot string
	log         logging.Logger

	mu         sync.Mutex
	lastShadow map[string]string // abs path -> hash of last applied shadow edit
}

func NewProcessor(store storage.Store, coord *coordinator.Coordinator, l1 *builder.L1Builder,
	del *deleter.Deleter, embed llm.Embedder, q *queue.Queue, sourcesRoot string, log logging.Logger) *Processor {
	if log == nil {
		log = logging.Nop()
	}
	return &Processor{
		store:       store,
		coord:       coord,
		builder:     l1,
		deleter:     del,
		embed:       embed,
		queue:       q,
		sourcesRoot: sourcesRoot,
		log:         log,
		lastShadow:  make(map[string]string),
	}
}

// HandleSource ingests one source note and builds its summary. A file whose
// hash matches the stored document while an active summary exists is a no-op,
// which makes full re-scans of the sources tree safe.
func (p *Processor) HandleSource(ctx context.Context, absPath string) error {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // deleted before the debounce fired
		}
		return fmt.Errorf("read source %s: %w", absPath, err)
	}
	content := string(raw)
	meta, _ := frontmatter.Parse(content)
	if isDraft(meta) {
		return nil
	}

	rel, err := filepath.Rel(p.sourcesRoot, absPath)
	if err != nil {
		return fmt.Errorf("source outside tree: %s", absPath)
	}
	rel = filepath.ToSlash(rel)
	category, _ := vaultpath.Category(rel)
	hash := utils.ContentHash(rel, content)
	pinned := frontmatter.GetString(meta, "id")

	existing, err := p.store.DocumentByPath(ctx, rel)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if existing != nil {
		if pinned != "" && pinned != existing.ID {
			// The file pins a different identity than the store has for this
			// path. The stored lineage belongs to something else now; drop it
			// and adopt the file's id.
			p.log.Logf("id mismatch for %s: stored %s, file %s; resyncing", rel, existing.ID, pinned)
			if _, err := p.deleter.DeleteDocument(ctx, existing.ID); err != nil {
				return fmt.Errorf("resync %s: %w", rel, err)
			}
			existing = nil
		} else if existing.ContentHash == hash {
			if _, err := p.store.ActiveSummaryForSource(ctx, existing.ID); err == nil {
				return nil
			}
			// Unchanged but no active summary: a prior build failed or the
			// summary was deleted. Rebuild.
		}
	}

	id := pinned
	if id == "" {
		if existing != nil {
			id = existing.ID
		} else {
			id = utils.NewID()
		}
	}
	doc := &types.Document{
		ID:          id,
		Path:        rel,
		Content:     content,
		ContentHash: hash,
		Category:    category,
	}
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		return fmt.Errorf("upsert %s: %w", rel, err)
	}
	return p.builder.Build(ctx, id, "")
}

// HandleReview applies a human edit to a review companion file.
func (p *Processor) HandleReview(ctx context.Context, absPath string) error {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read review %s: %w", absPath, err)
	}
	content := string(raw)
	if p.coord.IsSystemWrite(absPath, utils.RawHash(content)) {
		return nil
	}

	meta, body := frontmatter.Parse(content)
	id := frontmatter.GetString(meta, "review_id")
	if id == "" {
		return fmt.Errorf("review %s: missing review_id", absPath)
	}
	summaryID := frontmatter.GetString(meta, "l1_id")
	insightID := frontmatter.GetString(meta, "l2_id")
	if (summaryID == "") == (insightID == "") {
		return fmt.Errorf("review %s: exactly one of l1_id/l2_id required", absPath)
	}
	rating, err := parseRating(frontmatter.GetString(meta, "rating"))
	if err != nil {
		return fmt.Errorf("review %s: %w", absPath, err)
	}
	decision, err := parseDecision(frontmatter.GetString(meta, "decision"))
	if err != nil {
		return fmt.Errorf("review %s: %w", absPath, err)
	}
	notes := extractNotes(body)

	review := &types.Review{
		ID:        id,
		SummaryID: summaryID,
		InsightID: insightID,
		Rating:    rating,
		Decision:  decision,
		Issues:    frontmatter.GetStringList(meta, "issues"),
		Notes:     notes,
	}
	if err := p.store.UpsertReview(ctx, review); err != nil {
		return fmt.Errorf("save review %s: %w", id, err)
	}

	switch decision {
	case types.DecisionRebuild:
		if summaryID == "" {
			p.log.Logf("review %s: rebuild on insight review ignored", id)
			return nil
		}
		sv, err := p.store.SummaryByID(ctx, summaryID)
		if err != nil {
			return fmt.Errorf("review %s: summary %s: %w", id, summaryID, err)
		}
		p.enqueue("rebuild "+sv.SourceID, func(ctx context.Context) error {
			return p.builder.Build(ctx, sv.SourceID, notes)
		})
	case types.DecisionDiscard:
		if err := p.store.DeleteReview(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	return nil
}

// HandleShadow applies a human edit to a generated L1 file: the active
// summary's content is replaced in place (no version bump) and re-embedded.
func (p *Processor) HandleShadow(ctx context.Context, absPath string) error {
	raw, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read shadow %s: %w", absPath, err)
	}
	content := string(raw)
	hash := utils.RawHash(content)
	if p.coord.IsSystemWrite(absPath, hash) {
		return nil
	}
	p.mu.Lock()
	seen := p.lastShadow[absPath] == hash
	p.mu.Unlock()
	if seen {
		return nil
	}

	meta, body := frontmatter.Parse(content)
	summaryID := frontmatter.GetString(meta, "summary_id")
	if summaryID == "" {
		return fmt.Errorf("shadow %s: missing summary_id", absPath)
	}
	edited := strings.TrimSpace(stripSourceFooter(body))
	if edited == "" {
		return fmt.Errorf("shadow %s: empty body", absPath)
	}

	if err := p.store.UpdateSummaryContent(ctx, summaryID, edited); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			p.log.Logf("shadow edit for %s ignored: summary not active", summaryID)
			return nil
		}
		return err
	}
	if vec, err := p.embed.Embed(ctx, edited); err != nil {
		p.log.Logf("re-embed %s: %v", summaryID, err)
	} else if err := p.store.ReplaceEmbedding(ctx, summaryID, vec); err != nil {
		p.log.Logf("store embedding %s: %v", summaryID, err)
	}

	p.mu.Lock()
	p.lastShadow[absPath] = hash
	p.mu.Unlock()
	p.log.Logf("applied shadow edit to summary %s", summaryID)
	return nil
}

func (p *Processor) enqueue(name string, run func(ctx context.Context) error) {
	if p.queue == nil || !p.queue.Enqueue(queue.Task{Name: name, Run: run}) {
		p.log.Logf("could not enqueue %s", name)
	}
}

func isDraft(meta map[string]any) bool {
	if frontmatter.GetBool(meta, "draft") {
		return true
	}
	return strings.EqualFold(frontmatter.GetString(meta, "status"), "draft")
}

func parseRating(s string) (types.Rating, error) {
	switch r := types.Rating(strings.ToUpper(strings.TrimSpace(s))); r {
	case "":
		return types.RatingPending, nil
	case types.RatingPending, types.RatingGood, types.RatingOK, types.RatingBad:
		return r, nil
	default:
		return "", fmt.Errorf("unknown rating %q", s)
	}
}

func parseDecision(s string) (types.Decision, error) {
	switch d := types.Decision(strings.ToUpper(strings.TrimSpace(s))); d {
	case "":
		return types.DecisionPending, nil
	case types.DecisionPending, types.DecisionAccept, types.DecisionRebuild, types.DecisionDiscard:
		return d, nil
	default:
		return "", fmt.Errorf("unknown decision %q", s)
	}
}

// extractNotes returns the human-written part of a review body: everything
// that is not the template instruction line or the quoted original.
func extractNotes(body string) string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if strings.HasPrefix(trimmed, "Edit rating and decision above") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// stripSourceFooter removes the trailing "---\nSource: [[...]]" block the
// builder appends to shadow files.
func stripSourceFooter(body string) string {
	idx := strings.LastIndex(body, "\n---\n")
	if idx < 0 {
		return body
	}
	if strings.HasPrefix(strings.TrimSpace(body[idx+len("\n---\n"):]), "Source:") {
		return body[:idx]
	}
	return body
}
