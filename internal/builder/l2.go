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

// L2Builder synthesizes insights from clusters of related summaries.
type L2Builder struct {
	store   storage.Store
	coord   *coordinator.Coordinator
	prompts *prompt.Resolver
	gen     llm.Generator
	embed   llm.Embedder
	paths   *vaultpath.Paths
	log     logging.Logger
}

func NewL2Builder(store storage.Store, coord *coordinator.Coordinator, prompts *prompt.Resolver,
	gen llm.Generator, embed llm.Embedder, paths *vaultpath.Paths, log logging.Logger) *L2Builder {
	if log == nil {
		log = logging.Nop()
	}
	return &L2Builder{store: store, coord: coord, prompts: prompts,
		gen: gen, embed: embed, paths: paths, log: log}
}

// BuildFromCluster synthesizes one insight from the given member summaries.
// Member order determines source numbering in the prompt.
func (b *L2Builder) BuildFromCluster(ctx context.Context, memberIDs []string) (*types.Insight, error) {
	if len(memberIDs) < 2 {
		return nil, fmt.Errorf("cluster needs at least 2 members, got %d", len(memberIDs))
	}

	contexts, err := b.store.SummaryContexts(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(contexts) != len(memberIDs) {
		return nil, fmt.Errorf("cluster references missing summaries: want %d, found %d",
			len(memberIDs), len(contexts))
	}

	category := majorityCategory(contexts)
	p, err := b.prompts.ForInsight(category)
	if err != nil {
		return nil, fmt.Errorf("resolve insight prompt: %w", err)
	}
	if err := b.store.EnsurePromptVersion(ctx, &types.PromptVersion{
		ID: p.ID, Name: p.Name, Content: p.Content, Model: p.Config,
	}); err != nil {
		return nil, err
	}

	response, err := b.gen.Generate(ctx, llm.GenerateRequest{
		System: p.Content,
		User:   assembleContext(contexts),
		Config: p.Config,
	})
	if err != nil {
		return nil, fmt.Errorf("generate insight: %w", err)
	}

	title, body := splitTitle(strings.TrimSpace(response))
	ins := &types.Insight{
		ID:       utils.NewID(),
		Title:    title,
		Content:  body,
		Category: category,
		Model:    p.Config,
		PromptID: p.ID,
	}
	if err := b.store.SaveInsight(ctx, ins, memberIDs); err != nil {
		return nil, fmt.Errorf("save insight: %w", err)
	}

	if vec, err := b.embed.Embed(ctx, body); err != nil {
		b.log.Logf("embed insight %s: %v", ins.ID, err)
	} else if err := b.store.ReplaceEmbedding(ctx, ins.ID, vec); err != nil {
		b.log.Logf("store insight embedding %s: %v", ins.ID, err)
	}

	if err := b.writeInsight(ins, contexts, p); err != nil {
		return nil, err
	}
	b.log.Logf("built insight %q from %d summaries", ins.Title, len(memberIDs))
	return ins, nil
}

// assembleContext numbers each member summary with its source path so the
// model can attribute claims.
func assembleContext(contexts []types.SummaryContext) string {
	var sb strings.Builder
	for i, sc := range contexts {
		fmt.Fprintf(&sb, "--- Source %d: %s ---\n%s\n\n", i+1, sc.Path, sc.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// splitTitle finds the "Title:" line the insight prompt asks for, tolerating
// markdown emphasis around it. Without one the whole response becomes the
// body under a placeholder title.
func splitTitle(response string) (string, string) {
	lines := strings.Split(response, "\n")
	for i, line := range lines {
		clean := strings.TrimSpace(strings.NewReplacer("*", "", "#", "").Replace(line))
		if len(clean) < 6 || !strings.EqualFold(clean[:6], "title:") {
			continue
		}
		title := strings.TrimSpace(clean[6:])
		if title == "" {
			continue
		}
		body := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
		if body == "" {
			body = response
		}
		return title, body
	}
	return "Untitled Insight", response
}

// majorityCategory picks the category at least half the members share, or
// "General" when no category dominates.
func majorityCategory(contexts []types.SummaryContext) string {
	counts := make(map[string]int)
	order := []string{}
	for _, sc := range contexts {
		if counts[sc.Category] == 0 {
			order = append(order, sc.Category)
		}
		counts[sc.Category]++
	}
	for _, cat := range order {
		if counts[cat]*2 >= len(contexts) {
			return cat
		}
	}
	return "General"
}

type l2Header struct {
	InsightID string   `yaml:"insight_id"`
	Category  string   `yaml:"category"`
	Prompt    string   `yaml:"prompt"`
	PromptID  string   `yaml:"prompt_id"`
	Sources   []string `yaml:"sources"`
	CreatedAt string   `yaml:"created_at"`
}

func (b *L2Builder) writeInsight(ins *types.Insight, contexts []types.SummaryContext, p *prompt.Prompt) error {
	sources := make([]string, len(contexts))
	for i, sc := range contexts {
		sources[i] = sc.Path
	}
	header := l2Header{
		InsightID: ins.ID,
		Category:  ins.Category,
		Prompt:    p.Name,
		PromptID:  p.ID,
		Sources:   sources,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	var body strings.Builder
	body.WriteString("# " + ins.Title + "\n\n")
	body.WriteString(ins.Content)
	body.WriteString("\n\n---\n")
	for _, sc := range contexts {
		body.WriteString("- [[" + strings.TrimSuffix(sc.Path, ".md") + "]]\n")
	}

	content, err := frontmatter.Render(header, body.String())
	if err != nil {
		return err
	}
	path := b.paths.L2Path(ins.Category, ins.Title)
	if err := b.writeFile(path, content); err != nil {
		return err
	}
	return b.writeReviewTemplate(path, ins)
}

func (b *L2Builder) writeReviewTemplate(insightPath string, ins *types.Insight) error {
	header := reviewHeader{
		ReviewID:  utils.NewID(),
		L2ID:      ins.ID,
		Rating:    string(types.RatingPending),
		Decision:  string(types.DecisionPending),
		Issues:    []string{},
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	body := "Edit rating and decision above, add notes below, then save.\n\n" +
		frontmatter.Quote(ins.Content)
	content, err := frontmatter.Render(header, body)
	if err != nil {
		return err
	}
	return b.writeFile(vaultpath.ReviewPath(insightPath), content)
}

func (b *L2Builder) writeFile(path, content string) error {
	return writeVaultFile(b.coord, path, content)
}
