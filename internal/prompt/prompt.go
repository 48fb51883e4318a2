// Package prompt resolves which prompt file governs a build. Prompts live in
// the vault as markdown files with YAML frontmatter carrying model
// parameters; a prompt_config.md maps category paths to prompt files, most
// specific path first.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/untoldecay/Distillery/internal/frontmatter"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/utils"
)

const (
	configFile     = "prompt_config.md"
	fallbackFile   = "prompt.md"
	fallbackL2File = "l2_prompt.md"
)

// builtinSummaryPrompt keeps the pipeline working in a vault with no prompt
// configuration at all.
const builtinSummaryPrompt = `Summarize the following note in markdown.
Start with a short paragraph capturing the core idea, then list the key
points as bullets. End with a "keywords:" line of comma-separated tags.`

const builtinInsightPrompt = `You are given several related note summaries.
Synthesize them into a single insight in markdown. The first line must be
"Title: <a short descriptive title>". Then explain the common theme, the
tensions between sources, and what follows from reading them together.`

// Prompt is a resolved prompt: its text, the model parameters from its
// frontmatter, and the content-derived version ID builds record.
type Prompt struct {
	ID      string
	Name    string // path relative to the prompts dir, or "builtin"
	Content string
	Config  types.ModelConfig
}

// Resolver loads prompts from the vault's prompt directory. Files are read
// on every resolution so prompt edits take effect without a restart.
type Resolver struct {
	dir      string
	defaults types.ModelConfig
}

func NewResolver(dir string, defaults types.ModelConfig) *Resolver {
	return &Resolver{dir: dir, defaults: defaults}
}

// ForSource resolves the summary prompt for a source's directory chain.
// Lookup order: the full chain joined with "/", then each shorter prefix,
// then the "default" mapping, then prompt.md, then the builtin.
func (r *Resolver) ForSource(segments []string) (*Prompt, error) {
	mappings := r.loadMappings()
	for i := len(segments); i > 0; i-- {
		key := strings.ToLower(strings.Join(segments[:i], "/"))
		if file, ok := mappings[key]; ok {
			if p, err := r.load(file); err == nil {
				return p, nil
			}
		}
	}
	return r.fallback(mappings, "default", fallbackFile, builtinSummaryPrompt)
}

// ForInsight resolves the synthesis prompt for a category. Lookup order:
// "l2/<category>", "l2", l2_prompt.md, then the builtin.
func (r *Resolver) ForInsight(category string) (*Prompt, error) {
	mappings := r.loadMappings()
	if file, ok := mappings["l2/"+strings.ToLower(category)]; ok {
		if p, err := r.load(file); err == nil {
			return p, nil
		}
	}
	return r.fallback(mappings, "l2", fallbackL2File, builtinInsightPrompt)
}

func (r *Resolver) fallback(mappings map[string]string, defaultKey, defaultFile, builtin string) (*Prompt, error) {
	if file, ok := mappings[defaultKey]; ok {
		if p, err := r.load(file); err == nil {
			return p, nil
		}
	}
	if p, err := r.load(defaultFile); err == nil {
		return p, nil
	}
	cfg := r.defaults
	return &Prompt{
		ID:      utils.PromptID(builtin, cfg),
		Name:    "builtin",
		Content: builtin,
		Config:  cfg,
	}, nil
}

// loadMappings reads prompt_config.md. Mapping keys are category paths,
// values are prompt filenames. A missing or malformed config simply means
// no mappings.
func (r *Resolver) loadMappings() map[string]string {
	raw, err := os.ReadFile(filepath.Join(r.dir, configFile))
	if err != nil {
		return nil
	}
	meta, _ := frontmatter.Parse(string(raw))
	section := frontmatter.GetMap(meta, "mappings")
	if section == nil {
		section = meta
	}
	out := make(map[string]string, len(section))
	for k, v := range section {
		if file, ok := v.(string); ok && file != "" {
			out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(file)
		}
	}
	return out
}

// load reads one prompt file and parses its model configuration.
func (r *Resolver) load(name string) (*Prompt, error) {
	path := filepath.Join(r.dir, filepath.FromSlash(name))
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt %s: %w", name, err)
	}
	meta, body := frontmatter.Parse(string(raw))
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("prompt %s is empty", name)
	}
	cfg := r.parseModelConfig(meta)
	return &Prompt{
		ID:      utils.PromptID(body, cfg),
		Name:    filepath.ToSlash(name),
		Content: body,
		Config:  cfg,
	}, nil
}

// parseModelConfig reads model parameters from prompt frontmatter. Both the
// flat form (model/provider/temperature/max_tokens at top level) and the
// nested form (under a "model:" mapping) are accepted; hand-written configs
// use both.
func (r *Resolver) parseModelConfig(meta map[string]any) types.ModelConfig {
	cfg := r.defaults
	apply := func(m map[string]any) {
		if s := frontmatter.GetString(m, "provider"); s != "" {
			cfg.Provider = s
		}
		if s, ok := m["model"].(string); ok && strings.TrimSpace(s) != "" {
			cfg.Model = strings.TrimSpace(s)
		}
		if v, ok := floatField(m, "temperature"); ok {
			cfg.Temperature = v
		}
		if v, ok := floatField(m, "max_tokens"); ok {
			cfg.MaxTokens = int(v)
		}
	}
	apply(meta)
	if nested := frontmatter.GetMap(meta, "model"); nested != nil {
		apply(nested)
	}
	return cfg
}

func floatField(meta map[string]any, key string) (float64, bool) {
	switch v := meta[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
