// Package llm abstracts the two model collaborators the pipeline needs:
// text generation for summaries and insights, and embeddings for similarity
// search. Generation can run against Anthropic or a local Ollama; embeddings
// always come from Ollama.
package llm

import (
	"context"
	"fmt"

	"github.com/untoldecay/Distillery/internal/types"
)

// GenerateRequest carries one generation call: an optional system prompt,
// the user content, and the model parameters from the resolved prompt file.
type GenerateRequest struct {
	System string
	User   string
	Config types.ModelConfig
}

// Generator produces text from a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Embedder produces an embedding vector for a text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Router dispatches generation to the provider named in the request config.
// An unconfigured provider is an error at call time, not at startup, so a
// vault using only Ollama never needs an Anthropic key.
type Router struct {
	Anthropic Generator
	Ollama    Generator
}

func (r *Router) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	switch req.Config.Provider {
	case "", "anthropic":
		if r.Anthropic == nil {
			return "", fmt.Errorf("anthropic provider requested but not configured: %w", ErrAPIKeyRequired)
		}
		return r.Anthropic.Generate(ctx, req)
	case "ollama":
		if r.Ollama == nil {
			return "", fmt.Errorf("ollama provider requested but not configured")
		}
		return r.Ollama.Generate(ctx, req)
	default:
		return "", fmt.Errorf("unknown provider %q", req.Config.Provider)
	}
}
