package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// OllamaClient talks to a local Ollama server for generation and embeddings.
// Host resolution follows OLLAMA_HOST, defaulting to localhost:11434.
type OllamaClient struct {
	client         *api.Client
	embeddingModel string
}

func NewOllamaClient(embeddingModel string) (*OllamaClient, error) {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}
	return &OllamaClient{
		client:         client,
		embeddingModel: embeddingModel,
	}, nil
}

// Available checks if Ollama is running and reachable.
func (o *OllamaClient) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := o.client.List(ctx)
	return err == nil
}

func (o *OllamaClient) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	messages := []api.Message{}
	if req.System != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, api.Message{Role: "user", Content: req.User})

	stream := false
	chatReq := &api.ChatRequest{
		Model:    req.Config.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Config.Temperature,
			"num_predict": req.Config.MaxTokens,
		},
	}

	var out strings.Builder
	err := o.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		out.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generation failed: %w", err)
	}
	return out.String(), nil
}

// Embed returns the embedding vector for text using the configured
// embedding model.
func (o *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.Embed(ctx, &api.EmbedRequest{
		Model: o.embeddingModel,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("ollama embedding failed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama returned no embedding")
	}
	return resp.Embeddings[0], nil
}
