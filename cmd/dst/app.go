package main

import (
	"context"
	"fmt"

	"github.com/untoldecay/Distillery/internal/builder"
	"github.com/untoldecay/Distillery/internal/cluster"
	"github.com/untoldecay/Distillery/internal/config"
	"github.com/untoldecay/Distillery/internal/coordinator"
	"github.com/untoldecay/Distillery/internal/deleter"
	"github.com/untoldecay/Distillery/internal/llm"
	"github.com/untoldecay/Distillery/internal/logging"
	"github.com/untoldecay/Distillery/internal/prompt"
	"github.com/untoldecay/Distillery/internal/queue"
	"github.com/untoldecay/Distillery/internal/search"
	"github.com/untoldecay/Distillery/internal/storage/sqlite"
	"github.com/untoldecay/Distillery/internal/types"
	"github.com/untoldecay/Distillery/internal/vaultpath"
	"github.com/untoldecay/Distillery/internal/watch"
)

// app wires the pipeline together from configuration. Commands build one,
// use the pieces they need, and Close it.
type app struct {
	store   *sqlite.SQLiteStorage
	coord   *coordinator.Coordinator
	queue   *queue.Queue
	paths   *vaultpath.Paths
	l1      *builder.L1Builder
	l2      *builder.L2Builder
	deleter *deleter.Deleter
	sweeper *cluster.Sweeper
	proc    *watch.Processor
	log     logging.Logger
}

func newApp(ctx context.Context, log logging.Logger) (*app, error) {
	if log == nil {
		log = logging.Nop()
	}
	store, err := sqlite.New(ctx, config.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	coord := coordinator.New()
	paths := vaultpath.New(config.ShadowDir())
	resolver := prompt.NewResolver(config.PromptsDir(), defaultModelConfig())

	router := &llm.Router{}
	var embed llm.Embedder = unavailableEmbedder{}
	if ac, err := llm.NewAnthropicClient(config.GetString("anthropic-api-key")); err != nil {
		log.Logf("anthropic generator unavailable: %v", err)
	} else {
		router.Anthropic = ac
	}
	if oc, err := llm.NewOllamaClient(config.GetString("embedding.model")); err != nil {
		log.Logf("ollama unavailable: %v", err)
	} else {
		router.Ollama = oc
		embed = oc
	}

	q := queue.New(config.GetInt("queue-size"), log)
	l1 := builder.NewL1Builder(store, coord, resolver, router, embed, paths, log)
	l2 := builder.NewL2Builder(store, coord, resolver, router, embed, paths, log)
	del := deleter.New(store, paths, log)

	sweeper := cluster.NewSweeper(store, search.New(store), l2, log)
	if t := config.GetFloat64("cluster.threshold"); t > 0 {
		sweeper.Threshold = t
	}
	if l := config.GetInt("cluster.limit"); l > 0 {
		sweeper.Limit = l
	}
	if m := config.GetInt("cluster.min-neighbors"); m > 0 {
		sweeper.MinNeighbors = m
	}

	proc := watch.NewProcessor(store, coord, l1, del, embed, q, config.SourcesDir(), log)

	return &app{
		store:   store,
		coord:   coord,
		queue:   q,
		paths:   paths,
		l1:      l1,
		l2:      l2,
		deleter: del,
		sweeper: sweeper,
		proc:    proc,
		log:     log,
	}, nil
}

func (a *app) Close() {
	a.queue.Close()
	if err := a.store.Close(); err != nil {
		a.log.Logf("close store: %v", err)
	}
}

func defaultModelConfig() types.ModelConfig {
	return types.ModelConfig{
		Provider:    config.GetString("llm.provider"),
		Model:       config.GetString("llm.model"),
		Temperature: config.GetFloat64("llm.temperature"),
		MaxTokens:   config.GetInt("llm.max-tokens"),
	}
}

// unavailableEmbedder stands in when no Ollama host is reachable. Builders
// treat embedding failures as non-fatal, so summaries still build; they just
// stay out of clustering until embeddings come back.
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("no embedding provider configured")
}
