package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"

	"ragpipe/pkg/errs"
	"ragpipe/pkg/retry"
)

type EmbedderConfig struct {
	Model   string
	BaseURL string // Ollama server URL
	Retry   retry.Policy
}

// Embedder produces fixed-dimension vectors through one consistently
// configured model. Ingestion and query embedding must share an
// instance so the vectors live in the same space.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	emb, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config: config,
		llm:    emb,
	}, nil
}

// EmbedTexts embeds a batch of chunk texts. Backend failures are
// treated as transient and retried under the configured policy.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := e.config.Retry.Do(ctx, "embed", func() error {
		out, err := e.llm.CreateEmbedding(ctx, texts)
		if err != nil {
			return errs.TransientDependency("embedding backend", err)
		}
		vectors = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, errs.DependencyUnavailable("embedding backend",
			fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)))
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
