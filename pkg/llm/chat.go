package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"ragpipe/internal/models"
	"ragpipe/pkg/errs"
	"ragpipe/pkg/retry"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model          string
	Temperature    float64
	MaxTokens      int
	SystemTemplate string
	// ContextBudget caps the combined length (in runes) of retrieved
	// chunks placed in the prompt. Lowest-ranked chunks are dropped
	// first when the budget is exceeded.
	ContextBudget int
	BaseURL       string // Ollama server URL
	Retry         retry.Policy
}

// ChatEngine turns a query plus retrieved chunks into a grounded answer.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are an assistant that answers questions based on the provided context. If the context does not contain the answer, say so."
	}
	if config.ContextBudget == 0 {
		config.ContextBudget = 8000
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Answer generates a response grounded in the retrieved chunks.
func (ce *ChatEngine) Answer(ctx context.Context, query string, results []models.SearchResult) (string, error) {
	content := ce.buildMessages(query, results)

	var answer string
	err := ce.config.Retry.Do(ctx, "generate", func() error {
		response, err := ce.llm.GenerateContent(ctx, content,
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithTemperature(ce.config.Temperature))
		if err != nil {
			return errs.TransientDependency("chat backend", err)
		}
		if len(response.Choices) == 0 {
			return errs.DependencyUnavailable("chat backend",
				fmt.Errorf("no choices in response"))
		}
		answer = strings.TrimSpace(response.Choices[0].Content)
		return nil
	})
	if err != nil {
		return "", err
	}
	return answer, nil
}

// AnswerStream generates a response and delivers it incrementally. The
// channel closes when the model finishes or the context is cancelled.
func (ce *ChatEngine) AnswerStream(ctx context.Context, query string, results []models.SearchResult) (<-chan string, error) {
	content := ce.buildMessages(query, results)
	out := make(chan string)

	go func() {
		defer close(out)

		_, err := ce.llm.GenerateContent(ctx, content,
			llms.WithMaxTokens(ce.config.MaxTokens),
			llms.WithTemperature(ce.config.Temperature),
			llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
				select {
				case out <- string(chunk):
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}))
		if err != nil {
			select {
			case out <- fmt.Sprintf("Error: %v", err):
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func (ce *ChatEngine) buildMessages(query string, results []models.SearchResult) []llms.MessageContent {
	prompt := fmt.Sprintf("Use the following context to answer the question.\nContext:\n%s\n\nQuestion:\n%s\n",
		ce.buildContext(results), query)

	return []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}
}

// buildContext concatenates chunk texts in rank order until the budget
// is reached. The first chunk is truncated rather than dropped so the
// prompt is never empty of context.
func (ce *ChatEngine) buildContext(results []models.SearchResult) string {
	budget := ce.config.ContextBudget
	var b strings.Builder

	used := 0
	for i, r := range results {
		entry := fmt.Sprintf("Source: %s\n%s\n\n", r.Chunk.Source, r.Chunk.Text)
		length := len([]rune(entry))

		if used+length > budget {
			if i == 0 {
				runes := []rune(entry)
				b.WriteString(string(runes[:budget]))
			}
			break
		}
		b.WriteString(entry)
		used += length
	}
	return strings.TrimRight(b.String(), "\n")
}
