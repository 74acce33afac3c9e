package config

import (
	"fmt"
	"net/url"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate reports every missing credential or inconsistent setting.
// A non-empty result is fatal at startup.
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	if c.Blob.Endpoint == "" {
		errors = append(errors, ValidationError{
			Field:   "blob.endpoint",
			Message: "blob store endpoint is required",
		})
	} else if _, err := url.Parse(c.Blob.Endpoint); err != nil {
		errors = append(errors, ValidationError{
			Field:   "blob.endpoint",
			Message: "invalid blob store endpoint",
		})
	}

	if c.Blob.Container == "" {
		errors = append(errors, ValidationError{
			Field:   "blob.container",
			Message: "blob container name is required",
		})
	}

	if c.Blob.SASToken == "" {
		errors = append(errors, ValidationError{
			Field:   "blob.sas_token",
			Message: "blob store credential is required",
		})
	}

	if c.DocIntel.Endpoint != "" && c.DocIntel.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "docintel.api_key",
			Message: "document intelligence API key is required when an endpoint is set",
		})
	}

	if c.LLM.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "LLM base URL is required",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "llm.temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	switch c.Store.Type {
	case "memory":
	case "pgvector":
		if c.Store.URL == "" {
			errors = append(errors, ValidationError{
				Field:   "store.url",
				Message: "database URL is required for the pgvector store",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "store.type",
			Message: fmt.Sprintf("unknown store type: %s", c.Store.Type),
		})
	}

	if c.Store.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "store.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Store.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "store.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if c.Processor.ChunkOverlap < 0 || c.Processor.ChunkOverlap >= c.Processor.ChunkSize {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	if c.Retry.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "retry.max_attempts",
			Message: "max_attempts must be positive",
		})
	}

	return errors
}
