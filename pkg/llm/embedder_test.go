package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipe/pkg/retry"
)

func TestNewEmbedderWithConfig_Defaults(t *testing.T) {
	e, err := NewEmbedderWithConfig(EmbedderConfig{})
	require.NoError(t, err)

	assert.Equal(t, "nomic-embed-text:latest", e.config.Model)
	assert.Equal(t, "http://localhost:11434", e.config.BaseURL)
}

func TestEmbedTexts_BackendDown(t *testing.T) {
	// No server listens here. The call must fail after exhausting its
	// retry budget rather than hanging.
	e, err := NewEmbedderWithConfig(EmbedderConfig{
		BaseURL: "http://127.0.0.1:1",
		Retry:   retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = e.EmbedTexts(ctx, []string{"some text"})
	assert.Error(t, err)
}
