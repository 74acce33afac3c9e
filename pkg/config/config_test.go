package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
blob:
  endpoint: "https://acct.blob.core.windows.net"
  container: "docs"
  sas_token: "sv=2024&sig=abc"
  rate_limit: 2.5

docintel:
  endpoint: "https://westeurope.api.cognitive.microsoft.com"
  api_key: "secret"

llm:
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5

store:
  type: "pgvector"
  url: "postgres://localhost:5432/test"
  table_name: "test_chunks"
  vector_dim: 768
  batch_size: 50

processor:
  chunk_size: 500
  chunk_overlap: 100

server:
  port: "9090"
  top_k: 3
`
	require.NoError(t, os.WriteFile(configPath, []byte(configData), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://acct.blob.core.windows.net", config.Blob.Endpoint)
	assert.Equal(t, "docs", config.Blob.Container)
	assert.Equal(t, 2.5, config.Blob.RateLimit)
	assert.Equal(t, "secret", config.DocIntel.APIKey)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, 1000, config.LLM.MaxTokens)
	assert.Equal(t, "pgvector", config.Store.Type)
	assert.Equal(t, "test_chunks", config.Store.TableName)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 100, config.Processor.ChunkOverlap)
	assert.Equal(t, "9090", config.Server.Port)
	assert.Equal(t, 3, config.Server.TopK)
}

func TestLoadConfig_Defaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("blob:\n  endpoint: \"https://x\"\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "documents", config.Blob.Container)
	assert.Equal(t, "mistral", config.LLM.Model)
	assert.Equal(t, "nomic-embed-text:latest", config.LLM.EmbedModel)
	assert.Equal(t, 2000, config.LLM.MaxTokens)
	assert.Equal(t, "memory", config.Store.Type)
	assert.Equal(t, 1000, config.Processor.ChunkSize)
	assert.Equal(t, 200, config.Processor.ChunkOverlap)
	assert.Equal(t, 5, config.Retry.MaxAttempts)
	assert.Equal(t, "8080", config.Server.Port)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("blob:\n  container: \"from-file\"\n"), 0644))

	t.Setenv("BLOB_ENDPOINT", "https://env.blob.core.windows.net")
	t.Setenv("BLOB_CONTAINER", "from-env")
	t.Setenv("BLOB_SAS_TOKEN", "sv=env")
	t.Setenv("DATABASE_URL", "postgres://env:5432/rag")
	t.Setenv("PORT", "7070")

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "https://env.blob.core.windows.net", config.Blob.Endpoint)
	assert.Equal(t, "from-env", config.Blob.Container)
	assert.Equal(t, "sv=env", config.Blob.SASToken)
	assert.Equal(t, "postgres://env:5432/rag", config.Store.URL)
	assert.Equal(t, "7070", config.Server.Port)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("blob: [unclosed"), 0644))

	_, err := LoadConfig(configPath)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.Blob.Endpoint = "https://acct.blob.core.windows.net"
	config.Blob.SASToken = "sv=2024"

	assert.Empty(t, config.Validate())
}

func TestValidate_MissingBlob(t *testing.T) {
	config := &Config{}
	applyDefaults(config)

	errs := config.Validate()
	require.NotEmpty(t, errs)

	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "blob.endpoint")
	assert.Contains(t, fields, "blob.sas_token")
}

func TestValidate_PgvectorNeedsURL(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.Blob.Endpoint = "https://x"
	config.Blob.SASToken = "sv=1"
	config.Store.Type = "pgvector"
	config.Store.URL = ""

	errs := config.Validate()
	require.NotEmpty(t, errs)
	assert.Equal(t, "store.url", errs[0].Field)
}

func TestValidate_OverlapBound(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.Blob.Endpoint = "https://x"
	config.Blob.SASToken = "sv=1"
	config.Processor.ChunkSize = 100
	config.Processor.ChunkOverlap = 100

	errs := config.Validate()
	require.NotEmpty(t, errs)
	assert.Equal(t, "processor.chunk_overlap", errs[0].Field)
}

func TestValidate_LLMBounds(t *testing.T) {
	config := &Config{}
	applyDefaults(config)
	config.Blob.Endpoint = "https://x"
	config.Blob.SASToken = "sv=1"
	config.LLM.Temperature = 3.0
	config.LLM.MaxTokens = 5000

	errs := config.Validate()
	assert.Len(t, errs, 2)
}
