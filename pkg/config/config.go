package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Blob struct {
		Endpoint  string `yaml:"endpoint"`
		Container string `yaml:"container"`
		SASToken  string `yaml:"sas_token"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"blob"`

	DocIntel struct {
		Endpoint     string `yaml:"endpoint"`
		APIKey       string `yaml:"api_key"`
		PollInterval int    `yaml:"poll_interval_ms"`
	} `yaml:"docintel"`

	LLM struct {
		BaseURL       string  `yaml:"base_url"`
		Model         string  `yaml:"model"`
		EmbedModel    string  `yaml:"embed_model"`
		MaxTokens     int     `yaml:"max_tokens"`
		Temperature   float64 `yaml:"temperature"`
		ContextBudget int     `yaml:"context_budget"`
	} `yaml:"llm"`

	Store struct {
		Type      string `yaml:"type"` // "memory" or "pgvector"
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"store"`

	Processor struct {
		ChunkSize    int `yaml:"chunk_size"`
		ChunkOverlap int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	Retry struct {
		MaxAttempts int `yaml:"max_attempts"`
		BaseDelayMS int `yaml:"base_delay_ms"`
		MaxDelayMS  int `yaml:"max_delay_ms"`
	} `yaml:"retry"`

	Server struct {
		Port      string `yaml:"port"`
		TopK      int    `yaml:"top_k"`
		Streaming bool   `yaml:"streaming"`
	} `yaml:"server"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/ragpipe/config.yaml"),
			"/etc/ragpipe/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.Blob.Container == "" {
		config.Blob.Container = "documents"
	}
	if config.Blob.RateLimit == 0 {
		config.Blob.RateLimit = 4.0
	}

	if config.DocIntel.PollInterval == 0 {
		config.DocIntel.PollInterval = 1000
	}

	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.ContextBudget == 0 {
		config.LLM.ContextBudget = 8000
	}

	if config.Store.Type == "" {
		config.Store.Type = "memory"
	}
	if config.Store.TableName == "" {
		config.Store.TableName = "chunks"
	}
	if config.Store.VectorDim == 0 {
		config.Store.VectorDim = 768
	}
	if config.Store.BatchSize == 0 {
		config.Store.BatchSize = 100
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 1000
	}
	if config.Processor.ChunkOverlap == 0 {
		config.Processor.ChunkOverlap = 200
	}

	if config.Retry.MaxAttempts == 0 {
		config.Retry.MaxAttempts = 5
	}
	if config.Retry.BaseDelayMS == 0 {
		config.Retry.BaseDelayMS = 200
	}
	if config.Retry.MaxDelayMS == 0 {
		config.Retry.MaxDelayMS = 5000
	}

	if config.Server.Port == "" {
		config.Server.Port = "8080"
	}
	if config.Server.TopK == 0 {
		config.Server.TopK = 5
	}
}

func mergeWithEnv(config *Config) {
	if endpoint := os.Getenv("BLOB_ENDPOINT"); endpoint != "" {
		config.Blob.Endpoint = endpoint
	}
	if container := os.Getenv("BLOB_CONTAINER"); container != "" {
		config.Blob.Container = container
	}
	if sas := os.Getenv("BLOB_SAS_TOKEN"); sas != "" {
		config.Blob.SASToken = sas
	}
	if endpoint := os.Getenv("DOCINTEL_ENDPOINT"); endpoint != "" {
		config.DocIntel.Endpoint = endpoint
	}
	if key := os.Getenv("DOCINTEL_API_KEY"); key != "" {
		config.DocIntel.APIKey = key
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Port = port
	}
}
