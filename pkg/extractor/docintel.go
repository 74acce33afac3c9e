package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ragpipe/pkg/errs"
	"ragpipe/pkg/retry"
)

const analyzePath = "/formrecognizer/documentModels/prebuilt-read:analyze?api-version=2023-07-31"

type DocIntelConfig struct {
	Endpoint     string
	APIKey       string
	PollInterval time.Duration
	Timeout      time.Duration
	Retry        retry.Policy
}

// DocIntelClient submits document bytes to a managed document
// intelligence service and polls the returned operation until the
// extracted text is ready.
type DocIntelClient struct {
	config DocIntelConfig
	client *http.Client
}

func NewDocIntelClient(config DocIntelConfig) (*DocIntelClient, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("docintel: %w: endpoint not set", errs.ErrConfigurationMissing)
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("docintel: %w: API key not set", errs.ErrConfigurationMissing)
	}
	if config.PollInterval == 0 {
		config.PollInterval = time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &DocIntelClient{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

type analyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Content string `json:"content"`
	} `json:"analyzeResult"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Analyze runs one document through the service and returns its text.
func (c *DocIntelClient) Analyze(ctx context.Context, content []byte) (string, error) {
	var operationURL string
	err := c.config.Retry.Do(ctx, "docintel submit", func() error {
		loc, err := c.submit(ctx, content)
		if err != nil {
			return err
		}
		operationURL = loc
		return nil
	})
	if err != nil {
		return "", err
	}

	for {
		result, err := c.poll(ctx, operationURL)
		if err != nil {
			return "", err
		}

		switch result.Status {
		case "succeeded":
			return cleanText(result.AnalyzeResult.Content), nil
		case "failed":
			return "", errs.ExtractionFailed("docintel",
				fmt.Errorf("analysis failed: %s", result.Error.Message))
		}

		select {
		case <-time.After(c.config.PollInterval):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func (c *DocIntelClient) submit(ctx context.Context, content []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.Endpoint+analyzePath, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errs.TransientDependency("docintel", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", errs.FromStatus("docintel", resp.StatusCode)
	}

	location := resp.Header.Get("Operation-Location")
	if location == "" {
		return "", errs.DependencyUnavailable("docintel",
			fmt.Errorf("missing Operation-Location header"))
	}
	return location, nil
}

func (c *DocIntelClient) poll(ctx context.Context, operationURL string) (*analyzeResult, error) {
	var result analyzeResult
	err := c.config.Retry.Do(ctx, "docintel poll", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.config.APIKey)

		resp, err := c.client.Do(req)
		if err != nil {
			return errs.TransientDependency("docintel", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errs.FromStatus("docintel", resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return errs.TransientDependency("docintel", err)
		}
		return json.Unmarshal(body, &result)
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
