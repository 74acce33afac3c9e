package blob

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ragpipe/internal/models"
	"ragpipe/pkg/errs"
	"ragpipe/pkg/retry"
)

type ClientConfig struct {
	Endpoint  string // e.g. https://myaccount.blob.core.windows.net
	Container string
	SASToken  string  // shared access signature, appended as query string
	RateLimit float64 // requests per second
	Timeout   time.Duration
	Retry     retry.Policy
}

// Client reads documents from an Azure-style blob container over its
// REST interface. It never writes; authentication is the SAS token
// supplied by the environment.
type Client struct {
	config  ClientConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("blob: %w: endpoint not set", errs.ErrConfigurationMissing)
	}
	if config.Container == "" {
		return nil, fmt.Errorf("blob: %w: container not set", errs.ErrConfigurationMissing)
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, fmt.Errorf("blob: invalid endpoint: %w", err)
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 4
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}, nil
}

type enumerationResults struct {
	Blobs struct {
		Blob []struct {
			Name string `xml:"Name"`
		} `xml:"Blob"`
	} `xml:"Blobs"`
}

// List returns the names of all blobs in the container.
func (c *Client) List(ctx context.Context) ([]string, error) {
	listURL := fmt.Sprintf("%s/%s?restype=container&comp=list",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.Container)
	if c.config.SASToken != "" {
		listURL += "&" + c.config.SASToken
	}

	var names []string
	err := c.config.Retry.Do(ctx, "blob list", func() error {
		body, err := c.get(ctx, listURL)
		if err != nil {
			return err
		}
		var results enumerationResults
		if err := xml.Unmarshal(body, &results); err != nil {
			return errs.DependencyUnavailable("blob list", err)
		}
		names = names[:0]
		for _, b := range results.Blobs.Blob {
			names = append(names, b.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Fetch downloads a single blob and wraps it as a Document.
func (c *Client) Fetch(ctx context.Context, name string) (models.Document, error) {
	blobURL := fmt.Sprintf("%s/%s/%s",
		strings.TrimRight(c.config.Endpoint, "/"), c.config.Container, name)
	if c.config.SASToken != "" {
		blobURL += "?" + c.config.SASToken
	}

	var content []byte
	err := c.config.Retry.Do(ctx, "blob fetch", func() error {
		body, err := c.get(ctx, blobURL)
		if err != nil {
			return err
		}
		content = body
		return nil
	})
	if err != nil {
		return models.Document{}, err
	}

	source := c.config.Container + "/" + name
	return models.Document{
		ID:      hashString(source),
		Source:  source,
		Name:    path.Base(name),
		Content: content,
		Metadata: map[string]interface{}{
			"container": c.config.Container,
			"fetched":   time.Now().UTC(),
		},
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errs.TransientDependency("blob store", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.FromStatus("blob store", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:8])
}
