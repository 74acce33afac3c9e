package extractor_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragpipe/pkg/errs"
	"ragpipe/pkg/extractor"
	"ragpipe/pkg/retry"
)

func docintelServer(t *testing.T, pollsUntilDone int32, finalStatus string) *httptest.Server {
	t.Helper()
	var polls atomic.Int32
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "test-key", r.Header.Get("Ocp-Apim-Subscription-Key"))
			assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
			w.Header().Set("Operation-Location", srv.URL+"/operations/op-1")
			w.WriteHeader(http.StatusAccepted)
		case http.MethodGet:
			resp := map[string]interface{}{"status": "running"}
			if polls.Add(1) >= pollsUntilDone {
				resp["status"] = finalStatus
				if finalStatus == "succeeded" {
					resp["analyzeResult"] = map[string]string{"content": "Extracted   document\n\ntext."}
				} else {
					resp["error"] = map[string]string{"message": "unreadable scan"}
				}
			}
			json.NewEncoder(w).Encode(resp)
		}
	}))
	return srv
}

func newDocIntel(t *testing.T, endpoint string) *extractor.DocIntelClient {
	t.Helper()
	client, err := extractor.NewDocIntelClient(extractor.DocIntelConfig{
		Endpoint:     endpoint,
		APIKey:       "test-key",
		PollInterval: time.Millisecond,
		Retry:        retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond},
	})
	require.NoError(t, err)
	return client
}

func TestAnalyze_PollsUntilSucceeded(t *testing.T) {
	srv := docintelServer(t, 3, "succeeded")
	defer srv.Close()

	text, err := newDocIntel(t, srv.URL).Analyze(context.Background(), []byte("raw bytes"))
	require.NoError(t, err)
	assert.Equal(t, "Extracted document text.", text)
}

func TestAnalyze_Failed(t *testing.T) {
	srv := docintelServer(t, 1, "failed")
	defer srv.Close()

	_, err := newDocIntel(t, srv.URL).Analyze(context.Background(), []byte("raw bytes"))
	assert.ErrorIs(t, err, errs.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "unreadable scan")
}

func TestAnalyze_SubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newDocIntel(t, srv.URL).Analyze(context.Background(), []byte("raw bytes"))
	assert.ErrorIs(t, err, errs.ErrDependencyUnavailable)
}

func TestAnalyze_ContextCancelledDuringPoll(t *testing.T) {
	srv := docintelServer(t, 1000, "succeeded")
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := newDocIntel(t, srv.URL).Analyze(ctx, []byte("raw bytes"))
	assert.Error(t, err)
}

func TestNewDocIntelClient_MissingKey(t *testing.T) {
	_, err := extractor.NewDocIntelClient(extractor.DocIntelConfig{
		Endpoint: "https://region.api.cognitive.microsoft.com",
	})
	assert.ErrorIs(t, err, errs.ErrConfigurationMissing)
}
