package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"ragpipe/pkg/errs"
)

func TestKindMatching(t *testing.T) {
	err := errs.DependencyUnavailable("blob store", errors.New("connection refused"))

	assert.ErrorIs(t, err, errs.ErrDependencyUnavailable)
	assert.NotErrorIs(t, err, errs.ErrExtractionFailed)
	assert.Contains(t, err.Error(), "blob store")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindMatching_Wrapped(t *testing.T) {
	inner := errs.ExtractionFailed("docs/broken.xyz", errors.New("unsupported format"))
	outer := fmt.Errorf("ingest: %w", inner)

	assert.ErrorIs(t, outer, errs.ErrExtractionFailed)
}

func TestIsRetryable(t *testing.T) {
	transient := errs.TransientDependency("embedder", errors.New("timeout"))
	terminal := errs.DependencyUnavailable("embedder", errors.New("model not found"))

	assert.True(t, errs.IsRetryable(transient))
	assert.False(t, errs.IsRetryable(terminal))
	assert.False(t, errs.IsRetryable(errors.New("plain")))
	assert.False(t, errs.IsRetryable(nil))

	// A transient marker survives further wrapping
	assert.True(t, errs.IsRetryable(fmt.Errorf("outer: %w", transient)))
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
		{http.StatusServiceUnavailable, true},
		{http.StatusNotFound, false},
		{http.StatusUnauthorized, false},
		{http.StatusForbidden, false},
	}

	for _, tt := range tests {
		err := errs.FromStatus("svc", tt.status)
		assert.ErrorIs(t, err, errs.ErrDependencyUnavailable, "status %d", tt.status)
		assert.Equal(t, tt.retryable, errs.IsRetryable(err), "status %d", tt.status)
	}
}
