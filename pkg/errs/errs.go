package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds surfaced by the pipeline. Callers match them with
// errors.Is after any amount of wrapping.
var (
	// ErrDependencyUnavailable marks a failed call to an external
	// service (blob store, document intelligence, embedding or chat
	// backend, vector index).
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrExtractionFailed marks a document whose bytes could not be
	// turned into text. The document is skipped, the batch continues.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrIndexEmpty is returned by retrieval against an index with no
	// embeddings. The interface layer maps it to an empty result.
	ErrIndexEmpty = errors.New("index empty")

	// ErrConfigurationMissing marks a required credential or endpoint
	// that is absent at startup.
	ErrConfigurationMissing = errors.New("configuration missing")
)

type wrapped struct {
	kind      error
	op        string
	err       error
	retryable bool
}

func (w *wrapped) Error() string {
	if w.err == nil {
		return fmt.Sprintf("%s: %s", w.op, w.kind)
	}
	return fmt.Sprintf("%s: %s: %s", w.op, w.kind, w.err)
}

func (w *wrapped) Is(target error) bool { return target == w.kind }

func (w *wrapped) Unwrap() error { return w.err }

// DependencyUnavailable wraps err as a non-retryable dependency failure.
func DependencyUnavailable(op string, err error) error {
	return &wrapped{kind: ErrDependencyUnavailable, op: op, err: err}
}

// TransientDependency wraps err as a dependency failure worth retrying.
func TransientDependency(op string, err error) error {
	return &wrapped{kind: ErrDependencyUnavailable, op: op, err: err, retryable: true}
}

// ExtractionFailed wraps err as a per-document extraction failure.
func ExtractionFailed(op string, err error) error {
	return &wrapped{kind: ErrExtractionFailed, op: op, err: err}
}

// FromStatus classifies an HTTP response status from an external
// service. Rate limits and server errors are transient; everything
// else in the error range is terminal.
func FromStatus(op string, status int) error {
	err := fmt.Errorf("unexpected status %d", status)
	if status == http.StatusTooManyRequests || status >= 500 {
		return TransientDependency(op, err)
	}
	return DependencyUnavailable(op, err)
}

// IsRetryable reports whether err was marked transient anywhere in its
// chain.
func IsRetryable(err error) bool {
	for err != nil {
		if w, ok := err.(*wrapped); ok && w.retryable {
			return true
		}
		err = errors.Unwrap(err)
	}
	return false
}
