package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ragpipe/pkg/errs"
	"ragpipe/pkg/retry"
)

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), "op", func() error {
		calls++
		if calls < 3 {
			return errs.TransientDependency("op", errors.New("flaky"))
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_TerminalErrorStopsImmediately(t *testing.T) {
	calls := 0
	terminal := errs.DependencyUnavailable("op", errors.New("bad credentials"))
	err := fastPolicy(5).Do(context.Background(), "op", func() error {
		calls++
		return terminal
	})

	assert.ErrorIs(t, err, errs.ErrDependencyUnavailable)
	assert.Equal(t, 1, calls)
}

func TestDo_BudgetExhausted(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), "op", func() error {
		calls++
		return errs.TransientDependency("op", errors.New("still down"))
	})

	assert.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrDependencyUnavailable)
	assert.Contains(t, err.Error(), "retries exhausted")
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retry.Policy{MaxAttempts: 5, BaseDelay: time.Minute}.Do(ctx, "op", func() error {
		calls++
		cancel()
		return errs.TransientDependency("op", errors.New("down"))
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_ZeroPolicyRunsOnce(t *testing.T) {
	calls := 0
	err := retry.Policy{}.Do(context.Background(), "op", func() error {
		calls++
		return errs.TransientDependency("op", errors.New("down"))
	})

	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
