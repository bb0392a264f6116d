package dao

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/featstore/featstore/fserrors"
)

// withRetry runs op with exponential backoff. Store failures here are
// connectivity failures (missing keys are not errors), so exhaustion
// surfaces as a retryable StoreUnavailableError. Context cancellation is
// passed through untouched.
func withRetry(ctx context.Context, store string, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = 5 * time.Second

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, 3), ctx))
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return &fserrors.StoreUnavailableError{Store: store, Cause: err}
}
