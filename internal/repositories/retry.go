package repositories

import (
	"context"
	"time"

	"github.com/revenant-13/maintenance-app/pkg/metrics"

	"github.com/sethvargo/go-retry"
)

const maxRetryDelay = 500 * time.Millisecond

type RetryPolicy struct {
	MaxRetries uint64
	Base       time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 5, Base: 5 * time.Millisecond}
}

// RunWithRetry executes attempt and re-executes it from scratch while isConflict
// reports the failure as a write conflict. Any other error is returned as is.
func RunWithRetry(ctx context.Context, backend string, policy RetryPolicy, isConflict func(error) bool, attempt func(ctx context.Context) error) error {
	base := policy.Base
	if base <= 0 {
		base = time.Millisecond
	}
	backoff := retry.WithMaxRetries(policy.MaxRetries,
		retry.WithCappedDuration(maxRetryDelay, retry.WithJitterPercent(20, retry.NewExponential(base))))

	first := true
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if !first {
			metrics.TxRetry(backend)
		}
		first = false

		err := attempt(ctx)
		if err != nil && isConflict(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
