package downloader

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "assetcache/internal/errors"
)

// RetryPolicy bounds the exponential backoff applied around whole-batch
// retries.
type RetryPolicy struct {
	// InitialDelay is the wait before the second attempt.
	InitialDelay time.Duration

	// Multiplier grows the delay between consecutive attempts.
	Multiplier float64

	// MaxDelay caps the delay between any two attempts.
	MaxDelay time.Duration

	// MaxElapsed bounds the total time spent retrying. Zero disables the
	// bound.
	MaxElapsed time.Duration

	// MaxAttempts bounds how many times the batch runs in total. Zero
	// disables the bound.
	MaxAttempts uint64
}

// DefaultRetryPolicy returns the standard policy: a one second initial delay
// doubling up to maxDelay, three attempts in total.
func DefaultRetryPolicy(maxDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		InitialDelay: time.Second,
		Multiplier:   2,
		MaxDelay:     maxDelay,
		MaxAttempts:  3,
	}
}

// RunWithBackoff re-executes the whole batch under the supplied policy until
// it succeeds, the policy is exhausted or the failure is one retrying cannot
// fix. Already-verified files short-circuit on the next attempt, so a
// retried run only re-fetches what previously failed or mismatched. The last
// underlying error propagates when every attempt fails; the returned Report
// describes the final attempt.
func (b *Batch) RunWithBackoff(ctx context.Context, assets []Asset, dir string, policy RetryPolicy) (*Report, error) {
	bo := backoff.NewExponentialBackOff()
	if policy.InitialDelay > 0 {
		bo.InitialInterval = policy.InitialDelay
	}
	if policy.Multiplier > 0 {
		bo.Multiplier = policy.Multiplier
	}
	if policy.MaxDelay > 0 {
		bo.MaxInterval = policy.MaxDelay
	}
	bo.MaxElapsedTime = policy.MaxElapsed
	bo.RandomizationFactor = 0

	var wrapped backoff.BackOff = bo
	if policy.MaxAttempts > 0 {
		wrapped = backoff.WithMaxRetries(bo, policy.MaxAttempts-1)
	}

	var report *Report
	attempt := 0

	operation := func() error {
		attempt++
		rep, err := b.Run(ctx, assets, dir)
		if rep != nil {
			rep.Attempt = attempt
			report = rep
		}
		if err != nil && !apperrors.IsRecoverable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		b.logger.Warn("Batch failed, retrying in %s: %v", delay.Round(time.Millisecond), err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(wrapped, ctx), notify); err != nil {
		return report, err
	}

	return report, nil
}
