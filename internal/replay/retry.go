package replay

import (
	"context"
	"time"
)

const (
	defaultRetryBackoff    = 100 * time.Millisecond
	defaultMaxRetryBackoff = 30 * time.Second
)

// RetryPolicy retries I/O with exponential backoff. The engine itself never
// retries; only sinks and RPC reads go through a policy.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration
	// OnRetry, if set, is called after a failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Do calls fn until it succeeds, the retries are spent or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	maxRetries := p.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := p.Backoff
	if delay <= 0 {
		delay = defaultRetryBackoff
	}
	ceiling := p.MaxBackoff
	if ceiling <= 0 {
		ceiling = defaultMaxRetryBackoff
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		if delay > ceiling {
			delay = ceiling
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt+1, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}
