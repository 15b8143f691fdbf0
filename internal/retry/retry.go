package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Config struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Permanent wraps err so Do returns it without further attempts.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op up to cfg.MaxAttempts times with exponential backoff between
// attempts. The last error is returned, wrapped with the attempt count when
// all attempts were used.
func Do(ctx context.Context, cfg Config, logger *slog.Logger, op func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialBackoff
	b.MaxInterval = cfg.MaxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	tries := 0
	counted := func() error {
		tries++
		return op()
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn("request failed, retrying",
			"attempt", tries,
			"backoff", wait,
			"error", err,
		)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)

	err := backoff.RetryNotify(counted, policy, notify)
	if err != nil && tries >= attempts {
		return fmt.Errorf("after %d attempts: %w", tries, err)
	}
	return err
}
