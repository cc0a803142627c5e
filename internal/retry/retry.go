// Package retry wraps an operation with bounded exponential backoff. It is a
// higher-order wrapper parameterized by an error classifier, so business-rule
// rejections bypass the retry loop while infrastructure failures are retried.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = 100 * time.Millisecond
)

// Config bounds the retry loop. Attempts counts the first try; the delay
// before attempt k (k > 1) is BaseDelay * 2^(k-2).
type Config struct {
	Attempts  int
	BaseDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = DefaultAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	return c
}

// Terminal reports whether an error must never be retried.
type Terminal func(error) bool

// ExhaustedError wraps the last transient failure after all attempts failed.
// It is distinct from the wrapped error so callers can tell "infrastructure
// kept failing" apart from a business rejection.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsExhausted reports whether err is a retry-exhaustion failure.
func IsExhausted(err error) bool {
	var ee *ExhaustedError
	return errors.As(err, &ee)
}

// Do runs fn up to cfg.Attempts times, sequentially, sleeping between
// attempts. Errors classified terminal propagate on first occurrence.
// Context cancellation aborts the wait and propagates the context error.
func Do(ctx context.Context, cfg Config, terminal Terminal, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()

	var last error
	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		if attempt > 1 {
			delay := cfg.BaseDelay << (attempt - 2)
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if terminal != nil && terminal(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		last = err
	}
	return &ExhaustedError{Attempts: cfg.Attempts, Last: last}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
