package broker

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping between tries with exponential
// backoff starting at base and capped at ceiling. The last error is returned
// if every attempt fails.
func Retry(ctx context.Context, attempts int, base, ceiling time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	delay := base
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > ceiling {
			delay = ceiling
		}
	}
	return err
}
