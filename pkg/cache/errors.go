package cache

import (
	"context"
	stderrors "errors"
	"net"
	"time"

	"github.com/gagern/confoo/pkg/errors"
)

// ErrUnavailable marks a backend that could not be reached, even after
// retrying.
var ErrUnavailable = stderrors.New("cache backend unavailable")

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

// Retryable wraps an error as a RetryableError.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable checks if an error is wrapped with RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return stderrors.As(err, &re)
}

// retryNetwork marks network failures as retryable and leaves everything
// else untouched.
func retryNetwork(err error) error {
	var ne net.Error
	if stderrors.As(err, &ne) {
		return Retryable(err)
	}
	return err
}

// RetryWithBackoff calls fn up to attempts times, doubling delay after each
// retryable failure. Only errors wrapped with [Retryable] are retried.
func RetryWithBackoff(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for i := range attempts {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return err
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return stderrors.Join(ErrUnavailable, lastErr)
}

// wrap attaches the CACHE_ERROR code to a backend failure.
func wrap(err error, op, key string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(errors.ErrCodeCache, err, "%s %s", op, key)
}
