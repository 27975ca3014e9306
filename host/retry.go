package host

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/celestiaorg/celestia-da-challenge/metrics"
)

// RetryPolicy bounds the exponential backoff around RPC calls.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy retries for up to a minute.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
		MaxElapsedTime:  time.Minute,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	return backoff.WithContext(b, ctx)
}

// IsTransient reports whether err is a network failure worth retrying.
// Errors returned by a server that answered are permanent.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError || httpErr.StatusCode == http.StatusTooManyRequests
	}
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET)
}

// Retry runs fn until it succeeds, fails permanently, or the policy gives up.
func Retry[T any](ctx context.Context, policy RetryPolicy, m *metrics.Metrics, logger log.Logger, operation string, fn func() (T, error)) (T, error) {
	return backoff.RetryNotifyWithData(func() (T, error) {
		v, err := fn()
		if err != nil && !IsTransient(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, policy.backOff(ctx), func(err error, wait time.Duration) {
		m.Retry(operation)
		logger.Warn("retrying", "operation", operation, "in", wait, "err", err)
	})
}

// WaitForCondition polls fn every interval until it returns true. Transient
// errors are retried, other errors stop the wait.
func WaitForCondition(ctx context.Context, timeout, interval time.Duration, fn func() (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w after %s", ErrConditionTimeout, timeout)
		case <-ticker.C:
			reached, err := fn()
			switch {
			case err != nil && !IsTransient(err):
				return fmt.Errorf("error occurred while waiting for condition: %w", err)
			case reached:
				return nil
			}
		}
	}
}
