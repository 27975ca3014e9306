package host

import (
	"context"
	"fmt"
	"time"
)

// HeadReader reports the height of the latest block. DAHead and
// SettlementHead adapt the node clients to it.
type HeadReader interface {
	Head(ctx context.Context) (uint64, error)
}

// HeadFunc adapts a function to HeadReader.
type HeadFunc func(ctx context.Context) (uint64, error)

func (f HeadFunc) Head(ctx context.Context) (uint64, error) {
	return f(ctx)
}

// DAHead reads the local head of a DA node.
func DAHead(node DANode) HeadFunc {
	return func(ctx context.Context) (uint64, error) {
		header, err := node.LocalHead(ctx)
		if err != nil {
			return 0, err
		}
		return header.Height(), nil
	}
}

// BlockNumberReader is satisfied by *ethclient.Client.
type BlockNumberReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// SettlementHead reads the latest settlement block number.
func SettlementHead(chain BlockNumberReader) HeadFunc {
	return chain.BlockNumber
}

// CheckNodeHealth verifies that a node answers with a non-zero head within
// timeout.
func CheckNodeHealth(ctx context.Context, name string, node HeadReader, timeout time.Duration) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	head, err := node.Head(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s node is not responding correctly: %w", name, err)
	}
	if head == 0 {
		return 0, fmt.Errorf("%s node reports an empty chain", name)
	}
	return head, nil
}

// WaitForNode polls a node until it is healthy, backing off exponentially
// between attempts.
func WaitForNode(ctx context.Context, name string, node HeadReader, maxRetries int) error {
	var lastErr error
	backoffDuration := time.Second

	for i := 0; i < maxRetries; i++ {
		if _, lastErr = CheckNodeHealth(ctx, name, node, 5*time.Second); lastErr == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffDuration):
		}
		backoffDuration *= 2
	}
	return fmt.Errorf("%s node health check failed after %d attempts: %w", name, maxRetries, lastErr)
}
