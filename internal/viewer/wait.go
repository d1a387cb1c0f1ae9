package viewer

import (
	"context"
	"time"
)

const readinessPollInterval = 100 * time.Millisecond

// Readiness reports whether the page has reached the state a step waits for.
type Readiness func(ctx context.Context) (bool, error)

// AwaitReady blocks until ready reports true or timeout elapses, whichever
// comes first. A nil ready turns the call into a fixed settle delay of
// timeout. Reaching the timeout is not an error: the caller proceeds exactly
// as it would have after a fixed delay of the same length.
func AwaitReady(ctx context.Context, ready Readiness, timeout time.Duration) error {
	if timeout < 0 {
		timeout = 0
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	if ready == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	ticker := time.NewTicker(readinessPollInterval)
	defer ticker.Stop()
	for {
		ok, err := ready(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-ticker.C:
		}
	}
}

// settle is a fixed delay expressed through AwaitReady.
func settle(ctx context.Context, d time.Duration) error {
	return AwaitReady(ctx, nil, d)
}
