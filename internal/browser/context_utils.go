package browser

import (
	"context"
	"time"
)

// CombineContext creates a context derived from ctx1 that is also canceled
// when ctx2 is canceled. Values come from ctx1 only, which is what chromedp
// needs: ctx1 carries the tab, ctx2 carries the caller's deadline.
func CombineContext(ctx1, ctx2 context.Context) (context.Context, context.CancelFunc) {
	combinedCtx, cancel := context.WithCancel(ctx1)
	stop := context.AfterFunc(ctx2, cancel)
	return combinedCtx, func() {
		stop()
		cancel()
	}
}

// withTimeout combines ctx1 and ctx2 and bounds the result by d. A zero d
// adds no bound.
func withTimeout(ctx1, ctx2 context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	combined, cancelCombined := CombineContext(ctx1, ctx2)
	if d <= 0 {
		return combined, cancelCombined
	}
	bounded, cancelBounded := context.WithTimeout(combined, d)
	return bounded, func() {
		cancelBounded()
		cancelCombined()
	}
}
