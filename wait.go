package canvascap

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultWaitTimeout bounds every readiness wait unless overridden.
const DefaultWaitTimeout = 30 * time.Second

// Waiter blocks until a document condition holds in the session.
type Waiter struct {
	Session Session
	Timeout time.Duration
}

// WaitPresent blocks until an element matching selector exists.
func (w Waiter) WaitPresent(ctx context.Context, selector string) error {
	return w.wait(ctx, "present", jsPresent, selector)
}

// WaitAbsent blocks until no visible element matches selector.
func (w Waiter) WaitAbsent(ctx context.Context, selector string) error {
	return w.wait(ctx, "absent", jsAbsent, selector)
}

// WaitNonEmptyText blocks until an element matching selector exists and its
// rendered text is non-empty.
func (w Waiter) WaitNonEmptyText(ctx context.Context, selector string) error {
	return w.wait(ctx, "non-empty text", jsNonEmptyText, selector)
}

func (w Waiter) wait(ctx context.Context, cond, fn, selector string) error {
	timeout := w.Timeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	wctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := w.Session.WaitPredicate(wctx, fn, selector)
	if err == nil {
		return nil
	}
	// A cancelled parent is not a timeout of this wait.
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || wctx.Err() != nil {
		return &TimeoutError{Condition: cond, Selector: selector, Timeout: timeout}
	}
	return fmt.Errorf("canvascap: waiting for %s to be %s: %w", selector, cond, err)
}
