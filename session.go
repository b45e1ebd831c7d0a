package canvascap

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cookie is a cookie injected into the automation session.
type Cookie struct {
	Name   string
	Value  string
	Domain string
	Path   string
	Secure bool
}

// Session is the remote-procedure surface of one live browser tab.
//
// Every call blocks until the browser confirms the effect. A Session is
// owned by a single logical flow for its whole lifetime; the capture code
// never issues two calls at once.
type Session interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// Reload reloads the current document and waits for the load event.
	Reload(ctx context.Context) error

	// SetCookie installs a cookie in the browser.
	SetCookie(ctx context.Context, c Cookie) error

	// Evaluate calls the JavaScript function fn with args in the page and
	// unmarshals its JSON result into res. res may be nil.
	Evaluate(ctx context.Context, fn string, res any, args ...any) error

	// SetViewport replaces the device metrics of the tab.
	SetViewport(ctx context.Context, vp ViewportSpec) error

	// WaitPredicate blocks until fn(args...) returns a truthy value or ctx
	// is done. When ctx carries a deadline that expires, the returned
	// error matches context.DeadlineExceeded.
	WaitPredicate(ctx context.Context, fn string, args ...any) error

	// ElementText returns the innerText of the first element matching selector.
	ElementText(ctx context.Context, selector string) (string, error)

	// FullScreenshot captures the full scrollable page as PNG.
	FullScreenshot(ctx context.Context) ([]byte, error)

	// AddInitScript registers js to run before any document script on
	// every subsequent navigation.
	AddInitScript(ctx context.Context, js string) error

	// Sleep pauses for d or until ctx is done.
	Sleep(ctx context.Context, d time.Duration) error

	// Close releases the tab and its browser.
	Close() error
}

// callExpr renders fn(args...) as a self-contained expression. Arguments
// are JSON-encoded so they arrive in the page as plain values.
func callExpr(fn string, args ...any) (string, error) {
	parts := make([]string, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return "", fmt.Errorf("canvascap: encoding argument %d: %w", i, err)
		}
		parts[i] = string(b)
	}
	return "(" + fn + ")(" + strings.Join(parts, ",") + ")", nil
}

// sleepCtx waits for d, returning early with ctx.Err() on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
