package canvascap

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the library.
var (
	// ErrClosed is returned when attempting to use a closed [Session].
	ErrClosed = errors.New("canvascap: session is closed")

	// ErrUnsafeViewerSettings is returned when the injected viewer settings
	// would allow double-page spreads or animated transitions, which breaks
	// the one-canvas-per-page measurement.
	ErrUnsafeViewerSettings = errors.New("canvascap: viewer settings must disable spreads and animation")

	// ErrZeroCanvasHeight is returned when the canvas reports a height of
	// zero at the narrow viewport.
	ErrZeroCanvasHeight = errors.New("canvascap: canvas height is zero")
)

// MalformedDataURLError reports a string that is not a base64 data URL.
type MalformedDataURLError struct {
	Input string
	Err   error
}

func (e *MalformedDataURLError) Error() string {
	in := e.Input
	if len(in) > 48 {
		in = in[:48] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("canvascap: malformed data URL %q: %v", in, e.Err)
	}
	return fmt.Sprintf("canvascap: malformed data URL %q", in)
}

func (e *MalformedDataURLError) Unwrap() error { return e.Err }

// TimeoutError reports a readiness wait that did not complete in time.
type TimeoutError struct {
	Condition string // "present", "absent" or "text"
	Selector  string
	Timeout   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("canvascap: timed out after %s waiting for %s to be %s",
		e.Timeout, e.Selector, e.Condition)
}

// CounterParseError reports page-counter text without a numeric total.
type CounterParseError struct {
	Text string
	Err  error
}

func (e *CounterParseError) Error() string {
	return fmt.Sprintf("canvascap: cannot parse page counter %q", e.Text)
}

func (e *CounterParseError) Unwrap() error { return e.Err }

// CaptureError identifies the page and pipeline step that failed.
type CaptureError struct {
	Index int
	Step  Step
	Err   error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("canvascap: page %d: %s: %v", e.Index, e.Step, e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }
