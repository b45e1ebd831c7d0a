package canvascap

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// DefaultCounterSelector is the viewer's "<current>/<total>" page counter.
const DefaultCounterSelector = "#pageSliderCounter"

// ResolveTotalPages waits for the page counter to show text and returns
// the total it displays.
func ResolveTotalPages(ctx context.Context, w Waiter, selector string) (int, error) {
	if err := w.WaitNonEmptyText(ctx, selector); err != nil {
		return 0, err
	}
	text, err := w.Session.ElementText(ctx, selector)
	if err != nil {
		return 0, fmt.Errorf("canvascap: reading page counter: %w", err)
	}
	return parseCounter(text)
}

// parseCounter returns the total from counter text such as "3/57".
func parseCounter(text string) (int, error) {
	parts := strings.Split(text, "/")
	if len(parts) < 2 {
		return 0, &CounterParseError{Text: text}
	}
	n, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 0)
	if err != nil {
		return 0, &CounterParseError{Text: text, Err: err}
	}
	if n < 0 {
		return 0, &CounterParseError{Text: text}
	}
	return int(n), nil
}
