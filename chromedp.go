package canvascap

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// ChromeSession is a [Session] backed by a chromedp-controlled tab.
//
// Calls are serialised; the tab is shared by reference and lives until
// [ChromeSession.Close].
type ChromeSession struct {
	log           zerolog.Logger
	rootCancel    context.CancelFunc
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ Session = (*ChromeSession)(nil)

// NewChromeSession starts a browser and opens the tab used for capture.
// The caller must call [ChromeSession.Close] when finished.
func NewChromeSession(opts ...Option) (*ChromeSession, error) {
	cfg := defaultSessionConfig()
	for _, o := range opts {
		o(&cfg)
	}

	execPath, err := cfg.browserPath()
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("no-first-run", true),
	)
	if cfg.headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", "new"))
	} else {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}
	if cfg.noSandbox {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	var (
		rootCtx    context.Context
		rootCancel context.CancelFunc
	)
	if cfg.timeout > 0 {
		rootCtx, rootCancel = context.WithTimeout(context.Background(), cfg.timeout)
	} else {
		rootCtx, rootCancel = context.WithCancel(context.Background())
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(rootCtx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			cfg.logger.Debug().Msgf(format, args...)
		}),
	)

	// Start the browser eagerly so errors surface at creation time.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		rootCancel()
		return nil, fmt.Errorf("canvascap: starting browser: %w", err)
	}
	cfg.logger.Debug().Str("exec", execPath).Bool("headless", cfg.headless).Msg("chromedp browser started")

	return &ChromeSession{
		log:           cfg.logger,
		rootCancel:    rootCancel,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

// Close releases all resources held by the session, including the browser
// process. Close is idempotent.
func (s *ChromeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.browserCancel()
	s.allocCancel()
	s.rootCancel()
	s.log.Debug().Msg("chromedp browser closed")
	return nil
}

// run executes actions on the tab, bounded by both ctx and the session.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rctx, cancel := context.WithCancel(s.browserCtx)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		var dcancel context.CancelFunc
		rctx, dcancel = context.WithDeadline(rctx, dl)
		defer dcancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(rctx, actions...)
	if err != nil && ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return err
}

// Navigate implements [Session].
func (s *ChromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

// Reload implements [Session].
func (s *ChromeSession) Reload(ctx context.Context) error {
	return s.run(ctx, chromedp.Reload())
}

// SetCookie implements [Session].
func (s *ChromeSession) SetCookie(ctx context.Context, c Cookie) error {
	p := network.SetCookie(c.Name, c.Value).
		WithDomain(c.Domain).
		WithSecure(c.Secure)
	if c.Path != "" {
		p = p.WithPath(c.Path)
	}
	return s.run(ctx, p)
}

// Evaluate implements [Session].
func (s *ChromeSession) Evaluate(ctx context.Context, fn string, res any, args ...any) error {
	expr, err := callExpr(fn, args...)
	if err != nil {
		return err
	}
	return s.run(ctx, chromedp.Evaluate(expr, res))
}

// SetViewport implements [Session].
func (s *ChromeSession) SetViewport(ctx context.Context, vp ViewportSpec) error {
	return s.run(ctx, chromedp.EmulateViewport(int64(vp.Width), int64(vp.Height),
		chromedp.EmulateScale(vp.Scale)))
}

// WaitPredicate implements [Session].
func (s *ChromeSession) WaitPredicate(ctx context.Context, fn string, args ...any) error {
	opts := []chromedp.PollOption{
		chromedp.WithPollingInterval(100 * time.Millisecond),
		chromedp.WithPollingArgs(args...),
	}
	if dl, ok := ctx.Deadline(); ok {
		opts = append(opts, chromedp.WithPollingTimeout(time.Until(dl)))
	}
	var ok bool
	err := s.run(ctx, chromedp.PollFunction(fn, &ok, opts...))
	if errors.Is(err, chromedp.ErrPollingTimeout) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

// ElementText implements [Session].
func (s *ChromeSession) ElementText(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.Evaluate(ctx, jsInnerText, &text, selector); err != nil {
		return "", err
	}
	return text, nil
}

// FullScreenshot implements [Session].
func (s *ChromeSession) FullScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

// AddInitScript implements [Session].
func (s *ChromeSession) AddInitScript(ctx context.Context, js string) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(js).Do(ctx)
		return err
	}))
}

// Sleep implements [Session].
func (s *ChromeSession) Sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}
