package canvascap

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

// RodSession is a [Session] backed by a go-rod page.
type RodSession struct {
	log     zerolog.Logger
	lnch    *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page

	life       context.Context
	lifeCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

var _ Session = (*RodSession)(nil)

// NewRodSession launches a browser through rod's launcher and opens the
// tab used for capture. The caller must call [RodSession.Close].
func NewRodSession(opts ...Option) (*RodSession, error) {
	cfg := defaultSessionConfig()
	for _, o := range opts {
		o(&cfg)
	}
	log := cfg.logger

	execPath, err := cfg.browserPath()
	if err != nil {
		return nil, err
	}

	l := launcher.New().
		Headless(cfg.headless).
		NoSandbox(cfg.noSandbox).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage")
	if execPath != "" {
		l = l.Bin(execPath)
	}
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("canvascap: launching browser: %w", err)
	}
	log.Debug().Str("url", u).Bool("headless", cfg.headless).Msg("rod browser launched")

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("canvascap: connecting to browser: %w", err)
	}

	p, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("canvascap: opening tab: %w", err)
	}

	var (
		life       context.Context
		lifeCancel context.CancelFunc
	)
	if cfg.timeout > 0 {
		life, lifeCancel = context.WithTimeout(context.Background(), cfg.timeout)
	} else {
		life, lifeCancel = context.WithCancel(context.Background())
	}

	return &RodSession{
		log:        log,
		lnch:       l,
		browser:    b,
		page:       p,
		life:       life,
		lifeCancel: lifeCancel,
	}, nil
}

// Close shuts the browser down. Close is idempotent.
func (s *RodSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.lifeCancel()
	err := s.browser.Close()
	s.lnch.Cleanup()
	s.log.Debug().Err(err).Msg("rod browser closed")
	return err
}

// with runs fn against the page bound to both ctx and the session
// lifetime, serialised with other calls.
func (s *RodSession) with(ctx context.Context, fn func(p *rod.Page) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	pctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.life, cancel)
	defer stop()

	err := fn(s.page.Context(pctx))
	if err != nil && ctx.Err() == nil && s.life.Err() != nil {
		return fmt.Errorf("canvascap: session lifetime exceeded: %w", err)
	}
	return err
}

// Navigate implements [Session].
func (s *RodSession) Navigate(ctx context.Context, url string) error {
	return s.with(ctx, func(p *rod.Page) error {
		if err := p.Navigate(url); err != nil {
			return err
		}
		return p.WaitLoad()
	})
}

// Reload implements [Session].
func (s *RodSession) Reload(ctx context.Context) error {
	return s.with(ctx, func(p *rod.Page) error {
		wait := p.WaitNavigation(proto.PageLifecycleEventNameLoad)
		if err := p.Reload(); err != nil {
			return err
		}
		wait()
		return nil
	})
}

// SetCookie implements [Session].
func (s *RodSession) SetCookie(ctx context.Context, c Cookie) error {
	return s.with(ctx, func(p *rod.Page) error {
		return p.SetCookies([]*proto.NetworkCookieParam{{
			Name:   c.Name,
			Value:  c.Value,
			Domain: c.Domain,
			Path:   c.Path,
			Secure: c.Secure,
		}})
	})
}

// Evaluate implements [Session].
func (s *RodSession) Evaluate(ctx context.Context, fn string, res any, args ...any) error {
	return s.with(ctx, func(p *rod.Page) error {
		obj, err := p.Evaluate(rod.Eval(fn, args...))
		if err != nil {
			return err
		}
		if res == nil {
			return nil
		}
		return obj.Value.Unmarshal(res)
	})
}

// SetViewport implements [Session].
func (s *RodSession) SetViewport(ctx context.Context, vp ViewportSpec) error {
	return s.with(ctx, func(p *rod.Page) error {
		return p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: vp.Scale,
		})
	})
}

// WaitPredicate implements [Session].
func (s *RodSession) WaitPredicate(ctx context.Context, fn string, args ...any) error {
	return s.with(ctx, func(p *rod.Page) error {
		return p.Wait(rod.Eval(fn, args...))
	})
}

// ElementText implements [Session].
func (s *RodSession) ElementText(ctx context.Context, selector string) (string, error) {
	var text string
	if err := s.Evaluate(ctx, jsInnerText, &text, selector); err != nil {
		return "", err
	}
	return text, nil
}

// FullScreenshot implements [Session].
func (s *RodSession) FullScreenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.with(ctx, func(p *rod.Page) error {
		var err error
		buf, err = p.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		return err
	})
	return buf, err
}

// AddInitScript implements [Session].
func (s *RodSession) AddInitScript(ctx context.Context, js string) error {
	return s.with(ctx, func(p *rod.Page) error {
		_, err := p.EvalOnNewDocument(js)
		return err
	})
}

// Sleep implements [Session].
func (s *RodSession) Sleep(ctx context.Context, d time.Duration) error {
	return sleepCtx(ctx, d)
}
