package canvascap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ProgressEvent is reported after each page is written.
type ProgressEvent struct {
	Index int    // page index just written
	Done  int    // pages written so far in this run
	Total int    // pages requested in this run
	Path  string // file written
}

// Report summarises one run.
type Report struct {
	RunID      string
	TotalPages int      // total reported by the viewer's page counter
	Files      []string // page images in the order they were written
	Diagnostic string   // final screenshot, empty if it could not be taken
	Bundle     string   // assembled PDF, empty unless requested and written
	Err        error    // the failure that stopped the run, if any
}

// Run configures the session for the viewer, resolves the page count and
// captures every requested page in increasing index order.
//
// A failure stops the loop. Run then still takes a full-page diagnostic
// screenshot before returning the failure. The session is not closed;
// that is left to the caller.
func Run(ctx context.Context, sess Session, ev Evader, opts ...RunOption) (*Report, error) {
	cfg := defaultRunConfig()
	for _, o := range opts {
		o(&cfg)
	}
	if ev == nil {
		ev = NoEvasion{}
	}

	rep := &Report{RunID: uuid.NewString()}
	log := cfg.logger.With().Str("run_id", rep.RunID).Logger()
	cfg.logger = log

	if err := cfg.target.Settings.Validate(); err != nil {
		rep.Err = err
		return rep, err
	}
	if err := os.MkdirAll(cfg.outputDir, 0o755); err != nil {
		rep.Err = fmt.Errorf("canvascap: creating output dir: %w", err)
		return rep, rep.Err
	}

	err := capturePages(ctx, sess, ev, cfg, rep)
	if err != nil {
		rep.Err = err
		e := log.Error().Err(err)
		var cErr *CaptureError
		if errors.As(err, &cErr) {
			e = e.Int("page", cErr.Index).Stringer("step", cErr.Step)
		}
		e.Int("written", len(rep.Files)).Msg("Failure")
	}

	// The diagnostic screenshot is taken whether or not the loop failed,
	// including after the caller cancelled the run.
	shot := filepath.Join(cfg.outputDir, cfg.diagnostic)
	if serr := writeScreenshot(context.WithoutCancel(ctx), sess, shot); serr != nil {
		log.Error().Err(serr).Msg("diagnostic screenshot failed")
		err = errors.Join(err, serr)
	} else {
		rep.Diagnostic = shot
		log.Info().Str("path", shot).Msg("diagnostic screenshot written")
	}

	if rep.Err == nil && cfg.bundlePath != "" && len(rep.Files) > 0 {
		if berr := Bundle(rep.Files, cfg.bundlePath); berr != nil {
			log.Error().Err(berr).Msg("bundling pages failed")
			err = errors.Join(err, berr)
		} else {
			rep.Bundle = cfg.bundlePath
			log.Info().Str("path", cfg.bundlePath).Int("pages", len(rep.Files)).Msg("bundle written")
		}
	}
	return rep, err
}

func capturePages(ctx context.Context, sess Session, ev Evader, cfg runConfig, rep *Report) error {
	log := cfg.logger
	t := cfg.target
	vp := viewport{sess: sess, presets: cfg.presets}

	if err := ev.Apply(ctx, sess); err != nil {
		return err
	}
	if err := vp.wide(ctx); err != nil {
		return err
	}
	log.Info().Str("url", t.URL).Msg("opening viewer")
	if err := sess.Navigate(ctx, t.URL); err != nil {
		return fmt.Errorf("canvascap: navigating to %s: %w", t.URL, err)
	}
	if err := sess.SetCookie(ctx, t.Cookie); err != nil {
		return fmt.Errorf("canvascap: setting cookie %s: %w", t.Cookie.Name, err)
	}
	settings, err := t.Settings.JSON()
	if err != nil {
		return err
	}
	if err := sess.Evaluate(ctx, jsSetLocalStorage, nil, t.StorageKey, settings); err != nil {
		return fmt.Errorf("canvascap: writing viewer settings: %w", err)
	}
	// Viewer settings are only read at load time.
	if err := sess.Reload(ctx); err != nil {
		return fmt.Errorf("canvascap: reloading viewer: %w", err)
	}

	waiter := Waiter{Session: sess, Timeout: cfg.waitTimeout}
	total, err := ResolveTotalPages(ctx, waiter, t.CounterSelector)
	if err != nil {
		return err
	}
	rep.TotalPages = total

	from, to := pageRange(cfg.from, cfg.to, total)
	log.Info().Int("total", total).Int("from", from).Int("to", to).Msg("page count resolved")

	p := newPipeline(sess, cfg)
	requested := to - from + 1
	if requested < 0 {
		requested = 0
	}
	for i := from; i <= to; i++ {
		path, err := p.CaptureToFile(ctx, i)
		if err != nil {
			return err
		}
		rep.Files = append(rep.Files, path)
		log.Info().Int("page", i).Str("path", path).Msg("page written")
		if cfg.progress != nil {
			cfg.progress(ProgressEvent{Index: i, Done: len(rep.Files), Total: requested, Path: path})
		}
	}
	return nil
}

// pageRange clamps from..to to the indices the viewer has.
func pageRange(from, to, total int) (int, int) {
	if from < 0 {
		from = 0
	}
	if to < 0 || to > total-1 {
		to = total - 1
	}
	return from, to
}

func writeScreenshot(ctx context.Context, sess Session, path string) error {
	buf, err := sess.FullScreenshot(ctx)
	if err != nil {
		return fmt.Errorf("canvascap: taking screenshot: %w", err)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("canvascap: writing screenshot: %w", err)
	}
	return nil
}
