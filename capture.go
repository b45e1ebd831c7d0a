package canvascap

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Step names a stage of the per-page capture.
type Step int

const (
	StepLocate Step = iota + 1
	StepMeasure
	StepNarrow
	StepComputeWidth
	StepResize
	StepExport
	StepRestore
)

var stepNames = map[Step]string{
	StepLocate:       "locate",
	StepMeasure:      "measure",
	StepNarrow:       "narrow",
	StepComputeWidth: "compute-width",
	StepResize:       "resize",
	StepExport:       "export",
	StepRestore:      "restore",
}

func (s Step) String() string {
	if n, ok := stepNames[s]; ok {
		return n
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// Pipeline turns one page of the viewer into a persisted image.
//
// The pipeline assumes the session sits at the wide preset when a capture
// starts and leaves it there when the capture succeeds.
type Pipeline struct {
	sess    Session
	vp      viewport
	waiter  Waiter
	settler Settler
	cfg     runConfig
	log     zerolog.Logger
}

// NewPipeline returns a capture pipeline bound to sess.
func NewPipeline(sess Session, opts ...RunOption) *Pipeline {
	cfg := defaultRunConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return newPipeline(sess, cfg)
}

func newPipeline(sess Session, cfg runConfig) *Pipeline {
	return &Pipeline{
		sess:    sess,
		vp:      viewport{sess: sess, presets: cfg.presets},
		waiter:  Waiter{Session: sess, Timeout: cfg.waitTimeout},
		settler: cfg.settler,
		cfg:     cfg,
		log:     cfg.logger,
	}
}

// FilePath returns where the image for page index is written.
func (p *Pipeline) FilePath(index int) string {
	return filepath.Join(p.cfg.outputDir, fmt.Sprintf(p.cfg.filePattern, index))
}

// Capture runs every step for page index and returns the decoded image
// without writing it.
func (p *Pipeline) Capture(ctx context.Context, index int) (*ImageArtifact, error) {
	return p.capture(ctx, index, nil)
}

// CaptureToFile runs every step for page index and writes the image to
// [Pipeline.FilePath]. It returns the written path.
func (p *Pipeline) CaptureToFile(ctx context.Context, index int) (string, error) {
	path := p.FilePath(index)
	_, err := p.capture(ctx, index, func(a *ImageArtifact) error {
		if err := a.WriteToFile(path, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return path, nil
}

func (p *Pipeline) capture(ctx context.Context, index int, persist func(*ImageArtifact) error) (*ImageArtifact, error) {
	wrapper := fmt.Sprintf("#wideScreen%d", index)
	canvas := wrapper + " canvas"
	loading := wrapper + " .loading"
	log := p.log.With().Int("page", index).Logger()

	fail := func(step Step, err error) (*ImageArtifact, error) {
		return nil, &CaptureError{Index: index, Step: step, Err: err}
	}

	// 1. Locate.
	if err := p.waiter.WaitPresent(ctx, wrapper); err != nil {
		return fail(StepLocate, err)
	}
	if err := p.waiter.WaitAbsent(ctx, loading); err != nil {
		return fail(StepLocate, err)
	}
	if err := p.sess.Evaluate(ctx, jsScrollIntoView, nil, wrapper); err != nil {
		return fail(StepLocate, err)
	}

	// 2. Measure at the wide preset.
	var ref CanvasSize
	if err := p.sess.Evaluate(ctx, jsCanvasSize, &ref, canvas); err != nil {
		return fail(StepMeasure, err)
	}
	log.Debug().Int("height", ref.Height).Msg("reference height")

	// 3. Narrow.
	if err := p.vp.narrow(ctx); err != nil {
		return fail(StepNarrow, err)
	}
	if err := p.settle(ctx, log, canvas, p.cfg.presets.Wide, p.cfg.presets.Narrow, ref); err != nil {
		return fail(StepNarrow, err)
	}

	// 4. Compute the corrected width.
	var small CanvasSize
	if err := p.sess.Evaluate(ctx, jsCanvasSize, &small, canvas); err != nil {
		return fail(StepComputeWidth, err)
	}
	m := CanvasMeasurement{
		ReferenceHeight: ref.Height,
		MeasuredWidth:   small.Width,
		MeasuredHeight:  small.Height,
	}
	width, err := m.TargetWidth()
	if err != nil {
		return fail(StepComputeWidth, err)
	}
	log.Debug().
		Int("narrow_width", small.Width).
		Int("narrow_height", small.Height).
		Int("width", width).
		Msg("target width")

	// 5. Resize to the computed width.
	if err := p.vp.set(ctx, width); err != nil {
		return fail(StepResize, err)
	}
	if err := p.settle(ctx, log, canvas, p.cfg.presets.Narrow, width, small); err != nil {
		return fail(StepResize, err)
	}

	// 6. Export.
	var dataURL string
	if err := p.sess.Evaluate(ctx, jsToDataURL, &dataURL, canvas); err != nil {
		return fail(StepExport, err)
	}
	art, err := NewImageArtifact(index, dataURL)
	if err != nil {
		return fail(StepExport, err)
	}
	if persist != nil {
		if err := persist(art); err != nil {
			return fail(StepExport, err)
		}
	}

	// 7. Restore the wide preset for the next page. The canvas already
	// has the reference height, so no size change is required.
	if err := p.vp.wide(ctx); err != nil {
		return fail(StepRestore, err)
	}
	if err := p.settle(ctx, log, canvas, 0, 0, CanvasSize{}); err != nil {
		return fail(StepRestore, err)
	}
	return art, nil
}

// settle waits after a viewport change from fromWidth to toWidth. before
// is only passed on when the width actually changed.
func (p *Pipeline) settle(ctx context.Context, log zerolog.Logger, canvas string, fromWidth, toWidth int, before CanvasSize) error {
	if fromWidth == toWidth {
		before = CanvasSize{}
	}
	err := p.settler.Settle(ctx, p.sess, canvas, before)
	if errors.Is(err, ErrNotSettled) {
		log.Warn().Str("canvas", canvas).Msg("canvas still changing, using last size")
		return nil
	}
	return err
}
