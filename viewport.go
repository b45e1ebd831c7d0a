package canvascap

import (
	"context"
	"fmt"
	"math"
)

// ViewportSpec is the rendering surface of the session in CSS pixels.
type ViewportSpec struct {
	Width  int
	Height int
	Scale  float64
}

// Presets controls the viewport sizes used during capture.
//
// A nil Presets or zero-value fields will use the defaults: a 2000 px wide
// preset, a 1000 px narrow preset and a fixed height of 3000 px.
type Presets struct {
	// Wide is the width at which the viewer lays the canvas out at its
	// highest resolution. Defaults to 2000.
	Wide int

	// Narrow is the width used to force a re-render at a different scale.
	// Defaults to 1000.
	Narrow int

	// Height is the viewport height, constant for the whole run.
	// Defaults to 3000.
	Height int
}

// DefaultPresets returns the default viewport presets.
func DefaultPresets() Presets {
	return Presets{
		Wide:   2000,
		Narrow: 1000,
		Height: 3000,
	}
}

// resolved returns a Presets with all zero values replaced by defaults.
func (p *Presets) resolved() Presets {
	d := DefaultPresets()
	if p == nil {
		return d
	}
	r := *p
	if r.Wide <= 0 {
		r.Wide = d.Wide
	}
	if r.Narrow <= 0 {
		r.Narrow = d.Narrow
	}
	if r.Height <= 0 {
		r.Height = d.Height
	}
	return r
}

// at returns the full viewport for the given width.
func (p Presets) at(width int) ViewportSpec {
	return ViewportSpec{Width: width, Height: p.Height, Scale: 1}
}

// viewport applies width-only viewport changes on a session. The height
// and scale never change during a run.
type viewport struct {
	sess    Session
	presets Presets
}

// set replaces the viewport with {width, fixed height, 1}. It does not wait
// for the page to re-render.
func (v viewport) set(ctx context.Context, width int) error {
	if width <= 0 {
		return fmt.Errorf("canvascap: invalid viewport width %d", width)
	}
	if err := v.sess.SetViewport(ctx, v.presets.at(width)); err != nil {
		return fmt.Errorf("canvascap: setting viewport to %d: %w", width, err)
	}
	return nil
}

func (v viewport) wide(ctx context.Context) error   { return v.set(ctx, v.presets.Wide) }
func (v viewport) narrow(ctx context.Context) error { return v.set(ctx, v.presets.Narrow) }

// CanvasMeasurement holds the canvas raster sizes read during one page's
// capture.
type CanvasMeasurement struct {
	ReferenceHeight int // canvas height attribute at the wide preset
	MeasuredWidth   int // canvas width attribute at the narrow preset
	MeasuredHeight  int // canvas height attribute at the narrow preset
}

// TargetWidth projects the narrow aspect ratio onto the reference height.
func (m CanvasMeasurement) TargetWidth() (int, error) {
	if m.MeasuredHeight <= 0 {
		return 0, ErrZeroCanvasHeight
	}
	return ComputeTargetWidth(m.ReferenceHeight, m.MeasuredWidth, m.MeasuredHeight), nil
}

// ComputeTargetWidth returns round(refHeight * width / height), rounding
// halves away from zero. height must be positive.
func ComputeTargetWidth(refHeight, width, height int) int {
	return int(math.Round(float64(refHeight) * float64(width) / float64(height)))
}
