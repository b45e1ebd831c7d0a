package canvascap

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// fakePage is one page of the simulated viewer. Its canvas raster scales
// linearly with the viewport width, relative to base at baseWidth.
type fakePage struct {
	base      CanvasSize
	baseWidth int
	// loadingStuck keeps the loading indicator on screen forever.
	loadingStuck bool
}

type fakeViewer struct {
	counter string
	pages   []fakePage
}

func newFakeViewer(n int) *fakeViewer {
	v := &fakeViewer{counter: fmt.Sprintf("1/%d", n)}
	for i := 0; i < n; i++ {
		v.pages = append(v.pages, fakePage{
			base:      CanvasSize{Width: 1000, Height: 3000},
			baseWidth: 2000,
		})
	}
	return v
}

// fakeSession implements Session against a fakeViewer without a browser.
type fakeSession struct {
	mu     sync.Mutex
	viewer *fakeViewer

	vp        ViewportSpec
	viewports []ViewportSpec
	calls     []string
	cookies   []Cookie
	storage   map[string]string
	scripts   []string
	navigated []string
	reloads   int
	sleeps    []time.Duration
	// jitter makes every canvas reading differ from the previous one.
	jitter int
	// staleReads canvas readings return stale before the new size shows.
	staleReads int
	stale      CanvasSize
	shotErr    error
	inFlight   int
	overlap    bool
	closed     bool
}

var _ Session = (*fakeSession)(nil)

func newFakeSession(v *fakeViewer) *fakeSession {
	return &fakeSession{viewer: v, storage: map[string]string{}}
}

func (f *fakeSession) enter(call string) func() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}
}

func (f *fakeSession) pageFor(selector string) (int, *fakePage, error) {
	var idx int
	if _, err := fmt.Sscanf(selector, "#wideScreen%d", &idx); err != nil {
		return 0, nil, fmt.Errorf("unexpected selector %q", selector)
	}
	if idx < 0 || idx >= len(f.viewer.pages) {
		return idx, nil, nil
	}
	return idx, &f.viewer.pages[idx], nil
}

func (f *fakeSession) canvas(p *fakePage) CanvasSize {
	if f.staleReads > 0 {
		f.staleReads--
		return f.stale
	}
	w := f.vp.Width
	s := CanvasSize{
		Width:  p.base.Width * w / p.baseWidth,
		Height: p.base.Height * w / p.baseWidth,
	}
	if f.jitter > 0 {
		f.jitter++
		s.Width += f.jitter
	}
	return s
}

func assign(res any, v any) error {
	if res == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, res)
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	defer f.enter("navigate")()
	f.navigated = append(f.navigated, url)
	return ctx.Err()
}

func (f *fakeSession) Reload(ctx context.Context) error {
	defer f.enter("reload")()
	f.reloads++
	return ctx.Err()
}

func (f *fakeSession) SetCookie(ctx context.Context, c Cookie) error {
	defer f.enter("cookie")()
	f.cookies = append(f.cookies, c)
	return nil
}

func (f *fakeSession) Evaluate(ctx context.Context, fn string, res any, args ...any) error {
	defer f.enter("evaluate")()
	if err := ctx.Err(); err != nil {
		return err
	}
	switch fn {
	case jsSetLocalStorage:
		f.storage[args[0].(string)] = args[1].(string)
		return nil
	case jsScrollIntoView:
		sel := args[0].(string)
		_, p, err := f.pageFor(sel)
		if err != nil {
			return err
		}
		if p == nil {
			return errors.New("TypeError: Cannot read properties of null")
		}
		f.calls = append(f.calls, "scroll:"+sel)
		return nil
	case jsCanvasSize:
		_, p, err := f.pageFor(args[0].(string))
		if err != nil {
			return err
		}
		if p == nil {
			return errors.New("TypeError: Cannot read properties of null")
		}
		return assign(res, f.canvas(p))
	case jsToDataURL:
		idx, p, err := f.pageFor(args[0].(string))
		if err != nil {
			return err
		}
		if p == nil {
			return errors.New("TypeError: Cannot read properties of null")
		}
		s := f.canvas(p)
		raw := fmt.Sprintf("page-%d@%dx%d", idx, s.Width, s.Height)
		f.calls = append(f.calls, fmt.Sprintf("export:%d", idx))
		return assign(res, "data:image/png;base64,"+base64.StdEncoding.EncodeToString([]byte(raw)))
	}
	return fmt.Errorf("fake: unexpected script %q", fn)
}

func (f *fakeSession) SetViewport(ctx context.Context, vp ViewportSpec) error {
	defer f.enter(fmt.Sprintf("viewport:%d", vp.Width))()
	f.vp = vp
	f.viewports = append(f.viewports, vp)
	return nil
}

func (f *fakeSession) WaitPredicate(ctx context.Context, fn string, args ...any) error {
	defer f.enter("wait")()
	sel := args[0].(string)
	ready := false
	switch fn {
	case jsPresent:
		if strings.HasPrefix(sel, "#wideScreen") {
			_, p, err := f.pageFor(sel)
			if err != nil {
				return err
			}
			ready = p != nil
		} else {
			ready = true
		}
	case jsAbsent:
		_, p, err := f.pageFor(strings.TrimSuffix(sel, " .loading"))
		if err != nil {
			return err
		}
		ready = p == nil || !p.loadingStuck
	case jsNonEmptyText:
		ready = f.viewer.counter != ""
	default:
		return fmt.Errorf("fake: unexpected predicate %q", fn)
	}
	if ready {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSession) ElementText(ctx context.Context, selector string) (string, error) {
	defer f.enter("text")()
	return f.viewer.counter, nil
}

func (f *fakeSession) FullScreenshot(ctx context.Context) ([]byte, error) {
	defer f.enter("screenshot")()
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	return []byte("\x89PNG final"), nil
}

func (f *fakeSession) AddInitScript(ctx context.Context, js string) error {
	defer f.enter("init-script")()
	f.scripts = append(f.scripts, js)
	return nil
}

func (f *fakeSession) Sleep(ctx context.Context, d time.Duration) error {
	defer f.enter("sleep")()
	f.sleeps = append(f.sleeps, d)
	return ctx.Err()
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

// viewportWidths lists the widths of every viewport change in order.
func (f *fakeSession) viewportWidths() []int {
	out := make([]int, len(f.viewports))
	for i, vp := range f.viewports {
		out[i] = vp.Width
	}
	return out
}
