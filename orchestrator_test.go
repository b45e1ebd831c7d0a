package canvascap

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFake(t *testing.T, fs *fakeSession, opts ...RunOption) (*Report, string, error) {
	t.Helper()
	dir := t.TempDir()
	opts = append([]RunOption{
		WithOutputDir(dir),
		WithSettler(SettleFixed{Delay: time.Second}),
		WithWaitTimeout(50 * time.Millisecond),
	}, opts...)
	rep, err := Run(context.Background(), fs, Stealth{}, opts...)
	return rep, dir, err
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_TwoPages(t *testing.T) {
	v := newFakeViewer(2)
	v.counter = "1/2"
	fs := newFakeSession(v)

	var events []ProgressEvent
	rep, dir, err := runFake(t, fs, WithProgress(func(e ProgressEvent) {
		events = append(events, e)
	}))
	require.NoError(t, err)

	assert.Equal(t, 2, rep.TotalPages)
	assert.Equal(t, []string{
		filepath.Join(dir, "image_0.png"),
		filepath.Join(dir, "image_1.png"),
	}, rep.Files)
	assert.ElementsMatch(t, []string{"image_0.png", "image_1.png", "final.png"}, listDir(t, dir))
	assert.Equal(t, filepath.Join(dir, "final.png"), rep.Diagnostic)
	assert.NotEmpty(t, rep.RunID)

	assert.Equal(t, []int{2000, 1000, 1000, 2000, 1000, 1000, 2000}, fs.viewportWidths())
	for _, vp := range fs.viewports {
		assert.Equal(t, 3000, vp.Height)
		assert.Equal(t, 1.0, vp.Scale)
	}

	require.Len(t, events, 2)
	assert.Equal(t, ProgressEvent{Index: 1, Done: 2, Total: 2, Path: rep.Files[1]}, events[1])
	assert.False(t, fs.overlap)
	assert.False(t, fs.closed, "Run must leave closing to the caller")
}

func TestRun_SessionSetup(t *testing.T) {
	fs := newFakeSession(newFakeViewer(1))
	_, _, err := runFake(t, fs)
	require.NoError(t, err)

	target := DefaultTarget()
	assert.Equal(t, []string{target.URL}, fs.navigated)
	assert.Equal(t, []Cookie{{Name: "cookie_optin", Value: "1", Domain: ".bookwalker.jp", Secure: true}}, fs.cookies)
	assert.JSONEq(t,
		`{"viewerTapRange":50,"viewerPageTransitionAxis":"vertical","viewerAnimationPatternForFixed":"seamless","viewerAnimationPattern":"off","viewerSpreadDouble":false}`,
		fs.storage["/NFBR_Settings/NFBR.SettingData"])
	assert.Equal(t, 1, fs.reloads)
	require.Len(t, fs.scripts, 1)

	// Stealth and the wide viewport precede navigation; settings precede
	// the reload.
	order := indexOf(fs.calls, "init-script", "viewport:2000", "navigate", "cookie", "reload", "text")
	for i := 1; i < len(order); i++ {
		assert.Less(t, order[i-1], order[i], "call order %v", fs.calls)
	}
}

func indexOf(calls []string, names ...string) []int {
	out := make([]int, len(names))
	for i, n := range names {
		out[i] = -1
		for j, c := range calls {
			if c == n {
				out[i] = j
				break
			}
		}
	}
	return out
}

func TestRun_FailureKeepsEarlierPagesAndScreenshot(t *testing.T) {
	v := newFakeViewer(3)
	v.pages[1].loadingStuck = true
	fs := newFakeSession(v)

	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)

	rep, dir, err := runFake(t, fs, WithLogger(logger))
	require.Error(t, err)

	var cErr *CaptureError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, 1, cErr.Index)
	assert.Equal(t, StepLocate, cErr.Step)
	var tErr *TimeoutError
	assert.ErrorAs(t, err, &tErr)

	assert.Equal(t, err, rep.Err)
	assert.Len(t, rep.Files, 1)
	assert.ElementsMatch(t, []string{"image_0.png", "final.png"}, listDir(t, dir))

	out := logBuf.String()
	assert.Contains(t, out, `"message":"Failure"`)
	assert.Contains(t, out, `"page":1`)
	assert.Contains(t, out, `"step":"locate"`)
}

func TestRun_ScreenshotFailureIsJoined(t *testing.T) {
	v := newFakeViewer(2)
	v.pages[0].loadingStuck = true
	fs := newFakeSession(v)
	shotErr := errors.New("target closed")
	fs.shotErr = shotErr

	rep, _, err := runFake(t, fs)
	require.Error(t, err)
	assert.ErrorIs(t, err, shotErr)
	var cErr *CaptureError
	assert.ErrorAs(t, err, &cErr)
	assert.Empty(t, rep.Diagnostic)
}

func TestRun_CounterParseFailure(t *testing.T) {
	v := newFakeViewer(2)
	v.counter = "no pages"
	fs := newFakeSession(v)

	rep, dir, err := runFake(t, fs)
	var cErr *CounterParseError
	require.ErrorAs(t, err, &cErr)
	assert.Empty(t, rep.Files)
	assert.Equal(t, []string{"final.png"}, listDir(t, dir))
}

func TestRun_UnsafeSettings(t *testing.T) {
	fs := newFakeSession(newFakeViewer(1))
	target := DefaultTarget()
	target.Settings.SpreadDouble = true

	_, _, err := runFake(t, fs, WithTarget(target))
	require.ErrorIs(t, err, ErrUnsafeViewerSettings)
	assert.Empty(t, fs.calls, "no browser call before the settings check")
}

func TestRun_PageRange(t *testing.T) {
	fs := newFakeSession(newFakeViewer(5))

	rep, dir, err := runFake(t, fs, WithPageRange(2, 3))
	require.NoError(t, err)
	assert.Equal(t, 5, rep.TotalPages)
	assert.Equal(t, []string{
		filepath.Join(dir, "image_2.png"),
		filepath.Join(dir, "image_3.png"),
	}, rep.Files)
}

func TestRun_OutputOrderIsIncreasing(t *testing.T) {
	fs := newFakeSession(newFakeViewer(4))
	_, _, err := runFake(t, fs)
	require.NoError(t, err)

	// Every export is followed by the wide restore before the next page
	// is located.
	var exports []string
	pendingRestore := false
	for _, c := range fs.calls {
		switch {
		case strings.HasPrefix(c, "export:"):
			exports = append(exports, c)
			pendingRestore = true
		case c == "viewport:2000":
			pendingRestore = false
		case strings.HasPrefix(c, "scroll:"):
			assert.False(t, pendingRestore, "%s before the previous restore", c)
		}
	}
	assert.Equal(t, []string{"export:0", "export:1", "export:2", "export:3"}, exports)
}

func TestPageRange(t *testing.T) {
	tests := []struct {
		from, to, total int
		wantFrom        int
		wantTo          int
	}{
		{0, -1, 10, 0, 9},
		{-3, 4, 10, 0, 4},
		{2, 50, 10, 2, 9},
		{0, -1, 0, 0, -1},
	}
	for _, tt := range tests {
		from, to := pageRange(tt.from, tt.to, tt.total)
		assert.Equal(t, tt.wantFrom, from)
		assert.Equal(t, tt.wantTo, to)
	}
}
