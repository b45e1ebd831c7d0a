// Package canvascap reconstructs full-resolution page images from a
// canvas-rendered web document viewer driven by headless Chrome.
//
// The viewer only rasterizes each page at the resolution implied by the
// current viewport. For every page the capture pipeline measures the canvas
// at a wide viewport, re-measures it at a narrow one, resizes the viewport
// to the width that yields the wide reference height exactly, and exports
// the canvas as a lossless PNG.
//
// # Sessions
//
// All browser work goes through a [Session]. Two drivers are provided:
//
//	sess, err := canvascap.NewChromeSession()            // chromedp
//	sess, err  = canvascap.NewRodSession()               // go-rod
//	sess, err  = canvascap.NewChromeSession(canvascap.WithAutoDownload())
//
// The caller owns the session and must close it:
//
//	defer sess.Close()
//
// # Running a capture
//
// [Run] prepares the viewer (stealth script, viewport, cookie, viewer
// settings, reload), reads the page count and captures every page in order:
//
//	rep, err := canvascap.Run(ctx, sess, canvascap.Stealth{},
//	    canvascap.WithOutputDir("pages"),
//	    canvascap.WithBundle("pages/book.pdf"),
//	)
//
// On failure the loop stops, the pages already written stay on disk, and a
// full-page diagnostic screenshot is still taken. The returned error wraps a
// [*CaptureError] naming the page index and [Step] that failed.
//
// # Settling
//
// After each viewport change the viewer re-renders asynchronously. By
// default the pipeline polls the canvas size until two readings agree
// ([SettleStable]); [SettleFixed] sleeps a fixed delay instead.
//
// # Pieces
//
// The building blocks are exported for reuse: [ParseDataURL],
// [ComputeTargetWidth], [Waiter], [ResolveTotalPages] and [Pipeline].
package canvascap
