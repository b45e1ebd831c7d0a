package canvascap

import (
	"time"

	"github.com/rs/zerolog"
)

// sessionConfig holds internal configuration for a browser [Session].
type sessionConfig struct {
	chromePath   string
	timeout      time.Duration
	noSandbox    bool
	headless     bool
	autoDownload bool
	logger       zerolog.Logger
}

func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		headless: true,
		logger:   zerolog.Nop(),
	}
}

// Option configures a browser [Session].
type Option func(*sessionConfig)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the driver searches standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *sessionConfig) {
		c.chromePath = path
	}
}

// WithTimeout bounds the lifetime of the whole session. Once it expires
// every call fails, including the diagnostic screenshot of a run. By
// default sessions have no lifetime limit; a zero or negative value keeps
// it that way.
func WithTimeout(d time.Duration) Option {
	return func(c *sessionConfig) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *sessionConfig) {
		c.noSandbox = true
	}
}

// WithHeadful shows the browser window.
func WithHeadful() Option {
	return func(c *sessionConfig) {
		c.headless = false
	}
}

// WithAutoDownload fetches a compatible Chromium build when no executable
// path is given. The binary is cached between runs.
func WithAutoDownload() Option {
	return func(c *sessionConfig) {
		c.autoDownload = true
	}
}

// WithSessionLogger sets the logger used by the driver.
func WithSessionLogger(l zerolog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = l
	}
}

// runConfig holds the configuration of one [Run].
type runConfig struct {
	target      Target
	presets     Presets
	outputDir   string
	filePattern string
	diagnostic  string
	waitTimeout time.Duration
	settler     Settler
	logger      zerolog.Logger
	from, to    int
	progress    func(ProgressEvent)
	bundlePath  string
}

func defaultRunConfig() runConfig {
	return runConfig{
		target:      DefaultTarget(),
		presets:     DefaultPresets(),
		outputDir:   ".",
		filePattern: "image_%d.png",
		diagnostic:  "final.png",
		waitTimeout: DefaultWaitTimeout,
		settler:     SettleStable{},
		logger:      zerolog.Nop(),
		from:        0,
		to:          -1,
	}
}

// RunOption configures [Run] and [NewPipeline].
type RunOption func(*runConfig)

// WithTarget sets the viewer document to capture. Empty fields fall back
// to [DefaultTarget].
func WithTarget(t Target) RunOption {
	return func(c *runConfig) {
		c.target = t.resolved()
	}
}

// WithPresets sets the viewport presets. Zero fields use [DefaultPresets].
func WithPresets(p Presets) RunOption {
	return func(c *runConfig) {
		c.presets = p.resolved()
	}
}

// WithOutputDir sets the directory page images and the diagnostic
// screenshot are written to. Defaults to the working directory.
func WithOutputDir(dir string) RunOption {
	return func(c *runConfig) {
		c.outputDir = dir
	}
}

// WithFilePattern sets the fmt pattern used to name page files from their
// index. Defaults to "image_%d.png".
func WithFilePattern(pattern string) RunOption {
	return func(c *runConfig) {
		c.filePattern = pattern
	}
}

// WithDiagnosticFile sets the name of the final full-page screenshot.
// Defaults to "final.png".
func WithDiagnosticFile(name string) RunOption {
	return func(c *runConfig) {
		c.diagnostic = name
	}
}

// WithWaitTimeout bounds every readiness wait. Defaults to 30 seconds.
func WithWaitTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		c.waitTimeout = d
	}
}

// WithSettler sets how the pipeline waits for the canvas to re-render
// after a viewport change. Defaults to [SettleStable].
func WithSettler(s Settler) RunOption {
	return func(c *runConfig) {
		c.settler = s
	}
}

// WithLogger sets the logger for the run.
func WithLogger(l zerolog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = l
	}
}

// WithPageRange restricts capture to indices from..to inclusive. A
// negative to means "through the last page".
func WithPageRange(from, to int) RunOption {
	return func(c *runConfig) {
		c.from, c.to = from, to
	}
}

// WithProgress registers a callback invoked after each persisted page.
func WithProgress(fn func(ProgressEvent)) RunOption {
	return func(c *runConfig) {
		c.progress = fn
	}
}

// WithBundle assembles the captured pages into a PDF at path once every
// requested page has been written.
func WithBundle(path string) RunOption {
	return func(c *runConfig) {
		c.bundlePath = path
	}
}
