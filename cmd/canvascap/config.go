package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	canvascap "github.com/porticus-lab/canvas-capture"
)

const envPrefix = "CANVASCAP_"

// config holds every setting of a capture run.
type config struct {
	URL         string        `yaml:"url"`
	Out         string        `yaml:"out"`
	Driver      string        `yaml:"driver"` // chromedp or rod
	Wide        int           `yaml:"wide"`
	Narrow      int           `yaml:"narrow"`
	Height      int           `yaml:"height"`
	Settle      string        `yaml:"settle"` // stable or fixed
	SettleDelay time.Duration `yaml:"settle_delay"`
	WaitTimeout time.Duration `yaml:"wait_timeout"`
	Timeout     time.Duration `yaml:"timeout"`
	From        int           `yaml:"from"`
	To          int           `yaml:"to"`
	Bundle      string        `yaml:"bundle"`

	ChromePath   string `yaml:"chrome_path"`
	NoSandbox    bool   `yaml:"no_sandbox"`
	AutoDownload bool   `yaml:"auto_download"`
	NoStealth    bool   `yaml:"no_stealth"`
	Headful      bool   `yaml:"headful"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"` // console or json
}

func defaultConfig() config {
	p := canvascap.DefaultPresets()
	return config{
		URL:         canvascap.DefaultTarget().URL,
		Out:         ".",
		Driver:      "chromedp",
		Wide:        p.Wide,
		Narrow:      p.Narrow,
		Height:      p.Height,
		Settle:      "stable",
		SettleDelay: time.Second,
		WaitTimeout: canvascap.DefaultWaitTimeout,
		From:        0,
		To:          -1,
		LogLevel:    "info",
		LogFormat:   "console",
	}
}

// loadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current value.
func loadFile(cfg *config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// loadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment are not overridden.
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// applyEnv overlays CANVASCAP_* variables onto cfg. lookup is normally
// os.LookupEnv.
func applyEnv(cfg *config, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(envPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("URL", &cfg.URL)
	str("OUT", &cfg.Out)
	str("DRIVER", &cfg.Driver)
	num("WIDE", &cfg.Wide)
	num("NARROW", &cfg.Narrow)
	num("HEIGHT", &cfg.Height)
	str("SETTLE", &cfg.Settle)
	dur("SETTLE_DELAY", &cfg.SettleDelay)
	dur("WAIT_TIMEOUT", &cfg.WaitTimeout)
	dur("TIMEOUT", &cfg.Timeout)
	num("FROM", &cfg.From)
	num("TO", &cfg.To)
	str("BUNDLE", &cfg.Bundle)
	str("CHROME_PATH", &cfg.ChromePath)
	flag("NO_SANDBOX", &cfg.NoSandbox)
	flag("AUTO_DOWNLOAD", &cfg.AutoDownload)
	flag("NO_STEALTH", &cfg.NoStealth)
	flag("HEADFUL", &cfg.Headful)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)

	return errors.Join(errs...)
}

// validate rejects settings that cannot produce a run.
func (c config) validate() error {
	switch c.Driver {
	case "chromedp", "rod":
	default:
		return fmt.Errorf("unknown driver %q (want chromedp or rod)", c.Driver)
	}
	switch c.Settle {
	case "stable", "fixed":
	default:
		return fmt.Errorf("unknown settle strategy %q (want stable or fixed)", c.Settle)
	}
	if c.Wide <= 0 || c.Narrow <= 0 || c.Height <= 0 {
		return fmt.Errorf("viewport sizes must be positive (wide=%d narrow=%d height=%d)", c.Wide, c.Narrow, c.Height)
	}
	if c.From < 0 {
		return fmt.Errorf("--from must not be negative, got %d", c.From)
	}
	if c.To >= 0 && c.To < c.From {
		return fmt.Errorf("--to (%d) is before --from (%d)", c.To, c.From)
	}
	return nil
}

func (c config) settler() canvascap.Settler {
	if c.Settle == "fixed" {
		return canvascap.SettleFixed{Delay: c.SettleDelay}
	}
	return canvascap.SettleStable{}
}

func (c config) evader() canvascap.Evader {
	if c.NoStealth {
		return canvascap.NoEvasion{}
	}
	return canvascap.Stealth{}
}

func (c config) sessionOptions(log zerolog.Logger) []canvascap.Option {
	opts := []canvascap.Option{
		canvascap.WithSessionLogger(log),
	}
	if c.Timeout > 0 {
		opts = append(opts, canvascap.WithTimeout(c.Timeout))
	}
	if c.ChromePath != "" {
		opts = append(opts, canvascap.WithChromePath(c.ChromePath))
	}
	if c.NoSandbox {
		opts = append(opts, canvascap.WithNoSandbox())
	}
	if c.AutoDownload {
		opts = append(opts, canvascap.WithAutoDownload())
	}
	if c.Headful {
		opts = append(opts, canvascap.WithHeadful())
	}
	return opts
}

func (c config) runOptions(log zerolog.Logger) []canvascap.RunOption {
	t := canvascap.DefaultTarget()
	t.URL = c.URL
	opts := []canvascap.RunOption{
		canvascap.WithTarget(t),
		canvascap.WithPresets(canvascap.Presets{Wide: c.Wide, Narrow: c.Narrow, Height: c.Height}),
		canvascap.WithOutputDir(c.Out),
		canvascap.WithWaitTimeout(c.WaitTimeout),
		canvascap.WithSettler(c.settler()),
		canvascap.WithPageRange(c.From, c.To),
		canvascap.WithLogger(log),
	}
	if c.Bundle != "" {
		opts = append(opts, canvascap.WithBundle(c.Bundle))
	}
	return opts
}

// newLogger builds the CLI logger writing to w.
func newLogger(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	switch format {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want console or json)", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
