package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	canvascap "github.com/porticus-lab/canvas-capture"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "canvascap",
		Short: "Capture full-resolution pages from a canvas document viewer",
		Long: `canvascap drives a headless browser through a canvas-rendered document
viewer and writes every page as a lossless PNG at the resolution the viewer
renders for a tall viewport.`,
		SilenceUsage: true,
	}
	root.AddCommand(newCaptureCmd())
	return root
}

// captureFlags mirrors config for the flag set; only flags the user
// actually set are applied over the file and environment.
type captureFlags struct {
	configFile string
	cfg        config
}

func newCaptureCmd() *cobra.Command {
	fl := &captureFlags{cfg: defaultConfig()}
	return fl.command(openSession)
}

func (fl *captureFlags) command(open sessionOpener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture every page of the viewer document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := fl.resolve(cmd, os.LookupEnv)
			if err != nil {
				return err
			}
			return runCapture(cmd.Context(), cfg, cmd.ErrOrStderr(), open)
		},
	}

	f := cmd.Flags()
	d := &fl.cfg
	f.StringVar(&fl.configFile, "config", "", "YAML config file")
	f.StringVar(&d.URL, "url", d.URL, "viewer document URL")
	f.StringVarP(&d.Out, "out", "o", d.Out, "output directory")
	f.StringVar(&d.Driver, "driver", d.Driver, "browser driver: chromedp or rod")
	f.IntVar(&d.Wide, "wide", d.Wide, "wide viewport width")
	f.IntVar(&d.Narrow, "narrow", d.Narrow, "narrow viewport width")
	f.IntVar(&d.Height, "height", d.Height, "viewport height")
	f.StringVar(&d.Settle, "settle", d.Settle, "settle strategy after a resize: stable or fixed")
	f.DurationVar(&d.SettleDelay, "settle-delay", d.SettleDelay, "delay used by --settle fixed")
	f.DurationVar(&d.WaitTimeout, "wait-timeout", d.WaitTimeout, "timeout of each readiness wait")
	f.DurationVar(&d.Timeout, "timeout", d.Timeout, "browser session lifetime, unlimited when 0")
	f.IntVar(&d.From, "from", d.From, "first page index to capture")
	f.IntVar(&d.To, "to", d.To, "last page index to capture (-1 for the last page)")
	f.StringVar(&d.Bundle, "bundle", d.Bundle, "also assemble the pages into this PDF")
	f.StringVar(&d.ChromePath, "chrome-path", d.ChromePath, "Chrome or Chromium executable")
	f.BoolVar(&d.NoSandbox, "no-sandbox", d.NoSandbox, "disable the Chrome sandbox")
	f.BoolVar(&d.AutoDownload, "auto-download", d.AutoDownload, "download a Chromium build if needed")
	f.BoolVar(&d.NoStealth, "no-stealth", d.NoStealth, "skip the automation-masking script")
	f.BoolVar(&d.Headful, "headful", d.Headful, "show the browser window")
	f.StringVar(&d.LogLevel, "log-level", d.LogLevel, "log level")
	f.StringVar(&d.LogFormat, "log-format", d.LogFormat, "log format: console or json")
	return cmd
}

// resolve merges defaults, the config file, the environment and the flags
// the user set, in that order.
func (fl *captureFlags) resolve(cmd *cobra.Command, lookup func(string) (string, bool)) (config, error) {
	cfg := defaultConfig()
	if fl.configFile != "" {
		if err := loadFile(&cfg, fl.configFile); err != nil {
			return cfg, err
		}
	}
	if err := loadDotEnv(); err != nil {
		return cfg, err
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}

	set := cmd.Flags().Changed
	v := fl.cfg
	if set("url") {
		cfg.URL = v.URL
	}
	if set("out") {
		cfg.Out = v.Out
	}
	if set("driver") {
		cfg.Driver = v.Driver
	}
	if set("wide") {
		cfg.Wide = v.Wide
	}
	if set("narrow") {
		cfg.Narrow = v.Narrow
	}
	if set("height") {
		cfg.Height = v.Height
	}
	if set("settle") {
		cfg.Settle = v.Settle
	}
	if set("settle-delay") {
		cfg.SettleDelay = v.SettleDelay
	}
	if set("wait-timeout") {
		cfg.WaitTimeout = v.WaitTimeout
	}
	if set("timeout") {
		cfg.Timeout = v.Timeout
	}
	if set("from") {
		cfg.From = v.From
	}
	if set("to") {
		cfg.To = v.To
	}
	if set("bundle") {
		cfg.Bundle = v.Bundle
	}
	if set("chrome-path") {
		cfg.ChromePath = v.ChromePath
	}
	if set("no-sandbox") {
		cfg.NoSandbox = v.NoSandbox
	}
	if set("auto-download") {
		cfg.AutoDownload = v.AutoDownload
	}
	if set("no-stealth") {
		cfg.NoStealth = v.NoStealth
	}
	if set("headful") {
		cfg.Headful = v.Headful
	}
	if set("log-level") {
		cfg.LogLevel = v.LogLevel
	}
	if set("log-format") {
		cfg.LogFormat = v.LogFormat
	}

	return cfg, cfg.validate()
}

type sessionOpener func(cfg config, log zerolog.Logger) (canvascap.Session, error)

func openSession(cfg config, log zerolog.Logger) (canvascap.Session, error) {
	opts := cfg.sessionOptions(log)
	if cfg.Driver == "rod" {
		return canvascap.NewRodSession(opts...)
	}
	return canvascap.NewChromeSession(opts...)
}

// runCapture opens a session, runs the capture and reports progress on
// stderr. Interrupts cancel the run; the diagnostic screenshot is still
// taken.
func runCapture(ctx context.Context, cfg config, stderr io.Writer, open sessionOpener) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess, err := open(cfg, log)
	if err != nil {
		return err
	}
	defer sess.Close()

	var bar *progressbar.ProgressBar
	progress := func(e canvascap.ProgressEvent) {
		if bar == nil {
			bar = progressbar.NewOptions(e.Total,
				progressbar.OptionSetWriter(stderr),
				progressbar.OptionSetDescription("pages"),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionOnCompletion(func() { fmt.Fprintln(stderr) }),
			)
		}
		_ = bar.Set(e.Done)
	}

	opts := append(cfg.runOptions(log), canvascap.WithProgress(progress))
	rep, err := canvascap.Run(ctx, sess, cfg.evader(), opts...)
	if err != nil {
		return err
	}
	log.Info().
		Int("pages", rep.TotalPages).
		Int("written", len(rep.Files)).
		Str("bundle", rep.Bundle).
		Msg("capture complete")
	return nil
}
