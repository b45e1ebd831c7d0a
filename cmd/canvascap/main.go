// canvascap captures every page of a canvas-rendered document viewer as a
// full-resolution PNG.
//
// Usage:
//
//	canvascap capture [flags]
//	canvascap capture --driver rod --auto-download --bundle book.pdf
//
// Settings are read, in increasing precedence, from built-in defaults, an
// optional YAML file (--config), CANVASCAP_* environment variables (a .env
// file in the working directory is loaded first) and command-line flags.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
