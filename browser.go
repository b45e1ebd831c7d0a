package canvascap

import (
	"fmt"

	"github.com/go-rod/rod/lib/launcher"
)

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("canvascap: downloading browser: %w", err)
	}
	return path, nil
}

// browserPath picks the executable for a session: an explicit path wins,
// then an auto-downloaded build, then whatever the driver finds itself
// (empty result).
func (c sessionConfig) browserPath() (string, error) {
	if c.chromePath != "" {
		return c.chromePath, nil
	}
	if c.autoDownload {
		return resolveBrowser()
	}
	return "", nil
}
