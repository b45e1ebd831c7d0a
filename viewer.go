package canvascap

import (
	"encoding/json"
	"fmt"
)

// ViewerSettings is the configuration blob the viewer reads from
// localStorage once at load time.
//
// The capture math assumes exactly one canvas per page index with stable
// dimensions, which only holds when double spreads are off and page
// transitions are not animated. [ViewerSettings.Validate] enforces that.
type ViewerSettings struct {
	TapRange              int    `json:"viewerTapRange"`
	PageTransitionAxis    string `json:"viewerPageTransitionAxis"`
	AnimationPatternFixed string `json:"viewerAnimationPatternForFixed"`
	AnimationPattern      string `json:"viewerAnimationPattern"`
	SpreadDouble          bool   `json:"viewerSpreadDouble"`
}

// DefaultViewerSettings returns the settings required for capture.
func DefaultViewerSettings() ViewerSettings {
	return ViewerSettings{
		TapRange:              50,
		PageTransitionAxis:    "vertical",
		AnimationPatternFixed: "seamless",
		AnimationPattern:      "off",
		SpreadDouble:          false,
	}
}

// Validate reports [ErrUnsafeViewerSettings] when the settings would let
// the viewer show two pages per canvas or animate between pages.
func (s ViewerSettings) Validate() error {
	switch {
	case s.SpreadDouble:
		return fmt.Errorf("%w: double spread enabled", ErrUnsafeViewerSettings)
	case s.AnimationPattern != "off":
		return fmt.Errorf("%w: animation pattern %q", ErrUnsafeViewerSettings, s.AnimationPattern)
	case s.AnimationPatternFixed != "seamless":
		return fmt.Errorf("%w: fixed-layout animation %q", ErrUnsafeViewerSettings, s.AnimationPatternFixed)
	}
	return nil
}

// JSON encodes the settings in the layout the viewer expects.
func (s ViewerSettings) JSON() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("canvascap: encoding viewer settings: %w", err)
	}
	return string(b), nil
}

// Target describes the viewer document and the state it needs before the
// first page can be captured.
type Target struct {
	// URL of the viewer document.
	URL string

	// Cookie required for the viewer to render pages.
	Cookie Cookie

	// StorageKey is the localStorage key holding Settings.
	StorageKey string

	// Settings is injected under StorageKey before the reload.
	Settings ViewerSettings

	// CounterSelector locates the "<current>/<total>" page counter.
	CounterSelector string
}

// DefaultTarget returns the viewer document the tool was built for.
func DefaultTarget() Target {
	return Target{
		URL: "https://bookwalker.jp/de4f4369e5-f291-4137-b631-cfc9532c2f2d/?sample=1",
		Cookie: Cookie{
			Name:   "cookie_optin",
			Value:  "1",
			Domain: ".bookwalker.jp",
			Secure: true,
		},
		StorageKey:      "/NFBR_Settings/NFBR.SettingData",
		Settings:        DefaultViewerSettings(),
		CounterSelector: DefaultCounterSelector,
	}
}

// resolved fills empty fields from DefaultTarget.
func (t Target) resolved() Target {
	d := DefaultTarget()
	if t.URL == "" {
		t.URL = d.URL
	}
	if t.Cookie == (Cookie{}) {
		t.Cookie = d.Cookie
	}
	if t.StorageKey == "" {
		t.StorageKey = d.StorageKey
	}
	if t.Settings == (ViewerSettings{}) {
		t.Settings = d.Settings
	}
	if t.CounterSelector == "" {
		t.CounterSelector = d.CounterSelector
	}
	return t
}
