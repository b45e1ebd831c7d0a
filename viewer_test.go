package canvascap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultViewerSettings_JSON(t *testing.T) {
	got, err := DefaultViewerSettings().JSON()
	require.NoError(t, err)
	// Same bytes the viewer writes for these settings itself.
	assert.Equal(t,
		`{"viewerTapRange":50,"viewerPageTransitionAxis":"vertical","viewerAnimationPatternForFixed":"seamless","viewerAnimationPattern":"off","viewerSpreadDouble":false}`,
		got)
}

func TestViewerSettings_Validate(t *testing.T) {
	require.NoError(t, DefaultViewerSettings().Validate())

	tests := []struct {
		name   string
		mutate func(*ViewerSettings)
	}{
		{"double spread", func(s *ViewerSettings) { s.SpreadDouble = true }},
		{"animated", func(s *ViewerSettings) { s.AnimationPattern = "slide" }},
		{"animated fixed layout", func(s *ViewerSettings) { s.AnimationPatternFixed = "curl" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultViewerSettings()
			tt.mutate(&s)
			assert.ErrorIs(t, s.Validate(), ErrUnsafeViewerSettings)
		})
	}
}

func TestTarget_Resolved(t *testing.T) {
	got := Target{URL: "http://127.0.0.1:8080/viewer"}.resolved()
	d := DefaultTarget()
	assert.Equal(t, "http://127.0.0.1:8080/viewer", got.URL)
	assert.Equal(t, d.Cookie, got.Cookie)
	assert.Equal(t, d.StorageKey, got.StorageKey)
	assert.Equal(t, d.Settings, got.Settings)
	assert.Equal(t, DefaultCounterSelector, got.CounterSelector)
}
