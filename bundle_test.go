package canvascap

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestBundle(t *testing.T) {
	dir := t.TempDir()
	var images []string
	for i := 0; i < 3; i++ {
		p := filepath.Join(dir, "image_"+string(rune('0'+i))+".png")
		writeTestPNG(t, p, 40, 60)
		images = append(images, p)
	}
	out := filepath.Join(dir, "book.pdf")

	require.NoError(t, Bundle(images, out))
	n, err := BundlePageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// A second bundle replaces the first instead of appending to it.
	require.NoError(t, Bundle(images[:1], out))
	n, err = BundlePageCount(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBundle_NoImages(t *testing.T) {
	assert.Error(t, Bundle(nil, filepath.Join(t.TempDir(), "x.pdf")))
}
