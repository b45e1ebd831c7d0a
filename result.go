package canvascap

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ImageArtifact holds one page's decoded canvas raster.
//
// It is produced once per page by [Pipeline.Capture] and persisted right
// away; callers should not keep artifacts for more than one page around.
type ImageArtifact struct {
	PageIndex int
	MIMEType  string
	data      []byte
}

// NewImageArtifact decodes a canvas data URL into an artifact for the
// given page index.
func NewImageArtifact(index int, dataURL string) (*ImageArtifact, error) {
	mime, buf, err := ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	return &ImageArtifact{PageIndex: index, MIMEType: mime, data: buf}, nil
}

// Bytes returns the raw image content.
func (a *ImageArtifact) Bytes() []byte {
	return a.data
}

// Base64 returns the image encoded as a standard base64 string (RFC 4648).
func (a *ImageArtifact) Base64() string {
	return base64.StdEncoding.EncodeToString(a.data)
}

// DataURL re-encodes the image as a data URL.
func (a *ImageArtifact) DataURL() string {
	return "data:" + a.MIMEType + ";base64," + a.Base64()
}

// Reader returns an [*bytes.Reader] over the image content.
func (a *ImageArtifact) Reader() *bytes.Reader {
	return bytes.NewReader(a.data)
}

// WriteTo writes the full image content to w. It implements [io.WriterTo].
func (a *ImageArtifact) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(a.data)
	return int64(n), err
}

// WriteToFile writes the image to the file at path, creating parent
// directories as needed.
func (a *ImageArtifact) WriteToFile(path string, perm os.FileMode) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("canvascap: creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, a.data, perm)
}

// Len returns the size of the image in bytes.
func (a *ImageArtifact) Len() int {
	return len(a.data)
}
