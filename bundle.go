package canvascap

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Bundle writes the page images to a single PDF at outFile, one page per
// image sized to the image. An existing file at outFile is replaced.
func Bundle(images []string, outFile string) error {
	if len(images) == 0 {
		return errors.New("canvascap: no images to bundle")
	}
	if err := os.Remove(outFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("canvascap: replacing %s: %w", outFile, err)
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full

	conf := model.NewDefaultConfiguration()
	if err := api.ImportImagesFile(images, outFile, imp, conf); err != nil {
		return fmt.Errorf("canvascap: bundling %d images: %w", len(images), err)
	}
	return nil
}

// BundlePageCount returns the number of pages in a bundle written by
// [Bundle].
func BundlePageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("canvascap: reading %s: %w", path, err)
	}
	return n, nil
}
