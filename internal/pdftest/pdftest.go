// Package pdftest generates small PDFs for tests.
//
// Every page is an imported PNG placed full-page, so a page's size equals
// the size of its image. Giving each page a distinct width makes page
// order observable after a merge.
package pdftest

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

const pageHeight = 120

// PDF returns a document with one page per width.
func PDF(t testing.TB, widths ...int) []byte {
	t.Helper()
	if len(widths) == 0 {
		t.Fatal("pdftest: at least one page width is required")
	}

	imgs := make([]io.Reader, len(widths))
	for i, w := range widths {
		imgs[i] = bytes.NewReader(pagePNG(t, w))
	}

	imp := pdfcpu.DefaultImportConfig()
	imp.Pos = types.Full

	var buf bytes.Buffer
	if err := pdfapi.ImportImages(nil, &buf, imgs, imp, model.NewDefaultConfiguration()); err != nil {
		t.Fatalf("pdftest: import images: %v", err)
	}
	return buf.Bytes()
}

// WriteFile stores a generated PDF under dir and returns its path.
func WriteFile(t testing.TB, dir, name string, widths ...int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PDF(t, widths...), 0644); err != nil {
		t.Fatalf("pdftest: write %s: %v", path, err)
	}
	return path
}

// PageSizes returns the width and height of every page of data, in order.
func PageSizes(t testing.TB, data []byte) [][2]float64 {
	t.Helper()
	dims, err := pdfapi.PageDims(bytes.NewReader(data), relaxed())
	if err != nil {
		t.Fatalf("pdftest: page dims: %v", err)
	}
	sizes := make([][2]float64, len(dims))
	for i, d := range dims {
		sizes[i] = [2]float64{d.Width, d.Height}
	}
	return sizes
}

// WithBookmark returns data with a single outline entry pointing at page 1.
func WithBookmark(t testing.TB, data []byte, title string) []byte {
	t.Helper()
	bms := []pdfcpu.Bookmark{{Title: title, PageFrom: 1}}
	var buf bytes.Buffer
	if err := pdfapi.AddBookmarks(bytes.NewReader(data), &buf, bms, true, relaxed()); err != nil {
		t.Fatalf("pdftest: add bookmarks: %v", err)
	}
	return buf.Bytes()
}

// BookmarkCount returns the number of top-level outline entries in data.
func BookmarkCount(t testing.TB, data []byte) int {
	t.Helper()
	bms, err := pdfapi.Bookmarks(bytes.NewReader(data), relaxed())
	if err != nil {
		t.Fatalf("pdftest: bookmarks: %v", err)
	}
	return len(bms)
}

func relaxed() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// NotPDF returns bytes that start like a PDF but cannot be parsed.
func NotPDF() []byte {
	return []byte("%PDF-1.7\nthis is not really a pdf\n%%EOF\n")
}

func pagePNG(t testing.TB, width int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, pageHeight))
	shade := uint8(width % 256)
	for y := 0; y < pageHeight; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: shade, G: 255 - shade, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("pdftest: encode png: %v", err)
	}
	return buf.Bytes()
}
