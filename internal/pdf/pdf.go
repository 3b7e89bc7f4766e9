// Package pdf wraps pdfcpu for the merge service.
//
// Functions:
//   - Load: Parses every source in order and reports the first one that is not a PDF.
//     Inputs: ordered sources.
//     Output: loaded documents or a *LoadError.
//   - Merge: Concatenates all pages of the loaded documents into one PDF.
//     Inputs: loaded documents, destination writer.
//     Output: total page count, error wrapping ErrSerialize on failure.
//   - Inspect: Returns page count and first-page size of a single PDF.
//   - ExtractFirstPage: Writes a single-page PDF holding page 1 of the input.
//
// These functions are used by the API handlers and the Go client.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var (
	ErrNoInput   = errors.New("no PDF files to merge")
	ErrSerialize = errors.New("failed to serialize merged PDF")
)

func init() {
	// Keep pdfcpu from creating a config dir under $HOME on first use.
	pdfapi.DisableConfigDir()
}

// LoadError reports which input could not be parsed.
type LoadError struct {
	Index int
	Name  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load file %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Source is one uploaded file in submission order.
type Source struct {
	Name   string
	Reader io.ReadSeeker
}

// Document is a Source that parsed and validated as a PDF.
type Document struct {
	Name   string
	Pages  int
	reader io.ReadSeeker
}

// Info describes a PDF for previews.
type Info struct {
	Pages  int
	Width  float64
	Height float64
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func readContext(rs io.ReadSeeker) (*model.Context, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	ctx, err := pdfapi.ReadContext(rs, newConfiguration())
	if err != nil {
		return nil, err
	}
	if err := pdfapi.ValidateContext(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// Load parses every source. It stops at the first failure so nothing is
// merged from a partially valid set.
func Load(sources []Source) ([]Document, error) {
	if len(sources) == 0 {
		return nil, ErrNoInput
	}
	docs := make([]Document, 0, len(sources))
	for i, src := range sources {
		ctx, err := readContext(src.Reader)
		if err != nil {
			return nil, &LoadError{Index: i, Name: src.Name, Err: err}
		}
		docs = append(docs, Document{Name: src.Name, Pages: ctx.PageCount, reader: src.Reader})
	}
	return docs, nil
}

// Merge writes every page of docs, in order, to w and returns the page count.
// Outline entries the merge adds per input are stripped again.
func Merge(docs []Document, w io.Writer) (int, error) {
	if len(docs) == 0 {
		return 0, ErrNoInput
	}

	rsc := make([]io.ReadSeeker, len(docs))
	total := 0
	for i, doc := range docs {
		if _, err := doc.reader.Seek(0, io.SeekStart); err != nil {
			return 0, fmt.Errorf("%w: rewind %s: %v", ErrSerialize, doc.Name, err)
		}
		rsc[i] = doc.reader
		total += doc.Pages
	}

	var merged bytes.Buffer
	if err := pdfapi.MergeRaw(rsc, &merged, false, newConfiguration()); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialize, err)
	}

	out := removeBookmarks(merged.Bytes())
	if _, err := w.Write(out); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrSerialize, err)
	}
	return total, nil
}

// removeBookmarks returns data without outlines, or data unchanged when
// there is nothing to remove.
func removeBookmarks(data []byte) []byte {
	var out bytes.Buffer
	if err := pdfapi.RemoveBookmarks(bytes.NewReader(data), &out, newConfiguration()); err != nil {
		return data
	}
	return out.Bytes()
}

// Inspect returns page count and the size of page 1 in points.
func Inspect(rs io.ReadSeeker) (*Info, error) {
	ctx, err := readContext(rs)
	if err != nil {
		return nil, err
	}
	info := &Info{Pages: ctx.PageCount}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("failed to read page dimensions: %w", err)
	}
	if len(dims) > 0 {
		info.Width = dims[0].Width
		info.Height = dims[0].Height
	}
	return info, nil
}

// ExtractFirstPage writes a one-page PDF containing page 1 of rs.
func ExtractFirstPage(rs io.ReadSeeker, w io.Writer) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := pdfapi.Trim(rs, w, []string{"1"}, newConfiguration()); err != nil {
		return fmt.Errorf("failed to extract first page: %w", err)
	}
	return nil
}
