package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go-pdfmerger/internal/pdf"

	"golang.org/x/sync/errgroup"
)

var ErrIndexOutOfRange = errors.New("index out of range")

// File is a local file chosen for merging.
type File struct {
	Name string
	Path string
}

// NewFile names the file after the last element of path.
func NewFile(path string) File {
	return File{Name: filepath.Base(path), Path: path}
}

// Preview holds what is shown for a file in the selection list.
type Preview struct {
	Pages  int
	Width  float64
	Height float64
	// FirstPage is a single-page PDF holding page 1, ready for a renderer.
	FirstPage []byte
}

// Entry is one selected file and its preview. Err is set when the preview
// could not be built; the file stays selected and the server decides
// whether it is usable.
type Entry struct {
	File    File
	Preview *Preview
	Err     error
}

// Selection is the ordered list of files that will be submitted.
type Selection struct {
	entries []Entry
}

// Add builds previews for files concurrently and appends them, in the order
// given, once all are done. On cancellation nothing is appended.
func (s *Selection) Add(ctx context.Context, files ...File) error {
	entries, err := LoadPreviews(ctx, files)
	if err != nil {
		return err
	}
	s.entries = append(s.entries, entries...)
	return nil
}

func (s *Selection) Remove(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("remove %d of %d: %w", i, len(s.entries), ErrIndexOutOfRange)
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return nil
}

// Move takes the entry at from out of the list and reinserts it at to.
func (s *Selection) Move(from, to int) error {
	n := len(s.entries)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move %d to %d of %d: %w", from, to, n, ErrIndexOutOfRange)
	}
	moved := s.entries[from]
	s.entries = append(s.entries[:from], s.entries[from+1:]...)
	s.entries = append(s.entries[:to], append([]Entry{moved}, s.entries[to:]...)...)
	return nil
}

func (s *Selection) Reset() {
	s.entries = nil
}

func (s *Selection) Len() int {
	return len(s.entries)
}

func (s *Selection) Entries() []Entry {
	entries := make([]Entry, len(s.entries))
	copy(entries, s.entries)
	return entries
}

// Files returns the selected files in submission order.
func (s *Selection) Files() []File {
	files := make([]File, len(s.entries))
	for i, e := range s.entries {
		files[i] = e.File
	}
	return files
}

// LoadPreviews runs one task per file and returns entries in input order,
// whatever order the tasks finish in. Only cancellation is an error.
func LoadPreviews(ctx context.Context, files []File) ([]Entry, error) {
	entries := make([]Entry, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			preview, err := buildPreview(f)
			entries[i] = Entry{File: f, Preview: preview, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func buildPreview(f File) (*Preview, error) {
	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	info, err := pdf.Inspect(fh)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	var first bytes.Buffer
	if err := pdf.ExtractFirstPage(fh, &first); err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name, err)
	}
	return &Preview{
		Pages:     info.Pages,
		Width:     info.Width,
		Height:    info.Height,
		FirstPage: first.Bytes(),
	}, nil
}
