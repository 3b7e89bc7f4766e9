// Package client submits a selection of local PDF files to the merge
// service and builds the previews shown while the selection is edited.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"go-pdfmerger/internal/handlers"
	"go-pdfmerger/internal/pdf"

	"go.uber.org/zap"
)

var (
	ErrMergeFailed = errors.New("merge request failed")
	ErrNoFiles     = errors.New("no files selected")
)

// errorBodyLimit bounds how much of a failed response is quoted in errors.
const errorBodyLimit = 1 << 10

type Client struct {
	BaseURL string
	HTTP    *http.Client
	Log     *zap.Logger
}

// New returns a client for the service at baseURL.
func New(baseURL string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 5 * time.Minute},
		Log:     log,
	}
}

// Result is a merged document returned by the service.
type Result struct {
	Data  []byte
	Pages int
}

func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("health check: %s", resp.Status)
	}
	return string(body), nil
}

// Merge uploads files in order and returns the merged document. Any non-200
// answer is reported as ErrMergeFailed; no partial result is returned.
func (c *Client) Merge(ctx context.Context, files []File) (*Result, error) {
	resp, err := c.post(ctx, "/upload", files)
	if errors.Is(err, ErrNoFiles) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMergeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure(ErrMergeFailed, resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrMergeFailed, err)
	}
	pages, _ := strconv.Atoi(resp.Header.Get("X-Merged-Pages"))
	c.Log.Debug("merge complete",
		zap.Int("files", len(files)),
		zap.Int("pages", pages),
		zap.Int("bytes", len(data)))
	return &Result{Data: data, Pages: pages}, nil
}

// Inspect asks the service for page counts and first-page sizes.
func (c *Client) Inspect(ctx context.Context, files []File) (*handlers.InspectResponse, error) {
	resp, err := c.post(ctx, "/inspect", files)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure(errors.New("inspect request failed"), resp)
	}
	var out handlers.InspectResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding inspect response: %w", err)
	}
	return &out, nil
}

// post streams files as repeated multipart parts so large selections are
// never held in memory.
func (c *Client) post(ctx context.Context, path string, files []File) (*http.Response, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeParts(writer, files))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	c.Log.Debug("uploading files", zap.String("path", path), zap.Int("files", len(files)))
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return resp, nil
}

func writeParts(writer *multipart.Writer, files []File) error {
	for _, f := range files {
		if err := writePart(writer, f); err != nil {
			return err
		}
	}
	return writer.Close()
}

func writePart(writer *multipart.Writer, f File) error {
	src, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer src.Close()

	part, err := writer.CreateFormFile(handlers.FormField, f.Name)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, src)
	return err
}

func failure(kind error, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("%w: %s", kind, resp.Status)
	}
	return fmt.Errorf("%w: %s: %s", kind, resp.Status, msg)
}

// MergeLocal concatenates files without a server, using the same rules the
// service applies.
func MergeLocal(files []File, w io.Writer) (int, error) {
	if len(files) == 0 {
		return 0, ErrNoFiles
	}
	sources := make([]pdf.Source, 0, len(files))
	for _, f := range files {
		fh, err := os.Open(f.Path)
		if err != nil {
			closeSources(sources)
			return 0, err
		}
		sources = append(sources, pdf.Source{Name: f.Name, Reader: fh})
	}
	defer closeSources(sources)

	docs, err := pdf.Load(sources)
	if err != nil {
		return 0, err
	}
	return pdf.Merge(docs, w)
}

func closeSources(sources []pdf.Source) {
	for _, s := range sources {
		if c, ok := s.Reader.(io.Closer); ok {
			c.Close()
		}
	}
}
