package server

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go-pdfmerger/internal/config"
	"go-pdfmerger/internal/pdf"
	"go-pdfmerger/internal/pdftest"

	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{
			Port:           5001,
			AllowedOrigins: []string{"http://localhost:3000"},
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    time.Minute,
		},
		Storage: config.StorageConfig{
			UploadDir:     t.TempDir(),
			MaxUploadSize: 32 << 20,
			SessionTTL:    time.Minute,
		},
		Log: config.LogConfig{Level: "info", Format: "json"},
	}
}

func setupTestServer(t *testing.T) (*httptest.Server, *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	srv, err := NewServer(ctx, testConfig(t), zap.NewNop())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	ts := httptest.NewServer(srv.HTTP.Handler)
	t.Cleanup(ts.Close)
	return ts, srv
}

type upload struct {
	name string
	data []byte
}

func doUpload(url string, files ...upload) (*http.Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := writer.CreateFormFile("files", f.name)
		if err != nil {
			return nil, err
		}
		if _, err := part.Write(f.data); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return http.DefaultClient.Do(req)
}

func postFiles(t *testing.T, url string, files ...upload) *http.Response {
	t.Helper()
	resp, err := doUpload(url, files...)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// assertUploadDirEmpty polls because scratch files are removed after the
// response has been written.
func assertUploadDirEmpty(t *testing.T, srv *Server) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		entries, err := os.ReadDir(srv.cfg.Storage.UploadDir)
		if err != nil {
			t.Fatal(err)
		}
		if len(entries) == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%d files left in upload dir", len(entries))
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	if string(body) != "PDF Merger Backend is running." {
		t.Errorf("body = %q", body)
	}
}

func TestUploadMergesInOrder(t *testing.T) {
	ts, srv := setupTestServer(t)
	a := pdftest.PDF(t, 200, 210)
	b := pdftest.PDF(t, 300, 310, 320)

	resp := postFiles(t, ts.URL+"/upload", upload{"B.pdf", b}, upload{"A.pdf", a})
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d: %s", resp.StatusCode, body)
	}
	if cd := resp.Header.Get("Content-Disposition"); cd != "attachment; filename=merged.pdf" {
		t.Errorf("Content-Disposition = %q", cd)
	}

	info, err := pdf.Inspect(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("response is not a PDF: %v", err)
	}
	if info.Pages != 5 {
		t.Fatalf("merged %d pages, want 5", info.Pages)
	}
	bInfo, _ := pdf.Inspect(bytes.NewReader(b))
	if info.Width != bInfo.Width {
		t.Errorf("first page width %v, want B's %v", info.Width, bInfo.Width)
	}
	assertUploadDirEmpty(t, srv)
}

func TestUploadInvalidPDF(t *testing.T) {
	ts, srv := setupTestServer(t)

	resp := postFiles(t, ts.URL+"/upload",
		upload{"A.pdf", pdftest.PDF(t, 200)},
		upload{"notpdf.pdf", []byte("definitely not a pdf")},
	)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	assertUploadDirEmpty(t, srv)
}

func TestUploadNoFiles(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp := postFiles(t, ts.URL+"/upload")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestConcurrentUploads(t *testing.T) {
	ts, srv := setupTestServer(t)

	const workers = 8
	// Every request sends the same filenames but a different page count.
	firsts := make([][]byte, workers)
	for i := range firsts {
		widths := make([]int, i+1)
		for j := range widths {
			widths[j] = 200 + 10*j
		}
		firsts[i] = pdftest.PDF(t, widths...)
	}
	second := pdftest.PDF(t, 500)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := doUpload(ts.URL+"/upload",
				upload{"doc.pdf", firsts[i]},
				upload{"doc.pdf", second},
			)
			if err != nil {
				errs <- fmt.Errorf("worker %d: %v", i, err)
				return
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("worker %d: status %d", i, resp.StatusCode)
				return
			}
			info, err := pdf.Inspect(bytes.NewReader(body))
			if err != nil {
				errs <- fmt.Errorf("worker %d: %v", i, err)
				return
			}
			if info.Pages != i+2 {
				errs <- fmt.Errorf("worker %d: got %d pages, want %d", i, info.Pages, i+2)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
	assertUploadDirEmpty(t, srv)
}

func TestInspectRoute(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp := postFiles(t, ts.URL+"/inspect", upload{"A.pdf", pdftest.PDF(t, 200, 210)})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestAppPage(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/app")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "PDF Merger") {
		t.Fatalf("unexpected /app response %d", resp.StatusCode)
	}
}

func TestCORS(t *testing.T) {
	ts, _ := setupTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	req, _ = http.NewRequest(http.MethodOptions, ts.URL+"/upload", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q for foreign origin", got)
	}
}

func TestSwaggerLocalhostOnly(t *testing.T) {
	ts, srv := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/swagger/doc.json")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("swagger from localhost: got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil)
	req.RemoteAddr = "203.0.113.7:4444"
	rec := httptest.NewRecorder()
	srv.HTTP.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("swagger from remote: got %d, want 403", rec.Code)
	}
}

func TestShutdownCleansUploadDir(t *testing.T) {
	_, srv := setupTestServer(t)

	sess := srv.SessionManager.CreateSession()
	if _, err := sess.Store("left.pdf", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	stray := filepath.Join(srv.cfg.Storage.UploadDir, "stray.pdf")
	if err := os.WriteFile(stray, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	assertUploadDirEmpty(t, srv)
}
