// Package handlers provides HTTP handlers for the PDF merging API.
//
// This package contains the liveness check, the merge endpoint and the
// inspect endpoint used for server-assisted previews.
//
// Example usage:
//
//	h := handlers.NewAPIHandler(sessionManager, handlers.Options{MaxUploadSize: 100 << 20}, log)
//	r := chi.NewRouter()
//	r.Post("/upload", h.MergeFiles)
//
// All handlers are designed to be used with the chi router.
package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"go-pdfmerger/internal/pdf"
	"go-pdfmerger/internal/session"

	"go.uber.org/zap"
)

// FormField is the repeatable multipart field carrying the PDFs.
const FormField = "files"

const (
	msgMergeFailed     = "An error occurred while processing the PDF files."
	msgGenerateFailed  = "Failed to generate PDF."
	msgNoFiles         = "No files uploaded"
	msgTooLarge        = "Upload too large"
	msgNotMultipart    = "Expected a multipart/form-data body"
	msgMalformedUpload = "Malformed multipart body"
	msgSaveFailed      = "Failed to save uploaded file"
)

type Options struct {
	MaxUploadSize int64
	// DebugOutput, when set, receives a copy of every merged PDF.
	DebugOutput string
}

type APIHandler struct {
	SessionManager *session.SessionManager
	Options        Options
	Log            *zap.Logger
}

func NewAPIHandler(sm *session.SessionManager, opts Options, log *zap.Logger) *APIHandler {
	return &APIHandler{SessionManager: sm, Options: opts, Log: log}
}

// FileInfo describes one uploaded PDF.
type FileInfo struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	Size   int64   `json:"size"`
	Pages  int     `json:"pages"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type InspectResponse struct {
	Files      []FileInfo `json:"files"`
	TotalPages int        `json:"totalPages"`
}

// Health godoc
// @Summary      Liveness check
// @Description  Reports that the backend is running
// @Tags         health
// @Produce      plain
// @Success      200  {string}  string  "PDF Merger Backend is running."
// @Router       / [get]
func (h *APIHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "PDF Merger Backend is running.")
}

// MergeFiles godoc
// @Summary      Merge uploaded PDFs
// @Description  Concatenates every page of every uploaded PDF, in upload order, into one document
// @Tags         files
// @Accept       multipart/form-data
// @Produce      application/pdf
// @Param        files  formData  file  true  "PDF files in merge order (repeat the field)"
// @Success      200  {file}    file    "merged.pdf"
// @Header       200  {integer} X-Merged-Pages  "Number of pages in the merged document"
// @Failure      400  {string}  string  "No files uploaded"
// @Failure      500  {string}  string  "Merge failed"
// @Router       /upload [post]
func (h *APIHandler) MergeFiles(w http.ResponseWriter, r *http.Request) {
	sess := h.SessionManager.CreateSession()
	defer h.release(sess)

	sources, closeAll, ok := h.receive(w, r, sess)
	if !ok {
		return
	}
	defer closeAll()

	docs, err := pdf.Load(sources)
	if err != nil {
		h.Log.Error("failed to load PDFs", zap.String("session", sess.ID), zap.Error(err))
		http.Error(w, msgMergeFailed, http.StatusInternalServerError)
		return
	}

	var out bytes.Buffer
	pages, err := pdf.Merge(docs, &out)
	if err != nil {
		h.Log.Error("failed to merge PDFs", zap.String("session", sess.ID), zap.Error(err))
		http.Error(w, msgGenerateFailed, http.StatusInternalServerError)
		return
	}
	h.Log.Info("PDF generated",
		zap.String("session", sess.ID),
		zap.Int("files", len(docs)),
		zap.Int("pages", pages),
		zap.Int("bytes", out.Len()))

	h.writeDebugCopy(out.Bytes())

	w.Header().Set("Content-Disposition", "attachment; filename=merged.pdf")
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(out.Len()))
	w.Header().Set("X-Merged-Pages", strconv.Itoa(pages))
	if _, err := w.Write(out.Bytes()); err != nil {
		h.Log.Warn("client went away before the merged PDF was sent", zap.String("session", sess.ID), zap.Error(err))
	}
}

// InspectFiles godoc
// @Summary      Inspect uploaded PDFs
// @Description  Returns page count and first-page size of each uploaded PDF, in upload order
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        files  formData  file  true  "PDF files (repeat the field)"
// @Success      200  {object}  InspectResponse
// @Failure      400  {string}  string  "No files uploaded"
// @Failure      500  {string}  string  "Inspect failed"
// @Router       /inspect [post]
func (h *APIHandler) InspectFiles(w http.ResponseWriter, r *http.Request) {
	sess := h.SessionManager.CreateSession()
	defer h.release(sess)

	sources, closeAll, ok := h.receive(w, r, sess)
	if !ok {
		return
	}
	defer closeAll()

	stored := sess.GetFiles()
	resp := InspectResponse{Files: make([]FileInfo, 0, len(sources))}
	for i, src := range sources {
		info, err := pdf.Inspect(src.Reader)
		if err != nil {
			h.Log.Error("failed to inspect PDF",
				zap.String("session", sess.ID),
				zap.Int("index", i),
				zap.String("name", src.Name),
				zap.Error(err))
			http.Error(w, msgMergeFailed, http.StatusInternalServerError)
			return
		}
		resp.Files = append(resp.Files, FileInfo{
			Index:  i,
			Name:   src.Name,
			Size:   stored[i].Size,
			Pages:  info.Pages,
			Width:  info.Width,
			Height: info.Height,
		})
		resp.TotalPages += info.Pages
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.Log.Warn("failed to write inspect response", zap.Error(err))
	}
}

// receive stores every file part of the request in sess and opens them in
// arrival order. On failure it has already written the response.
func (h *APIHandler) receive(w http.ResponseWriter, r *http.Request, sess *session.Session) ([]pdf.Source, func(), bool) {
	if err := h.storeParts(w, r, sess); err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			h.Log.Warn("rejected upload", zap.String("session", sess.ID), zap.Error(err))
			http.Error(w, reqErr.msg, reqErr.status)
		} else {
			h.Log.Error("failed to receive upload", zap.String("session", sess.ID), zap.Error(err))
			http.Error(w, msgSaveFailed, http.StatusInternalServerError)
		}
		return nil, nil, false
	}

	files := sess.GetFiles()
	if len(files) == 0 {
		http.Error(w, msgNoFiles, http.StatusBadRequest)
		return nil, nil, false
	}

	sources, closeAll, err := openSources(files)
	if err != nil {
		h.Log.Error("failed to reopen scratch files", zap.String("session", sess.ID), zap.Error(err))
		http.Error(w, msgMergeFailed, http.StatusInternalServerError)
		return nil, nil, false
	}
	return sources, closeAll, true
}

type requestError struct {
	status int
	msg    string
	err    error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{status: http.StatusBadRequest, msg: msg, err: err}
}

func (h *APIHandler) storeParts(w http.ResponseWriter, r *http.Request, sess *session.Session) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.Options.MaxUploadSize)
	mr, err := r.MultipartReader()
	if err != nil {
		return badRequest(msgNotMultipart, err)
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return classifyBodyError(msgMalformedUpload, err)
		}
		if part.FormName() != FormField || part.FileName() == "" {
			part.Close()
			continue
		}
		_, err = sess.Store(part.FileName(), part)
		part.Close()
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return badRequest(msgTooLarge, err)
			}
			return err
		}
	}
}

func classifyBodyError(msg string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return badRequest(msgTooLarge, err)
	}
	return badRequest(msg, err)
}

func openSources(files []session.StoredFile) ([]pdf.Source, func(), error) {
	opened := make([]*os.File, 0, len(files))
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}
	sources := make([]pdf.Source, 0, len(files))
	for _, file := range files {
		f, err := os.Open(file.Path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, f)
		sources = append(sources, pdf.Source{Name: file.Name, Reader: f})
	}
	return sources, closeAll, nil
}

// release also cleans the session itself, since the janitor may already
// have dropped it from the registry.
func (h *APIHandler) release(sess *session.Session) {
	if err := errors.Join(h.SessionManager.Release(sess.ID), sess.Cleanup()); err != nil {
		h.Log.Warn("failed to remove scratch files", zap.String("session", sess.ID), zap.Error(err))
	}
}

// writeDebugCopy replaces DebugOutput atomically so concurrent merges never
// leave an interleaved file behind.
func (h *APIHandler) writeDebugCopy(data []byte) {
	path := h.Options.DebugOutput
	if path == "" {
		return
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".merged-*.pdf")
	if err != nil {
		h.Log.Warn("error saving debug copy", zap.String("path", path), zap.Error(err))
		return
	}
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(tmp.Name())
		h.Log.Warn("error saving debug copy", zap.String("path", path), zap.Error(err))
		return
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		h.Log.Warn("error saving debug copy", zap.String("path", path), zap.Error(err))
		return
	}
	h.Log.Debug("merged PDF saved", zap.String("path", path))
}
