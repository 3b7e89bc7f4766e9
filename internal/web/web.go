// Package web serves the browser upload/preview client.
//
// The page renders first-page thumbnails with pdf.js, keeps the selection
// order under drag-and-drop, and posts the ordered files to the merge
// endpoint.
package web

import (
	"bytes"
	_ "embed"
	"html/template"
	"net/http"
	"strconv"
)

// DefaultPDFJSURL is the pdf.js build loaded by the page.
const DefaultPDFJSURL = "https://cdnjs.cloudflare.com/ajax/libs/pdf.js/3.11.174"

//go:embed index.html
var indexHTML string

var page = template.Must(template.New("index").Parse(indexHTML))

type Options struct {
	UploadURL string
	FormField string
	PDFJSURL  string
}

// Handler renders the page once and serves the cached bytes.
func Handler(opts Options) (http.Handler, error) {
	if opts.PDFJSURL == "" {
		opts.PDFJSURL = DefaultPDFJSURL
	}
	var buf bytes.Buffer
	if err := page.Execute(&buf, opts); err != nil {
		return nil, err
	}
	body := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}), nil
}
