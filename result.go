package htmlpdf

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Result is a rendered PDF. It holds only the base64 text returned by the
// browser; every other view is computed on demand.
type Result struct {
	data string
}

// NewResult wraps base64-encoded PDF data.
func NewResult(b64 string) *Result {
	return &Result{data: b64}
}

// Base64 returns the PDF as base64 text.
func (r *Result) Base64() string {
	return r.data
}

// Bytes decodes the PDF.
func (r *Result) Bytes() ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(r.data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return b, nil
}

// Reader returns a fresh single-pass stream of the decoded PDF.
func (r *Result) Reader() io.Reader {
	return base64.NewDecoder(base64.StdEncoding, strings.NewReader(r.data))
}

// WriteFile writes the decoded PDF to path. Filesystem errors are wrapped
// with ErrPersist and stay matchable with errors.Is (e.g. fs.ErrNotExist).
func (r *Result) WriteFile(path string) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	// #nosec G306 -- PDF output files are intended to be readable
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// pdfcpuConfig disables pdfcpu's on-disk configuration directory once.
var pdfcpuConfig = sync.OnceValue(func() *model.Configuration {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
})

// PageCount parses the PDF and returns its number of pages.
func (r *Result) PageCount() (int, error) {
	b, err := r.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := api.PageCount(bytes.NewReader(b), pdfcpuConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return n, nil
}
