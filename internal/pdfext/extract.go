// Package pdfext extracts plain text from the first page of an uploaded PDF.
package pdfext

import (
	"errors"

	"github.com/ledongthuc/pdf"
)

// Extractor pulls the first page's text from a PDF on disk.
type Extractor interface {
	FirstPageText(path string) (string, error)
}

type PDFExtractor struct{}

func New() PDFExtractor { return PDFExtractor{} }

func (PDFExtractor) FirstPageText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if r.NumPage() < 1 {
		return "", errors.New("pdf has no pages")
	}
	page := r.Page(1)
	if page.V.IsNull() {
		return "", errors.New("pdf first page is unreadable")
	}
	return page.GetPlainText(nil)
}
