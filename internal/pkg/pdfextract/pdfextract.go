package pdfextract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrEmptyInput = errors.New("pdf input is empty")

type Result struct {
	Pages int
	Text  string
}

// Extract validates data as a PDF, counts its pages and pulls out the plain
// text. A valid PDF without a text layer returns an empty Text and no error.
func Extract(data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("validate pdf failed: %w", err)
	}

	text, err := ExtractText(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("extract pdf text failed: %w", err)
	}
	return &Result{Pages: pages, Text: strings.TrimSpace(text)}, nil
}

// ExtractText reads the entire content of r and extracts plain text from the PDF.
func ExtractText(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", nil
	}
	pdfReader, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", err
	}
	plainReader, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	out, err := io.ReadAll(plainReader)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
