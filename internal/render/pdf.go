package render

import (
	"fmt"
	"strings"

	wkhtmltopdf "github.com/SebastiaanKlippert/go-wkhtmltopdf"
)

// Converter turns a rendered HTML body into document bytes
type Converter interface {
	Convert(html string) ([]byte, error)
}

// PDFConverter converts HTML to PDF via wkhtmltopdf
type PDFConverter struct{}

// NewPDFConverter creates a converter. binaryPath overrides the wkhtmltopdf
// location when not on PATH.
func NewPDFConverter(binaryPath string) *PDFConverter {
	if binaryPath != "" {
		wkhtmltopdf.SetPath(binaryPath)
	}
	return &PDFConverter{}
}

// Convert produces the PDF body for the document
func (c *PDFConverter) Convert(html string) ([]byte, error) {
	gen, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("pdf generator: %w", err)
	}

	page := wkhtmltopdf.NewPageReader(strings.NewReader(html))
	page.LoadErrorHandling.Set("ignore")
	page.LoadMediaErrorHandling.Set("ignore")
	gen.AddPage(page)

	if err := gen.Create(); err != nil {
		return nil, fmt.Errorf("pdf conversion: %w", err)
	}

	return gen.Bytes(), nil
}
