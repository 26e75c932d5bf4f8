// Package extract produces on-screen previews of uploaded documents.
//
// Previews are read-only: extractors open the source file for reading and
// never write to it. Ingestion does not use these previews; the knowledge
// base receives the original file path.
package extract

import (
	"fmt"
	"os"

	"docchat/internal/domain"
)

// PDFInfo describes a PDF for the viewer card shown instead of text.
type PDFInfo struct {
	Pages int
	Size  int64
}

// Preview is the rendered preview of a single file.
type Preview struct {
	Kind domain.Kind
	Text string
	PDF  *PDFInfo
}

// Render renders the file at path according to its declared kind.
func Render(path string, kind domain.Kind) (Preview, error) {
	p := Preview{Kind: kind}
	var err error
	switch kind {
	case domain.KindPDF:
		p.PDF, err = PDF(path)
	case domain.KindDOCX:
		p.Text, err = DOCX(path)
	case domain.KindCSV, domain.KindXLSX:
		p.Text, err = Table(path)
	case domain.KindTXT:
		p.Text, err = Text(path)
	default:
		return p, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	if err != nil {
		return p, fmt.Errorf("preview %s: %w", kind, err)
	}
	return p, nil
}

// Text reads a text file verbatim.
func Text(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
