package extract

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// PDF reads page count and size for the viewer card; no text is extracted.
func PDF(path string) (*PDFInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	r, err := pdf.NewReader(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("read pdf: %w", err)
	}
	return &PDFInfo{Pages: r.NumPage(), Size: st.Size()}, nil
}
