package loader

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/domain"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadText(t *testing.T) {
	l := New(Config{}, nil)
	p := writeFile(t, "notes.txt", "The quick brown fox.\nJumps over the dog.")

	doc, err := l.Load(context.Background(), p, domain.KindTXT)
	require.NoError(t, err)
	assert.Equal(t, "The quick brown fox.\nJumps over the dog.", doc.Content)
	assert.Equal(t, domain.KindTXT, doc.Kind)
	assert.Equal(t, p, doc.Source)
	assert.Len(t, doc.ID, 16)
}

func TestLoadCSVRowsBecomeLabelledText(t *testing.T) {
	l := New(Config{}, nil)
	p := writeFile(t, "report.csv", "item,total\napples,3\npears,5\n")

	doc, err := l.Load(context.Background(), p, domain.KindCSV)
	require.NoError(t, err)
	assert.Contains(t, doc.Content, "item: apples")
	assert.Contains(t, doc.Content, "total: 5")
	assert.Equal(t, 2, doc.Metadata["parts"])
}

func TestLoadDOCX(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.docx")
	f, err := os.Create(p)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		`<w:p><w:r><w:t>Alpha</w:t></w:r></w:p><w:p><w:r><w:t>Beta</w:t></w:r></w:p></w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	doc, err := New(Config{}, nil).Load(context.Background(), p, domain.KindDOCX)
	require.NoError(t, err)
	assert.Equal(t, "Alpha\nBeta", doc.Content)
}

func TestLoadRejectsPreviewOnlyKinds(t *testing.T) {
	_, err := New(Config{}, nil).Load(context.Background(), "sheet.xlsx", domain.KindXLSX)
	assert.ErrorIs(t, err, domain.ErrUnsupportedKind)
}

func TestLoadRejectsBlankContent(t *testing.T) {
	p := writeFile(t, "blank.txt", "  \n\t ")
	_, err := New(Config{}, nil).Load(context.Background(), p, domain.KindTXT)
	assert.ErrorContains(t, err, "no text content")
}

func TestLoadFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("Remote law text."))
	}))
	defer srv.Close()

	before, _ := filepath.Glob(filepath.Join(os.TempDir(), "docchat-*.txt"))
	doc, err := New(Config{}, nil).Load(context.Background(), srv.URL+"/law.txt", domain.KindTXT)
	require.NoError(t, err)
	assert.Equal(t, "Remote law text.", doc.Content)
	assert.Equal(t, srv.URL+"/law.txt", doc.Source)

	after, _ := filepath.Glob(filepath.Join(os.TempDir(), "docchat-*.txt"))
	assert.Len(t, after, len(before), "downloaded temp file must be removed")
}

func TestLoadFromURLErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New(Config{}, nil).Load(context.Background(), srv.URL, domain.KindPDF)
	assert.ErrorContains(t, err, "404")
}

func TestLoadFromURLRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 1024))
	}))
	defer srv.Close()

	_, err := New(Config{MaxBytes: 10}, nil).Load(context.Background(), srv.URL, domain.KindTXT)
	assert.ErrorContains(t, err, "exceeds limit")
}

func TestDocumentIDIsContentBased(t *testing.T) {
	assert.Equal(t, DocumentID(domain.KindTXT, "a"), DocumentID(domain.KindTXT, "a"))
	assert.NotEqual(t, DocumentID(domain.KindTXT, "a"), DocumentID(domain.KindCSV, "a"))
	assert.NotEqual(t, DocumentID(domain.KindTXT, "a"), DocumentID(domain.KindTXT, "b"))
}
