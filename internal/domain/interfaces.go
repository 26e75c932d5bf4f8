package domain

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// ErrUnsupportedKind is returned for file kinds a component cannot handle.
var ErrUnsupportedKind = errors.New("unsupported file type")

// Kind is the declared type of an uploaded or preloaded document.
type Kind string

const (
	KindPDF  Kind = "pdf"
	KindDOCX Kind = "docx"
	KindCSV  Kind = "csv"
	KindXLSX Kind = "xlsx"
	KindTXT  Kind = "txt"
)

// UploadKinds lists the kinds accepted by the upload control.
var UploadKinds = []Kind{KindPDF, KindDOCX, KindTXT, KindCSV, KindXLSX}

// KindFromName derives the kind from a file name's extension.
func KindFromName(name string) (Kind, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, k := range UploadKinds {
		if string(k) == ext {
			return k, nil
		}
	}
	return "", ErrUnsupportedKind
}

// Ingestible reports whether documents of this kind can be added to the knowledge base.
// Spreadsheets are preview-only.
func (k Kind) Ingestible() bool {
	switch k {
	case KindPDF, KindDOCX, KindCSV, KindTXT:
		return true
	}
	return false
}

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one immutable message of the chat transcript.
type Turn struct {
	Role    Role
	Content string
	At      time.Time
}

// Document is loaded content ready to be chunked.
type Document struct {
	ID       string
	Source   string
	Kind     Kind
	Content  string
	Metadata map[string]any
}

// Chunk is a part of a document stored in the vector index.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Kind       Kind
	Index      int
	Text       string
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// VectorStore persists vectors and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	HasDocument(ctx context.Context, documentID string) (bool, error)
	Clear(ctx context.Context) error
	Close() error
}
