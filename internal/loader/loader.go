// Package loader turns an ingestion source (a file path or an http(s) URL)
// into documents ready for chunking.
package loader

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tmc/langchaingo/documentloaders"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"docchat/internal/domain"
	"docchat/internal/extract"
)

// Config tunes remote fetching. A zero Timeout waits indefinitely.
type Config struct {
	Timeout  time.Duration
	MaxBytes int64
}

// Loader loads sources of the ingestible kinds.
type Loader struct {
	http     *resty.Client
	maxBytes int64
	log      *zap.Logger
}

// New creates a loader.
func New(cfg Config, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "docchat/1.0")
	return &Loader{http: client, maxBytes: cfg.MaxBytes, log: log}
}

// IsURL reports whether source should be fetched over HTTP.
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads source as kind and returns a single document whose ID is
// derived from its content.
func (l *Loader) Load(ctx context.Context, source string, kind domain.Kind) (domain.Document, error) {
	if !kind.Ingestible() {
		return domain.Document{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, kind)
	}
	p := source
	if IsURL(source) {
		tmp, err := l.fetch(ctx, source, kind)
		if err != nil {
			return domain.Document{}, err
		}
		defer os.Remove(tmp)
		p = tmp
	}

	content, meta, err := l.read(ctx, p, kind)
	if err != nil {
		return domain.Document{}, fmt.Errorf("load %s: %w", kind, err)
	}
	if strings.TrimSpace(content) == "" {
		return domain.Document{}, fmt.Errorf("load %s: no text content", kind)
	}
	return domain.Document{
		ID:       DocumentID(kind, content),
		Source:   source,
		Kind:     kind,
		Content:  content,
		Metadata: meta,
	}, nil
}

func (l *Loader) read(ctx context.Context, p string, kind domain.Kind) (string, map[string]any, error) {
	if kind == domain.KindDOCX {
		text, err := extract.DOCX(p)
		return text, map[string]any{}, err
	}

	f, err := os.Open(p)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	var docs []schema.Document
	switch kind {
	case domain.KindPDF:
		var st os.FileInfo
		if st, err = f.Stat(); err == nil {
			docs, err = documentloaders.NewPDF(f, st.Size()).Load(ctx)
		}
	case domain.KindCSV:
		docs, err = documentloaders.NewCSV(f).Load(ctx)
	case domain.KindTXT:
		docs, err = documentloaders.NewText(f).Load(ctx)
	}
	if err != nil {
		return "", nil, err
	}

	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		if s := strings.TrimSpace(d.PageContent); s != "" {
			parts = append(parts, s)
		}
	}
	meta := map[string]any{"parts": len(docs)}
	return strings.Join(parts, "\n\n"), meta, nil
}

// fetch downloads url into a temp file carrying the kind's extension.
// The caller removes the file.
func (l *Loader) fetch(ctx context.Context, url string, kind domain.Kind) (string, error) {
	f, err := os.CreateTemp("", "docchat-*."+string(kind))
	if err != nil {
		return "", err
	}
	tmp := f.Name()
	f.Close()

	start := time.Now()
	resp, err := l.http.R().
		SetContext(ctx).
		SetOutput(tmp).
		Get(url)
	if err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.IsError() {
		os.Remove(tmp)
		return "", fmt.Errorf("fetch %s: %s", url, resp.Status())
	}
	st, err := os.Stat(tmp)
	if err != nil {
		os.Remove(tmp)
		return "", err
	}
	if l.maxBytes > 0 && st.Size() > l.maxBytes {
		os.Remove(tmp)
		return "", fmt.Errorf("fetch %s: body of %d bytes exceeds limit %d", url, st.Size(), l.maxBytes)
	}
	l.log.Info("fetched remote source",
		zap.String("url", url),
		zap.String("file", filepath.Base(tmp)),
		zap.Int64("bytes", st.Size()),
		zap.Duration("took", time.Since(start)))
	return tmp, nil
}

// DocumentID is a stable identifier for a document's content.
func DocumentID(kind domain.Kind, content string) string {
	h := sha1.Sum([]byte(string(kind) + "\x00" + content))
	return hex.EncodeToString(h[:8])
}

