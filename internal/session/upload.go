package session

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"docchat/internal/domain"
)

// Upload is a file the user handed to the session, kept in memory until it
// is staged for a preview or an ingestion.
type Upload struct {
	Name    string
	Content []byte
	Kind    domain.Kind
}

// NewUpload derives the kind from name's extension.
func NewUpload(name string, content []byte) (Upload, error) {
	kind, err := domain.KindFromName(name)
	if err != nil {
		return Upload{}, fmt.Errorf("%w: %s", err, filepath.Base(name))
	}
	return Upload{Name: filepath.Base(name), Content: content, Kind: kind}, nil
}

// ReadUpload reads a file from disk as an upload.
func ReadUpload(path string) (Upload, error) {
	if _, err := domain.KindFromName(path); err != nil {
		return Upload{}, fmt.Errorf("%w: %s", err, filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, err
	}
	return NewUpload(path, data)
}

// Identifier names the upload's content for the added-documents set.
func (u Upload) Identifier() string {
	h := sha256.Sum256(u.Content)
	return u.Name + "#" + hex.EncodeToString(h[:8])
}

// Staged is an upload materialized as a temp file.
type Staged struct {
	Path string
	once sync.Once
	err  error
}

// Stage writes u to a fresh temp file carrying the original extension.
func Stage(u Upload) (*Staged, error) {
	f, err := os.CreateTemp("", "docchat-upload-*"+filepath.Ext(u.Name))
	if err != nil {
		return nil, err
	}
	_, werr := f.Write(u.Content)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("stage %s: %w", u.Name, err)
	}
	return &Staged{Path: f.Name()}, nil
}

// Release removes the temp file. It is safe to call more than once.
func (s *Staged) Release() error {
	s.once.Do(func() {
		if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.err = err
		}
	})
	return s.err
}
