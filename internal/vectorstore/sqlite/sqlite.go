// Package sqlite keeps the vector index in a single-file database inside a
// directory, so a knowledge base can outlive the process.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"docchat/internal/domain"
	"docchat/internal/vectorstore/similarity"
)

// FileName is the database file created inside the store directory.
const FileName = "kb.sqlite"

const dimensionKey = "dimension"

type chunkRecord struct {
	ID         string `gorm:"primaryKey"`
	DocumentID string `gorm:"index"`
	Source     string
	Kind       string
	Idx        int
	Text       string
	Embedding  []float32 `gorm:"serializer:json;type:text"`
}

func (chunkRecord) TableName() string { return "chunks" }

type metaRecord struct {
	Name  string `gorm:"primaryKey"`
	Value string
}

func (metaRecord) TableName() string { return "meta" }

// Config locates the store on disk.
type Config struct {
	Dir string
	// Ephemeral creates a fresh temp directory and deletes it on Close.
	Ephemeral bool
}

// Storage is a brute-force cosine store persisted with gorm.
type Storage struct {
	db        *gorm.DB
	dir       string
	ephemeral bool
	dimension int
}

// Open creates or opens the store directory and migrates the schema.
func Open(cfg Config) (*Storage, error) {
	dir := cfg.Dir
	if cfg.Ephemeral {
		tmp, err := os.MkdirTemp("", "docchat-kb-*")
		if err != nil {
			return nil, err
		}
		dir = tmp
	}
	if dir == "" {
		return nil, errors.New("sqlite store: dir is required")
	}
	discard := func() {
		if cfg.Ephemeral {
			os.RemoveAll(dir)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		discard()
		return nil, err
	}

	db, err := gorm.Open(gormsqlite.Open(filepath.Join(dir, FileName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		discard()
		return nil, fmt.Errorf("open %s: %w", dir, err)
	}

	s := &Storage{db: db, dir: dir, ephemeral: cfg.Ephemeral}
	if err := db.AutoMigrate(&chunkRecord{}, &metaRecord{}); err != nil {
		s.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	var m metaRecord
	if err := db.Where("name = ?", dimensionKey).Limit(1).Find(&m).Error; err != nil {
		s.Close()
		return nil, err
	}
	if m.Value != "" {
		s.dimension, _ = strconv.Atoi(m.Value)
	}
	return s, nil
}

// Dir returns the directory holding the database.
func (s *Storage) Dir() string { return s.dir }

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if s.dimension == dimension {
		return nil
	}
	if s.dimension != 0 {
		var n int64
		if err := s.db.WithContext(ctx).Model(&chunkRecord{}).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return fmt.Errorf("dimension mismatch: store has %d, got %d", s.dimension, dimension)
		}
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&metaRecord{Name: dimensionKey, Value: strconv.Itoa(dimension)}).Error
	if err != nil {
		return err
	}
	s.dimension = dimension
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if s.dimension == 0 {
		return errors.New("store not initialized")
	}
	if len(chunks) == 0 {
		return nil
	}
	records := make([]chunkRecord, len(chunks))
	for i, ch := range chunks {
		if len(vectors[i]) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
		records[i] = chunkRecord{
			ID:         ch.ID,
			DocumentID: ch.DocumentID,
			Source:     ch.Source,
			Kind:       string(ch.Kind),
			Idx:        ch.Index,
			Text:       ch.Text,
			Embedding:  vectors[i],
		}
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(records, 100).Error
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	var records []chunkRecord
	if err := s.db.WithContext(ctx).Order("rowid").Find(&records).Error; err != nil {
		return nil, err
	}
	scores := make([]float64, len(records))
	for i := range records {
		scores[i] = similarity.Cosine(records[i].Embedding, vector)
	}
	idxs := similarity.TopK(scores, topK)
	results := make([]domain.SearchResult, 0, len(idxs))
	for _, j := range idxs {
		r := records[j]
		results = append(results, domain.SearchResult{
			Chunk: domain.Chunk{
				ID:         r.ID,
				DocumentID: r.DocumentID,
				Source:     r.Source,
				Kind:       domain.Kind(r.Kind),
				Index:      r.Idx,
				Text:       r.Text,
			},
			Score: scores[j],
		})
	}
	return results, nil
}

func (s *Storage) HasDocument(ctx context.Context, documentID string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&chunkRecord{}).Where("document_id = ?", documentID).Count(&n).Error
	return n > 0, err
}

func (s *Storage) Clear(ctx context.Context) error {
	tx := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true})
	if err := tx.Delete(&chunkRecord{}).Error; err != nil {
		return err
	}
	if err := tx.Delete(&metaRecord{}).Error; err != nil {
		return err
	}
	s.dimension = 0
	return nil
}

// Close closes the database; ephemeral stores also delete their directory.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	if s.ephemeral {
		err = errors.Join(err, os.RemoveAll(s.dir))
	}
	return err
}
