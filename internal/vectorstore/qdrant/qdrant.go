package qdrant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docchat/internal/domain"
)

// Storage keeps chunks in a Qdrant collection over gRPC.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

type Config struct {
	Host       string
	Port       int
	APIKey     string
	Collection string
	UseTLS     bool
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant: collection is required")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant client: %w", err)
	}
	return &Storage{client: client, collection: cfg.Collection}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	if s.dimension == dimension {
		return nil
	}
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("qdrant collection exists: %w", err)
	}
	if !exists {
		err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("qdrant create collection: %w", err)
		}
	}
	s.dimension = dimension
	return nil
}

// pointID maps a chunk ID onto the UUID space Qdrant accepts.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunkID)).String()
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(pointID(ch.ID)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload(ch),
		}
	}
	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	if s.dimension == 0 {
		exists, err := s.client.CollectionExists(ctx, s.collection)
		if err != nil {
			return nil, fmt.Errorf("qdrant collection exists: %w", err)
		}
		if !exists {
			return nil, nil
		}
	}
	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant query: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, toResult(p))
	}
	return results, nil
}

func payload(ch domain.Chunk) map[string]*qdrant.Value {
	return map[string]*qdrant.Value{
		"chunk_id":    qdrant.NewValueString(ch.ID),
		"document_id": qdrant.NewValueString(ch.DocumentID),
		"source":      qdrant.NewValueString(ch.Source),
		"kind":        qdrant.NewValueString(string(ch.Kind)),
		"index":       qdrant.NewValueInt(int64(ch.Index)),
		"text":        qdrant.NewValueString(ch.Text),
	}
}

// toResult reads a scored point back into a chunk. Missing payload keys
// yield zero values.
func toResult(p *qdrant.ScoredPoint) domain.SearchResult {
	pl := p.GetPayload()
	return domain.SearchResult{
		Chunk: domain.Chunk{
			ID:         pl["chunk_id"].GetStringValue(),
			DocumentID: pl["document_id"].GetStringValue(),
			Source:     pl["source"].GetStringValue(),
			Kind:       domain.Kind(pl["kind"].GetStringValue()),
			Index:      int(pl["index"].GetIntegerValue()),
			Text:       pl["text"].GetStringValue(),
		},
		Score: float64(p.GetScore()),
	}
}

func (s *Storage) HasDocument(ctx context.Context, documentID string) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil || !exists {
		return false, err
	}
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("document_id", documentID)},
		},
	})
	if err != nil {
		return false, fmt.Errorf("qdrant count: %w", err)
	}
	return n > 0, nil
}

// Clear drops the collection; the next Init recreates it.
func (s *Storage) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("qdrant delete collection: %w", err)
	}
	s.dimension = 0
	return nil
}

func (s *Storage) Close() error { return s.client.Close() }
