package knowledge

import (
	"context"
	"time"

	"go.uber.org/zap"

	"docchat/internal/chunker"
	"docchat/internal/config"
	"docchat/internal/loader"
	"docchat/internal/provider"
	"docchat/internal/summarizer"
	"docchat/internal/vectorstore"
)

// Open assembles a Client for the configured variant.
func Open(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*Client, error) {
	p, err := cfg.ResolveProvider()
	if err != nil {
		return nil, err
	}
	prov, err := provider.New(ctx, p, cfg.Retrieval.EmbedBatch, log)
	if err != nil {
		return nil, err
	}
	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}
	sum, err := summarizer.New(cfg.Summarizer.Type)
	if err != nil {
		return nil, err
	}
	store, err := vectorstore.Open(cfg.VectorStore, log)
	if err != nil {
		return nil, err
	}
	ld := loader.New(loader.Config{
		Timeout:  time.Duration(cfg.Retrieval.FetchTimeout) * time.Second,
		MaxBytes: int64(cfg.Retrieval.MaxFetchBytes),
	}, log)

	return New(Deps{
		Loader:     ld,
		Chunker:    ch,
		Embedder:   prov.Embedder,
		Store:      store,
		Summarizer: sum,
		Generator:  prov.Generator,
		Log:        log,
	}, Options{
		TopK:             cfg.Retrieval.TopK,
		HistoryTurns:     cfg.Retrieval.HistoryTurns,
		SummarySentences: cfg.Summarizer.MaxSentences,
	}), nil
}
