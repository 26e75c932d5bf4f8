package vectorstore

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/domain"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/qdrant"
	"docchat/internal/vectorstore/sqlite"
)

// Open builds the store selected by cfg.Type.
func Open(cfg config.VectorStoreConfig, log *zap.Logger) (domain.VectorStore, error) {
	switch cfg.Type {
	case "sqlite", "":
		st, err := sqlite.Open(sqlite.Config{Dir: cfg.Dir, Ephemeral: cfg.Ephemeral})
		if err != nil {
			return nil, err
		}
		log.Info("vector store opened", zap.String("type", "sqlite"), zap.String("dir", st.Dir()), zap.Bool("ephemeral", cfg.Ephemeral))
		return st, nil
	case "memory":
		log.Info("vector store opened", zap.String("type", "memory"))
		return memory.NewStorage(), nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, errors.New("qdrant config missing")
		}
		st, err := qdrant.NewStorage(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Qdrant.Collection,
			UseTLS:     cfg.Qdrant.UseTLS,
		})
		if err != nil {
			return nil, err
		}
		log.Info("vector store opened", zap.String("type", "qdrant"),
			zap.String("host", cfg.Qdrant.Host), zap.String("collection", cfg.Qdrant.Collection))
		return st, nil
	default:
		return nil, fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
