package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docchat/internal/config"
	"docchat/internal/vectorstore/memory"
	"docchat/internal/vectorstore/sqlite"
)

func TestOpen(t *testing.T) {
	log := zap.NewNop()

	st, err := Open(config.VectorStoreConfig{Type: "sqlite", Dir: t.TempDir()}, log)
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Storage{}, st)
	require.NoError(t, st.Close())

	st, err = Open(config.VectorStoreConfig{Type: "memory"}, log)
	require.NoError(t, err)
	assert.IsType(t, &memory.Storage{}, st)

	_, err = Open(config.VectorStoreConfig{Type: "qdrant"}, log)
	assert.EqualError(t, err, "qdrant config missing")

	_, err = Open(config.VectorStoreConfig{Type: "faiss"}, log)
	assert.EqualError(t, err, "unknown vector store: faiss")
}
