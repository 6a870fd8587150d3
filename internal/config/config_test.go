package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.VectorStore.Type)
	assert.Equal(t, 1000, cfg.Chunker.MaxChunkLen)
	assert.Equal(t, 4, cfg.Ask.TopK)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Gemini.APIKeyEnv)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
vector_store:
  type: pinecone
  pinecone:
    host: https://idx.example.pinecone.io
`), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pinecone", cfg.VectorStore.Type)
	require.NotNil(t, cfg.VectorStore.Pinecone)
	assert.Equal(t, "PINECONE_API_KEY", cfg.VectorStore.Pinecone.APIKeyEnv)
	assert.Equal(t, 30, cfg.VectorStore.Pinecone.TimeoutSecs)
	assert.Equal(t, ":8080", cfg.Server.Listen)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultConfig()
	cfg.Server.Listen = ":9999"
	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", loaded.Server.Listen)
}
