package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 6, cfg.RAG.TopK)
	assert.Equal(t, BackendMemory, cfg.RAG.Backend)
	assert.Equal(t, 100*time.Millisecond, cfg.RAG.StreamDelay)
	assert.Equal(t, 0.1, cfg.LLM.Temperature)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestLoadConfig_ProviderDefaultModel(t *testing.T) {
	path := writeConfig(t, "llm:\n  provider: googleai\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gemini-1.5-flash", cfg.LLM.Model)
	assert.Equal(t, "GOOGLE_API_KEY", cfg.LLM.KeyEnv)
}

func TestLoadConfig_ReadsYAML(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: ollama
  base_url: http://localhost:11434
  model: llama3
embed_llm:
  provider: hashing
  dimension: 64
rag:
  splitter: recursive
  chunk_size: 500
  chunk_overlap: 50
  top_k: 3
  stream_delay: 20ms
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOllama, cfg.LLM.Provider)
	assert.Equal(t, "llama3", cfg.LLM.Model)
	assert.Equal(t, 64, cfg.EmbedLLM.Dimension)
	assert.Equal(t, SplitterRecursive, cfg.RAG.Splitter)
	assert.Equal(t, 20*time.Millisecond, cfg.RAG.StreamDelay)
	assert.NoError(t, cfg.LLM.RequireKey())
}

func TestLoadConfig_ExplicitZeroOverlap(t *testing.T) {
	path := writeConfig(t, "rag:\n  chunk_size: 500\n  chunk_overlap: 0\nsummarizer:\n  chunk_overlap: 0\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 0, cfg.Summarizer.ChunkOverlap)
}

func TestLoadConfig_OmittedOverlapUsesDefault(t *testing.T) {
	path := writeConfig(t, "rag:\n  chunk_size: 500\nsummarizer:\n  chunk_size: 150\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 0, cfg.Summarizer.ChunkOverlap)
}

func TestLoadConfig_NegativeOverlap(t *testing.T) {
	path := writeConfig(t, "rag:\n  chunk_overlap: -5\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestDefault_Overlap(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 100, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 200, cfg.Summarizer.ChunkOverlap)
}

func TestLoadConfig_ResolvesKeyFromEnv(t *testing.T) {
	t.Setenv("RAGCHAT_TEST_KEY", "secret")
	path := writeConfig(t, "llm:\n  key_env: RAGCHAT_TEST_KEY\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.LLM.Key)
	assert.NoError(t, cfg.LLM.RequireKey())
}

func TestLoadConfig_InvalidOverlap(t *testing.T) {
	path := writeConfig(t, "rag:\n  chunk_size: 100\n  chunk_overlap: 100\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_PgvectorNeedsDSN(t *testing.T) {
	path := writeConfig(t, "rag:\n  backend: pgvector\n")

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestRequireKey_Missing(t *testing.T) {
	cfg := LLMConfig{Provider: ProviderGoogleAI, KeyEnv: "RAGCHAT_UNSET_KEY"}
	assert.Error(t, cfg.RequireKey())
}
