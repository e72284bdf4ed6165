package embedding

import (
	"context"
	"fmt"
	"strings"

	"ragchat/internal/config"
	"ragchat/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	hfembeddings "github.com/tmc/langchaingo/embeddings/huggingface"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/huggingface"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewEmbedder creates the embedder for the configured provider
func NewEmbedder(ctx context.Context, cfg *config.LLMConfig) (embeddings.Embedder, error) {
	if err := cfg.RequireKey(); err != nil {
		return nil, err
	}
	log.Debug().Interface("config", map[string]string{
		"provider":        cfg.Provider,
		"base_url":        cfg.BaseURL,
		"embedding_model": cfg.Model,
	}).Msg("Creating embedder")

	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg)
	case config.ProviderGoogleAI:
		return NewGoogleAIEmbedder(ctx, cfg)
	case config.ProviderHuggingface:
		return NewHuggingfaceEmbedder(cfg)
	case config.ProviderHashing:
		return NewHashingEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// NewOpenAIEmbedder also serves OpenAI compatible gateways such as OpenRouter.
func NewOpenAIEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize openai embedder: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

// new ollama embedder
func NewOllamaEmbedder(cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize ollama embedder: %w", err)
	}
	return embeddings.NewEmbedder(llm)
}

func NewGoogleAIEmbedder(ctx context.Context, cfg *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	opts := []googleai.Option{googleai.WithAPIKey(cfg.Key)}
	if cfg.Model != "" {
		opts = append(opts, googleai.WithDefaultEmbeddingModel(cfg.Model))
	}
	client, err := googleai.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize googleai embedder: %w", err)
	}
	return embeddings.NewEmbedder(client)
}

func NewHuggingfaceEmbedder(cfg *config.LLMConfig) (*hfembeddings.Huggingface, error) {
	model := cfg.Model
	if model == "" {
		model = "BAAI/bge-small-en-v1.5"
	}
	opts := []huggingface.Option{huggingface.WithToken(cfg.Key), huggingface.WithModel(model)}
	if cfg.BaseURL != "" {
		opts = append(opts, huggingface.WithURL(cfg.BaseURL))
	}
	client, err := huggingface.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize huggingface client: %w", err)
	}
	return hfembeddings.NewHuggingface(hfembeddings.WithClient(*client), hfembeddings.WithModel(model))
}

// EmbedChunks embeds every chunk with a single batch call.
func EmbedChunks(ctx context.Context, embedder embeddings.Embedder, chunks []models.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks to embed")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty embedding for chunk %d", chunks[i].Ordinal)
		}
	}
	log.Debug().Int("chunks", len(chunks)).Int("dimension", len(vectors[0])).Msg("Embedded chunks")
	return vectors, nil
}
