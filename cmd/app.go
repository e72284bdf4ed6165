package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/uptrace/bun"

	"ragchat/internal/chunker"
	"ragchat/internal/config"
	"ragchat/internal/db"
	"ragchat/internal/embedding"
	"ragchat/internal/llmservice"
	"ragchat/internal/rag"
	"ragchat/internal/summarizer"
)

// app holds the models and the pipeline shared by the interactive modes.
type app struct {
	llm      llms.Model
	pipeline *rag.Pipeline
	chatbot  *llmservice.Chatbot
	db       *bun.DB
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	llm, err := llmservice.NewModel(ctx, &cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	embedder, err := embedding.NewEmbedder(ctx, &cfg.EmbedLLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	splitter, err := chunker.New(cfg.RAG.Splitter, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	a := &app{llm: llm, chatbot: llmservice.NewChatbot(llm, cfg.LLM.Temperature)}

	backend := rag.MemoryBackend()
	if cfg.RAG.Backend == config.BackendPgvector {
		a.db, err = db.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		backend = rag.PostgresBackend(a.db)
	}

	a.pipeline = rag.NewPipeline(
		splitter,
		rag.NewIndexBuilder(embedder, backend),
		rag.NewRetriever(llm, embedder, cfg.RAG.TopK, cfg.LLM.Temperature),
		rag.NewGenerator(llm, cfg.LLM.Temperature),
	)
	log.Info().Str("backend", cfg.RAG.Backend).Str("splitter", cfg.RAG.Splitter).Msg("Pipeline ready")
	return a, nil
}

func (a *app) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing database")
	}
}

func newSummarizer(llm llms.Model, cfg *config.Config) (*summarizer.Summarizer, error) {
	splitter, err := chunker.NewRecursive(cfg.Summarizer.ChunkSize, cfg.Summarizer.ChunkOverlap)
	if err != nil {
		return nil, err
	}
	return summarizer.New(llm, splitter), nil
}
