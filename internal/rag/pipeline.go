package rag

import (
	"context"
	"fmt"
	"io"

	"ragchat/internal/chunker"
	"ragchat/internal/models"
	"ragchat/internal/parser"

	"github.com/rs/zerolog/log"
)

// File is one uploaded file.
type File struct {
	Name   string
	Reader io.Reader
}

// IngestResult describes what an upload produced.
type IngestResult struct {
	Index       models.VectorIndex `json:"-"`
	Files       []string           `json:"files"`
	Unsupported []string           `json:"unsupported"`
	Empty       []string           `json:"empty"`
	Chunks      int                `json:"chunks"`
}

// Pipeline wires the reader, chunker, index builder, retriever and generator.
type Pipeline struct {
	splitter  chunker.Splitter
	builder   *IndexBuilder
	retriever *Retriever
	generator *Generator
}

func NewPipeline(splitter chunker.Splitter, builder *IndexBuilder, retriever *Retriever, generator *Generator) *Pipeline {
	return &Pipeline{
		splitter:  splitter,
		builder:   builder,
		retriever: retriever,
		generator: generator,
	}
}

// Ingest builds one index over all supported files of an upload.
func (p *Pipeline) Ingest(ctx context.Context, files []File) (*IngestResult, error) {
	res := &IngestResult{}
	var chunks []models.Chunk

	for _, f := range files {
		if !parser.Supported(f.Name) {
			log.Warn().Str("file", f.Name).Msg("Skipping unsupported file")
			res.Unsupported = append(res.Unsupported, f.Name)
			continue
		}
		ex, err := parser.Read(f.Name, f.Reader)
		if err != nil {
			return res, err
		}
		if ex.Empty() {
			log.Warn().Str("file", f.Name).Msg("No text extracted")
			res.Empty = append(res.Empty, f.Name)
			continue
		}
		for text := range p.splitter.Chunks(ex.Text) {
			ordinal := len(chunks)
			chunks = append(chunks, models.Chunk{
				ID:      fmt.Sprintf("chunk-%d", ordinal),
				Source:  f.Name,
				Ordinal: ordinal,
				Content: text,
			})
		}
		res.Files = append(res.Files, f.Name)
	}

	if len(chunks) == 0 {
		return res, ErrNoText
	}
	idx, err := p.builder.Build(ctx, chunks)
	if err != nil {
		return res, fmt.Errorf("failed to build index: %w", err)
	}
	res.Index = idx
	res.Chunks = len(chunks)
	log.Info().Strs("files", res.Files).Int("chunks", res.Chunks).Msg("Built index")
	return res, nil
}

// Ask answers question against index. history holds the turns before question.
func (p *Pipeline) Ask(ctx context.Context, index models.VectorIndex, history []models.Turn, question string) (*Answer, error) {
	if index == nil {
		return nil, ErrNoIndex
	}

	query, matches, err := p.retriever.Retrieve(ctx, index, history, question)
	if err != nil {
		return nil, err
	}
	answer, err := p.generator.Generate(ctx, matches, history, question)
	if err != nil {
		return nil, err
	}
	answer.Query = query
	return answer, nil
}
