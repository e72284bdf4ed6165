package summarizer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ragchat/internal/chunker"
	"ragchat/internal/llmservice"
	"ragchat/internal/parser"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/chains"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
)

var (
	ErrNoText      = errors.New("no text to summarize")
	ErrUnsupported = errors.New("unsupported file type")
)

func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoText):
		return "No text could be extracted to summarize."
	case errors.Is(err, ErrUnsupported):
		return parser.Extracted{Unsupported: true}.Content()
	default:
		return "Request failed, please try again."
	}
}

// Summarizer condenses text with langchaingo summarization chains: one
// stuff call for short input, map-reduce over chunks otherwise.
type Summarizer struct {
	llm      llms.Model
	splitter chunker.Splitter
}

func New(llm llms.Model, splitter chunker.Splitter) *Summarizer {
	return &Summarizer{llm: llm, splitter: splitter}
}

func (s *Summarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrNoText
	}

	var docs []schema.Document
	for chunk := range s.splitter.Chunks(text) {
		docs = append(docs, schema.Document{PageContent: chunk})
	}

	var chain chains.Chain
	if len(docs) == 1 {
		chain = chains.LoadStuffSummarization(s.llm)
	} else {
		chain = chains.LoadMapReduceSummarization(s.llm)
	}
	log.Debug().Int("chunks", len(docs)).Msg("Summarizing")

	out, err := chains.Call(ctx, chain, map[string]any{"input_documents": docs})
	if err != nil {
		return "", fmt.Errorf("failed to summarize: %w", err)
	}
	summary, _ := out["text"].(string)
	summary = llmservice.CleanResponse(summary)
	if summary == "" {
		return "", fmt.Errorf("failed to summarize: %w", llmservice.ErrEmptyResponse)
	}
	return summary, nil
}

// SummarizeFile reads an uploaded file and summarizes its text.
func (s *Summarizer) SummarizeFile(ctx context.Context, name string, r io.Reader) (string, error) {
	ex, err := parser.Read(name, r)
	if err != nil {
		return "", err
	}
	if ex.Unsupported {
		return "", fmt.Errorf("%w: %s", ErrUnsupported, name)
	}
	return s.Summarize(ctx, ex.Text)
}
