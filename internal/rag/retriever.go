package rag

import (
	"context"
	"fmt"

	"ragchat/internal/llmservice"
	"ragchat/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

const DefaultTopK = 6

// Retriever rewrites follow-up questions into standalone queries and
// fetches the nearest chunks for them.
type Retriever struct {
	llm         llms.Model
	embedder    embeddings.Embedder
	prompt      prompts.ChatPromptTemplate
	topK        int
	temperature float64
}

func NewRetriever(llm llms.Model, embedder embeddings.Embedder, topK int, temperature float64) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{
		llm:         llm,
		embedder:    embedder,
		prompt:      contextualizePrompt(),
		topK:        topK,
		temperature: temperature,
	}
}

// Reformulate returns question unchanged when there is no history.
func (r *Retriever) Reformulate(ctx context.Context, history []models.Turn, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	msgs, err := r.prompt.FormatMessages(map[string]any{
		historyKey: llmservice.HistoryMessages(history),
		inputKey:   question,
	})
	if err != nil {
		return "", &GenerationError{Stage: StagePrompt, Err: err}
	}

	query, err := llmservice.GenerateContent(ctx, r.llm, llmservice.ToMessageContent(msgs), llms.WithTemperature(r.temperature))
	if err != nil {
		return "", &GenerationError{Stage: StageReformulate, Err: err}
	}
	if query == "" {
		log.Warn().Str("question", question).Msg("Empty reformulation, using the question as is")
		return question, nil
	}
	log.Debug().Str("question", question).Str("query", query).Msg("Reformulated question")
	return query, nil
}

// Retrieve returns the standalone query and its top-k chunks.
func (r *Retriever) Retrieve(ctx context.Context, index models.VectorIndex, history []models.Turn, question string) (string, []models.Match, error) {
	query, err := r.Reformulate(ctx, history, question)
	if err != nil {
		return "", nil, err
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return query, nil, &GenerationError{Stage: StageRetrieve, Err: fmt.Errorf("failed to embed query: %w", err)}
	}
	matches, err := index.Search(ctx, vec, r.topK)
	if err != nil {
		return query, nil, &GenerationError{Stage: StageRetrieve, Err: err}
	}
	return query, matches, nil
}
