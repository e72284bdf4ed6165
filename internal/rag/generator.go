package rag

import (
	"context"

	"ragchat/internal/llmservice"
	"ragchat/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"
)

// Answer is a generated reply together with what it was built from.
type Answer struct {
	Question string         `json:"question"`
	Query    string         `json:"query"`
	Text     string         `json:"text"`
	Sources  []models.Match `json:"sources"`
}

// Generator answers strictly from the retrieved context.
type Generator struct {
	llm         llms.Model
	prompt      prompts.ChatPromptTemplate
	temperature float64
}

func NewGenerator(llm llms.Model, temperature float64) *Generator {
	return &Generator{llm: llm, prompt: answerPrompt(), temperature: temperature}
}

// Generate makes one model call. history must not include question.
func (g *Generator) Generate(ctx context.Context, matches []models.Match, history []models.Turn, question string) (*Answer, error) {
	msgs, err := g.prompt.FormatMessages(map[string]any{
		contextKey: JoinContext(matches),
		historyKey: llmservice.HistoryMessages(history),
		inputKey:   question,
	})
	if err != nil {
		return nil, &GenerationError{Stage: StagePrompt, Err: err}
	}

	text, err := llmservice.GenerateContent(ctx, g.llm, llmservice.ToMessageContent(msgs), llms.WithTemperature(g.temperature))
	if err != nil {
		log.Error().Err(err).Str("question", question).Msg("Answer generation failed")
		return nil, &GenerationError{Stage: StageGenerate, Err: err}
	}
	if text == "" {
		return nil, &GenerationError{Stage: StageGenerate, Err: llmservice.ErrEmptyResponse}
	}
	return &Answer{Question: question, Text: text, Sources: matches}, nil
}
