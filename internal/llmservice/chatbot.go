package llmservice

import (
	"context"
	"fmt"

	"ragchat/internal/models"

	"github.com/tmc/langchaingo/llms"
)

// Chatbot is plain multi-turn chat without retrieval.
type Chatbot struct {
	llm         llms.Model
	temperature float64
}

func NewChatbot(llm llms.Model, temperature float64) *Chatbot {
	return &Chatbot{llm: llm, temperature: temperature}
}

func (c *Chatbot) Reply(ctx context.Context, history []models.Turn, prompt string) (string, error) {
	msgs := ToMessageContent(HistoryMessages(history))
	msgs = append(msgs, llms.TextParts(llms.ChatMessageTypeHuman, prompt))

	reply, err := GenerateContent(ctx, c.llm, msgs, llms.WithTemperature(c.temperature))
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	if reply == "" {
		return "", ErrEmptyResponse
	}
	return reply, nil
}
