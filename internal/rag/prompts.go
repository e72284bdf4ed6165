package rag

import (
	"strings"

	"ragchat/internal/models"

	"github.com/tmc/langchaingo/prompts"
)

const (
	historyKey  = "chat_history"
	inputKey    = "input"
	contextKey  = "context"
	humanPrompt = "{{.input}}"
)

func contextualizePrompt() prompts.ChatPromptTemplate {
	return prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(models.ContextualizePrompt, nil),
		prompts.MessagesPlaceholder{VariableName: historyKey},
		prompts.NewHumanMessagePromptTemplate(humanPrompt, []string{inputKey}),
	})
}

func answerPrompt() prompts.ChatPromptTemplate {
	return prompts.NewChatPromptTemplate([]prompts.MessageFormatter{
		prompts.NewSystemMessagePromptTemplate(models.AnswerPromptTemplate, []string{contextKey}),
		prompts.MessagesPlaceholder{VariableName: historyKey},
		prompts.NewHumanMessagePromptTemplate(humanPrompt, []string{inputKey}),
	})
}

// JoinContext concatenates the retrieved chunks in rank order.
func JoinContext(matches []models.Match) string {
	parts := make([]string, len(matches))
	for i, m := range matches {
		parts[i] = m.Chunk.Content
	}
	return strings.Join(parts, models.ContextSeparator)
}
