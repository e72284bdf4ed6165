package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"ragchat/internal/config"
	"ragchat/internal/models"

	"github.com/rs/zerolog/log"
	goopenai "github.com/sashabaranov/go-openai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	ErrEmptyResponse = errors.New("model returned no content")

	thinkTag = regexp.MustCompile(models.ThinkTag)
)

// NewModel creates the generation model for the configured provider
func NewModel(ctx context.Context, cfg *config.LLMConfig) (llms.Model, error) {
	if err := cfg.RequireKey(); err != nil {
		return nil, err
	}
	log.Debug().Interface("llmConfig", map[string]string{
		"provider": cfg.Provider,
		"base_url": cfg.BaseURL,
		"model":    cfg.Model,
	}).Msg("Creating model")

	switch cfg.Provider {
	case config.ProviderOpenAI:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		return openai.New(opts...)
	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		return ollama.New(opts...)
	case config.ProviderGoogleAI:
		return googleai.New(ctx,
			googleai.WithAPIKey(cfg.Key),
			googleai.WithDefaultModel(cfg.Model),
			googleai.WithDefaultTemperature(cfg.Temperature),
		)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// NewOpenAIClient returns a raw OpenAI client for the endpoints langchaingo
// does not cover (audio, vision).
func NewOpenAIClient(baseURL, key string) *goopenai.Client {
	cfg := goopenai.DefaultConfig(key)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return goopenai.NewClientWithConfig(cfg)
}

// call llm
func GenerateContent(ctx context.Context, llm llms.Model, messages []llms.MessageContent, opts ...llms.CallOption) (string, error) {
	res, err := llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return CleanResponse(res.Choices[0].Content), nil
}

// CleanResponse drops reasoning blocks and surrounding whitespace.
func CleanResponse(content string) string {
	return strings.TrimSpace(thinkTag.ReplaceAllString(content, ""))
}

// HistoryMessages converts conversation turns for prompt placeholders.
func HistoryMessages(turns []models.Turn) []llms.ChatMessage {
	msgs := make([]llms.ChatMessage, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleUser:
			msgs = append(msgs, llms.HumanChatMessage{Content: turn.Content})
		case models.RoleAssistant:
			msgs = append(msgs, llms.AIChatMessage{Content: turn.Content})
		}
	}
	return msgs
}

func ToMessageContent(msgs []llms.ChatMessage) []llms.MessageContent {
	out := make([]llms.MessageContent, len(msgs))
	for i, msg := range msgs {
		out[i] = llms.TextParts(msg.GetType(), msg.GetContent())
	}
	return out
}
