package caption

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"slices"

	"ragchat/internal/config"
	"ragchat/internal/llmservice"
	"ragchat/internal/parser"

	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

var (
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrNoCaption        = errors.New("no caption returned")
)

var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

func SupportedExtensions() []string {
	exts := make([]string, 0, len(imageTypes))
	for ext := range imageTypes {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedImage):
		return "Please upload a jpg, jpeg or png image."
	default:
		return "Request failed, please try again."
	}
}

// Captioner describes images with a vision capable chat model.
type Captioner struct {
	client    *openai.Client
	model     string
	prompt    string
	maxTokens int
}

func NewCaptioner(cfg *config.VisionConfig) (*Captioner, error) {
	if err := cfg.RequireKey(); err != nil {
		return nil, err
	}
	return &Captioner{
		client:    llmservice.NewOpenAIClient(cfg.BaseURL, cfg.Key),
		model:     cfg.Model,
		prompt:    cfg.Prompt,
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (c *Captioner) Caption(ctx context.Context, name string, data []byte) (string, error) {
	mime, ok := imageTypes[parser.Extension(name)]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, name)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: c.prompt},
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    dataURL(mime, data),
						Detail: openai.ImageURLDetailLow,
					},
				},
			},
		}},
	})
	if err != nil {
		log.Error().Err(err).Str("image", name).Msg("Caption request failed")
		return "", fmt.Errorf("failed to caption %s: %w", name, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoCaption
	}
	text := llmservice.CleanResponse(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrNoCaption
	}
	return text, nil
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
