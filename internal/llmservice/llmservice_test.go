package llmservice

import (
	"context"
	"errors"
	"testing"

	"ragchat/internal/config"
	"ragchat/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/fake"
)

type recordingModel struct {
	messages []llms.MessageContent
	reply    string
	err      error
}

func (m *recordingModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *recordingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestCleanResponse(t *testing.T) {
	assert.Equal(t, "Paris.", CleanResponse("<think>\nthe user wants a city\n</think>\n Paris. "))
	assert.Equal(t, "plain", CleanResponse("plain"))
}

func TestHistoryMessages(t *testing.T) {
	turns := []models.Turn{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}
	msgs := HistoryMessages(turns)

	require.Len(t, msgs, 2)
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[0].GetType())
	assert.Equal(t, llms.ChatMessageTypeAI, msgs[1].GetType())
	assert.Equal(t, "hello", msgs[1].GetContent())
}

func TestChatbot_ReplyIncludesHistory(t *testing.T) {
	model := &recordingModel{reply: "Sure."}
	bot := NewChatbot(model, 0.1)

	history := []models.Turn{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}
	reply, err := bot.Reply(context.Background(), history, "tell me more")
	require.NoError(t, err)

	assert.Equal(t, "Sure.", reply)
	require.Len(t, model.messages, 3)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[2].Role)
	assert.Equal(t, llms.TextContent{Text: "tell me more"}, model.messages[2].Parts[0])
}

func TestChatbot_FakeModel(t *testing.T) {
	bot := NewChatbot(fake.NewFakeLLM([]string{"first", "second"}), 0)

	a, err := bot.Reply(context.Background(), nil, "q1")
	require.NoError(t, err)
	b, err := bot.Reply(context.Background(), nil, "q2")
	require.NoError(t, err)
	assert.Equal(t, "first", a)
	assert.Equal(t, "second", b)
}

func TestChatbot_Error(t *testing.T) {
	boom := errors.New("quota exceeded")
	bot := NewChatbot(&recordingModel{err: boom}, 0)

	_, err := bot.Reply(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, boom)
}

func TestChatbot_EmptyReply(t *testing.T) {
	bot := NewChatbot(&recordingModel{reply: "  "}, 0)
	_, err := bot.Reply(context.Background(), nil, "hi")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewModel_MissingKey(t *testing.T) {
	_, err := NewModel(context.Background(), &config.LLMConfig{Provider: config.ProviderOpenAI, KeyEnv: "RAGCHAT_UNSET"})
	assert.Error(t, err)
}

func TestNewModel_Ollama(t *testing.T) {
	llm, err := NewModel(context.Background(), &config.LLMConfig{Provider: config.ProviderOllama, BaseURL: "http://localhost:11434", Model: "llama3"})
	require.NoError(t, err)
	assert.NotNil(t, llm)
}

func TestNewOpenAIClient(t *testing.T) {
	assert.NotNil(t, NewOpenAIClient("http://localhost:1234/v1", "key"))
}
