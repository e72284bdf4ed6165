package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ragchat/internal/models"
	"ragchat/internal/rag"
	"ragchat/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndex struct{ closed bool }

func (f *fakeIndex) Search(context.Context, []float32, int) ([]models.Match, error) { return nil, nil }
func (f *fakeIndex) Len() int                                                       { return 1 }
func (f *fakeIndex) Close(context.Context) error {
	f.closed = true
	return nil
}

type fakePipeline struct {
	index    *fakeIndex
	answer   string
	err      error
	ingested []string
	history  []models.Turn
}

func (f *fakePipeline) Ingest(_ context.Context, files []rag.File) (*rag.IngestResult, error) {
	for _, file := range files {
		f.ingested = append(f.ingested, file.Name)
	}
	return &rag.IngestResult{Index: f.index, Files: f.ingested, Chunks: 3}, nil
}

func (f *fakePipeline) Ask(_ context.Context, index models.VectorIndex, history []models.Turn, question string) (*rag.Answer, error) {
	f.history = history
	if index == nil {
		return nil, rag.ErrNoIndex
	}
	if f.err != nil {
		return nil, f.err
	}
	return &rag.Answer{Question: question, Text: f.answer}, nil
}

func newTestModel(p *fakePipeline) Model {
	m := New(p, session.New("test"), 0)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return next.(Model)
}

func enter(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return next.(Model), cmd
}

// run executes cmd and feeds every message it produces back into the model
// until nothing is left.
func run(m Model, cmd tea.Cmd) Model {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg := c()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		next, more := m.Update(msg)
		m = next.(Model)
		queue = append(queue, more)
	}
	return m
}

func TestLoadThenAsk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Oslo is the capital of Norway."), 0o644))

	p := &fakePipeline{index: &fakeIndex{}, answer: "Oslo is the capital."}
	m := newTestModel(p)

	m, cmd := enter(t, m, "/load "+path)
	assert.True(t, m.busy)
	m = run(m, cmd)

	assert.False(t, m.busy)
	assert.Equal(t, []string{"notes.txt"}, p.ingested)
	assert.Equal(t, "Indexed 3 chunk(s) from notes.txt.", m.status)
	assert.NotNil(t, m.session.Index())

	m, cmd = enter(t, m, "What is the capital?")
	m = run(m, cmd)

	history := m.session.History()
	require.Len(t, history, 2)
	assert.Equal(t, "What is the capital?", history[0].Content)
	assert.Equal(t, "Oslo is the capital.", history[1].Content)
	assert.Contains(t, m.transcript(), "Oslo is the capital.")
	assert.False(t, m.busy)
}

func TestTokensAppendOneAtATime(t *testing.T) {
	p := &fakePipeline{index: &fakeIndex{}, answer: "hello world"}
	m := newTestModel(p)
	m.session.SetIndex(context.Background(), p.index)

	next, _ := m.Update(answerMsg{question: "hi", answer: &rag.Answer{Text: "hello world"}})
	m = next.(Model)
	assert.Equal(t, []string{"hello ", "world "}, m.pending)

	next, _ = m.Update(tokenMsg{})
	m = next.(Model)
	assert.Equal(t, "hello ", m.partial)
	assert.Len(t, m.session.History(), 1)

	next, _ = m.Update(tokenMsg{})
	m = next.(Model)
	assert.Len(t, m.session.History(), 2)
	assert.Empty(t, m.partial)
}

func TestAskWithoutIndexShowsMessage(t *testing.T) {
	m := newTestModel(&fakePipeline{})

	m, cmd := enter(t, m, "Anything?")
	m = run(m, cmd)

	assert.Equal(t, "Please upload documents before asking questions.", m.status)
	assert.Empty(t, m.session.History())
	assert.False(t, m.busy)
}

func TestFailedAnswerKeepsGoing(t *testing.T) {
	p := &fakePipeline{index: &fakeIndex{}, err: &rag.GenerationError{Stage: rag.StageGenerate, Err: errors.New("down")}}
	m := newTestModel(p)
	m.session.SetIndex(context.Background(), p.index)

	m, cmd := enter(t, m, "first?")
	m = run(m, cmd)
	assert.Equal(t, "No answer could be generated for this question.", m.status)

	p.err = nil
	p.answer = "Recovered."
	m, cmd = enter(t, m, "second?")
	m = run(m, cmd)
	require.Len(t, m.session.History(), 2)
	assert.Equal(t, "Recovered.", m.session.History()[1].Content)
}

func TestNewChatKeepsIndex(t *testing.T) {
	p := &fakePipeline{index: &fakeIndex{}, answer: "yes"}
	m := newTestModel(p)
	m.session.SetIndex(context.Background(), p.index)
	m.session.AddUserTurn("q")
	m.session.AddAssistantTurn("a")

	m, _ = enter(t, m, "/new")

	assert.Empty(t, m.session.History())
	assert.NotNil(t, m.session.Index())
	assert.False(t, p.index.closed)
	assert.Equal(t, "No messages yet.", m.transcript())
}

func TestQuit(t *testing.T) {
	m := newTestModel(&fakePipeline{})
	_, cmd := enter(t, m, "/quit")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestLoadMissingFile(t *testing.T) {
	m := newTestModel(&fakePipeline{})
	m, cmd := enter(t, m, "/load /does/not/exist.txt")
	m = run(m, cmd)

	assert.False(t, m.busy)
	assert.Equal(t, "Something went wrong, please try again.", m.status)
	assert.Nil(t, m.session.Index())
}
