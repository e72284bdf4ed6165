package session

import (
	"context"
	"sync"
	"time"

	"ragchat/internal/helper"
	"ragchat/internal/models"

	"github.com/rs/zerolog/log"
)

// State is everything one user session keeps between interactions. It is
// not safe for concurrent use; Manager.Do serializes access.
type State struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	conversation models.Conversation
	index        models.VectorIndex
	transcript   string
	audioPath    string
	closed       bool
}

func New(id string) *State {
	return &State{ID: id, CreatedAt: time.Now()}
}

// NewChat clears the conversation. The index stays.
func (s *State) NewChat() {
	s.conversation.Clear()
}

func (s *State) AddUserTurn(content string) models.Turn {
	return s.conversation.Append(models.RoleUser, content)
}

func (s *State) AddAssistantTurn(content string) models.Turn {
	return s.conversation.Append(models.RoleAssistant, content)
}

func (s *State) History() []models.Turn {
	return s.conversation.Turns()
}

func (s *State) LastAnswer() (string, bool) {
	turn, ok := s.conversation.Last(models.RoleAssistant)
	return turn.Content, ok
}

func (s *State) Index() models.VectorIndex {
	return s.index
}

// SetIndex replaces the index and releases the previous one. A nil index
// clears it.
func (s *State) SetIndex(ctx context.Context, idx models.VectorIndex) {
	if s.index != nil && s.index != idx {
		if err := s.index.Close(ctx); err != nil {
			log.Warn().Err(err).Str("session", s.ID).Msg("Failed to close previous index")
		}
	}
	s.index = idx
}

func (s *State) SetTranscript(text string) {
	s.transcript = text
}

func (s *State) Transcript() string {
	return s.transcript
}

// TakeTranscript returns the pending transcript and clears it, so a
// recording is submitted as a question only once.
func (s *State) TakeTranscript() string {
	text := s.transcript
	s.transcript = ""
	return text
}

// SetAudioPath records the latest clip and deletes the one it replaces.
func (s *State) SetAudioPath(path string) {
	if s.audioPath != "" && s.audioPath != path {
		helper.RemoveFile(s.audioPath)
	}
	s.audioPath = path
}

func (s *State) AudioPath() string {
	return s.audioPath
}

// Closed reports whether Close has run. A closed session takes no new work.
func (s *State) Closed() bool {
	return s.closed
}

// Close releases the index and the recorded clip.
func (s *State) Close(ctx context.Context) {
	s.closed = true
	s.SetIndex(ctx, nil)
	s.SetAudioPath("")
	s.conversation.Clear()
	s.transcript = ""
}
