package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the ordered list of turns of one session.
// It is not safe for concurrent use.
type Conversation struct {
	turns []Turn
}

func (c *Conversation) Append(role Role, content string) Turn {
	turn := Turn{Role: role, Content: content, Timestamp: time.Now()}
	c.turns = append(c.turns, turn)
	return turn
}

// Turns returns a copy of the conversation.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	return len(c.turns)
}

func (c *Conversation) Clear() {
	c.turns = nil
}

// Last returns the most recent turn with the given role.
func (c *Conversation) Last(role Role) (Turn, bool) {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].Role == role {
			return c.turns[i], true
		}
	}
	return Turn{}, false
}
