// Package conversation holds the chat data model and the durable
// conversation collection.
package conversation

import (
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/text/unicode/norm"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable chat entry.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Model is the provider tag that produced or was asked for this turn.
	Model string `json:"model,omitempty"`
}

// NewMessage stamps a message with an order-derived id.
func NewMessage(role Role, content, model string) Message {
	return Message{ID: ulid.Make().String(), Role: role, Content: content, Model: model}
}

// Conversation is an ordered message thread.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"createdAt"`
}

const (
	DefaultTitle  = "New Chat"
	titleMaxRunes = 30
)

// Title derives a conversation title from the first message.
func Title(msgs []Message) string {
	if len(msgs) == 0 {
		return DefaultTitle
	}
	content := norm.NFC.String(msgs[0].Content)
	if strings.TrimSpace(content) == "" {
		return DefaultTitle
	}
	runes := []rune(content)
	if len(runes) > titleMaxRunes {
		runes = runes[:titleMaxRunes]
	}
	return string(runes)
}

func (c Conversation) clone() Conversation {
	c.Messages = slices.Clone(c.Messages)
	return c
}
