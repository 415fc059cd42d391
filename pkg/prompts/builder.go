package prompts

import (
	"fmt"

	"github.com/jwebster45206/story-characters/pkg/chat"
)

// DefaultHistoryLimit is the number of prior turns kept when none is set.
const DefaultHistoryLimit = 20

// Builder constructs chat messages for LLM interaction using a fluent interface.
type Builder struct {
	characterContext string
	history          []chat.ChatMessage
	userMessage      string
	userRole         string
	historyLimit     int
	messages         []chat.ChatMessage
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
		userRole:     chat.ChatRoleUser,
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithCharacterContext sets the assembled character context.
func (b *Builder) WithCharacterContext(characterContext string) *Builder {
	b.characterContext = characterContext
	return b
}

// WithHistory sets the prior turns, oldest first.
func (b *Builder) WithHistory(history []chat.ChatMessage) *Builder {
	b.history = history
	return b
}

// WithUserMessage sets the user's message and role.
func (b *Builder) WithUserMessage(message string, role string) *Builder {
	b.userMessage = message
	b.userRole = role
	return b
}

// WithHistoryLimit sets the chat history window size. Zero drops history.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build constructs and returns the final message array for LLM consumption:
// one system message, the most recent history turns, then the user message.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.userMessage == "" {
		return nil, fmt.Errorf("user message is required")
	}
	if b.historyLimit < 0 {
		return nil, fmt.Errorf("history limit cannot be negative")
	}

	// Reset messages
	b.messages = make([]chat.ChatMessage, 0, len(b.history)+2)

	// 1. System prompt
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    chat.ChatRoleSystem,
		Content: BuildSystemPrompt(b.characterContext),
	})

	// 2. Windowed chat history
	b.addHistory()

	// 3. User message
	b.messages = append(b.messages, chat.ChatMessage{
		Role:    b.userRole,
		Content: b.userMessage,
	})

	return b.messages, nil
}

// addHistory adds windowed chat history to the message array.
func (b *Builder) addHistory() {
	if len(b.history) == 0 || b.historyLimit == 0 {
		return
	}

	if len(b.history) <= b.historyLimit {
		b.messages = append(b.messages, b.history...)
	} else {
		b.messages = append(b.messages, b.history[len(b.history)-b.historyLimit:]...)
	}
}

// BuildMessages is a convenience function for the common case.
// It creates a builder, sets all parameters, and builds the messages in one call.
func BuildMessages(
	characterContext string,
	history []chat.ChatMessage,
	message string,
	historyLimit int,
) ([]chat.ChatMessage, error) {
	return New().
		WithCharacterContext(characterContext).
		WithHistory(history).
		WithUserMessage(message, chat.ChatRoleUser).
		WithHistoryLimit(historyLimit).
		Build()
}
