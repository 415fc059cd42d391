package chat

import (
	"fmt"
	"strings"
)

// MaxMessageLength bounds a single user message in bytes.
const MaxMessageLength = 4000

// maxSpeakerLength is the longest prefix before a colon still treated as a
// speaker name.
const maxSpeakerLength = 50

// ChatRequest is a chat turn sent to a character instance.
type ChatRequest struct {
	Message string        `json:"message"`
	Speaker string        `json:"speaker,omitempty"` // optional name prefixed to the message
	History []ChatMessage `json:"history,omitempty"` // prior turns, oldest first
}

// ChatResponse is the character's reply to a chat turn.
type ChatResponse struct {
	Message string        `json:"message,omitempty"`
	Model   string        `json:"model,omitempty"`
	Usage   *Usage        `json:"usage,omitempty"`
	History []ChatMessage `json:"history,omitempty"`
}

// Usage carries token counts reported by the LLM, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Character
	ChatRoleSystem = "system"    // Character context and instructions
)

// ChatMessage represents a single chat message in the conversation
// This interface is defined by Ollama's API and is used to structure messages
// sent to the LLM.
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

func (cr *ChatRequest) Validate() error {
	if strings.TrimSpace(cr.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(cr.Message) > MaxMessageLength {
		return fmt.Errorf("message exceeds maximum length of %d bytes", MaxMessageLength)
	}
	for i, m := range cr.History {
		switch m.Role {
		case ChatRoleUser, ChatRoleAgent:
		default:
			return fmt.Errorf("history[%d]: invalid role %q", i, m.Role)
		}
	}
	return nil
}

// FormatWithSpeaker prefixes message with "name: " unless it already starts
// with a speaker prefix (a colon within the first 50 characters).
func FormatWithSpeaker(message, name string) string {
	if idx := strings.Index(message, ":"); idx > 0 && idx <= maxSpeakerLength {
		return message
	}
	return name + ": " + message
}
