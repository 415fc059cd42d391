package services

import (
	"context"
	"slices"
	"sync"

	"github.com/jwebster45206/story-characters/pkg/chat"
)

// MockLLMAPI is an LLMService for tests. It answers every turn with Reply
// (or ReplyFunc) and records the messages of each turn it was sent.
type MockLLMAPI struct {
	mu sync.Mutex

	// ReplyFunc, when set, produces the response for a turn.
	ReplyFunc func(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
	// Reply is returned when ReplyFunc is nil.
	Reply chat.ChatResponse
	// InitErr is returned by InitModel.
	InitErr error

	models []string
	turns  [][]chat.ChatMessage
}

var _ LLMService = (*MockLLMAPI)(nil)

// NewMockLLMAPI returns a mock that answers "Mock response".
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{Reply: chat.ChatResponse{Message: "Mock response"}}
}

func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.models = append(m.models, modelName)
	return m.InitErr
}

func (m *MockLLMAPI) GetChatResponse(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	m.mu.Lock()
	m.turns = append(m.turns, slices.Clone(messages))
	replyFunc, reply := m.ReplyFunc, m.Reply
	m.mu.Unlock()

	if replyFunc != nil {
		return replyFunc(ctx, messages)
	}
	return &reply, nil
}

// Fail makes every following turn return err.
func (m *MockLLMAPI) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReplyFunc = func(context.Context, []chat.ChatMessage) (*chat.ChatResponse, error) {
		return nil, err
	}
}

// Turns returns the messages sent on each turn, oldest first.
func (m *MockLLMAPI) Turns() [][]chat.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.turns)
}

// LastTurn returns the messages of the latest turn, or nil before any turn.
func (m *MockLLMAPI) LastTurn() []chat.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.turns) == 0 {
		return nil
	}
	return m.turns[len(m.turns)-1]
}

// SystemPrompt returns the system message of the latest turn, or "".
func (m *MockLLMAPI) SystemPrompt() string {
	for _, msg := range m.LastTurn() {
		if msg.Role == chat.ChatRoleSystem {
			return msg.Content
		}
	}
	return ""
}

// Models returns the model names InitModel was called with.
func (m *MockLLMAPI) Models() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.models)
}
