package services

import (
	"context"

	"github.com/jwebster45206/story-characters/pkg/chat"
)

// LLMService defines the interface for interacting with the LLM API
type LLMService interface {
	// InitModel makes sure the model is available, pulling it if needed
	InitModel(ctx context.Context, modelName string) error

	// GetChatResponse generates a chat response for the given messages
	GetChatResponse(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error)
}
