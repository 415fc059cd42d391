package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jwebster45206/story-characters/pkg/chat"
)

const (
	ollamaChatTimeout = 60 * time.Second
	ollamaPullTimeout = 10 * time.Minute

	// ollamaReadyAttempts bounds the /api/tags polling done by InitModel.
	ollamaReadyAttempts = 5
	ollamaReadyDelay    = 2 * time.Second

	// maxLoggedBody caps how much of an error response is logged.
	maxLoggedBody = 512
)

// OllamaOptions are sampling options passed through to /api/chat.
// Zero values are omitted so the model defaults apply.
type OllamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type ollamaChatRequest struct {
	Model    string             `json:"model"`
	Messages []chat.ChatMessage `json:"messages"`
	Stream   bool               `json:"stream"`
	Options  *OllamaOptions     `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

type ollamaPullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// OllamaService is the LLMService that sends character chat turns to a
// local Ollama server.
type OllamaService struct {
	baseURL    string
	modelName  string
	options    OllamaOptions
	httpClient *http.Client
	pullClient *http.Client
	logger     *slog.Logger
}

var _ LLMService = (*OllamaService)(nil)

// NewOllamaService creates a client for the Ollama server at baseURL.
func NewOllamaService(baseURL string, modelName string, options OllamaOptions, logger *slog.Logger) *OllamaService {
	return &OllamaService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		modelName:  modelName,
		options:    options,
		httpClient: &http.Client{Timeout: ollamaChatTimeout},
		pullClient: &http.Client{Timeout: ollamaPullTimeout},
		logger:     logger,
	}
}

// InitModel waits for the server to answer and pulls modelName when it is
// not installed yet.
func (s *OllamaService) InitModel(ctx context.Context, modelName string) error {
	s.logger.Info("Initializing LLM model", "model", modelName)

	installed, err := s.waitForModels(ctx)
	if err != nil {
		return fmt.Errorf("ollama service is not ready: %w", err)
	}
	if hasModel(installed, modelName) {
		s.logger.Info("Model already available", "model", modelName)
		return nil
	}

	s.logger.Info("Model not found, pulling it", "model", modelName)
	pull := ollamaPullRequest{Name: modelName}
	if err := s.doJSON(ctx, s.pullClient, http.MethodPost, "/api/pull", pull, nil); err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}
	s.logger.Info("Model pulled successfully", "model", modelName)
	return nil
}

// GetChatResponse sends one non-streaming chat turn.
func (s *OllamaService) GetChatResponse(ctx context.Context, messages []chat.ChatMessage) (*chat.ChatResponse, error) {
	req := ollamaChatRequest{
		Model:    s.modelName,
		Messages: messages,
	}
	if s.options != (OllamaOptions{}) {
		opts := s.options
		req.Options = &opts
	}

	s.logger.Debug("Sending Ollama chat turn", "model", s.modelName, "message_count", len(messages))

	var resp ollamaChatResponse
	if err := s.doJSON(ctx, s.httpClient, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, err
	}

	out := &chat.ChatResponse{
		Message: resp.Message.Content,
		Model:   resp.Model,
	}
	if resp.PromptEvalCount > 0 || resp.EvalCount > 0 {
		out.Usage = &chat.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
		}
	}
	return out, nil
}

// waitForModels polls /api/tags until the server answers and returns the
// installed model names.
func (s *OllamaService) waitForModels(ctx context.Context) ([]string, error) {
	var lastErr error
	for attempt := 1; attempt <= ollamaReadyAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("context cancelled while waiting for ollama: %w", ctx.Err())
			case <-time.After(ollamaReadyDelay):
			}
		}

		var tags ollamaTagsResponse
		lastErr = s.doJSON(ctx, s.httpClient, http.MethodGet, "/api/tags", nil, &tags)
		if lastErr == nil {
			names := make([]string, 0, len(tags.Models))
			for _, m := range tags.Models {
				names = append(names, m.Name)
			}
			return names, nil
		}
		s.logger.Debug("Ollama not ready yet", "error", lastErr, "attempt", attempt)
	}
	return nil, fmt.Errorf("no answer after %d attempts: %w", ollamaReadyAttempts, lastErr)
}

// hasModel matches an installed model by exact name or by its ":latest" tag.
func hasModel(installed []string, name string) bool {
	for _, n := range installed {
		if n == name || n == name+":latest" {
			return true
		}
	}
	return false
}

// doJSON sends body (if any) as JSON and decodes a 200 response into out
// (if non-nil). Other statuses become errors carrying the status code.
func (s *OllamaService) doJSON(ctx context.Context, client *http.Client, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s failed: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
		s.logger.Error("Ollama API returned error",
			"path", path,
			"status_code", resp.StatusCode,
			"response_body", string(snippet))
		return fmt.Errorf("ollama %s returned status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
