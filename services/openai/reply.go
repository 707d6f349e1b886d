package openai

import (
	"context"
	"fmt"

	"chatkit/core"

	"github.com/sashabaranov/go-openai"
)

// Config holds the configuration for the OpenAI reply backend.
type Config struct {
	APIKey       string  `json:"api_key"`
	Model        string  `json:"model"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	MaxTokens    int     `json:"max_tokens,omitempty"`
	Temperature  float32 `json:"temperature,omitempty"`
}

// DefaultConfig returns a config with a sensible default model. Set APIKey
// before building the service.
func DefaultConfig() Config {
	return Config{
		Model:        openai.GPT4oMini,
		SystemPrompt: "You are a helpful voice assistant. Keep answers short and conversational.",
	}
}

// Service answers user utterances directly against the OpenAI chat API. It
// is an alternative reply backend for running without the HTTP relay, with
// the same contract: one round trip per call, no retries.
type Service struct {
	client *openai.Client
	config Config
	logger *core.Logger
}

func NewService(config Config, logger *core.Logger) (*Service, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if config.Model == "" {
		config.Model = openai.GPT4oMini
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Service{
		client: openai.NewClient(config.APIKey),
		config: config,
		logger: logger.With(map[string]interface{}{"component": "openai-reply"}),
	}, nil
}

// Send submits the utterance as a single-turn chat completion and returns
// the model's reply text.
func (s *Service) Send(ctx context.Context, utterance string) (string, error) {
	if utterance == "" {
		return "", fmt.Errorf("openai: utterance must be non-empty")
	}

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if s.config.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: s.config.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: utterance,
	})

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    messages,
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai: empty completion")
	}

	return resp.Choices[0].Message.Content, nil
}
