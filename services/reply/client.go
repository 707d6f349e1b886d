package reply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"chatkit/core"
	"chatkit/protocol"

	"github.com/bytedance/sonic"
)

// Failure classes a caller can test with errors.Is. Transport-level errors
// are wrapped as-is and match neither sentinel.
var (
	// ErrBadStatus means the reply service answered with a non-2xx status.
	ErrBadStatus = errors.New("reply service returned non-success status")
	// ErrMalformedReply means the response body was not a usable reply.
	ErrMalformedReply = errors.New("reply payload missing or malformed")
)

// Config holds configuration for the HTTP reply client.
type Config struct {
	BaseURL string        `json:"base_url"`
	Path    string        `json:"path"`
	Timeout time.Duration `json:"timeout"`
}

// DefaultConfig returns a config pointed at the stock reply endpoint.
func DefaultConfig() Config {
	return Config{
		Path:    "/chat",
		Timeout: 30 * time.Second,
	}
}

// Client sends user utterances to the remote reply service: one POST per
// call, one round trip, no retries. Retrying is left to the user
// resubmitting.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *core.Logger
}

func NewClient(config Config, logger *core.Logger) *Client {
	if config.Path == "" {
		config.Path = "/chat"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger.With(map[string]interface{}{"component": "reply-client"}),
	}
}

// Send posts the utterance and returns the bot's reply text. The utterance
// must be non-empty.
func (c *Client) Send(ctx context.Context, utterance string) (string, error) {
	if utterance == "" {
		return "", fmt.Errorf("reply: utterance must be non-empty")
	}

	body, err := sonic.Marshal(protocol.ChatRequest{Message: utterance})
	if err != nil {
		return "", fmt.Errorf("reply: marshal request: %w", err)
	}

	url := c.config.BaseURL + c.config.Path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("reply: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("reply: post %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("reply: %w: %d", ErrBadStatus, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reply: read response: %w", err)
	}

	var parsed protocol.ChatResponse
	if err := sonic.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("reply: %w: %v", ErrMalformedReply, err)
	}
	if parsed.Reply == nil || *parsed.Reply == "" {
		return "", fmt.Errorf("reply: %w: missing reply field", ErrMalformedReply)
	}

	c.logger.With(map[string]interface{}{"chars": len(*parsed.Reply)}).Debug("reply received")
	return *parsed.Reply, nil
}
