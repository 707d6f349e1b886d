package factories

import (
	"context"
	"fmt"
	"os"

	"chatkit/capture"
	"chatkit/connectivity"
	"chatkit/core"
	"chatkit/export"
	"chatkit/services/openai"
	"chatkit/services/reply"
	"chatkit/services/wscapture"
	"chatkit/session"
	"chatkit/speech"

	"github.com/bytedance/sonic"
)

// ReplyFactoryConfig selects and configures the reply backend. Set exactly
// one provider field.
type ReplyFactoryConfig struct {
	HTTPConfig   *reply.Config  `json:"http,omitempty"`
	OpenAIConfig *openai.Config `json:"openai,omitempty"`
}

// SpeechSettings bundles voice options with the optional local synthesizer.
type SpeechSettings struct {
	Options speech.Options              `json:"options"`
	Command *speech.CommandEngineConfig `json:"command,omitempty"`
}

// FeedSettings configures the environment connectivity feed subscription.
type FeedSettings struct {
	URL      string `json:"url"`
	ClientID string `json:"client_id,omitempty"`
}

// SettingsConfig is the top-level configuration for a complete chat
// session: reply backend, capture engine, speech output, connectivity feed,
// and export geometry.
type SettingsConfig struct {
	Reply   ReplyFactoryConfig `json:"reply"`
	Capture *wscapture.Config  `json:"capture,omitempty"`
	Speech  SpeechSettings     `json:"speech"`
	Feed    *FeedSettings      `json:"feed,omitempty"`
	Export  export.Config      `json:"export"`
}

// DefaultSettingsConfig returns a SettingsConfig with sensible defaults for
// every component. Populate Reply before calling BuildSession.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		Speech: SpeechSettings{
			Options: speech.DefaultOptions(),
		},
		Export: export.DefaultConfig(),
	}
}

// SettingsConfigFromJSON parses a JSON blob into a SettingsConfig, starting
// from DefaultSettingsConfig so that fields absent from the JSON retain
// their defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile loads a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}

// APIKeys holds credentials injected after loading so that secrets are
// never stored in config files.
type APIKeys struct {
	OpenAI  string // OpenAI reply backend.
	Capture string // Streaming transcription service.
}

// InjectAPIKeys applies credentials to every configured service that does
// not already carry one.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	if c.Reply.OpenAIConfig != nil && c.Reply.OpenAIConfig.APIKey == "" {
		c.Reply.OpenAIConfig.APIKey = keys.OpenAI
	}
	if c.Capture != nil && c.Capture.APIKey == "" {
		c.Capture.APIKey = keys.Capture
	}
}

// Session bundles everything BuildSession constructs: the controller plus
// the collaborators a front-end needs to drive and tear down.
type Session struct {
	Controller *session.Controller
	History    *core.MessageHistory
	Monitor    *connectivity.Monitor
	Feed       *connectivity.Feed
	Speech     *speech.Output
}

// BuildReplyService constructs the configured reply backend. Exactly one
// provider must be set.
func (c SettingsConfig) BuildReplyService(logger *core.Logger) (session.ReplyService, error) {
	switch {
	case c.Reply.HTTPConfig != nil && c.Reply.OpenAIConfig != nil:
		return nil, fmt.Errorf("settings: set exactly one reply provider, got two")
	case c.Reply.HTTPConfig != nil:
		return reply.NewClient(*c.Reply.HTTPConfig, logger), nil
	case c.Reply.OpenAIConfig != nil:
		return openai.NewService(*c.Reply.OpenAIConfig, logger)
	default:
		return nil, fmt.Errorf("settings: no reply provider configured")
	}
}

// BuildSession assembles a ready-to-use session from the settings. The
// context bounds the connectivity feed's lifetime; hooks carry the
// front-end's render and input-clearing callbacks.
func (c SettingsConfig) BuildSession(ctx context.Context, hooks session.Hooks, logger *core.Logger) (*Session, error) {
	if logger == nil {
		logger = core.GetLogger()
	}

	replySvc, err := c.BuildReplyService(logger)
	if err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}

	// Without a push feed the environment gives no offline signal, so the
	// monitor starts online; with one, it starts offline until the feed
	// connects.
	initial := core.StateOnline
	if c.Feed != nil {
		initial = core.StateOffline
	}
	monitor := connectivity.NewMonitor(initial, logger)

	var feed *connectivity.Feed
	if c.Feed != nil {
		feed = connectivity.NewFeed(connectivity.FeedConfig{
			ConnectURL: c.Feed.URL,
			ClientID:   c.Feed.ClientID,
			Logger:     logger,
		}, monitor)
		if err := feed.Connect(ctx); err != nil {
			// The session still works offline-first; the feed can be
			// reconnected by the caller later.
			logger.With(map[string]interface{}{"error": err}).Warn("connectivity feed unavailable")
			feed = nil
		}
	}

	var captureEngine capture.Engine
	if c.Capture != nil {
		captureEngine = wscapture.NewEngine(*c.Capture, logger)
	}
	captures := capture.NewManager(captureEngine, monitor, logger)

	var speechEngine speech.Engine
	if c.Speech.Command != nil {
		cmd := speech.NewCommandEngine(*c.Speech.Command)
		if cmd.Available() {
			speechEngine = cmd
		} else {
			logger.With(map[string]interface{}{"binary": c.Speech.Command.Binary}).Warn("speech synthesizer not found, output muted")
		}
	}
	speechOut := speech.NewOutput(speechEngine, c.Speech.Options, logger)

	history := core.NewMessageHistory()
	controller := session.NewController(session.Options{
		History:  history,
		Monitor:  monitor,
		Captures: captures,
		Reply:    replySvc,
		Speech:   speechOut,
		Exporter: export.NewPipeline(c.Export, logger),
		Sink:     export.NewFileSink("."),
		Hooks:    hooks,
		Logger:   logger,
	})

	return &Session{
		Controller: controller,
		History:    history,
		Monitor:    monitor,
		Feed:       feed,
		Speech:     speechOut,
	}, nil
}
