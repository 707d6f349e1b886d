package wscapture

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"chatkit/capture"
	"chatkit/core"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/zaf/g711"
)

// Config holds configuration for the streaming capture engine.
type Config struct {
	// URL is the WebSocket endpoint of the transcription service. An empty
	// URL means voice capture is unavailable in this environment.
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Language   string `json:"language"`
	SampleRate int    `json:"sample_rate"`
	// MaxUtterance bounds how long a single capture attempt may listen
	// before the engine reports end-of-speech on its own.
	MaxUtterance time.Duration `json:"max_utterance"`
}

// DefaultConfig returns a config for a 16 kHz English session. Set URL (and
// APIKey if the service requires one) before use.
func DefaultConfig() Config {
	return Config{
		Language:     "en-US",
		SampleRate:   16000,
		MaxUtterance: 30 * time.Second,
	}
}

// Engine is a single-shot capture engine backed by a streaming
// transcription service. Audio pushed via SendAudio is transcoded to linear
// PCM and streamed over the socket; the first final transcript (or error, or
// end-of-speech signal) terminates the attempt.
type Engine struct {
	config Config
	logger *core.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	active bool
	cancel context.CancelFunc
}

func NewEngine(config Config, logger *core.Logger) *Engine {
	if config.SampleRate == 0 {
		config.SampleRate = 16000
	}
	if config.MaxUtterance == 0 {
		config.MaxUtterance = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Engine{
		config: config,
		logger: logger.With(map[string]interface{}{"component": "wscapture"}),
	}
}

// Available reports whether a transcription endpoint is configured.
func (e *Engine) Available() bool {
	return e.config.URL != ""
}

// Start dials the transcription service and listens until a terminal
// outcome. Exactly one of the callbacks fires; Stop aborts silently.
func (e *Engine) Start(ctx context.Context, cb capture.Callbacks) error {
	wsURL, err := e.buildURL()
	if err != nil {
		return fmt.Errorf("wscapture: build url: %w", err)
	}

	var headers map[string][]string
	if e.config.APIKey != "" {
		headers = map[string][]string{"Authorization": {"Token " + e.config.APIKey}}
	}

	dialCtx, cancel := context.WithCancel(ctx)
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, wsURL, headers)
	if err != nil {
		cancel()
		return fmt.Errorf("wscapture: dial %q: %w", e.config.URL, err)
	}

	e.mu.Lock()
	e.conn = conn
	e.active = true
	e.cancel = cancel
	e.mu.Unlock()

	go e.listen(dialCtx, cancel, conn, cb)
	return nil
}

// Stop aborts the in-flight attempt. No callback fires for a stopped
// attempt; the session layer owns the Cancelled transition.
func (e *Engine) Stop() {
	e.mu.Lock()
	conn := e.conn
	cancel := e.cancel
	e.active = false
	e.conn = nil
	e.cancel = nil
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		e.sendControl(conn, "CloseStream")
		_ = conn.Close()
	}
}

// releaseConn tears down one attempt's connection when its listen goroutine
// exits. Engine state is cleared only while the attempt still owns it, so a
// goroutine outliving its attempt can never tear down a successor's
// connection.
func (e *Engine) releaseConn(conn *websocket.Conn, cancel context.CancelFunc) {
	e.mu.Lock()
	if e.conn == conn {
		e.active = false
		e.conn = nil
		e.cancel = nil
	}
	e.mu.Unlock()

	cancel()
	e.sendControl(conn, "CloseStream")
	_ = conn.Close()
}

// SendAudio streams a chunk of microphone audio into the active attempt.
// Telephony G.711 chunks are transcoded to 16-bit linear PCM first.
func (e *Engine) SendAudio(chunk core.AudioChunk) error {
	e.mu.Lock()
	conn := e.conn
	active := e.active
	e.mu.Unlock()

	if !active || conn == nil {
		return fmt.Errorf("wscapture: no active capture attempt")
	}

	pcm, err := toPCM16(chunk)
	if err != nil {
		return fmt.Errorf("wscapture: transcode: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if err := conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return fmt.Errorf("wscapture: send audio: %w", err)
	}
	return nil
}

// wire messages exchanged with the transcription service

type resultMessage struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript"`
	IsFinal    bool   `json:"is_final"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type controlMessage struct {
	Type string `json:"type"`
}

func (e *Engine) listen(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, cb capture.Callbacks) {
	deadline := time.AfterFunc(e.config.MaxUtterance, func() {
		e.sendControl(conn, "Finalize")
	})
	defer deadline.Stop()
	defer e.releaseConn(conn, cancel)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if e.stillActive(conn) {
				cb.OnError(fmt.Sprintf("transcription stream error: %v", err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}

		var base controlMessage
		if err := sonic.Unmarshal(data, &base); err != nil {
			e.logger.With(map[string]interface{}{"error": err}).Warn("unparseable message from transcription service")
			continue
		}

		switch base.Type {
		case "Result":
			var result resultMessage
			if err := sonic.Unmarshal(data, &result); err != nil {
				e.logger.With(map[string]interface{}{"error": err}).Warn("invalid result payload")
				continue
			}
			if !result.IsFinal {
				e.logger.Debugf("interim transcript: %s", result.Transcript)
				continue
			}
			cb.OnResult(result.Transcript)
			return

		case "Error":
			var msg errorMessage
			if err := sonic.Unmarshal(data, &msg); err != nil {
				cb.OnError("transcription service error")
				return
			}
			cb.OnError(msg.Message)
			return

		case "SpeechEnded":
			cb.OnEnd()
			return

		default:
			e.logger.Debugf("ignoring message type %q", base.Type)
		}
	}
}

func (e *Engine) stillActive(conn *websocket.Conn) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active && e.conn == conn
}

func (e *Engine) sendControl(conn *websocket.Conn, msgType string) {
	if data, err := sonic.Marshal(controlMessage{Type: msgType}); err == nil {
		_ = conn.WriteMessage(websocket.TextMessage, data)
	}
}

func (e *Engine) buildURL() (string, error) {
	base, err := url.Parse(e.config.URL)
	if err != nil {
		return "", err
	}
	q := base.Query()
	q.Set("encoding", "linear16")
	q.Set("sample_rate", fmt.Sprintf("%d", e.config.SampleRate))
	q.Set("channels", "1")
	if e.config.Language != "" {
		q.Set("language", e.config.Language)
	}
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// toPCM16 converts a chunk to 16-bit little-endian linear PCM. PCM chunks
// pass through untouched.
func toPCM16(chunk core.AudioChunk) ([]byte, error) {
	switch chunk.Encoding {
	case core.EncodingPCM16, "":
		return chunk.Data, nil
	case core.EncodingULaw:
		return g711.DecodeUlaw(chunk.Data), nil
	case core.EncodingALaw:
		return g711.DecodeAlaw(chunk.Data), nil
	default:
		return nil, fmt.Errorf("unsupported audio encoding %q", chunk.Encoding)
	}
}
