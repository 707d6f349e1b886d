package speech

import (
	"sync"

	"chatkit/core"

	"github.com/google/uuid"
)

// Options is the fixed speech-output configuration applied to every
// utterance.
type Options struct {
	Lang string  `json:"lang"` // Voice locale, e.g. "en-US".
	Rate float64 `json:"rate"` // Speaking rate multiplier, 1.0 = normal.
}

// DefaultOptions returns the stock voice configuration.
func DefaultOptions() Options {
	return Options{
		Lang: "en-US",
		Rate: 1.0,
	}
}

// Engine abstracts a fire-and-forget speech synthesizer. Speak starts
// vocalizing and returns without waiting for playback to finish; Cancel
// interrupts whatever is currently being spoken.
type Engine interface {
	Speak(text string, opts Options) error
	Cancel()
}

// Output is the single-slot speech resource: at most one utterance is in
// flight, and a new request cancels the one in progress (last-write-wins).
type Output struct {
	engine Engine
	opts   Options
	logger *core.Logger

	mu      sync.Mutex
	current string // id of the in-flight utterance, empty when idle
}

func NewOutput(engine Engine, opts Options, logger *core.Logger) *Output {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Output{
		engine: engine,
		opts:   opts,
		logger: logger.With(map[string]interface{}{"component": "speech"}),
	}
}

// Say cancels any utterance in progress and starts speaking text. The text
// is normalized for speaking first; if nothing speakable remains the slot is
// left untouched.
func (o *Output) Say(text string) {
	spoken := NormalizeForSpeech(text)
	if spoken == "" || o.engine == nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current != "" {
		o.engine.Cancel()
	}
	o.current = uuid.New().String()

	if err := o.engine.Speak(spoken, o.opts); err != nil {
		// Speech is best-effort; a synth failure never disturbs the session.
		o.logger.With(map[string]interface{}{"error": err}).Warn("speech output failed")
		o.current = ""
	}
}

// Cancel interrupts the in-flight utterance, if any.
func (o *Output) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != "" && o.engine != nil {
		o.engine.Cancel()
	}
	o.current = ""
}
