package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEngine struct {
	spoken  []string
	opts    []Options
	cancels int
	err     error
}

func (e *recordingEngine) Speak(text string, opts Options) error {
	if e.err != nil {
		return e.err
	}
	e.spoken = append(e.spoken, text)
	e.opts = append(e.opts, opts)
	return nil
}

func (e *recordingEngine) Cancel() { e.cancels++ }

func TestOutputSpeaksWithConfiguredVoice(t *testing.T) {
	engine := &recordingEngine{}
	out := NewOutput(engine, DefaultOptions(), nil)

	out.Say("hello there")

	require.Len(t, engine.spoken, 1)
	assert.Equal(t, "hello there", engine.spoken[0])
	assert.Equal(t, "en-US", engine.opts[0].Lang)
	assert.Equal(t, 1.0, engine.opts[0].Rate)
}

func TestOutputCancelsInFlightUtteranceFirst(t *testing.T) {
	engine := &recordingEngine{}
	out := NewOutput(engine, DefaultOptions(), nil)

	out.Say("first")
	assert.Zero(t, engine.cancels, "nothing to cancel before the first utterance")

	out.Say("second")
	assert.Equal(t, 1, engine.cancels, "a new request interrupts the one in progress")
	assert.Equal(t, []string{"first", "second"}, engine.spoken)
}

func TestOutputSkipsUnspeakableText(t *testing.T) {
	engine := &recordingEngine{}
	out := NewOutput(engine, DefaultOptions(), nil)

	out.Say("🎤✅")
	assert.Empty(t, engine.spoken)
	assert.Zero(t, engine.cancels)
}

func TestOutputWithoutEngineIsInert(t *testing.T) {
	out := NewOutput(nil, DefaultOptions(), nil)
	out.Say("hello")
	out.Cancel()
}

func TestNormalizeForSpeech(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"**bold** and `code`", "bold and code"},
		{"hello 👋 world", "hello world"},
		{"  spaced   out  ", "spaced out"},
		{"🎤 Listening...", "Listening..."},
		{"⚠️", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeForSpeech(tt.in), "input %q", tt.in)
	}
}
