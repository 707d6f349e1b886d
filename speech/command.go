package speech

import (
	"fmt"
	"os/exec"
	"strings"
	"sync"
)

// CommandEngineConfig configures the external-command synthesizer.
type CommandEngineConfig struct {
	// Binary is the synthesizer executable, e.g. "espeak-ng" or "say".
	Binary string `json:"binary"`
	// Args are passed before the utterance text. The placeholders {lang} and
	// {rate} are substituted from the speech Options.
	Args []string `json:"args,omitempty"`
}

// DefaultCommandEngineConfig speaks through espeak-ng, which maps the rate
// multiplier onto its words-per-minute flag.
func DefaultCommandEngineConfig() CommandEngineConfig {
	return CommandEngineConfig{
		Binary: "espeak-ng",
		Args:   []string{"-v", "{lang}", "-s", "{rate}"},
	}
}

// CommandEngine vocalizes text by spawning an external TTS command per
// utterance. Cancel kills the running process, which is what gives the
// output slot its interrupt semantics.
type CommandEngine struct {
	config CommandEngineConfig

	mu  sync.Mutex
	cmd *exec.Cmd
}

func NewCommandEngine(config CommandEngineConfig) *CommandEngine {
	if config.Binary == "" {
		config = DefaultCommandEngineConfig()
	}
	return &CommandEngine{config: config}
}

// Available reports whether the synthesizer binary is on PATH.
func (e *CommandEngine) Available() bool {
	_, err := exec.LookPath(e.config.Binary)
	return err == nil
}

// Speak starts the synthesizer process and returns immediately; playback
// continues in the background.
func (e *CommandEngine) Speak(text string, opts Options) error {
	args := make([]string, 0, len(e.config.Args)+1)
	for _, a := range e.config.Args {
		a = strings.ReplaceAll(a, "{lang}", langVoice(opts.Lang))
		a = strings.ReplaceAll(a, "{rate}", fmt.Sprintf("%d", wordsPerMinute(opts.Rate)))
		args = append(args, a)
	}
	args = append(args, text)

	cmd := exec.Command(e.config.Binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("speech: start %s: %w", e.config.Binary, err)
	}

	e.mu.Lock()
	e.cmd = cmd
	e.mu.Unlock()

	go func() {
		_ = cmd.Wait()
		e.mu.Lock()
		if e.cmd == cmd {
			e.cmd = nil
		}
		e.mu.Unlock()
	}()

	return nil
}

// Cancel kills the in-flight synthesizer process, if any.
func (e *CommandEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
		e.cmd = nil
	}
}

// langVoice maps a BCP-47 locale like "en-US" onto an espeak voice name.
func langVoice(lang string) string {
	if lang == "" {
		return "en-us"
	}
	return strings.ToLower(lang)
}

// wordsPerMinute converts the rate multiplier to espeak's -s flag, anchored
// at 175 wpm for rate 1.0.
func wordsPerMinute(rate float64) int {
	if rate <= 0 {
		rate = 1.0
	}
	return int(175 * rate)
}
