package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatkit/capture"
	"chatkit/connectivity"
	"chatkit/core"
	"chatkit/export"
)

// Status line texts. Every system notice carries one of the reserved marker
// glyphs (listening, processing, warning, note, success) for visual styling;
// classification itself is by MessageKind, never by sniffing the text.
const (
	statusListening     = "🎤 Listening..."
	statusOfflineVoice  = "🌐 Offline Mode: Please type your command manually (voice unavailable)."
	statusUnsupported   = "⚠️ Voice capture is not supported in this environment."
	statusNoSpeech      = "📝 Didn't catch that. Please try again."
	statusCancelled     = "📝 Voice capture cancelled."
	statusReplyFailure  = "⚠️ Error connecting to server."
	statusExportPrep    = "📝 Preparing your PDF..."
	statusExportSuccess = "✅ Chat exported successfully!"
	statusExportFailed  = "⚠️ Failed to save PDF. Please try again."
)

// ReplyService sends one user utterance to the remote reply service and
// returns the bot's reply text. One round trip per call, no retries.
type ReplyService interface {
	Send(ctx context.Context, utterance string) (string, error)
}

// Speaker is the single-slot speech output resource.
type Speaker interface {
	Say(text string)
	Cancel()
}

// Hooks are optional collaborator actions the controller triggers as side
// effects. Nil hooks are skipped.
type Hooks struct {
	// ClearInput empties the text input field after a submission.
	ClearInput func()
	// OnAppend fires after every history append, for rendering.
	OnAppend func(msg core.Message)
}

// Options wires a Controller's collaborators.
type Options struct {
	History  *core.MessageHistory
	Monitor  *connectivity.Monitor
	Captures *capture.Manager
	Reply    ReplyService
	Speech   Speaker
	Exporter *export.Pipeline
	Sink     export.Sink
	Hooks    Hooks
	Logger   *core.Logger
}

// Controller reconciles the three input/output channels (connectivity,
// voice capture, and text submission) into the single ordered message
// history, and drives speech output and the export pipeline over it. No
// failure in any submission path escapes as an error: the conversation
// continues, narrated with a status line.
type Controller struct {
	history  *core.MessageHistory
	monitor  *connectivity.Monitor
	captures *capture.Manager
	reply    ReplyService
	speech   Speaker
	exporter *export.Pipeline
	sink     export.Sink
	hooks    Hooks
	logger   *core.Logger
}

func NewController(opts Options) *Controller {
	if opts.History == nil {
		opts.History = core.NewMessageHistory()
	}
	if opts.Logger == nil {
		opts.Logger = core.GetLogger()
	}
	return &Controller{
		history:  opts.History,
		monitor:  opts.Monitor,
		captures: opts.Captures,
		reply:    opts.Reply,
		speech:   opts.Speech,
		exporter: opts.Exporter,
		sink:     opts.Sink,
		hooks:    opts.Hooks,
		logger:   opts.Logger.With(map[string]interface{}{"component": "session"}),
	}
}

// SubmitText submits a typed (or transcribed) utterance. Blank input is a
// no-op. The User message is appended before the reply round trip and the
// Bot message after it, so each call's pair stays contiguous relative to
// itself; concurrent calls may interleave their pairs. No submission lock
// is held.
func (c *Controller) SubmitText(ctx context.Context, text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	c.append(core.NewDialogueMessage(core.SenderUser, text))
	if c.hooks.ClearInput != nil {
		c.hooks.ClearInput()
	}

	replyText, err := c.reply.Send(ctx, text)
	if err != nil {
		c.logger.With(map[string]interface{}{"error": err}).Warn("reply request failed")
		c.append(core.NewStatusMessage(statusReplyFailure))
		return
	}
	c.append(core.NewDialogueMessage(core.SenderBot, replyText))
}

// SubmitVoice starts a voice capture attempt and submits its transcript as
// text. While offline the attempt is refused up front with a status line
// and no capture session is ever started. Starting a new capture cancels
// one already listening.
func (c *Controller) SubmitVoice(ctx context.Context) {
	if c.monitor != nil && !c.monitor.Online() {
		c.append(core.NewStatusMessage(statusOfflineVoice))
		return
	}

	c.captures.Start(ctx, func() {
		c.append(core.NewStatusMessage(statusListening))
	}, func(outcome capture.Outcome) {
		c.handleCaptureOutcome(ctx, outcome)
	})
}

func (c *Controller) handleCaptureOutcome(ctx context.Context, outcome capture.Outcome) {
	switch outcome.State {
	case capture.StateCompleted:
		c.SubmitText(ctx, outcome.Transcript)

	case capture.StateCancelled:
		c.append(core.NewStatusMessage(statusCancelled))

	case capture.StateFailed:
		switch outcome.Reason {
		case capture.ReasonOffline:
			c.append(core.NewStatusMessage(statusOfflineVoice))
		case capture.ReasonUnsupported:
			c.append(core.NewStatusMessage(statusUnsupported))
		case capture.ReasonEmpty:
			c.append(core.NewStatusMessage(statusNoSpeech))
		default:
			c.append(core.NewStatusMessage(fmt.Sprintf("⚠️ Voice recognition error: %s", outcome.Reason)))
		}
	}
}

// History returns an order-preserving snapshot of the conversation.
func (c *Controller) History() []core.Message {
	return c.history.Snapshot()
}

// Export renders the current history to a PDF document and hands it to the
// sink. An empty history is the one failure surfaced to the caller; a
// user-abandoned save is swallowed silently, and a failed write becomes a
// status line like any other failure.
func (c *Controller) Export(ctx context.Context) error {
	// Snapshot first so the "preparing" notice below is not part of the
	// exported transcript.
	snapshot := c.history.Snapshot()
	if len(snapshot) == 0 {
		return export.ErrEmptyHistory
	}

	c.append(core.NewStatusMessage(statusExportPrep))

	doc, err := c.exporter.Export(snapshot)
	if err != nil {
		c.logger.With(map[string]interface{}{"error": err}).Error("export render failed")
		c.append(core.NewStatusMessage(statusExportFailed))
		return nil
	}

	if err := c.sink.Save(ctx, doc); err != nil {
		if errors.Is(err, export.ErrSaveAborted) {
			c.logger.Debug("export save aborted by user")
			return nil
		}
		c.logger.With(map[string]interface{}{"error": err}).Error("export save failed")
		c.append(core.NewStatusMessage(statusExportFailed))
		return nil
	}

	c.append(core.NewStatusMessage(statusExportSuccess))
	return nil
}

// append stores a message, notifies the render hook, and speaks bot
// dialogue aloud. Status notices are never spoken.
func (c *Controller) append(msg core.Message) {
	if err := c.history.Append(msg); err != nil {
		c.logger.With(map[string]interface{}{"error": err}).Warn("dropping unappendable message")
		return
	}
	if c.hooks.OnAppend != nil {
		c.hooks.OnAppend(msg)
	}
	if c.speech != nil && msg.Sender == core.SenderBot && !msg.IsStatus() {
		c.speech.Say(msg.Text)
	}
}
