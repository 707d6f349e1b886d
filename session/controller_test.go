package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"chatkit/capture"
	"chatkit/connectivity"
	"chatkit/core"
	"chatkit/export"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubReply struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []string
}

func (s *stubReply) Send(_ context.Context, utterance string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, utterance)
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubReply) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type stubSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func (s *stubSpeaker) Say(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spoken = append(s.spoken, text)
}

func (s *stubSpeaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels++
}

func (s *stubSpeaker) said() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.spoken...)
}

// scriptEngine hands its callbacks to the test so capture outcomes can be
// fired by hand.
type scriptEngine struct {
	available     bool
	cb            capture.Callbacks
	started       int
	instantResult string // when set, Start completes synchronously
}

func (e *scriptEngine) Available() bool { return e.available }

func (e *scriptEngine) Start(_ context.Context, cb capture.Callbacks) error {
	e.cb = cb
	e.started++
	if e.instantResult != "" {
		cb.OnResult(e.instantResult)
	}
	return nil
}

func (e *scriptEngine) Stop() {}

type stubSink struct {
	err   error
	saved []*export.Document
}

func (s *stubSink) Save(_ context.Context, doc *export.Document) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, doc)
	return nil
}

type fixture struct {
	controller *Controller
	history    *core.MessageHistory
	monitor    *connectivity.Monitor
	reply      *stubReply
	speaker    *stubSpeaker
	engine     *scriptEngine
	sink       *stubSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	history := core.NewMessageHistory()
	monitor := connectivity.NewMonitor(core.StateOnline, nil)
	engine := &scriptEngine{available: true}
	replySvc := &stubReply{reply: "hello there"}
	speaker := &stubSpeaker{}
	sink := &stubSink{}

	controller := NewController(Options{
		History:  history,
		Monitor:  monitor,
		Captures: capture.NewManager(engine, monitor, nil),
		Reply:    replySvc,
		Speech:   speaker,
		Exporter: export.NewPipeline(export.DefaultConfig(), nil),
		Sink:     sink,
	})

	return &fixture{
		controller: controller,
		history:    history,
		monitor:    monitor,
		reply:      replySvc,
		speaker:    speaker,
		engine:     engine,
		sink:       sink,
	}
}

func TestSubmitTextBlankIsNoOp(t *testing.T) {
	f := newFixture(t)

	f.controller.SubmitText(context.Background(), "")
	f.controller.SubmitText(context.Background(), "   ")

	assert.True(t, f.history.IsEmpty())
	assert.Zero(t, f.reply.callCount(), "blank input must never reach the reply service")
}

func TestSubmitTextSuccessAppendsPairAndSpeaks(t *testing.T) {
	f := newFixture(t)

	f.controller.SubmitText(context.Background(), "hi")

	snap := f.history.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, core.SenderUser, snap[0].Sender)
	assert.Equal(t, "hi", snap[0].Text)
	assert.Equal(t, core.SenderBot, snap[1].Sender)
	assert.Equal(t, "hello there", snap[1].Text)
	assert.False(t, snap[1].IsStatus())

	require.Len(t, f.speaker.said(), 1)
	assert.Equal(t, "hello there", f.speaker.said()[0])
}

func TestSubmitTextFailureAppendsStatusAndStaysSilent(t *testing.T) {
	f := newFixture(t)
	f.reply.err = errors.New("connection refused")

	f.controller.SubmitText(context.Background(), "hi")

	snap := f.history.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, core.SenderUser, snap[0].Sender)
	assert.True(t, snap[1].IsStatus())
	assert.Equal(t, statusReplyFailure, snap[1].Text)
	assert.Empty(t, f.speaker.said(), "status lines are never spoken")
}

func TestSubmitTextClearsInputField(t *testing.T) {
	f := newFixture(t)
	cleared := 0
	f.controller.hooks.ClearInput = func() { cleared++ }

	f.controller.SubmitText(context.Background(), "hi")
	assert.Equal(t, 1, cleared)

	f.controller.SubmitText(context.Background(), "  ")
	assert.Equal(t, 1, cleared, "no-op submission must not clear the field")
}

func TestSubmitVoiceOfflineRefusesWithoutCapture(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetState(core.StateOffline)

	f.controller.SubmitVoice(context.Background())

	snap := f.history.Snapshot()
	require.Len(t, snap, 1)
	assert.True(t, snap[0].IsStatus())
	assert.Equal(t, statusOfflineVoice, snap[0].Text)
	assert.Zero(t, f.engine.started, "no capture session may start while offline")
	assert.Zero(t, f.reply.callCount())
}

func TestSubmitVoiceCompletedSubmitsTranscriptOnce(t *testing.T) {
	f := newFixture(t)

	f.controller.SubmitVoice(context.Background())
	require.Equal(t, 1, f.engine.started)
	f.engine.cb.OnResult("buy milk")

	snap := f.history.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, statusListening, snap[0].Text)

	var users []core.Message
	for _, m := range snap {
		if m.Sender == core.SenderUser {
			users = append(users, m)
		}
	}
	require.Len(t, users, 1, "one capture yields exactly one user message")
	assert.Equal(t, "buy milk", users[0].Text)
	assert.Equal(t, core.SenderBot, snap[2].Sender)
}

func TestSubmitVoiceFastCompletionKeepsListeningFirst(t *testing.T) {
	f := newFixture(t)
	f.engine.instantResult = "buy milk"

	f.controller.SubmitVoice(context.Background())

	snap := f.history.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, statusListening, snap[0].Text,
		"the listening status precedes the transcript even when capture completes immediately")
	assert.Equal(t, core.SenderUser, snap[1].Sender)
	assert.Equal(t, "buy milk", snap[1].Text)
	assert.Equal(t, core.SenderBot, snap[2].Sender)
}

func TestSubmitVoiceUnsupportedEngine(t *testing.T) {
	f := newFixture(t)
	f.engine.available = false

	f.controller.SubmitVoice(context.Background())

	snap := f.history.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, statusUnsupported, snap[0].Text)
	assert.Zero(t, f.reply.callCount())
}

func TestSubmitVoiceFailureNeverCallsReply(t *testing.T) {
	f := newFixture(t)

	f.controller.SubmitVoice(context.Background())
	f.engine.cb.OnError("audio-capture")

	snap := f.history.Snapshot()
	require.Len(t, snap, 2)
	assert.True(t, snap[1].IsStatus())
	assert.Contains(t, snap[1].Text, "audio-capture")
	assert.Zero(t, f.reply.callCount())
	assert.Empty(t, f.speaker.said())
}

func TestSubmitVoiceEmptyTranscript(t *testing.T) {
	f := newFixture(t)

	f.controller.SubmitVoice(context.Background())
	f.engine.cb.OnResult("   ")

	snap := f.history.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, statusNoSpeech, snap[1].Text)
	assert.Zero(t, f.reply.callCount())
}

func TestExportEmptyHistoryFails(t *testing.T) {
	f := newFixture(t)

	err := f.controller.Export(context.Background())
	assert.ErrorIs(t, err, export.ErrEmptyHistory)
	assert.Empty(t, f.sink.saved, "no persistence call on empty history")
	assert.True(t, f.history.IsEmpty())
}

func TestExportSavesTranscriptAndNarrates(t *testing.T) {
	f := newFixture(t)
	f.controller.SubmitText(context.Background(), "hi")

	require.NoError(t, f.controller.Export(context.Background()))

	require.Len(t, f.sink.saved, 1)
	doc := f.sink.saved[0]
	require.Len(t, doc.Lines, 2)
	assert.True(t, strings.HasSuffix(doc.Lines[0], "USER: hi"), "got %q", doc.Lines[0])
	assert.True(t, strings.HasSuffix(doc.Lines[1], "BOT: hello there"), "got %q", doc.Lines[1])

	snap := f.history.Snapshot()
	require.Len(t, snap, 4)
	assert.Equal(t, statusExportPrep, snap[2].Text)
	assert.Equal(t, statusExportSuccess, snap[3].Text)
	// The narration itself never leaks into the exported transcript.
	for _, line := range doc.Lines {
		assert.NotContains(t, line, statusExportPrep)
	}
}

func TestExportAbortedSaveIsSilent(t *testing.T) {
	f := newFixture(t)
	f.controller.SubmitText(context.Background(), "hi")
	f.sink.err = export.ErrSaveAborted

	require.NoError(t, f.controller.Export(context.Background()))

	snap := f.history.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, statusExportPrep, snap[2].Text)
	for _, m := range snap {
		assert.NotEqual(t, statusExportFailed, m.Text)
		assert.NotEqual(t, statusExportSuccess, m.Text)
	}
}

func TestExportWriteFailureNarrated(t *testing.T) {
	f := newFixture(t)
	f.controller.SubmitText(context.Background(), "hi")
	f.sink.err = errors.New("disk full")

	require.NoError(t, f.controller.Export(context.Background()))

	snap := f.history.Snapshot()
	assert.Equal(t, statusExportFailed, snap[len(snap)-1].Text)
}

func TestStatusMessagesAreStoredButNeverSpoken(t *testing.T) {
	f := newFixture(t)
	f.monitor.SetState(core.StateOffline)

	f.controller.SubmitVoice(context.Background())
	require.Equal(t, 1, f.history.Len())
	assert.Empty(t, f.speaker.said())
}
