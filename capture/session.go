package capture

import (
	"context"
	"strings"
	"sync"

	"chatkit/core"

	"github.com/google/uuid"
)

// State is the lifecycle state of a single voice capture attempt.
type State int

const (
	StateIdle State = iota
	StateListening
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateListening:
		return "listening"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Failure reasons reported in a Failed outcome. Engine errors are passed
// through verbatim alongside these reserved values.
const (
	ReasonOffline     = "offline"
	ReasonUnsupported = "unsupported"
	ReasonEmpty       = "empty"
)

// Outcome is the terminal result of a capture session.
type Outcome struct {
	State      State  // StateCompleted, StateFailed, or StateCancelled
	Transcript string // Set when State == StateCompleted, already trimmed.
	Reason     string // Set when State == StateFailed.
}

// Callbacks are invoked by an Engine as the underlying recognizer reports
// progress. At most one of the three fires per capture attempt.
type Callbacks struct {
	OnResult func(transcript string) // Final transcript available.
	OnError  func(reason string)     // Recognizer error; reason passed through verbatim.
	OnEnd    func()                  // End of speech with no result.
}

// Engine abstracts a single-shot speech recognizer. Engines are
// capability-gated: Available reports whether the environment can capture
// voice at all. Start begins listening and Stop aborts the attempt.
type Engine interface {
	Available() bool
	Start(ctx context.Context, cb Callbacks) error
	Stop()
}

// ConnectivitySource is the narrow read-side of the connectivity monitor a
// session consults before listening.
type ConnectivitySource interface {
	Online() bool
}

// Session is one ephemeral voice capture attempt:
//
//	Idle → Listening → {Completed | Failed | Cancelled}
//
// Terminal states are final; a session is never reused. The outcome callback
// fires exactly once.
type Session struct {
	Id string

	engine  Engine
	network ConnectivitySource
	logger  *core.Logger

	mu        sync.Mutex
	state     State
	onOutcome func(Outcome)
}

// NewSession creates a session in the Idle state.
func NewSession(engine Engine, network ConnectivitySource, logger *core.Logger) *Session {
	if logger == nil {
		logger = core.GetLogger()
	}
	id := uuid.New().String()
	return &Session{
		Id:      id,
		engine:  engine,
		network: network,
		logger:  logger.With(map[string]interface{}{"component": "capture", "capture_id": id}),
		state:   StateIdle,
	}
}

// State returns the session's current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves the session from Idle to Listening and arms the engine. If the
// environment is offline or has no capture capability the session fails
// immediately without ever entering Listening; the failure is still reported
// through onOutcome. onListening fires after the Listening transition and
// strictly before the engine is armed, so it always precedes the outcome.
// Start on a non-Idle session is a no-op.
func (s *Session) Start(ctx context.Context, onListening func(), onOutcome func(Outcome)) {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return
	}
	s.onOutcome = onOutcome

	if s.network != nil && !s.network.Online() {
		s.mu.Unlock()
		s.terminate(Outcome{State: StateFailed, Reason: ReasonOffline})
		return
	}
	if s.engine == nil || !s.engine.Available() {
		s.mu.Unlock()
		s.terminate(Outcome{State: StateFailed, Reason: ReasonUnsupported})
		return
	}

	s.state = StateListening
	s.mu.Unlock()

	s.logger.Info("listening")
	if onListening != nil {
		onListening()
	}

	err := s.engine.Start(ctx, Callbacks{
		OnResult: s.handleResult,
		OnError:  s.handleError,
		OnEnd:    s.handleEnd,
	})
	if err != nil {
		s.terminate(Outcome{State: StateFailed, Reason: err.Error()})
	}
}

// Stop cancels a Listening session. Stopping an Idle or terminal session
// does nothing.
func (s *Session) Stop() {
	s.mu.Lock()
	listening := s.state == StateListening
	s.mu.Unlock()
	if !listening {
		return
	}
	s.engine.Stop()
	s.terminate(Outcome{State: StateCancelled})
}

func (s *Session) handleResult(transcript string) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		s.terminate(Outcome{State: StateFailed, Reason: ReasonEmpty})
		return
	}
	s.terminate(Outcome{State: StateCompleted, Transcript: transcript})
}

func (s *Session) handleError(reason string) {
	s.terminate(Outcome{State: StateFailed, Reason: reason})
}

func (s *Session) handleEnd() {
	s.terminate(Outcome{State: StateCancelled})
}

// terminate performs the single transition into a terminal state. Late
// engine callbacks arriving after the first terminal transition are dropped.
func (s *Session) terminate(outcome Outcome) {
	s.mu.Lock()
	if s.state == StateCompleted || s.state == StateFailed || s.state == StateCancelled {
		s.mu.Unlock()
		return
	}
	s.state = outcome.State
	onOutcome := s.onOutcome
	s.mu.Unlock()

	s.logger.With(map[string]interface{}{
		"state":  outcome.State.String(),
		"reason": outcome.Reason,
	}).Debug("capture session terminal")

	if onOutcome != nil {
		onOutcome(outcome)
	}
}
