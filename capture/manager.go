package capture

import (
	"context"
	"sync"

	"chatkit/core"
)

// Manager owns the one-capture-at-a-time rule: starting a new session first
// stops any session still Listening, so the engine is never shared between
// two live attempts.
type Manager struct {
	engine  Engine
	network ConnectivitySource
	logger  *core.Logger

	mu      sync.Mutex
	current *Session
}

func NewManager(engine Engine, network ConnectivitySource, logger *core.Logger) *Manager {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Manager{
		engine:  engine,
		network: network,
		logger:  logger,
	}
}

// Start creates and starts a fresh capture session, cancelling the previous
// one first if it is still Listening. The new session is returned; its
// outcome is delivered through onOutcome exactly once, preceded by
// onListening if the session actually starts listening.
func (m *Manager) Start(ctx context.Context, onListening func(), onOutcome func(Outcome)) *Session {
	m.mu.Lock()
	prior := m.current
	session := NewSession(m.engine, m.network, m.logger)
	m.current = session
	m.mu.Unlock()

	if prior != nil {
		prior.Stop()
	}

	session.Start(ctx, onListening, onOutcome)
	return session
}

// Stop cancels the active session, if any.
func (m *Manager) Stop() {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current != nil {
		current.Stop()
	}
}

// Active returns the most recently started session, which may already be in
// a terminal state.
func (m *Manager) Active() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
