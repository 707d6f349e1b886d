package connectivity

import (
	"context"
	"sync"
	"time"

	"chatkit/core"
)

// ChangeHandler is invoked on every Online <-> Offline transition.
type ChangeHandler func(state core.ConnectivityState)

// Monitor tracks the environment's online/offline state. State changes are
// normally pushed in via SetState (see Feed); when the environment offers no
// push signal a polling probe can be attached with StartPolling. The monitor
// itself cannot fail, it only reports momentarily stale state during a
// transition.
type Monitor struct {
	mu       sync.RWMutex
	state    core.ConnectivityState
	handlers []ChangeHandler
	logger   *core.Logger
}

// NewMonitor creates a monitor with the given initial state.
func NewMonitor(initial core.ConnectivityState, logger *core.Logger) *Monitor {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Monitor{
		state:  initial,
		logger: logger.With(map[string]interface{}{"component": "connectivity"}),
	}
}

// CurrentState returns the last reported connectivity state.
func (m *Monitor) CurrentState() core.ConnectivityState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Online is shorthand for CurrentState() == StateOnline.
func (m *Monitor) Online() bool {
	return m.CurrentState() == core.StateOnline
}

// OnChange registers a handler invoked whenever the state transitions.
// Handlers run on the goroutine that reported the change.
func (m *Monitor) OnChange(handler ChangeHandler) {
	m.mu.Lock()
	m.handlers = append(m.handlers, handler)
	m.mu.Unlock()
}

// SetState records a state report from the environment. Handlers fire only
// on an actual transition; repeated reports of the same state are ignored.
func (m *Monitor) SetState(state core.ConnectivityState) {
	m.mu.Lock()
	if state == m.state {
		m.mu.Unlock()
		return
	}
	m.state = state
	handlers := make([]ChangeHandler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	m.logger.With(map[string]interface{}{"state": state.String()}).Info("connectivity changed")
	for _, h := range handlers {
		h(state)
	}
}

// Probe reports whether the environment is currently reachable.
type Probe func(ctx context.Context) bool

// StartPolling runs probe at the given interval until ctx is cancelled,
// feeding the result into SetState. It is the fallback for environments
// without a push-based connectivity signal.
func (m *Monitor) StartPolling(ctx context.Context, probe Probe, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if probe(ctx) {
					m.SetState(core.StateOnline)
				} else {
					m.SetState(core.StateOffline)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
