package core

import (
	"errors"
	"sync"
)

// ErrEmptyMessage is returned when an empty message is appended to a history.
var ErrEmptyMessage = errors.New("history: message text must be non-empty")

// MessageHistory is the append-only ordered log of exchanged messages.
// Insertion order is chronological order; no message is ever removed or
// reordered for the lifetime of the session.
type MessageHistory struct {
	mu       sync.RWMutex
	messages []Message
}

func NewMessageHistory() *MessageHistory {
	return &MessageHistory{}
}

// Append adds a message to the end of the history. Messages with empty text
// are rejected; everything else always succeeds.
func (h *MessageHistory) Append(msg Message) error {
	if msg.Text == "" {
		return ErrEmptyMessage
	}
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	h.mu.Unlock()
	return nil
}

// Snapshot returns a defensive copy of the history in append order. Callers
// may not mutate the history through the returned slice.
func (h *MessageHistory) Snapshot() []Message {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// IsEmpty reports whether the history holds no messages.
func (h *MessageHistory) IsEmpty() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages) == 0
}

// Len returns the number of messages in the history.
func (h *MessageHistory) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.messages)
}
