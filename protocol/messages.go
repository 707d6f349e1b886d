package protocol

import (
	"encoding/json"
	"time"
)

// MessageType enumerates all message types carried on the environment feed.
type MessageType string

const (
	// Environment -> client
	MsgConnectivity MessageType = "connectivity"
	MsgShutdown     MessageType = "shutdown"

	// Client -> environment
	MsgRegister  MessageType = "register"
	MsgHeartbeat MessageType = "heartbeat"
)

// Envelope is the outer JSON wrapper for all WebSocket feed messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Environment -> client payloads ---

// ConnectivityPayload announces an online/offline transition.
type ConnectivityPayload struct {
	Online    bool      `json:"online"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// ShutdownPayload asks the client to close the feed gracefully.
type ShutdownPayload struct {
	Reason string `json:"reason,omitempty"`
}

// --- Client -> environment payloads ---

// RegisterPayload is sent once by the client immediately after connecting.
type RegisterPayload struct {
	ClientID  string    `json:"client_id"`
	Version   string    `json:"version,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// HeartbeatPayload is sent periodically to keep the feed connection alive.
type HeartbeatPayload struct {
	ClientID  string    `json:"client_id"`
	Timestamp time.Time `json:"timestamp"`
}

// --- Reply service wire format ---

// ChatRequest is the body POSTed to the reply service.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the reply service's response body. Reply must be present
// for the response to be considered well-formed.
type ChatResponse struct {
	Reply *string `json:"reply"`
}
