package core

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// MessageKind separates dialogue turns from system status notices. The kind
// is fixed at construction time by whoever creates the message; it is never
// inferred from the text content.
type MessageKind int

const (
	KindDialogue MessageKind = iota
	KindStatus
)

func (k MessageKind) String() string {
	if k == KindStatus {
		return "status"
	}
	return "dialogue"
}

// Message is one immutable entry in the conversation transcript.
type Message struct {
	Id        string    // Unique identifier, assigned at creation.
	Sender    Sender    // Who produced the message.
	Kind      MessageKind
	Text      string    // Non-empty message body.
	Timestamp time.Time // Wall-clock capture time at creation.
}

// NewDialogueMessage creates an ordinary conversational message.
func NewDialogueMessage(sender Sender, text string) Message {
	return newMessage(sender, KindDialogue, text)
}

// NewStatusMessage creates a bot-side status notice. Status messages are
// stored in the history like any other message but are never spoken aloud.
func NewStatusMessage(text string) Message {
	return newMessage(SenderBot, KindStatus, text)
}

func newMessage(sender Sender, kind MessageKind, text string) Message {
	return Message{
		Id:        uuid.New().String(),
		Sender:    sender,
		Kind:      kind,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// IsStatus reports whether the message is a system status notice rather than
// a dialogue turn.
func (m Message) IsStatus() bool {
	return m.Kind == KindStatus
}
