package domain

import (
	"fmt"
	"time"
)

// MessageKind discriminates user chat messages from synthetic system
// notices (join announcements). The original implementation used a
// sentinel "system" sender for this; the kind tag makes the distinction
// explicit for both persistence and rendering.
type MessageKind string

const (
	KindUser   MessageKind = "user"
	KindSystem MessageKind = "system"
)

// ChatMessage is the persisted chat record. Room always holds the
// canonical resolved room identifier, never a raw client-supplied alias.
// Messages are append-only: never mutated, never deleted by this service.
type ChatMessage struct {
	Room       string      `json:"room"`
	Kind       MessageKind `json:"kind"`
	SenderID   string      `json:"senderId,omitempty"`
	SenderName string      `json:"senderName"`
	Body       string      `json:"message"`
	SentAt     time.Time   `json:"time"`
}

// NewUserMessage builds a user chat message stamped with the current time.
func NewUserMessage(roomID, senderID, senderName, body string) ChatMessage {
	return ChatMessage{
		Room:       roomID,
		Kind:       KindUser,
		SenderID:   senderID,
		SenderName: senderName,
		Body:       body,
		SentAt:     time.Now().UTC(),
	}
}

// NewJoinNotice builds the synthetic notice broadcast to a room when a
// user joins it.
func NewJoinNotice(roomID, username string) ChatMessage {
	return ChatMessage{
		Room:       roomID,
		Kind:       KindSystem,
		SenderName: "System",
		Body:       fmt.Sprintf("%s joined the chat.", username),
		SentAt:     time.Now().UTC(),
	}
}

// IsSystem reports whether the message is a synthetic notice.
func (m ChatMessage) IsSystem() bool {
	return m.Kind == KindSystem
}
