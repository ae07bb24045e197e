package domain

import (
	"github.com/Nishant28-sh/TradeTogether/internal/room"
)

// Event types from client.
const (
	EventJoin        = "join"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
)

// Event types to client.
const (
	EventChatHistory = "chatHistory"
	EventMessage     = "message"
	EventUserTyping  = "userTyping"
	EventError       = "error"
)

// Error codes
const (
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// BaseEvent is the base structure for all websocket events.
type BaseEvent struct {
	Type string `json:"type"`
}

// Client -> Server events

type JoinEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	room.Context
}

type SendMessageEvent struct {
	Type       string `json:"type"`
	SenderID   string `json:"senderId"`
	SenderName string `json:"senderName"`
	Body       string `json:"message"`
	room.Context
}

type TypingEvent struct {
	Type       string `json:"type"`
	SenderName string `json:"senderName"`
	IsTyping   bool   `json:"isTyping"`
	room.Context
}

// Server -> Client events

type ChatHistoryEvent struct {
	Type     string        `json:"type"`
	Room     string        `json:"room"`
	Messages []ChatMessage `json:"messages"`
}

type MessageEvent struct {
	Type string `json:"type"`
	ChatMessage
}

type UserTypingEvent struct {
	Type     string `json:"type"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewMessageEvent(msg ChatMessage) *MessageEvent {
	return &MessageEvent{Type: EventMessage, ChatMessage: msg}
}

func NewChatHistoryEvent(roomID string, messages []ChatMessage) *ChatHistoryEvent {
	return &ChatHistoryEvent{Type: EventChatHistory, Room: roomID, Messages: messages}
}

func NewErrorEvent(code, message string) *ErrorEvent {
	return &ErrorEvent{
		Type:    EventError,
		Code:    code,
		Message: message,
	}
}
