package models

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies who authored a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is a single entry in a conversation. It is never mutated after creation.
type Message struct {
	ID        int64     `json:"id"` // creation time in Unix milliseconds, unique per conversation
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	HTML      string    `json:"html,omitempty"` // rendered markdown, markdown mode only
}

// SendMessageRequest is the payload sent to the messages endpoint.
type SendMessageRequest struct {
	Text string `json:"text"`
}

// SendMessageResponse carries both halves of a completed round trip.
type SendMessageResponse struct {
	User Message `json:"user"`
	Bot  Message `json:"bot"`
}

// MessagesResponse lists the conversation in display order.
type MessagesResponse struct {
	Messages []Message `json:"messages"`
	Busy     bool      `json:"busy"`
}

// SessionResponse is returned when a chat session is opened.
type SessionResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// StatusResponse drives the busy/online indicator.
type StatusResponse struct {
	Busy         bool `json:"busy"`
	Online       bool `json:"online"`
	MessageCount int  `json:"message_count"`
}
