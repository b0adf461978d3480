package chat

import (
	"encoding/json"
	"time"
)

// Event names used on the websocket
const (
	EventChatMessage = "chatMessage"
	EventChatHistory = "chatHistory"
	EventChatUpdated = "chatUpdated"
	EventChatDeleted = "chatDeleted"
	EventChatError   = "chatError"
)

// inboundEnvelope is a frame received from a client. Data is decoded per event.
type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type outboundEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// SendPayload is the inbound body of a chatMessage event
type SendPayload struct {
	Content string `json:"content"`
}

// SenderProfile is the lightweight user projection attached to outbound messages
type SenderProfile struct {
	ID   string `json:"_id"`
	Name string `json:"name,omitempty"`
}

// MessagePayload is the outbound shape of a message for chatMessage, chatHistory and
// chatUpdated events
type MessagePayload struct {
	ID        string        `json:"id"`
	Sender    SenderProfile `json:"sender"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
}

// DeletedPayload is the body of a chatDeleted event
type DeletedPayload struct {
	MessageID string `json:"messageId"`
}

// ErrorPayload is the body of a chatError event
type ErrorPayload struct {
	Error string `json:"error"`
}
