package chat

import "errors"

// Handshake outcomes
var (
	ErrSessionNotFound  = errors.New("interview session not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// Message mutation outcomes
var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("only the sender may change this message")
)

// Connection outcomes
var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("connection send buffer full")
)
