package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/api"
	"github.com/linesmerrill/interview-chat-api/chat"
	"github.com/linesmerrill/interview-chat-api/models"
)

// Error codes of the chat endpoints
const (
	CodeChatNotFound    = "CHAT_NOT_FOUND"
	CodeMessageNotFound = "MESSAGE_NOT_FOUND"
	CodeForbidden       = "FORBIDDEN"
	CodeContentRequired = "CONTENT_REQUIRED"
	CodeInvalidRequest  = "INVALID_REQUEST"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Chat exported for testing purposes
type Chat struct {
	Service  *chat.Service
	validate *validator.Validate
}

// NewChat creates the chat handlers
func NewChat(service *chat.Service) Chat {
	return Chat{Service: service, validate: validator.New()}
}

// EditMessageRequest is the body of an edit. Content must be present; an empty
// value keeps the current content.
type EditMessageRequest struct {
	Content *string `json:"content" validate:"required"`
}

// DeleteMessageResponse is returned after a message was removed
type DeleteMessageResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, models.ErrorResponse{Success: false, Error: message, Code: code})
}

// writeChatError maps a lifecycle outcome onto a response
func writeChatError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, chat.ErrChatNotFound):
		writeError(w, http.StatusNotFound, CodeChatNotFound, err.Error())
	case errors.Is(err, chat.ErrMessageNotFound):
		writeError(w, http.StatusNotFound, CodeMessageNotFound, err.Error())
	case errors.Is(err, chat.ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, err.Error())
	default:
		zap.S().Errorw("chat request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err)
		writeError(w, http.StatusInternalServerError, CodeInternalError, "internal server error")
	}
}

// storeContext bounds store work by the query timeout but not by the client: a
// write that started completes even if the caller hangs up
func storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return api.WithQueryTimeout(context.WithoutCancel(r.Context()))
}

// EditChatMessageHandler replaces the content of one of the caller's messages
func (c Chat) EditChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := api.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
		return
	}
	vars := mux.Vars(r)

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidRequest, "failed to decode request body")
		return
	}
	if err := c.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, CodeContentRequired, "content is required")
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()

	msg, err := c.Service.Edit(ctx, callerID, vars["sessionId"], vars["messageId"], req.Content)
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// DeleteChatMessageHandler removes one of the caller's messages
func (c Chat) DeleteChatMessageHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := api.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
		return
	}
	vars := mux.Vars(r)

	ctx, cancel := storeContext(r)
	defer cancel()

	if err := c.Service.Delete(ctx, callerID, vars["sessionId"], vars["messageId"]); err != nil {
		writeChatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteMessageResponse{Success: true, MessageID: vars["messageId"]})
}

// ChatHistoryHandler returns the ordered messages of a session's chat
func (c Chat) ChatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := api.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := storeContext(r)
	defer cancel()

	messages, err := c.Service.SessionHistory(ctx, callerID, mux.Vars(r)["sessionId"])
	if err != nil {
		writeChatError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
