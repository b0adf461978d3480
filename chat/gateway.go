package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/auth"
)

// Gateway is the websocket entry point of interview chats. A connection is
// authenticated before the upgrade and authorized for its session right after it.
type Gateway struct {
	Authenticator *auth.Authenticator
	Authorizer    *Authorizer
	Service       *Service
	Rooms         *Rooms
	Senders       *Senders

	upgrader websocket.Upgrader
}

// NewGateway creates a Gateway. An empty allowedOrigins accepts any origin.
func NewGateway(authenticator *auth.Authenticator, authorizer *Authorizer, service *Service, allowedOrigins []string) *Gateway {
	g := &Gateway{
		Authenticator: authenticator,
		Authorizer:    authorizer,
		Service:       service,
		Rooms:         service.Rooms,
		Senders:       service.Senders,
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return lo.Contains(allowedOrigins, origin) || lo.Contains(allowedOrigins, u.Host)
		},
	}
	return g
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorPayload{Error: message})
}

// ServeHTTP handles GET /ws/chat?sessionId=<id>&token=<jwt>
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// store work started for a connection finishes even if the peer goes away
	ctx := context.WithoutCancel(r.Context())

	user, err := g.Authenticator.Authenticate(ctx, auth.TokenFromRequest(r))
	if err != nil {
		if reason := auth.RejectionReason(err); reason != "" {
			zap.S().Infow("chat handshake rejected", "remoteAddr", r.RemoteAddr, "error", err)
			writeJSONError(w, http.StatusUnauthorized, reason)
			return
		}
		zap.S().Errorw("chat handshake failed", "remoteAddr", r.RemoteAddr, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader already answered with an HTTP error
		zap.S().Warnw("failed to upgrade chat connection", "userId", user.ID.Hex(), "error", err)
		return
	}
	c := newConn(ws, user)
	go c.writePump()

	rawSessionID := r.URL.Query().Get("sessionId")
	adm, err := g.Authorizer.Admit(ctx, user, rawSessionID)
	switch {
	case errors.Is(err, ErrSessionNotFound):
		c.Close(websocket.CloseNormalClosure, "")
		return
	case errors.Is(err, ErrPermissionDenied):
		_ = c.Emit(EventChatError, ErrorPayload{Error: ErrPermissionDenied.Error()})
		c.Close(websocket.ClosePolicyViolation, "")
		return
	case err != nil:
		zap.S().Errorw("chat admission failed", "userId", user.ID.Hex(), "sessionId", rawSessionID, "error", err)
		_ = c.Emit(EventChatError, ErrorPayload{Error: "internal error"})
		c.Close(websocket.CloseInternalServerErr, "")
		return
	}

	g.Senders.Acquire(user)
	g.Rooms.Join(adm.Room(), c)
	defer func() {
		g.Rooms.Leave(adm.Room(), c)
		g.Senders.Release(user.ID)
		c.Close(websocket.CloseNormalClosure, "")
		zap.S().Infow("chat connection closed", "connId", c.ID, "userId", user.ID.Hex(), "sessionId", adm.Room())
	}()
	zap.S().Infow("chat connection admitted", "connId", c.ID, "userId", user.ID.Hex(), "sessionId", adm.Room())

	history, err := g.Service.History(ctx, adm)
	if err != nil {
		zap.S().Errorw("failed to load chat history", "connId", c.ID, "sessionId", adm.Room(), "error", err)
		_ = c.Emit(EventChatError, ErrorPayload{Error: "failed to load chat history"})
		c.Close(websocket.CloseInternalServerErr, "")
		return
	}
	if err := c.Emit(EventChatHistory, history); err != nil {
		zap.S().Warnw("failed to deliver chat history", "connId", c.ID, "error", err)
	}

	c.readPump(func(data []byte) {
		g.handleEvent(ctx, c, adm, data)
	})
}

// handleEvent runs on the connection's read loop, so the events of one connection
// are processed one at a time in arrival order
func (g *Gateway) handleEvent(ctx context.Context, c *Conn, adm *Admission, data []byte) {
	var in inboundEnvelope
	if err := json.Unmarshal(data, &in); err != nil {
		_ = c.Emit(EventChatError, ErrorPayload{Error: "invalid message"})
		return
	}

	switch in.Event {
	case EventChatMessage:
		var p SendPayload
		if len(in.Data) > 0 {
			if err := json.Unmarshal(in.Data, &p); err != nil {
				_ = c.Emit(EventChatError, ErrorPayload{Error: "invalid message"})
				return
			}
		}
		if _, err := g.Service.Send(ctx, c, adm, p.Content); err != nil {
			zap.S().Errorw("failed to send chat message",
				"connId", c.ID,
				"userId", c.User.ID.Hex(),
				"sessionId", adm.Room(),
				"error", err)
			_ = c.Emit(EventChatError, ErrorPayload{Error: "failed to send message"})
		}
	default:
		_ = c.Emit(EventChatError, ErrorPayload{Error: "unknown event"})
	}
}
