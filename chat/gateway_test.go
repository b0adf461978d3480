package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/interview-chat-api/auth"
	"github.com/linesmerrill/interview-chat-api/models"
)

type gatewayFixture struct {
	store   *memStore
	tokens  *auth.Tokens
	gateway *Gateway
	server  *httptest.Server

	candidate models.User
	owner     models.User
	outsider  models.User
	session   models.PopulatedInterviewSession
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	store := newMemStore()
	tokens := auth.NewTokens("test-secret", time.Hour)

	rooms := NewRooms()
	service := NewService(store, chatStore{store}, rooms, NewSenders(store))
	gateway := NewGateway(
		auth.NewAuthenticator(tokens, store),
		NewAuthorizer(store, chatStore{store}),
		service,
		nil,
	)
	server := httptest.NewServer(gateway)
	t.Cleanup(server.Close)

	f := &gatewayFixture{
		store:     store,
		tokens:    tokens,
		gateway:   gateway,
		server:    server,
		candidate: store.addUser("casey"),
		owner:     store.addUser("olive"),
		outsider:  store.addUser("victor"),
	}
	f.session = store.addSession(f.candidate.ID, f.owner.ID)
	return f
}

func (f *gatewayFixture) url(sessionID, token string) string {
	q := url.Values{}
	q.Set("sessionId", sessionID)
	if token != "" {
		q.Set("token", token)
	}
	return "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws/chat?" + q.Encode()
}

func (f *gatewayFixture) dial(t *testing.T, u models.User, sessionID string) *websocket.Conn {
	t.Helper()
	token, err := f.tokens.Issue(u.ID)
	require.NoError(t, err)

	ws, resp, err := websocket.DefaultDialer.Dial(f.url(sessionID, token), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readEvent(t *testing.T, ws *websocket.Conn) testEnvelope {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env testEnvelope
	require.NoError(t, ws.ReadJSON(&env))
	return env
}

func readMessage(t *testing.T, ws *websocket.Conn, event string) MessagePayload {
	t.Helper()
	env := readEvent(t, ws)
	require.Equal(t, event, env.Event)
	var p MessagePayload
	require.NoError(t, json.Unmarshal(env.Data, &p))
	return p
}

func readClose(t *testing.T, ws *websocket.Conn) *websocket.CloseError {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := ws.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
	return closeErr
}

func sendEvent(t *testing.T, ws *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(map[string]interface{}{"event": event, "data": data}))
}

func TestGateway_InterviewConversation(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.session.ID.Hex()

	u := f.dial(t, f.candidate, room)
	history := readEvent(t, u)
	assert.Equal(t, EventChatHistory, history.Event)
	assert.JSONEq(t, `[]`, string(history.Data))
	require.NotNil(t, f.store.chatFor(f.session.ID))

	o := f.dial(t, f.owner, room)
	history = readEvent(t, o)
	assert.Equal(t, EventChatHistory, history.Event)
	assert.JSONEq(t, `[]`, string(history.Data))

	sendEvent(t, u, EventChatMessage, SendPayload{Content: "Hi, thanks for having me"})
	hello := readMessage(t, o, EventChatMessage)
	assert.Equal(t, "Hi, thanks for having me", hello.Content)
	assert.Equal(t, SenderProfile{ID: f.candidate.ID.Hex(), Name: "casey"}, hello.Sender)

	// the sender is not echoed: U's next event is O's reply
	sendEvent(t, o, EventChatMessage, SendPayload{Content: "Welcome"})
	reply := readMessage(t, u, EventChatMessage)
	assert.Equal(t, "Welcome", reply.Content)
	assert.Equal(t, "olive", reply.Sender.Name)

	v := f.dial(t, f.outsider, room)
	denied := readEvent(t, v)
	assert.Equal(t, EventChatError, denied.Event)
	assert.JSONEq(t, `{"error":"permission denied"}`, string(denied.Data))
	assert.Equal(t, websocket.ClosePolicyViolation, readClose(t, v).Code)

	content := "Hi, thanks for having me!"
	_, err := f.gateway.Service.Edit(context.Background(), f.owner.ID, room, hello.ID, &content)
	assert.ErrorIs(t, err, ErrForbidden)

	edited, err := f.gateway.Service.Edit(context.Background(), f.candidate.ID, room, hello.ID, &content)
	require.NoError(t, err)
	assert.Equal(t, hello.Timestamp.Unix(), edited.Timestamp.Unix())
	for _, ws := range []*websocket.Conn{u, o} {
		updated := readMessage(t, ws, EventChatUpdated)
		assert.Equal(t, hello.ID, updated.ID)
		assert.Equal(t, content, updated.Content)
	}

	require.NoError(t, f.gateway.Service.Delete(context.Background(), f.candidate.ID, room, hello.ID))
	for _, ws := range []*websocket.Conn{u, o} {
		deleted := readEvent(t, ws)
		assert.Equal(t, EventChatDeleted, deleted.Event)
		assert.JSONEq(t, `{"messageId":"`+hello.ID+`"}`, string(deleted.Data))
	}

	require.NoError(t, f.gateway.Service.Delete(context.Background(), f.owner.ID, room, reply.ID))
	for _, ws := range []*websocket.Conn{u, o} {
		deleted := readEvent(t, ws)
		assert.Equal(t, EventChatDeleted, deleted.Event)
		assert.JSONEq(t, `{"messageId":"`+reply.ID+`"}`, string(deleted.Data))
	}

	// a late joiner gets the chat as it is now
	late := f.dial(t, f.owner, room)
	history = readEvent(t, late)
	assert.Equal(t, EventChatHistory, history.Event)
	assert.JSONEq(t, `[]`, string(history.Data))
	assert.Equal(t, 1, f.store.creates)
}

func TestGateway_BlankMessageIsIgnored(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.session.ID.Hex()

	u := f.dial(t, f.candidate, room)
	readEvent(t, u)
	o := f.dial(t, f.owner, room)
	readEvent(t, o)

	sendEvent(t, u, EventChatMessage, SendPayload{Content: "   "})
	sendEvent(t, u, EventChatMessage, SendPayload{Content: "real"})

	got := readMessage(t, o, EventChatMessage)
	assert.Equal(t, "real", got.Content)
	assert.Len(t, f.store.chatFor(f.session.ID).Messages, 1)
}

func TestGateway_InvalidFrames(t *testing.T) {
	f := newGatewayFixture(t)
	u := f.dial(t, f.candidate, f.session.ID.Hex())
	readEvent(t, u)

	require.NoError(t, u.WriteMessage(websocket.TextMessage, []byte("{not json")))
	env := readEvent(t, u)
	assert.Equal(t, EventChatError, env.Event)
	assert.JSONEq(t, `{"error":"invalid message"}`, string(env.Data))

	sendEvent(t, u, "typing", nil)
	env = readEvent(t, u)
	assert.Equal(t, EventChatError, env.Event)
	assert.JSONEq(t, `{"error":"unknown event"}`, string(env.Data))
}

func TestGateway_SendFailureReportsError(t *testing.T) {
	f := newGatewayFixture(t)
	u := f.dial(t, f.candidate, f.session.ID.Hex())
	readEvent(t, u)

	f.store.mu.Lock()
	f.store.failAppend = true
	f.store.mu.Unlock()

	sendEvent(t, u, EventChatMessage, SendPayload{Content: "hello"})
	env := readEvent(t, u)
	assert.Equal(t, EventChatError, env.Event)
	assert.JSONEq(t, `{"error":"failed to send message"}`, string(env.Data))
}

func TestGateway_UnknownSessionClosesSilently(t *testing.T) {
	f := newGatewayFixture(t)

	for _, sessionID := range []string{primitive.NewObjectID().Hex(), "not-an-id", ""} {
		ws := f.dial(t, f.candidate, sessionID)
		closeErr := readClose(t, ws)
		assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
		assert.Empty(t, closeErr.Text)
	}
	assert.Zero(t, f.store.creates)
}

func TestGateway_HistoryFailureClosesConnection(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.session.ID.Hex()
	// the session points at a chat that is gone
	require.NoError(t, f.store.SetChat(context.Background(), f.session.ID, primitive.NewObjectID()))

	ws := f.dial(t, f.candidate, room)
	env := readEvent(t, ws)
	assert.Equal(t, EventChatError, env.Event)
	assert.JSONEq(t, `{"error":"failed to load chat history"}`, string(env.Data))
	assert.Equal(t, websocket.CloseInternalServerErr, readClose(t, ws).Code)

	require.Eventually(t, func() bool {
		return f.gateway.Rooms.Stats().Connections == 0
	}, time.Second, 5*time.Millisecond)
}

func TestGateway_AdmissionStoreFailureClosesConnection(t *testing.T) {
	f := newGatewayFixture(t)
	f.store.mu.Lock()
	f.store.failCreate = true
	f.store.mu.Unlock()

	ws := f.dial(t, f.candidate, f.session.ID.Hex())
	env := readEvent(t, ws)
	assert.Equal(t, EventChatError, env.Event)
	assert.JSONEq(t, `{"error":"internal error"}`, string(env.Data))
	assert.Equal(t, websocket.CloseInternalServerErr, readClose(t, ws).Code)
	assert.Nil(t, f.store.chatFor(f.session.ID))
}

func TestGateway_SenderCacheReleasedOnDisconnect(t *testing.T) {
	f := newGatewayFixture(t)
	ws := f.dial(t, f.candidate, f.session.ID.Hex())
	readEvent(t, ws)
	assert.Equal(t, 1, f.gateway.Senders.Len())

	require.NoError(t, ws.Close())
	require.Eventually(t, func() bool {
		return f.gateway.Senders.Len() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestGateway_RejectsBeforeUpgrade(t *testing.T) {
	f := newGatewayFixture(t)
	room := f.session.ID.Hex()

	_, resp, err := websocket.DefaultDialer.Dial(f.url(room, ""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	expired := auth.NewTokens("test-secret", -time.Minute)
	expiredToken, err := expired.Issue(f.candidate.ID)
	require.NoError(t, err)
	foreignToken, err := auth.NewTokens("other-secret", time.Hour).Issue(f.candidate.ID)
	require.NoError(t, err)
	ghostToken, err := f.tokens.Issue(primitive.NewObjectID())
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"missing", "", "missing token"},
		{"garbage", "abc.def.ghi", "invalid token"},
		{"expired", expiredToken, "invalid token"},
		{"wrong secret", foreignToken, "invalid token"},
		{"unknown user", ghostToken, "unknown subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ws/chat?sessionId="+room, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()

			f.gateway.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, rr.Body.String())
		})
	}
	assert.Zero(t, f.store.creates)
}

func TestGateway_CheckOrigin(t *testing.T) {
	g := NewGateway(nil, nil, NewService(nil, nil, NewRooms(), nil), []string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/ws/chat", nil)
	assert.True(t, g.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://app.example.com")
	assert.True(t, g.upgrader.CheckOrigin(req))

	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, g.upgrader.CheckOrigin(req))
}
