package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

// Service handles the message lifecycle of interview chats. Every broadcast happens
// only after the store acknowledged the write it describes. Concurrent mutations of
// the same chat are not serialized: the last write to reach the store wins.
type Service struct {
	Sessions databases.InterviewSessionDatabase
	Chats    databases.ChatDatabase
	Rooms    *Rooms
	Senders  *Senders

	now func() time.Time
}

// NewService creates a Service
func NewService(sessions databases.InterviewSessionDatabase, chats databases.ChatDatabase, rooms *Rooms, senders *Senders) *Service {
	return &Service{
		Sessions: sessions,
		Chats:    chats,
		Rooms:    rooms,
		Senders:  senders,
		now:      time.Now,
	}
}

func (s *Service) payload(ctx context.Context, m models.Message) MessagePayload {
	return MessagePayload{
		ID:        m.ID.Hex(),
		Sender:    s.Senders.Resolve(ctx, m.Sender),
		Content:   m.Content,
		Timestamp: m.Timestamp,
	}
}

// payloads resolves each distinct sender once
func (s *Service) payloads(ctx context.Context, messages []models.Message) []MessagePayload {
	seen := make(map[primitive.ObjectID]SenderProfile)
	return lo.Map(messages, func(m models.Message, _ int) MessagePayload {
		p, ok := seen[m.Sender]
		if !ok {
			p = s.Senders.Resolve(ctx, m.Sender)
			seen[m.Sender] = p
		}
		return MessagePayload{
			ID:        m.ID.Hex(),
			Sender:    p,
			Content:   m.Content,
			Timestamp: m.Timestamp,
		}
	})
}

// History returns the admitted chat's messages in insertion order
func (s *Service) History(ctx context.Context, adm *Admission) ([]MessagePayload, error) {
	chat, err := s.Chats.FindByID(ctx, adm.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	return s.payloads(ctx, chat.Messages), nil
}

// Send appends a message from the connection's user and relays it to the rest of
// the room, the sender's other connections included. Blank content is ignored and
// yields a nil payload and no error.
func (s *Service) Send(ctx context.Context, c *Conn, adm *Admission, content string) (*MessagePayload, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	msg := models.Message{
		ID:        primitive.NewObjectID(),
		Sender:    adm.User.ID,
		Content:   content,
		Timestamp: s.now().UTC(),
	}
	if err := s.Chats.AppendMessage(ctx, adm.ChatID, msg); err != nil {
		return nil, fmt.Errorf("failed to append message: %w", err)
	}

	out := s.payload(ctx, msg)
	s.Rooms.Broadcast(adm.Room(), EventChatMessage, out, c)
	return &out, nil
}

// target is a message located for mutation together with its chat
type target struct {
	sessionID primitive.ObjectID
	chat      *models.Chat
	message   models.Message
}

// locate resolves the message a caller wants to mutate. The chat is the one linked
// on the session, the same one admission and history use. The checks run in a
// fixed order: chat, message, then the caller's right to touch it. Only the sender
// may mutate a message, and only while still a participant of the session.
func (s *Service) locate(ctx context.Context, callerID primitive.ObjectID, rawSessionID, rawMessageID string) (*target, error) {
	sessionID, err := primitive.ObjectIDFromHex(rawSessionID)
	if err != nil {
		return nil, ErrChatNotFound
	}

	session, err := s.Sessions.FindPopulated(ctx, sessionID)
	if errors.Is(err, databases.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interview session: %w", err)
	}
	if session.Chat == nil {
		return nil, ErrChatNotFound
	}

	chat, err := s.Chats.FindByID(ctx, *session.Chat)
	if errors.Is(err, databases.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}

	messageID, err := primitive.ObjectIDFromHex(rawMessageID)
	if err != nil {
		return nil, ErrMessageNotFound
	}
	msg, ok := lo.Find(chat.Messages, func(m models.Message) bool {
		return m.ID == messageID
	})
	if !ok {
		return nil, ErrMessageNotFound
	}

	if msg.Sender != callerID || !session.IsParticipant(callerID) {
		return nil, ErrForbidden
	}

	return &target{sessionID: sessionID, chat: chat, message: msg}, nil
}

// Edit replaces the content of a message. A nil or blank content keeps the current
// content. Id, sender and timestamp never change.
func (s *Service) Edit(ctx context.Context, callerID primitive.ObjectID, rawSessionID, rawMessageID string, content *string) (*MessagePayload, error) {
	t, err := s.locate(ctx, callerID, rawSessionID, rawMessageID)
	if err != nil {
		return nil, err
	}

	msg := t.message
	if content != nil && strings.TrimSpace(*content) != "" {
		msg.Content = *content
	}

	err = s.Chats.UpdateMessageContent(ctx, t.chat.ID, msg.ID, msg.Content)
	if errors.Is(err, databases.ErrNotFound) {
		// removed by someone else between the read and this write
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update message: %w", err)
	}

	out := s.payload(ctx, msg)
	s.Rooms.Broadcast(t.sessionID.Hex(), EventChatUpdated, out, nil)
	return &out, nil
}

// Delete removes a message from its chat and tells the room which one went away
func (s *Service) Delete(ctx context.Context, callerID primitive.ObjectID, rawSessionID, rawMessageID string) error {
	t, err := s.locate(ctx, callerID, rawSessionID, rawMessageID)
	if err != nil {
		return err
	}

	err = s.Chats.RemoveMessage(ctx, t.chat.ID, t.message.ID)
	if errors.Is(err, databases.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to remove message: %w", err)
	}

	s.Rooms.Broadcast(t.sessionID.Hex(), EventChatDeleted, DeletedPayload{MessageID: t.message.ID.Hex()}, nil)
	return nil
}

// SessionHistory returns a session's messages to one of its participants outside
// of a websocket connection
func (s *Service) SessionHistory(ctx context.Context, callerID primitive.ObjectID, rawSessionID string) ([]MessagePayload, error) {
	sessionID, err := primitive.ObjectIDFromHex(rawSessionID)
	if err != nil {
		return nil, ErrChatNotFound
	}

	session, err := s.Sessions.FindPopulated(ctx, sessionID)
	if errors.Is(err, databases.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load interview session: %w", err)
	}
	if !session.IsParticipant(callerID) {
		return nil, ErrForbidden
	}
	if session.Chat == nil {
		return nil, ErrChatNotFound
	}

	chat, err := s.Chats.FindByID(ctx, *session.Chat)
	if errors.Is(err, databases.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load chat: %w", err)
	}
	zap.S().Debugw("served chat history", "sessionId", rawSessionID, "messages", len(chat.Messages))
	return s.payloads(ctx, chat.Messages), nil
}
