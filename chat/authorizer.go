package chat

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

// Admission is what an authenticated caller is granted for one interview session
type Admission struct {
	User    *models.User
	Session *models.PopulatedInterviewSession
	ChatID  primitive.ObjectID

	rawSessionID string
	sessionID    primitive.ObjectID
}

// Room is the name of the broadcast group for the admitted session
func (a *Admission) Room() string {
	return a.sessionID.Hex()
}

// step is one stage of the admission pipeline. Returning nil continues with the
// next stage, any error rejects the caller.
type step struct {
	name string
	run  func(ctx context.Context, a *Admission) error
}

// Authorizer decides whether an authenticated caller may join an interview
// session's chat, creating the chat the first time a participant arrives.
type Authorizer struct {
	Sessions databases.InterviewSessionDatabase
	Chats    databases.ChatDatabase

	steps []step
}

// NewAuthorizer creates an Authorizer
func NewAuthorizer(sessions databases.InterviewSessionDatabase, chats databases.ChatDatabase) *Authorizer {
	a := &Authorizer{Sessions: sessions, Chats: chats}
	a.steps = []step{
		{name: "parse-session-id", run: a.parseSessionID},
		{name: "load-session", run: a.loadSession},
		{name: "check-entitlement", run: a.checkEntitlement},
		{name: "ensure-chat", run: a.ensureChat},
	}
	return a
}

// Admit runs every stage in order and stops at the first rejection. Rejections are
// ErrSessionNotFound, ErrPermissionDenied or a wrapped store failure.
func (a *Authorizer) Admit(ctx context.Context, user *models.User, rawSessionID string) (*Admission, error) {
	adm := &Admission{User: user, rawSessionID: rawSessionID}
	for _, s := range a.steps {
		if err := s.run(ctx, adm); err != nil {
			zap.S().Infow("chat admission rejected",
				"step", s.name,
				"userId", user.ID.Hex(),
				"sessionId", rawSessionID,
				"error", err)
			return nil, err
		}
	}
	return adm, nil
}

// parseSessionID does not distinguish a malformed id from a missing session
func (a *Authorizer) parseSessionID(_ context.Context, adm *Admission) error {
	id, err := primitive.ObjectIDFromHex(adm.rawSessionID)
	if err != nil {
		return ErrSessionNotFound
	}
	adm.sessionID = id
	return nil
}

func (a *Authorizer) loadSession(ctx context.Context, adm *Admission) error {
	session, err := a.Sessions.FindPopulated(ctx, adm.sessionID)
	if errors.Is(err, databases.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load interview session: %w", err)
	}
	adm.Session = session
	return nil
}

func (a *Authorizer) checkEntitlement(_ context.Context, adm *Admission) error {
	if !adm.Session.IsParticipant(adm.User.ID) {
		return ErrPermissionDenied
	}
	return nil
}

// ensureChat is check-then-act: two first connections racing here can each create
// a chat. The session keeps whichever link was written last.
func (a *Authorizer) ensureChat(ctx context.Context, adm *Admission) error {
	if adm.Session.Chat != nil {
		adm.ChatID = *adm.Session.Chat
		return nil
	}

	chat, err := a.Chats.Create(ctx, adm.sessionID)
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}
	if err := a.Sessions.SetChat(ctx, adm.sessionID, chat.ID); err != nil {
		return fmt.Errorf("failed to link chat to session: %w", err)
	}
	zap.S().Infow("created interview chat",
		"sessionId", adm.sessionID.Hex(),
		"chatId", chat.ID.Hex(),
		"userId", adm.User.ID.Hex())

	adm.ChatID = chat.ID
	adm.Session.Chat = &chat.ID
	return nil
}
