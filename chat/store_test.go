package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/models"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory stand-in for the users, interview sessions and chats
// collections
type memStore struct {
	mu       sync.Mutex
	users    map[primitive.ObjectID]models.User
	sessions map[primitive.ObjectID]models.PopulatedInterviewSession
	chats    map[primitive.ObjectID]*models.Chat

	failAppend bool
	failCreate bool
	creates    int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[primitive.ObjectID]models.User),
		sessions: make(map[primitive.ObjectID]models.PopulatedInterviewSession),
		chats:    make(map[primitive.ObjectID]*models.Chat),
	}
}

func (m *memStore) addUser(name string) models.User {
	u := models.User{ID: primitive.NewObjectID(), Name: name, Email: name + "@example.com"}
	m.mu.Lock()
	m.users[u.ID] = u
	m.mu.Unlock()
	return u
}

func (m *memStore) addSession(candidate, owner primitive.ObjectID) models.PopulatedInterviewSession {
	s := models.PopulatedInterviewSession{
		ID:        primitive.NewObjectID(),
		Candidate: candidate,
		JobListing: models.PopulatedJobListing{
			ID:    primitive.NewObjectID(),
			Title: "Backend Engineer",
			Company: models.Company{
				ID:    primitive.NewObjectID(),
				Name:  "Acme",
				Owner: owner,
			},
		},
		InterviewDate: time.Date(2026, 10, 20, 15, 0, 0, 0, time.UTC),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

func (m *memStore) setCandidate(sessionID, candidate primitive.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[sessionID]
	s.Candidate = candidate
	m.sessions[sessionID] = s
}

func (m *memStore) chatFor(sessionID primitive.ObjectID) *models.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.chats {
		if c.InterviewSession == sessionID {
			return copyChat(c)
		}
	}
	return nil
}

func copyChat(c *models.Chat) *models.Chat {
	out := *c
	out.Messages = append([]models.Message{}, c.Messages...)
	return &out
}

func (m *memStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, databases.ErrNotFound
	}
	return &u, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, databases.ErrNotFound
}

func (m *memStore) FindPopulated(_ context.Context, id primitive.ObjectID) (*models.PopulatedInterviewSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, databases.ErrNotFound
	}
	if s.Chat != nil {
		chatID := *s.Chat
		s.Chat = &chatID
	}
	return &s, nil
}

func (m *memStore) SetChat(_ context.Context, id, chatID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return databases.ErrNotFound
	}
	s.Chat = &chatID
	m.sessions[id] = s
	return nil
}

// chatStore exposes the chat methods of memStore; FindByID clashes with the user
// lookup of the same name
type chatStore struct{ *memStore }

func (c chatStore) Create(_ context.Context, sessionID primitive.ObjectID) (*models.Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failCreate {
		return nil, errStoreDown
	}
	now := time.Now().UTC()
	chat := &models.Chat{
		ID:               primitive.NewObjectID(),
		InterviewSession: sessionID,
		Messages:         []models.Message{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	c.chats[chat.ID] = chat
	c.creates++
	return copyChat(chat), nil
}

func (c chatStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Chat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	chat, ok := c.chats[id]
	if !ok {
		return nil, databases.ErrNotFound
	}
	return copyChat(chat), nil
}

func (c chatStore) AppendMessage(_ context.Context, chatID primitive.ObjectID, msg models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failAppend {
		return errStoreDown
	}
	chat, ok := c.chats[chatID]
	if !ok {
		return databases.ErrNotFound
	}
	chat.Messages = append(chat.Messages, msg)
	return nil
}

func (c chatStore) UpdateMessageContent(_ context.Context, chatID, messageID primitive.ObjectID, content string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	chat, ok := c.chats[chatID]
	if !ok {
		return databases.ErrNotFound
	}
	for i := range chat.Messages {
		if chat.Messages[i].ID == messageID {
			chat.Messages[i].Content = content
			return nil
		}
	}
	return databases.ErrNotFound
}

func (c chatStore) RemoveMessage(_ context.Context, chatID, messageID primitive.ObjectID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	chat, ok := c.chats[chatID]
	if !ok {
		return databases.ErrNotFound
	}
	for i := range chat.Messages {
		if chat.Messages[i].ID == messageID {
			chat.Messages = append(chat.Messages[:i], chat.Messages[i+1:]...)
			return nil
		}
	}
	return databases.ErrNotFound
}

func (c chatStore) FindDuplicateSessions(_ context.Context) ([]models.DuplicateChatGroup, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	groups := map[primitive.ObjectID]*models.DuplicateChatGroup{}
	for _, chat := range c.chats {
		g, ok := groups[chat.InterviewSession]
		if !ok {
			g = &models.DuplicateChatGroup{InterviewSession: chat.InterviewSession}
			groups[chat.InterviewSession] = g
		}
		g.Chats = append(g.Chats, chat.ID)
		g.Count++
	}
	var out []models.DuplicateChatGroup
	for _, g := range groups {
		if g.Count > 1 {
			out = append(out, *g)
		}
	}
	return out, nil
}
