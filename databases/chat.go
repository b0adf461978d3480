package databases

// go generate: mockery --name ChatDatabase

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/interview-chat-api/models"
)

const chatName = "chats"

// ChatDatabase is the chat store. Message mutations target a single message by id
// and report ErrNotFound when the chat or the message is gone.
type ChatDatabase interface {
	Create(ctx context.Context, sessionID primitive.ObjectID) (*models.Chat, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg models.Message) error
	UpdateMessageContent(ctx context.Context, chatID, messageID primitive.ObjectID, content string) error
	RemoveMessage(ctx context.Context, chatID, messageID primitive.ObjectID) error
	FindDuplicateSessions(ctx context.Context) ([]models.DuplicateChatGroup, error)
}

type chatDatabase struct {
	db DatabaseHelper
}

// NewChatDatabase initializes a new instance of chat database with the provided db connection
func NewChatDatabase(db DatabaseHelper) ChatDatabase {
	return &chatDatabase{
		db: db,
	}
}

func (c *chatDatabase) Create(ctx context.Context, sessionID primitive.ObjectID) (*models.Chat, error) {
	now := time.Now()
	chat := models.Chat{
		ID:               primitive.NewObjectID(),
		InterviewSession: sessionID,
		Messages:         []models.Message{},
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := c.db.Collection(chatName).InsertOne(ctx, chat); err != nil {
		return nil, err
	}
	return &chat, nil
}

func (c *chatDatabase) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

func (c *chatDatabase) findOne(ctx context.Context, filter interface{}) (*models.Chat, error) {
	chat := &models.Chat{}
	err := c.db.Collection(chatName).FindOne(ctx, filter).Decode(&chat)
	if err != nil {
		return nil, err
	}
	if chat.Messages == nil {
		chat.Messages = []models.Message{}
	}
	return chat, nil
}

func (c *chatDatabase) AppendMessage(ctx context.Context, chatID primitive.ObjectID, msg models.Message) error {
	return c.updateOne(ctx,
		bson.M{"_id": chatID},
		bson.M{
			"$push": bson.M{"messages": msg},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
}

func (c *chatDatabase) UpdateMessageContent(ctx context.Context, chatID, messageID primitive.ObjectID, content string) error {
	return c.updateOne(ctx,
		bson.M{"_id": chatID, "messages._id": messageID},
		bson.M{"$set": bson.M{
			"messages.$.content": content,
			"updatedAt":          time.Now(),
		}},
	)
}

func (c *chatDatabase) RemoveMessage(ctx context.Context, chatID, messageID primitive.ObjectID) error {
	return c.updateOne(ctx,
		bson.M{"_id": chatID, "messages._id": messageID},
		bson.M{
			"$pull": bson.M{"messages": bson.M{"_id": messageID}},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
	)
}

func (c *chatDatabase) updateOne(ctx context.Context, filter, update interface{}) error {
	res, err := c.db.Collection(chatName).UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// FindDuplicateSessions lists interview sessions referenced by more than one chat.
// Chat creation is check-then-act, so two first connections racing can both create one.
func (c *chatDatabase) FindDuplicateSessions(ctx context.Context) ([]models.DuplicateChatGroup, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$interviewSession",
			"chats": bson.M{"$push": "$_id"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
	}
	cursor, err := c.db.Collection(chatName).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var groups []models.DuplicateChatGroup
	if err := cursor.Decode(&groups); err != nil {
		return nil, err
	}
	return groups, nil
}
