package databases_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/linesmerrill/interview-chat-api/databases"
	"github.com/linesmerrill/interview-chat-api/databases/mocks"
	"github.com/linesmerrill/interview-chat-api/models"
)

func TestChatDatabase_Create(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	sessionID := primitive.NewObjectID()

	collectionHelper.On("InsertOne", context.Background(), mock.AnythingOfType("models.Chat")).Return(primitive.NewObjectID(), nil)
	dbHelper.On("Collection", "chats").Return(collectionHelper)

	chat, err := databases.NewChatDatabase(dbHelper).Create(context.Background(), sessionID)
	require.NoError(t, err)

	assert.False(t, chat.ID.IsZero())
	assert.Equal(t, sessionID, chat.InterviewSession)
	assert.NotNil(t, chat.Messages)
	assert.Empty(t, chat.Messages)
}

func TestChatDatabase_FindByID(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	srHelper := &mocks.SingleResultHelper{}

	sessionID := primitive.NewObjectID()
	chatID := primitive.NewObjectID()

	srHelper.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(**models.Chat)
		(*arg).ID = chatID
		(*arg).InterviewSession = sessionID
	})
	collectionHelper.On("FindOne", context.Background(), bson.M{"_id": chatID}).Return(srHelper)
	dbHelper.On("Collection", "chats").Return(collectionHelper)

	chat, err := databases.NewChatDatabase(dbHelper).FindByID(context.Background(), chatID)
	require.NoError(t, err)

	assert.Equal(t, chatID, chat.ID)
	assert.Equal(t, sessionID, chat.InterviewSession)
	assert.Equal(t, []models.Message{}, chat.Messages)
}

func TestChatDatabase_UpdateMessageContentNoMatch(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	chatID := primitive.NewObjectID()
	msgID := primitive.NewObjectID()

	collectionHelper.On("UpdateOne", context.Background(),
		bson.M{"_id": chatID, "messages._id": msgID},
		mock.Anything,
	).Return(&mongo.UpdateResult{MatchedCount: 0}, nil)
	dbHelper.On("Collection", "chats").Return(collectionHelper)

	err := databases.NewChatDatabase(dbHelper).UpdateMessageContent(context.Background(), chatID, msgID, "hi")

	assert.ErrorIs(t, err, databases.ErrNotFound)
}

func TestChatDatabase_RemoveMessage(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	chatID := primitive.NewObjectID()
	msgID := primitive.NewObjectID()

	collectionHelper.On("UpdateOne", context.Background(),
		bson.M{"_id": chatID, "messages._id": msgID},
		mock.MatchedBy(func(update bson.M) bool {
			pull, ok := update["$pull"].(bson.M)
			return ok && assert.ObjectsAreEqual(bson.M{"messages": bson.M{"_id": msgID}}, pull)
		}),
	).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	dbHelper.On("Collection", "chats").Return(collectionHelper)

	err := databases.NewChatDatabase(dbHelper).RemoveMessage(context.Background(), chatID, msgID)

	assert.NoError(t, err)
	collectionHelper.AssertExpectations(t)
}

func TestChatDatabase_AppendMessage(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}

	chatID := primitive.NewObjectID()
	msg := models.Message{ID: primitive.NewObjectID(), Sender: primitive.NewObjectID(), Content: "hello"}

	collectionHelper.On("UpdateOne", context.Background(),
		bson.M{"_id": chatID},
		mock.MatchedBy(func(update bson.M) bool {
			push, ok := update["$push"].(bson.M)
			return ok && push["messages"] == msg
		}),
	).Return(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil)
	dbHelper.On("Collection", "chats").Return(collectionHelper)

	err := databases.NewChatDatabase(dbHelper).AppendMessage(context.Background(), chatID, msg)

	assert.NoError(t, err)
}

func TestChatDatabase_FindDuplicateSessions(t *testing.T) {
	dbHelper := &mocks.DatabaseHelper{}
	collectionHelper := &mocks.CollectionHelper{}
	cursor := &mocks.CursorHelper{}

	sessionID := primitive.NewObjectID()

	cursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		arg := args.Get(0).(*[]models.DuplicateChatGroup)
		*arg = []models.DuplicateChatGroup{{InterviewSession: sessionID, Count: 2}}
	})
	collectionHelper.On("Aggregate", context.Background(), mock.AnythingOfType("mongo.Pipeline")).Return(cursor, nil)
	dbHelper.On("Collection", "chats").Return(collectionHelper)

	groups, err := databases.NewChatDatabase(dbHelper).FindDuplicateSessions(context.Background())
	require.NoError(t, err)

	require.Len(t, groups, 1)
	assert.Equal(t, sessionID, groups[0].InterviewSession)
}
