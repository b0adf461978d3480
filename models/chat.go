package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat holds the structure for the chats collection in mongo. Messages are kept
// in insertion order.
type Chat struct {
	ID               primitive.ObjectID `json:"_id" bson:"_id"`
	InterviewSession primitive.ObjectID `json:"interviewSession" bson:"interviewSession"`
	Messages         []Message          `json:"messages" bson:"messages"`
	CreatedAt        time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// Message is a single entry of a chat. Sender and Timestamp never change after creation.
type Message struct {
	ID        primitive.ObjectID `json:"_id" bson:"_id"`
	Sender    primitive.ObjectID `json:"sender" bson:"sender"`
	Content   string             `json:"content" bson:"content"`
	Timestamp time.Time          `json:"timestamp" bson:"timestamp"`
}

// DuplicateChatGroup is one interview session that ended up with more than one chat
type DuplicateChatGroup struct {
	InterviewSession primitive.ObjectID   `json:"interviewSession" bson:"_id"`
	Chats            []primitive.ObjectID `json:"chats" bson:"chats"`
	Count            int                  `json:"count" bson:"count"`
}
