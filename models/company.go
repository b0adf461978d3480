package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Company holds the structure for the companies collection in mongo. Owner is
// the user entitled to act on behalf of the company.
type Company struct {
	ID    primitive.ObjectID `json:"_id" bson:"_id"`
	Name  string             `json:"name" bson:"name"`
	Owner primitive.ObjectID `json:"owner" bson:"owner"`
}
