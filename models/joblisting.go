package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// JobListing holds the structure for the joblistings collection in mongo
type JobListing struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Title   string             `json:"title" bson:"title"`
	Company primitive.ObjectID `json:"company" bson:"company"`
}

// PopulatedJobListing is a job listing with its company document resolved
type PopulatedJobListing struct {
	ID      primitive.ObjectID `json:"_id" bson:"_id"`
	Title   string             `json:"title" bson:"title"`
	Company Company            `json:"company" bson:"company"`
}
