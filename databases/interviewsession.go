package databases

// go generate: mockery --name InterviewSessionDatabase

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/linesmerrill/interview-chat-api/models"
)

const (
	interviewSessionName = "interviewsessions"
	jobListingName       = "joblistings"
	companyName          = "companies"
)

// InterviewSessionDatabase is the session directory used by the chat gateway. It is
// read-only apart from linking a lazily created chat.
type InterviewSessionDatabase interface {
	FindPopulated(ctx context.Context, id primitive.ObjectID) (*models.PopulatedInterviewSession, error)
	SetChat(ctx context.Context, id primitive.ObjectID, chatID primitive.ObjectID) error
}

type interviewSessionDatabase struct {
	db DatabaseHelper
}

// NewInterviewSessionDatabase initializes a new instance of interview session database with the provided db connection
func NewInterviewSessionDatabase(db DatabaseHelper) InterviewSessionDatabase {
	return &interviewSessionDatabase{
		db: db,
	}
}

// populatePipeline resolves session -> job listing -> company in one round trip.
// A missing listing or company leaves the corresponding field zeroed.
func populatePipeline(id primitive.ObjectID) bson.A {
	return bson.A{
		bson.M{"$match": bson.M{"_id": id}},
		bson.M{"$limit": 1},
		bson.M{"$lookup": bson.M{
			"from":         jobListingName,
			"localField":   "jobListing",
			"foreignField": "_id",
			"as":           "jobListing",
		}},
		bson.M{"$unwind": bson.M{"path": "$jobListing", "preserveNullAndEmptyArrays": true}},
		bson.M{"$lookup": bson.M{
			"from":         companyName,
			"localField":   "jobListing.company",
			"foreignField": "_id",
			"as":           "jobListing.company",
		}},
		bson.M{"$unwind": bson.M{"path": "$jobListing.company", "preserveNullAndEmptyArrays": true}},
	}
}

func (s *interviewSessionDatabase) FindPopulated(ctx context.Context, id primitive.ObjectID) (*models.PopulatedInterviewSession, error) {
	cursor, err := s.db.Collection(interviewSessionName).Aggregate(ctx, populatePipeline(id))
	if err != nil {
		return nil, err
	}
	var sessions []models.PopulatedInterviewSession
	if err := cursor.Decode(&sessions); err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, ErrNotFound
	}
	return &sessions[0], nil
}

func (s *interviewSessionDatabase) SetChat(ctx context.Context, id primitive.ObjectID, chatID primitive.ObjectID) error {
	res, err := s.db.Collection(interviewSessionName).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"chat": chatID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
