package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InterviewSession holds the structure for the interviewsessions collection in mongo.
// Chat is only ever set by the chat gateway, the first time an entitled party connects.
type InterviewSession struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id"`
	JobListing    primitive.ObjectID  `json:"jobListing" bson:"jobListing"`
	Candidate     primitive.ObjectID  `json:"candidate" bson:"candidate"`
	InterviewDate time.Time           `json:"interviewDate" bson:"interviewDate"`
	Chat          *primitive.ObjectID `json:"chat,omitempty" bson:"chat,omitempty"`
}

// PopulatedInterviewSession is an interview session with its job listing and the
// listing's company resolved
type PopulatedInterviewSession struct {
	ID            primitive.ObjectID  `json:"_id" bson:"_id"`
	JobListing    PopulatedJobListing `json:"jobListing" bson:"jobListing"`
	Candidate     primitive.ObjectID  `json:"candidate" bson:"candidate"`
	InterviewDate time.Time           `json:"interviewDate" bson:"interviewDate"`
	Chat          *primitive.ObjectID `json:"chat,omitempty" bson:"chat,omitempty"`
}

// CompanyOwner returns the owner of the company behind the session's job listing
func (s PopulatedInterviewSession) CompanyOwner() primitive.ObjectID {
	return s.JobListing.Company.Owner
}

// IsParticipant reports whether userID is the candidate or the hiring company's owner
func (s PopulatedInterviewSession) IsParticipant(userID primitive.ObjectID) bool {
	if userID.IsZero() {
		return false
	}
	return userID == s.Candidate || userID == s.CompanyOwner()
}
