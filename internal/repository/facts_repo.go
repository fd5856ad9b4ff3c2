package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"journey-insights/internal/model"
)

// FactsRepo handles MongoDB operations for session and cohort facts
type FactsRepo interface {
	SaveSessionFacts(ctx context.Context, facts *model.SessionFacts) error
	ListSessionFacts(ctx context.Context, programID string) ([]*model.SessionFacts, error)
	SaveCohortFacts(ctx context.Context, facts *model.CohortFacts) error
	GetCohortFacts(ctx context.Context, programID string) (*model.CohortFacts, error)
}

type factsRepo struct {
	sessionFacts *mongo.Collection
	cohortFacts  *mongo.Collection
}

// NewFactsRepo creates a new facts repository
func NewFactsRepo(db *mongo.Database) FactsRepo {
	return &factsRepo{
		sessionFacts: db.Collection("session_facts"),
		cohortFacts:  db.Collection("cohort_facts"),
	}
}

func (r *factsRepo) SaveSessionFacts(ctx context.Context, facts *model.SessionFacts) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"program_id": facts.ProgramID, "session_id": facts.SessionID}
	_, err := r.sessionFacts.ReplaceOne(ctx, filter, facts, opts)
	return err
}

func (r *factsRepo) ListSessionFacts(ctx context.Context, programID string) ([]*model.SessionFacts, error) {
	opts := options.Find().SetSort(bson.M{"session_id": 1})
	cursor, err := r.sessionFacts.Find(ctx, bson.M{"program_id": programID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*model.SessionFacts
	for cursor.Next(ctx) {
		var f model.SessionFacts
		if err := cursor.Decode(&f); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, cursor.Err()
}

func (r *factsRepo) SaveCohortFacts(ctx context.Context, facts *model.CohortFacts) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.cohortFacts.ReplaceOne(ctx, bson.M{"program_id": facts.ProgramID}, facts, opts)
	return err
}

func (r *factsRepo) GetCohortFacts(ctx context.Context, programID string) (*model.CohortFacts, error) {
	var facts model.CohortFacts
	err := r.cohortFacts.FindOne(ctx, bson.M{"program_id": programID}).Decode(&facts)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &facts, nil
}
