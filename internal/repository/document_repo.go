package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"journey-insights/internal/model"
)

// DocumentRepo handles MongoDB operations for uploaded documents and the raw
// sessions parsed from them
type DocumentRepo interface {
	SaveDocument(ctx context.Context, doc *model.SourceDocument) error
	GetDocument(ctx context.Context, id string) (*model.SourceDocument, error)
	SaveRawSession(ctx context.Context, session *model.RawSession) error
	GetRawSession(ctx context.Context, programID, sessionID string) (*model.RawSession, error)
	ListRawSessions(ctx context.Context, programID string) ([]*model.RawSession, error)
}

type documentRepo struct {
	documents *mongo.Collection
	sessions  *mongo.Collection
}

// NewDocumentRepo creates a new document repository
func NewDocumentRepo(db *mongo.Database) DocumentRepo {
	return &documentRepo{
		documents: db.Collection("source_documents"),
		sessions:  db.Collection("raw_sessions"),
	}
}

func (r *documentRepo) SaveDocument(ctx context.Context, doc *model.SourceDocument) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.documents.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts)
	return err
}

func (r *documentRepo) GetDocument(ctx context.Context, id string) (*model.SourceDocument, error) {
	var doc model.SourceDocument
	err := r.documents.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) SaveRawSession(ctx context.Context, session *model.RawSession) error {
	opts := options.Replace().SetUpsert(true)
	filter := bson.M{"program_id": session.ProgramID, "session_id": session.SessionID}
	_, err := r.sessions.ReplaceOne(ctx, filter, session, opts)
	return err
}

func (r *documentRepo) GetRawSession(ctx context.Context, programID, sessionID string) (*model.RawSession, error) {
	var session model.RawSession
	filter := bson.M{"program_id": programID, "session_id": sessionID}
	err := r.sessions.FindOne(ctx, filter).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *documentRepo) ListRawSessions(ctx context.Context, programID string) ([]*model.RawSession, error) {
	opts := options.Find().SetSort(bson.M{"session_id": 1})
	cursor, err := r.sessions.Find(ctx, bson.M{"program_id": programID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []*model.RawSession
	for cursor.Next(ctx) {
		var s model.RawSession
		if err := cursor.Decode(&s); err != nil {
			return nil, err
		}
		sessions = append(sessions, &s)
	}
	return sessions, cursor.Err()
}
