// Package service orchestrates the parsing, normalization and aggregation
// pipeline over the storage layers.
package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"journey-insights/internal/cache"
	"journey-insights/internal/facts"
	"journey-insights/internal/model"
	"journey-insights/internal/parser"
	"journey-insights/internal/repository"
)

// IngestService runs the full document pipeline: parse, persist raw sessions,
// normalize through the bounded extractor pool, persist and cache facts
type IngestService struct {
	parser      *parser.Parser
	docs        repository.DocumentRepo
	factsRepo   repository.FactsRepo
	factsCache  cache.FactsCache
	sessionDeps facts.SessionDeps
}

// NewIngestService creates a new ingest service
func NewIngestService(p *parser.Parser, docs repository.DocumentRepo, factsRepo repository.FactsRepo, factsCache cache.FactsCache, deps facts.SessionDeps) *IngestService {
	return &IngestService{
		parser:      p,
		docs:        docs,
		factsRepo:   factsRepo,
		factsCache:  factsCache,
		sessionDeps: deps,
	}
}

// IngestDocument processes one uploaded document, single-session or cohort.
// Per-session parse and normalization failures accumulate in the result
// instead of aborting the batch; only a structural failure of a
// single-session document is returned as an error.
func (s *IngestService) IngestDocument(ctx context.Context, programID, name, text string) (*model.IngestResult, error) {
	doc := &model.SourceDocument{
		ID:         uuid.New().String(),
		ProgramID:  programID,
		Name:       name,
		Text:       text,
		UploadedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.docs.SaveDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("saving source document: %w", err)
	}

	result := &model.IngestResult{
		DocumentID: doc.ID,
		ProgramID:  programID,
	}

	var sessions []*model.RawSession
	if isCohortDocument(text) {
		extraction := s.parser.ExtractCohort(text)
		sessions = extraction.Sessions
		result.SessionsSkipped = extraction.Skipped
	} else {
		session, err := s.parser.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("parsing document %s: %w", doc.ID, err)
		}
		sessions = []*model.RawSession{session}
	}

	for _, session := range sessions {
		if session.ProgramID == "" {
			session.ProgramID = programID
		}
		if session.SessionID == "" {
			session.SessionID = uuid.New().String()
		}
	}
	result.SessionsParsed = len(sessions)

	for _, session := range sessions {
		if err := s.docs.SaveRawSession(ctx, session); err != nil {
			log.Printf("Warning: failed to save raw session %s: %v", session.SessionID, err)
		}
	}

	built, failures := facts.BuildAllSessionFacts(ctx, sessions, s.sessionDeps)
	result.FactsBuilt = len(built)
	result.FactsFailed = failures

	for _, f := range built {
		if err := s.factsRepo.SaveSessionFacts(ctx, f); err != nil {
			log.Printf("Warning: failed to save facts for session %s: %v", f.SessionID, err)
			continue
		}
		if err := s.factsCache.SetSessionFacts(ctx, f); err != nil {
			log.Printf("Warning: failed to cache facts for session %s: %v", f.SessionID, err)
		}
	}

	// New sessions invalidate the cohort rollup.
	if len(built) > 0 {
		if err := s.factsCache.InvalidateCohortFacts(ctx, programID); err != nil {
			log.Printf("Warning: failed to invalidate cohort facts for program %s: %v", programID, err)
		}
	}

	return result, nil
}

// isCohortDocument reports whether the text contains more than one session
func isCohortDocument(text string) bool {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, "Version Details:") || strings.EqualFold(trimmed, "Version Details") {
			count++
			if count > 1 {
				return true
			}
		}
	}
	return false
}
