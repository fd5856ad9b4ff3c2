package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-insights/internal/extractor"
	"journey-insights/internal/facts"
	"journey-insights/internal/model"
	"journey-insights/internal/parser"
	"journey-insights/internal/registry"
)

// In-memory fakes for the storage interfaces.

type memDocumentRepo struct {
	mu       sync.Mutex
	docs     map[string]*model.SourceDocument
	sessions map[string]*model.RawSession
}

func newMemDocumentRepo() *memDocumentRepo {
	return &memDocumentRepo{
		docs:     map[string]*model.SourceDocument{},
		sessions: map[string]*model.RawSession{},
	}
}

func (r *memDocumentRepo) SaveDocument(_ context.Context, doc *model.SourceDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *memDocumentRepo) GetDocument(_ context.Context, id string) (*model.SourceDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id], nil
}

func (r *memDocumentRepo) SaveRawSession(_ context.Context, s *model.RawSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ProgramID+"/"+s.SessionID] = s
	return nil
}

func (r *memDocumentRepo) GetRawSession(_ context.Context, programID, sessionID string) (*model.RawSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[programID+"/"+sessionID], nil
}

func (r *memDocumentRepo) ListRawSessions(_ context.Context, programID string) ([]*model.RawSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.RawSession
	for key, s := range r.sessions {
		if strings.HasPrefix(key, programID+"/") {
			out = append(out, s)
		}
	}
	return out, nil
}

type memFactsRepo struct {
	mu      sync.Mutex
	session map[string]*model.SessionFacts
	cohort  map[string]*model.CohortFacts
}

func newMemFactsRepo() *memFactsRepo {
	return &memFactsRepo{
		session: map[string]*model.SessionFacts{},
		cohort:  map[string]*model.CohortFacts{},
	}
}

func (r *memFactsRepo) SaveSessionFacts(_ context.Context, f *model.SessionFacts) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.session[f.ProgramID+"/"+f.SessionID] = f
	return nil
}

func (r *memFactsRepo) ListSessionFacts(_ context.Context, programID string) ([]*model.SessionFacts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.SessionFacts
	for key, f := range r.session {
		if strings.HasPrefix(key, programID+"/") {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *memFactsRepo) SaveCohortFacts(_ context.Context, f *model.CohortFacts) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cohort[f.ProgramID] = f
	return nil
}

func (r *memFactsRepo) GetCohortFacts(_ context.Context, programID string) (*model.CohortFacts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cohort[programID], nil
}

type memFactsCache struct {
	mu      sync.Mutex
	session map[string]*model.SessionFacts
	cohort  map[string]*model.CohortFacts
}

func newMemFactsCache() *memFactsCache {
	return &memFactsCache{
		session: map[string]*model.SessionFacts{},
		cohort:  map[string]*model.CohortFacts{},
	}
}

func (c *memFactsCache) GetSessionFacts(_ context.Context, programID, sessionID string) (*model.SessionFacts, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session[programID+"/"+sessionID], nil
}

func (c *memFactsCache) SetSessionFacts(_ context.Context, f *model.SessionFacts) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session[f.ProgramID+"/"+f.SessionID] = f
	return nil
}

func (c *memFactsCache) GetCohortFacts(_ context.Context, programID string) (*model.CohortFacts, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cohort[programID], nil
}

func (c *memFactsCache) SetCohortFacts(_ context.Context, f *model.CohortFacts) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cohort[f.ProgramID] = f
	return nil
}

func (c *memFactsCache) InvalidateCohortFacts(_ context.Context, programID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cohort, programID)
	return nil
}

func singleSessionDocument(sessionID string, pre, post int) string {
	return fmt.Sprintf(`Offering Details:
- Program ID: prog-test

Version Details:
- Session ID: %s
- Schema Version: 1.0

Participant Demographics:
- Gender: female

Program Application:
Reasons:
- build a stable routine

Session Milestones:
Milestone:
- Title: Pre-Program Survey
- Completed: 2026-01-05
Applicant Survey Milestone
Answers:
- Emotional wellbeing: %d
- Stress level: %d

Milestone:
- Title: Midpoint Reflection
- Completed: 2026-03-01
Reflection Milestone
The group sessions helped me feel part of a community again.

Milestone:
- Title: Post-Program Survey
- Completed: 2026-06-05
Applicant Survey Milestone
Answers:
- Emotional wellbeing: %d
- Stress level: %d
`, sessionID, pre, 11-pre, post, 11-post)
}

func newTestServices() (*IngestService, *CohortService, *memFactsCache) {
	reg := registry.Default()
	docs := newMemDocumentRepo()
	factsRepo := newMemFactsRepo()
	factsCache := newMemFactsCache()
	deps := facts.SessionDeps{Registry: reg, Extractor: extractor.NewMockExtractor()}

	ingest := NewIngestService(parser.New(reg), docs, factsRepo, factsCache, deps)
	cohort := NewCohortService(docs, factsRepo, factsCache, reg, nil)
	return ingest, cohort, factsCache
}

func TestIngestSingleDocument(t *testing.T) {
	ingest, _, _ := newTestServices()

	result, err := ingest.IngestDocument(context.Background(), "prog-test", "doc.txt", singleSessionDocument("sess-1", 4, 7))
	require.NoError(t, err)

	assert.NotEmpty(t, result.DocumentID)
	assert.Equal(t, 1, result.SessionsParsed)
	assert.Equal(t, 1, result.FactsBuilt)
	assert.Empty(t, result.SessionsSkipped)
	assert.Empty(t, result.FactsFailed)
}

func TestIngestCohortDocument(t *testing.T) {
	ingest, _, _ := newTestServices()

	var b strings.Builder
	b.WriteString("Offering Details:\n- Program ID: prog-test\n\n")
	for i := 1; i <= 3; i++ {
		doc := singleSessionDocument(fmt.Sprintf("sess-%d", i), 3+i, 6+i%3)
		// Strip the per-session offering header; the cohort shares one.
		b.WriteString(doc[strings.Index(doc, "Version Details:"):])
		b.WriteString("\n")
	}

	result, err := ingest.IngestDocument(context.Background(), "prog-test", "cohort.txt", b.String())
	require.NoError(t, err)

	assert.Equal(t, 3, result.SessionsParsed)
	assert.Equal(t, 3, result.FactsBuilt)
	assert.Empty(t, result.SessionsSkipped)
}

func TestIngestStructuralFailure(t *testing.T) {
	ingest, _, _ := newTestServices()

	_, err := ingest.IngestDocument(context.Background(), "prog-test", "bad.txt", "Version Details:\n- Session ID: x\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Milestones")
}

func TestRebuildDetectsNoChange(t *testing.T) {
	ingest, cohort, _ := newTestServices()
	ctx := context.Background()

	_, err := ingest.IngestDocument(ctx, "prog-test", "doc.txt", singleSessionDocument("sess-1", 4, 7))
	require.NoError(t, err)

	first, changed, err := cohort.Rebuild(ctx, "prog-test")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEmpty(t, first.FactsHash)

	second, changed, err := cohort.Rebuild(ctx, "prog-test")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, first.FactsHash, second.FactsHash)
}

func TestRebuildDetectsChange(t *testing.T) {
	ingest, cohort, _ := newTestServices()
	ctx := context.Background()

	_, err := ingest.IngestDocument(ctx, "prog-test", "doc.txt", singleSessionDocument("sess-1", 4, 7))
	require.NoError(t, err)

	first, _, err := cohort.Rebuild(ctx, "prog-test")
	require.NoError(t, err)

	_, err = ingest.IngestDocument(ctx, "prog-test", "doc2.txt", singleSessionDocument("sess-2", 3, 9))
	require.NoError(t, err)

	second, changed, err := cohort.Rebuild(ctx, "prog-test")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEqual(t, first.FactsHash, second.FactsHash)
	assert.Equal(t, 2, second.NSessions)
}

func TestIngestInvalidatesCohortCache(t *testing.T) {
	ingest, cohort, factsCache := newTestServices()
	ctx := context.Background()

	_, err := ingest.IngestDocument(ctx, "prog-test", "doc.txt", singleSessionDocument("sess-1", 4, 7))
	require.NoError(t, err)
	_, _, err = cohort.Rebuild(ctx, "prog-test")
	require.NoError(t, err)

	cached, _ := factsCache.GetCohortFacts(ctx, "prog-test")
	require.NotNil(t, cached)

	_, err = ingest.IngestDocument(ctx, "prog-test", "doc2.txt", singleSessionDocument("sess-2", 5, 8))
	require.NoError(t, err)

	cached, _ = factsCache.GetCohortFacts(ctx, "prog-test")
	assert.Nil(t, cached)
}

func TestReadinessEndToEnd(t *testing.T) {
	ingest, cohort, _ := newTestServices()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := ingest.IngestDocument(ctx, "prog-test", fmt.Sprintf("doc-%d.txt", i), singleSessionDocument(fmt.Sprintf("sess-%d", i), 3, 8))
		require.NoError(t, err)
	}

	result, err := cohort.Readiness(ctx, "prog-test", nil)
	require.NoError(t, err)

	assert.Equal(t, "prog-test", result.ProgramID)
	assert.Equal(t, 4, result.Dataset.Participants)
	// 4 paired sessions are below the default overall-impact minimum of 10.
	overall := result.Panels[model.PanelOverallImpact]
	assert.False(t, overall.Ready)
	assert.Contains(t, overall.Reasons, "Not enough paired pre/post surveys")
	// Every session shares one gender value of 4, below the privacy minimum.
	assert.Contains(t, result.Privacy.GroupsSuppressed, "gender:female")
}

func TestReadinessWithOverride(t *testing.T) {
	ingest, cohort, _ := newTestServices()
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := ingest.IngestDocument(ctx, "prog-test", fmt.Sprintf("doc-%d.txt", i), singleSessionDocument(fmt.Sprintf("sess-%d", i), 3, 8))
		require.NoError(t, err)
	}

	override := &model.ReadinessConfig{
		Panels: map[model.PanelKey]model.PanelThresholds{
			model.PanelOverallImpact: {MinPaired: model.IntRef(3)},
		},
	}
	result, err := cohort.Readiness(ctx, "prog-test", override)
	require.NoError(t, err)
	assert.True(t, result.Panels[model.PanelOverallImpact].Ready)
}

func TestReadinessInputCountsImprovementOnlySessions(t *testing.T) {
	sessionFacts := []*model.SessionFacts{
		{SessionID: "s1", ProgramID: "prog-test", Improvements: []string{"budgeting"}, SignalConfidence: 0.4},
		{SessionID: "s2", ProgramID: "prog-test"},
	}

	input := assembleReadinessInput("prog-test", sessionFacts, nil, registry.Default())

	// The improvements-only session contributes its confidence sample; the
	// signal-free session does not.
	assert.Equal(t, []float64{0.4}, input.DocConfidences)
	assert.Equal(t, 1, input.NImprovementTags)
}
