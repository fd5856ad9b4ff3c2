package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"journey-insights/internal/cache"
	"journey-insights/internal/facts"
	"journey-insights/internal/model"
	"journey-insights/internal/readiness"
	"journey-insights/internal/registry"
	"journey-insights/internal/repository"
)

// Demographic keys that form display slices; other keys are too granular to
// group on (birth year, zip code).
var groupedDemographics = []string{"gender", "ethnicity"}

// CohortService rebuilds cohort facts on demand and evaluates readiness
type CohortService struct {
	docs       repository.DocumentRepo
	factsRepo  repository.FactsRepo
	factsCache cache.FactsCache
	registry   *registry.Registry
	config     *model.ReadinessConfig
}

// NewCohortService creates a new cohort service
func NewCohortService(docs repository.DocumentRepo, factsRepo repository.FactsRepo, factsCache cache.FactsCache, reg *registry.Registry, cfg *model.ReadinessConfig) *CohortService {
	if cfg == nil {
		cfg = readiness.DefaultConfig()
	}
	return &CohortService{
		docs:       docs,
		factsRepo:  factsRepo,
		factsCache: factsCache,
		registry:   reg,
		config:     cfg,
	}
}

// GetCohortFacts returns the cached cohort rollup, rebuilding when absent
func (s *CohortService) GetCohortFacts(ctx context.Context, programID string) (*model.CohortFacts, error) {
	cached, err := s.factsCache.GetCohortFacts(ctx, programID)
	if err != nil {
		log.Printf("Warning: cohort facts cache read failed for program %s: %v", programID, err)
	}
	if cached != nil {
		return cached, nil
	}
	cohort, _, err := s.Rebuild(ctx, programID)
	return cohort, err
}

// Rebuild recomputes cohort facts from the current session set. The facts
// hash is the change detector: when it matches the stored copy the store and
// cache are left untouched and changed is false.
func (s *CohortService) Rebuild(ctx context.Context, programID string) (cohort *model.CohortFacts, changed bool, err error) {
	sessionFacts, err := s.factsRepo.ListSessionFacts(ctx, programID)
	if err != nil {
		return nil, false, fmt.Errorf("listing session facts: %w", err)
	}
	if len(sessionFacts) == 0 {
		return nil, false, fmt.Errorf("program %s: %w", programID, facts.ErrNoSessions)
	}

	cohort, err = facts.BuildCohortFacts(sessionFacts, facts.CohortOptions{Registry: s.registry})
	if err != nil {
		return nil, false, fmt.Errorf("building cohort facts: %w", err)
	}

	stored, err := s.factsRepo.GetCohortFacts(ctx, programID)
	if err != nil {
		return nil, false, fmt.Errorf("loading stored cohort facts: %w", err)
	}
	if stored != nil && stored.FactsHash == cohort.FactsHash {
		return stored, false, nil
	}

	if err := s.factsRepo.SaveCohortFacts(ctx, cohort); err != nil {
		return nil, false, fmt.Errorf("saving cohort facts: %w", err)
	}
	if err := s.factsCache.SetCohortFacts(ctx, cohort); err != nil {
		log.Printf("Warning: failed to cache cohort facts for program %s: %v", programID, err)
	}
	return cohort, true, nil
}

// Readiness assembles the evaluator input from facts and raw demographics,
// merges any caller override over the configured thresholds, and evaluates
func (s *CohortService) Readiness(ctx context.Context, programID string, override *model.ReadinessConfig) (*model.ReadinessResult, error) {
	sessionFacts, err := s.factsRepo.ListSessionFacts(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("listing session facts: %w", err)
	}
	raws, err := s.docs.ListRawSessions(ctx, programID)
	if err != nil {
		return nil, fmt.Errorf("listing raw sessions: %w", err)
	}

	input := assembleReadinessInput(programID, sessionFacts, raws, s.registry)
	cfg := readiness.Merge(s.config, override)
	return readiness.Evaluate(input, cfg), nil
}

func assembleReadinessInput(programID string, sessionFacts []*model.SessionFacts, raws []*model.RawSession, reg *registry.Registry) *model.ReadinessInput {
	input := &model.ReadinessInput{
		ProgramID:      programID,
		NSessions:      len(sessionFacts),
		PreFieldTypes:  map[string][]string{},
		PostFieldTypes: map[string][]string{},
		Groups:         map[string]int{},
	}

	strengthTags := map[string]bool{}
	improvementTags := map[string]bool{}
	themeTags := map[string]bool{}
	challengeTags := map[string]bool{}
	quoteTexts := map[string]bool{}

	for _, f := range sessionFacts {
		if f.PairedCount() >= 2 {
			input.NWithPrePost++
		}
		if f.Completeness.HasPre {
			input.PreIDs = append(input.PreIDs, f.SessionID)
		}
		if f.Completeness.HasPost {
			input.PostIDs = append(input.PostIDs, f.SessionID)
		}
		if f.Completeness.HasReflections || len(f.Themes) > 0 || len(f.Strengths) > 0 || len(f.Improvements) > 0 {
			input.DocConfidences = append(input.DocConfidences, f.SignalConfidence)
		}
		for _, t := range f.Strengths {
			strengthTags[t] = true
		}
		for _, t := range f.Improvements {
			improvementTags[t] = true
		}
		for _, t := range f.Themes {
			themeTags[t] = true
		}
		for _, t := range f.Challenges {
			challengeTags[t] = true
		}
		for _, q := range f.Quotes {
			quoteTexts[q.Text] = true
		}
		input.ApplicationReasons = append(input.ApplicationReasons, f.Reasons...)
	}
	input.NStrengthTags = len(strengthTags)
	input.NImprovementTags = len(improvementTags)
	input.NThemeTags = len(themeTags)
	input.NChallengeTags = len(challengeTags)
	input.NTestimonials = len(quoteTexts)

	for _, raw := range raws {
		pre, post := facts.SelectSurveys(raw.MilestonesOfType(model.MilestoneApplicantSurvey))
		collectFieldTypes(input.PreFieldTypes, pre, reg, input)
		collectFieldTypes(input.PostFieldTypes, post, reg, input)

		for _, key := range groupedDemographics {
			if value := strings.TrimSpace(raw.Demographics[key]); value != "" {
				input.Groups[key+":"+strings.ToLower(value)]++
			}
		}
	}

	return input
}

// collectFieldTypes records each answer's observed value type for typedrift
// detection and counts blank answers toward the null-response rate
func collectFieldTypes(types map[string][]string, survey *model.Milestone, reg *registry.Registry, input *model.ReadinessInput) {
	if survey == nil || survey.Survey == nil {
		return
	}
	for key, value := range survey.Survey.Answers {
		if sk, ok := reg.ByKey(key); !ok || sk.Kind != registry.KindScale {
			continue
		}
		input.TotalResponses++
		typ := classifyAnswer(value)
		if typ == "empty" {
			input.NullResponses++
		}
		if !containsString(types[key], typ) {
			types[key] = append(types[key], typ)
		}
	}
}

func classifyAnswer(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "empty"
	}
	if _, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return "number"
	}
	return "text"
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
