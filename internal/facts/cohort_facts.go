package facts

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"journey-insights/internal/model"
	"journey-insights/internal/registry"
)

// Aggregation-stage contract violations. Callers must pre-filter sessions,
// so both are always fatal.
var (
	ErrNoSessions    = errors.New("no sessions to aggregate")
	ErrMixedPrograms = errors.New("sessions span more than one program")
)

// CohortOptions tunes aggregation. The zero value uses the default registry
// and the wall clock.
type CohortOptions struct {
	Registry *registry.Registry
	Now      func() time.Time
}

func (o *CohortOptions) registry() *registry.Registry {
	if o.Registry != nil {
		return o.Registry
	}
	return registry.Default()
}

func (o *CohortOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// BuildCohortFacts reduces one program's SessionFacts into cohort aggregates.
// The result is independent of input ordering: permuting sessions yields an
// identical factsHash.
func BuildCohortFacts(sessions []*model.SessionFacts, opts CohortOptions) (*model.CohortFacts, error) {
	if len(sessions) == 0 {
		return nil, ErrNoSessions
	}
	programID := sessions[0].ProgramID
	for _, s := range sessions {
		if s.ProgramID != programID {
			return nil, fmt.Errorf("%w: %s and %s", ErrMixedPrograms, programID, s.ProgramID)
		}
	}

	// Aggregation order must not depend on caller ordering.
	ordered := make([]*model.SessionFacts, len(sessions))
	copy(ordered, sessions)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].SessionID < ordered[j].SessionID })

	cohort := &model.CohortFacts{
		ProgramID: programID,
		NSessions: len(ordered),
	}

	var completions []float64
	for _, s := range ordered {
		completions = append(completions, s.MilestoneCompletionPct)
		if s.PairedCount() >= 2 {
			cohort.NWithPrePost++
		}
	}
	cohort.CompletionMean = round2(mean(completions))
	cohort.CompletionMedian = round2(median(completions))

	cohort.Assessments = aggregateAssessments(ordered, opts.registry())

	cohort.TopStrengths = topTags(ordered, func(s *model.SessionFacts) []string { return s.Strengths })
	cohort.TopImprovements = topTags(ordered, func(s *model.SessionFacts) []string { return s.Improvements })
	cohort.TopThemes = topTags(ordered, func(s *model.SessionFacts) []string { return s.Themes })
	cohort.TopChallenges = topTags(ordered, func(s *model.SessionFacts) []string { return s.Challenges })
	cohort.TopReasons = topTags(ordered, func(s *model.SessionFacts) []string { return s.Reasons })

	cohort.ExemplarQuotes = selectExemplarQuotes(ordered)
	cohort.DataQualityNotes = dataQualityNotes(cohort, ordered)

	hash, err := ComputeFactsHash(cohort)
	if err != nil {
		return nil, fmt.Errorf("computing facts hash: %w", err)
	}
	cohort.FactsHash = hash
	cohort.GeneratedAt = opts.now()

	if err := cohort.Validate(); err != nil {
		return nil, err
	}
	return cohort, nil
}

// aggregateAssessments accumulates pre, post and change values per key, using
// only sessions where both sides of that key are present
func aggregateAssessments(sessions []*model.SessionFacts, reg *registry.Registry) []model.CohortAssessment {
	type accum struct {
		label                 string
		pres, posts, changes  []float64
		improved, pairedTotal int
	}
	byKey := map[string]*accum{}

	for _, s := range sessions {
		for i := range s.Assessments {
			d := &s.Assessments[i]
			if !d.Paired() {
				continue
			}
			a, ok := byKey[d.Key]
			if !ok {
				a = &accum{label: d.Label}
				byKey[d.Key] = a
			}
			a.pres = append(a.pres, float64(*d.Pre))
			a.posts = append(a.posts, float64(*d.Post))
			a.changes = append(a.changes, float64(*d.Change))
			a.pairedTotal++

			better := model.BetterWhenHigher
			if sk, ok := reg.ByKey(d.Key); ok {
				better = sk.BetterWhen
			}
			if (better == model.BetterWhenLower && *d.Change < 0) ||
				(better != model.BetterWhenLower && *d.Change > 0) {
				a.improved++
			}
		}
	}

	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []model.CohortAssessment
	for _, key := range keys {
		a := byKey[key]
		better := model.BetterWhenHigher
		if sk, ok := reg.ByKey(key); ok {
			better = sk.BetterWhen
		}
		out = append(out, model.CohortAssessment{
			Key:         key,
			Label:       a.label,
			NPaired:     a.pairedTotal,
			AvgPre:      round2(mean(a.pres)),
			AvgPost:     round2(mean(a.posts)),
			AvgChange:   round2(mean(a.changes)),
			PctImproved: round4(float64(a.improved) / float64(a.pairedTotal)),
			BetterWhen:  better,
		})
	}
	return out
}

// topTags frequency-counts tags case-sensitively after trimming, sorts by
// count descending then tag ascending, and keeps the top entries. Stored
// facts may predate the session builder's trimming, so tags are trimmed
// again here.
func topTags(sessions []*model.SessionFacts, pick func(*model.SessionFacts) []string) []model.TagCount {
	counts := map[string]int{}
	for _, s := range sessions {
		for _, tag := range pick(s) {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			counts[tag]++
		}
	}
	out := make([]model.TagCount, 0, len(counts))
	for tag, n := range counts {
		out = append(out, model.TagCount{Tag: tag, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})
	if len(out) > model.MaxTopTags {
		out = out[:model.MaxTopTags]
	}
	return out
}

// dataQualityNotes applies the fixed note rules in a stable order
func dataQualityNotes(c *model.CohortFacts, sessions []*model.SessionFacts) []string {
	var notes []string

	if c.NWithPrePost < c.NSessions {
		notes = append(notes, fmt.Sprintf("paired surveys available for %d of %d sessions", c.NWithPrePost, c.NSessions))
	}
	missingReflections := 0
	for _, s := range sessions {
		if !s.Completeness.HasReflections {
			missingReflections++
		}
	}
	if missingReflections > 0 {
		notes = append(notes, fmt.Sprintf("reflections missing in %d sessions", missingReflections))
	}
	if len(c.Assessments) == 0 {
		notes = append(notes, "quantitative data unavailable")
	}
	if c.CompletionMedian < 50 {
		notes = append(notes, fmt.Sprintf("median milestone completion is low (%.2f%%)", c.CompletionMedian))
	}

	if len(notes) > model.MaxDataNotes {
		notes = notes[:model.MaxDataNotes]
	}
	return notes
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
