// Package facts derives normalized per-session facts from raw sessions and
// reduces them into cohort-level aggregates.
package facts

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"journey-insights/internal/extractor"
	"journey-insights/internal/model"
	"journey-insights/internal/registry"
)

// FactsVersion tags each SessionFacts record with the normalization scheme
// that produced it. When signal extraction ran, the extractor's model id is
// appended as "facts/v1+<modelId>" so records trace back to the model that
// tagged them.
const FactsVersion = "facts/v1"

// SessionDeps carries what BuildSessionFacts needs beyond the raw session
type SessionDeps struct {
	Registry  *registry.Registry
	Extractor extractor.Extractor

	// Now is overridable for deterministic tests; nil means time.Now.
	Now func() time.Time
}

func (d *SessionDeps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now().UTC()
}

// BuildSessionFacts normalizes one RawSession into validated SessionFacts.
// The only external work is the single signal-extraction call; everything
// else is pure computation over the raw session.
func BuildSessionFacts(ctx context.Context, raw *model.RawSession, deps SessionDeps) (*model.SessionFacts, error) {
	if deps.Registry == nil || deps.Extractor == nil {
		return nil, fmt.Errorf("session deps missing registry or extractor")
	}
	if err := raw.Validate(); err != nil {
		return nil, fmt.Errorf("invalid raw session: %w", err)
	}

	facts := &model.SessionFacts{
		SessionID: raw.SessionID,
		ProgramID: raw.ProgramID,
		Version:   FactsVersion,
		CreatedAt: deps.now(),
	}

	facts.MilestoneCompletionPct = completionPct(raw.Milestones)

	pre, post := SelectSurveys(raw.MilestonesOfType(model.MilestoneApplicantSurvey))
	facts.Completeness.HasPre = pre != nil
	facts.Completeness.HasPost = post != nil
	facts.Assessments = pairAssessments(pre, post, deps.Registry)

	facts.Reasons = capList(raw.Application.Reasons, model.MaxListItems)
	facts.Challenges = capList(raw.Application.Challenges, model.MaxListItems)

	text, hasReflections := signalText(raw)
	facts.Completeness.HasReflections = hasReflections
	if text != "" {
		signals, err := deps.Extractor.Extract(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("signal extraction for session %s: %w", raw.SessionID, err)
		}
		facts.Strengths = dedupeTags(signals.Strengths, model.MaxTags)
		facts.Improvements = dedupeTags(signals.Improvements, model.MaxTags)
		facts.Themes = dedupeTags(signals.Themes, model.MaxTags)
		facts.Quotes = signals.Quotes
		if len(facts.Quotes) > model.MaxQuotes {
			facts.Quotes = facts.Quotes[:model.MaxQuotes]
		}
		facts.SignalConfidence = signals.Confidence
		if signals.ModelID != "" {
			facts.Version = FactsVersion + "+" + signals.ModelID
		}
	}

	if err := facts.Validate(); err != nil {
		return nil, err
	}
	return facts, nil
}

// SelectSurveys picks the pre and post applicant surveys. Title keywords win
// ("pre"/"intake" first match, "post"/"final" last match); otherwise the
// first and last surveys are used. The same milestone is never both.
func SelectSurveys(surveys []*model.Milestone) (pre, post *model.Milestone) {
	for _, s := range surveys {
		title := strings.ToLower(s.Title)
		if strings.Contains(title, "pre") || strings.Contains(title, "intake") {
			pre = s
			break
		}
	}
	for i := len(surveys) - 1; i >= 0; i-- {
		title := strings.ToLower(surveys[i].Title)
		if strings.Contains(title, "post") || strings.Contains(title, "final") {
			post = surveys[i]
			break
		}
	}
	if pre == nil && len(surveys) > 0 {
		pre = surveys[0]
	}
	if post == nil && len(surveys) > 1 {
		post = surveys[len(surveys)-1]
	}
	if post == pre {
		post = nil
		for i := len(surveys) - 1; i >= 0; i-- {
			if surveys[i] != pre {
				post = surveys[i]
				break
			}
		}
	}
	return pre, post
}

// pairAssessments builds one delta per registered scale key present in either
// survey. Keys on only one side keep their single value; change is computed
// only when both sides are present.
func pairAssessments(pre, post *model.Milestone, reg *registry.Registry) []model.AssessmentDelta {
	keys := map[string]bool{}
	collect := func(m *model.Milestone) {
		if m == nil || m.Survey == nil {
			return
		}
		for k := range m.Survey.Answers {
			if sk, ok := reg.ByKey(k); ok && sk.Kind == registry.KindScale {
				keys[k] = true
			}
		}
	}
	collect(pre)
	collect(post)

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var deltas []model.AssessmentDelta
	for _, key := range sorted {
		sk, _ := reg.ByKey(key)
		d := model.AssessmentDelta{Key: key, Label: sk.Label}
		d.Pre = coerceScore(answerFor(pre, key))
		d.Post = coerceScore(answerFor(post, key))
		if d.Paired() {
			change := *d.Post - *d.Pre
			d.Change = &change
		}
		deltas = append(deltas, d)
	}
	return deltas
}

func answerFor(m *model.Milestone, key string) string {
	if m == nil || m.Survey == nil {
		return ""
	}
	return m.Survey.Answers[key]
}

// coerceScore rounds a numeric answer and clamps it into the 1-10 scale.
// Non-numeric or empty answers stay nil.
func coerceScore(answer string) *int {
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return nil
	}
	val, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	score := int(math.Round(val))
	if score < model.ScaleScoreMin {
		score = model.ScaleScoreMin
	}
	if score > model.ScaleScoreMax {
		score = model.ScaleScoreMax
	}
	return &score
}

func completionPct(milestones []model.Milestone) float64 {
	if len(milestones) == 0 {
		return 0
	}
	completed := 0
	for i := range milestones {
		if milestones[i].Completed() {
			completed++
		}
	}
	return round2(float64(completed) / float64(len(milestones)) * 100)
}

// signalText concatenates reflection and outcome-note text for extraction
func signalText(raw *model.RawSession) (string, bool) {
	var parts []string
	hasReflections := false
	for i := range raw.Milestones {
		m := &raw.Milestones[i]
		switch m.Type {
		case model.MilestoneReflection:
			if m.Reflection != nil && m.Reflection.Text != "" {
				parts = append(parts, m.Reflection.Text)
				hasReflections = true
			}
		case model.MilestoneOutcomeNote:
			if m.Outcome != nil && m.Outcome.Narrative != "" {
				parts = append(parts, m.Outcome.Narrative)
			}
		}
	}
	return strings.Join(parts, "\n\n"), hasReflections
}

func dedupeTags(tags []string, limit int) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		trimmed := strings.TrimSpace(t)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
		if len(out) == limit {
			break
		}
	}
	return out
}

func capList(items []string, limit int) []string {
	var out []string
	for _, item := range items {
		trimmed := strings.TrimSpace(item)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
		if len(out) == limit {
			break
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
