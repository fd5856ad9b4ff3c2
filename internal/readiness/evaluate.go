package readiness

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"journey-insights/internal/model"
)

// Evaluate gates every panel against the given config. It is a pure function
// of its inputs apart from the evaluation timestamp: equal input and config
// always produce equal panel decisions.
func Evaluate(input *model.ReadinessInput, cfg *model.ReadinessConfig) *model.ReadinessResult {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	result := &model.ReadinessResult{
		ProgramID:     input.ProgramID,
		ConfigVersion: cfg.Version,
		Panels:        map[model.PanelKey]model.PanelResult{},
		Dataset:       datasetHealth(input),
		LLM:           llmQuality(input),
		Privacy:       privacyStatus(input, derefInt(cfg.PrivacyMinGroupSize)),
		EvaluatedAt:   time.Now().UTC(),
	}

	for _, panel := range model.AllPanels {
		result.Panels[panel] = evaluatePanel(panel, input, cfg.Panels[panel], result.LLM)
	}
	return result
}

func datasetHealth(input *model.ReadinessInput) model.DatasetHealth {
	h := model.DatasetHealth{
		Participants:  input.NSessions,
		PairedSurveys: intersectionSize(input.PreIDs, input.PostIDs),
	}
	if input.TotalResponses > 0 {
		h.NullResponseRate = round4(float64(input.NullResponses) / float64(input.TotalResponses))
	}
	h.DriftKeys = driftKeys(input.PreFieldTypes, input.PostFieldTypes)
	h.TypeDrift = len(h.DriftKeys) > 0
	return h
}

// driftKeys finds keys whose pre and post value-type sets share no common
// type, which signals the same question changed shape between surveys
func driftKeys(pre, post map[string][]string) []string {
	var out []string
	for key, preTypes := range pre {
		postTypes, ok := post[key]
		if !ok || len(preTypes) == 0 || len(postTypes) == 0 {
			continue
		}
		if intersectionSize(preTypes, postTypes) == 0 {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

func llmQuality(input *model.ReadinessInput) model.LLMQuality {
	q := model.LLMQuality{Documents: len(input.DocConfidences)}
	if q.Documents > 0 {
		sum := 0.0
		for _, c := range input.DocConfidences {
			sum += c
		}
		q.MeanConfidence = round4(sum / float64(q.Documents))
	}
	return q
}

// privacyStatus lists groups too small to display. Suppression never blocks
// readiness; the panels are evaluated independently of it.
func privacyStatus(input *model.ReadinessInput, minGroupSize int) model.PrivacyStatus {
	status := model.PrivacyStatus{MinGroupSize: minGroupSize}
	for group, n := range input.Groups {
		if n < minGroupSize {
			status.GroupsSuppressed = append(status.GroupsSuppressed, group)
		}
	}
	sort.Strings(status.GroupsSuppressed)
	return status
}

// evaluatePanel checks one panel's threshold subset. Every unmet threshold
// appends its own reason and unlock step, so a panel can be not-ready for
// several causes at once.
func evaluatePanel(panel model.PanelKey, input *model.ReadinessInput, t model.PanelThresholds, llm model.LLMQuality) model.PanelResult {
	r := model.PanelResult{
		Ready:        true,
		Inputs:       map[string]interface{}{},
		Denominators: map[string]int{"nSessions": input.NSessions},
	}

	fail := func(reason, unlock string) {
		r.Ready = false
		r.Reasons = append(r.Reasons, reason)
		r.Unlock = append(r.Unlock, unlock)
	}

	checkPaired := func() {
		r.Inputs["nWithPrePost"] = input.NWithPrePost
		r.Inputs["minPaired"] = derefInt(t.MinPaired)
		if t.MinPaired != nil && input.NWithPrePost < *t.MinPaired {
			fail(
				"Not enough paired pre/post surveys",
				fmt.Sprintf("Collect %d more paired pre/post surveys", *t.MinPaired-input.NWithPrePost),
			)
		}
	}
	checkDocuments := func() {
		r.Inputs["documents"] = llm.Documents
		r.Inputs["minDocuments"] = derefInt(t.MinDocuments)
		if t.MinDocuments != nil && llm.Documents < *t.MinDocuments {
			fail(
				"Not enough analyzed documents",
				fmt.Sprintf("Collect %d more reflections or outcome notes", *t.MinDocuments-llm.Documents),
			)
		}
	}
	checkConfidence := func() {
		r.Inputs["meanConfidence"] = llm.MeanConfidence
		r.Inputs["minAvgConfidence"] = derefFloat(t.MinAvgConfidence)
		if t.MinAvgConfidence != nil && llm.MeanConfidence < *t.MinAvgConfidence {
			fail(
				"Average extraction confidence is too low",
				fmt.Sprintf("Raise mean extraction confidence from %.2f to at least %.2f", llm.MeanConfidence, *t.MinAvgConfidence),
			)
		}
	}

	switch panel {
	case model.PanelOverallImpact, model.PanelAssessmentChanges:
		checkPaired()

	case model.PanelStrengths:
		r.Inputs["nStrengthTags"] = input.NStrengthTags
		checkDocuments()
		checkConfidence()

	case model.PanelGrowthAreas:
		r.Inputs["nImprovementTags"] = input.NImprovementTags
		checkDocuments()
		checkConfidence()

	case model.PanelThemes:
		r.Inputs["nThemeTags"] = input.NThemeTags
		checkDocuments()
		checkConfidence()

	case model.PanelParticipantReasons:
		// Two-tier rule: intake reasons are the stronger evidence source, so
		// their thresholds apply whenever any exist. Only reason-free cohorts
		// fall back to the generic LLM-document thresholds.
		unique := uniqueReasonCount(input.ApplicationReasons)
		r.Inputs["uniqueReasons"] = unique
		if len(input.ApplicationReasons) > 0 {
			r.Inputs["source"] = "intake"
			r.Inputs["minUniqueReasons"] = derefInt(t.MinUniqueReasons)
			if t.MinUniqueReasons != nil && unique < *t.MinUniqueReasons {
				fail(
					"Not enough distinct application reasons",
					fmt.Sprintf("Collect %d more sessions with distinct application reasons", *t.MinUniqueReasons-unique),
				)
			}
		} else {
			r.Inputs["source"] = "documents"
			checkDocuments()
		}

	case model.PanelChallenges:
		r.Inputs["nChallengeTags"] = input.NChallengeTags
		checkDocuments()

	case model.PanelTestimonials:
		r.Inputs["nTestimonials"] = input.NTestimonials
		r.Inputs["minTestimonials"] = derefInt(t.MinTestimonials)
		if t.MinTestimonials != nil && input.NTestimonials < *t.MinTestimonials {
			fail(
				"Not enough testimonial quotes",
				fmt.Sprintf("Collect %d more quotable reflections", *t.MinTestimonials-input.NTestimonials),
			)
		}
		checkConfidence()
	}

	return r
}

func uniqueReasonCount(reasons []string) int {
	seen := map[string]bool{}
	for _, reason := range reasons {
		norm := strings.ToLower(strings.TrimSpace(reason))
		if norm != "" {
			seen[norm] = true
		}
	}
	return len(seen)
}

func intersectionSize(a, b []string) int {
	set := map[string]bool{}
	for _, v := range a {
		set[v] = true
	}
	n := 0
	counted := map[string]bool{}
	for _, v := range b {
		if set[v] && !counted[v] {
			counted[v] = true
			n++
		}
	}
	return n
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
