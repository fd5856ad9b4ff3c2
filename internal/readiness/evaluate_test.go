package readiness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-insights/internal/model"
)

func baseInput() *model.ReadinessInput {
	return &model.ReadinessInput{
		ProgramID:    "prog-1",
		NSessions:    12,
		NWithPrePost: 9,
		PreIDs:       []string{"s1", "s2", "s3", "s4"},
		PostIDs:      []string{"s2", "s3", "s4", "s5"},
		DocConfidences: []float64{
			0.8, 0.7, 0.9, 0.8, 0.7, 0.8, 0.9, 0.7,
		},
		ApplicationReasons: []string{
			"build confidence", "find direction", "steady routine",
			"reconnect", "wellbeing", "build confidence",
		},
		NStrengthTags:    4,
		NImprovementTags: 3,
		NThemeTags:       5,
		NChallengeTags:   3,
		NTestimonials:    4,
		Groups:           map[string]int{"gender:female": 7, "gender:male": 5},
	}
}

func TestEvaluateOverallImpactBelowMinPaired(t *testing.T) {
	input := baseInput() // NWithPrePost = 9 < default MinPaired 10

	result := Evaluate(input, DefaultConfig())

	panel := result.Panels[model.PanelOverallImpact]
	assert.False(t, panel.Ready)
	require.NotEmpty(t, panel.Reasons)
	assert.Contains(t, panel.Reasons, "Not enough paired pre/post surveys")
	require.NotEmpty(t, panel.Unlock)
	// Unlock names the exact shortfall of one survey.
	assert.Contains(t, panel.Unlock[0], "1 more paired pre/post survey")
}

func TestEvaluateAssessmentChangesReady(t *testing.T) {
	result := Evaluate(baseInput(), DefaultConfig())

	panel := result.Panels[model.PanelAssessmentChanges]
	assert.True(t, panel.Ready) // 9 >= default MinPaired 5
	assert.Empty(t, panel.Reasons)
	assert.Empty(t, panel.Unlock)
}

func TestEvaluateAllPanelsPresent(t *testing.T) {
	result := Evaluate(baseInput(), DefaultConfig())
	require.Len(t, result.Panels, len(model.AllPanels))
	for _, key := range model.AllPanels {
		_, ok := result.Panels[key]
		assert.True(t, ok, "missing panel %s", key)
	}
}

func TestEvaluateAdditiveReasons(t *testing.T) {
	input := baseInput()
	input.DocConfidences = []float64{0.2, 0.3} // too few docs AND too low confidence

	result := Evaluate(input, DefaultConfig())

	panel := result.Panels[model.PanelStrengths]
	assert.False(t, panel.Ready)
	assert.Len(t, panel.Reasons, 2)
	assert.Len(t, panel.Unlock, 2)
}

func TestEvaluateParticipantReasonsIntakeTier(t *testing.T) {
	input := baseInput() // 5 distinct reasons, default MinUniqueReasons 5

	result := Evaluate(input, DefaultConfig())

	panel := result.Panels[model.PanelParticipantReasons]
	assert.True(t, panel.Ready)
	assert.Equal(t, "intake", panel.Inputs["source"])
	assert.Equal(t, 5, panel.Inputs["uniqueReasons"])
}

func TestEvaluateParticipantReasonsFallbackTier(t *testing.T) {
	input := baseInput()
	input.ApplicationReasons = nil
	input.DocConfidences = []float64{0.8, 0.8, 0.8} // 3 docs < default MinDocuments 6

	result := Evaluate(input, DefaultConfig())

	panel := result.Panels[model.PanelParticipantReasons]
	assert.Equal(t, "documents", panel.Inputs["source"])
	assert.False(t, panel.Ready)
	assert.Contains(t, panel.Reasons, "Not enough analyzed documents")
}

func TestEvaluatePrivacySuppression(t *testing.T) {
	input := baseInput()
	input.Groups = map[string]int{
		"gender:female":    7,
		"gender:nonbinary": 2,
		"ethnicity:other":  4,
	}

	result := Evaluate(input, DefaultConfig())

	assert.Equal(t, 5, result.Privacy.MinGroupSize)
	assert.Equal(t, []string{"ethnicity:other", "gender:nonbinary"}, result.Privacy.GroupsSuppressed)

	// Suppression never blocks panel readiness.
	assert.True(t, result.Panels[model.PanelAssessmentChanges].Ready)
}

func TestEvaluateDatasetHealth(t *testing.T) {
	input := baseInput()
	input.NullResponses = 3
	input.TotalResponses = 60

	result := Evaluate(input, DefaultConfig())

	assert.Equal(t, 12, result.Dataset.Participants)
	// Intersection of pre {s1..s4} and post {s2..s5}.
	assert.Equal(t, 3, result.Dataset.PairedSurveys)
	assert.Equal(t, 0.05, result.Dataset.NullResponseRate)
	assert.False(t, result.Dataset.TypeDrift)
}

func TestEvaluateTypeDrift(t *testing.T) {
	input := baseInput()
	input.PreFieldTypes = map[string][]string{
		"emotional_wellbeing": {"number"},
		"stress_level":        {"number", "text"},
	}
	input.PostFieldTypes = map[string][]string{
		"emotional_wellbeing": {"text"},
		"stress_level":        {"number"},
	}

	result := Evaluate(input, DefaultConfig())

	assert.True(t, result.Dataset.TypeDrift)
	assert.Equal(t, []string{"emotional_wellbeing"}, result.Dataset.DriftKeys)
}

func TestEvaluateLLMQuality(t *testing.T) {
	input := baseInput()
	input.DocConfidences = []float64{0.6, 0.8}

	result := Evaluate(input, DefaultConfig())
	assert.Equal(t, 2, result.LLM.Documents)
	assert.Equal(t, 0.7, result.LLM.MeanConfidence)
}

func TestEvaluateDeterministic(t *testing.T) {
	input := baseInput()
	cfg := DefaultConfig()

	first := Evaluate(input, cfg)
	second := Evaluate(input, cfg)

	assert.Equal(t, first.Panels, second.Panels)
	assert.Equal(t, first.Dataset, second.Dataset)
	assert.Equal(t, first.Privacy, second.Privacy)
}

func TestMergeOverridesSelectively(t *testing.T) {
	override := &model.ReadinessConfig{
		PrivacyMinGroupSize: model.IntRef(3),
		Panels: map[model.PanelKey]model.PanelThresholds{
			model.PanelOverallImpact: {MinPaired: model.IntRef(20)},
		},
	}

	merged := Merge(DefaultConfig(), override)

	assert.Equal(t, ConfigVersion, merged.Version)
	assert.Equal(t, 3, *merged.PrivacyMinGroupSize)
	assert.Equal(t, 20, *merged.Panels[model.PanelOverallImpact].MinPaired)
	// Untouched panels keep their defaults.
	assert.Equal(t, 5, *merged.Panels[model.PanelAssessmentChanges].MinPaired)
	assert.Equal(t, 0.6, *merged.Panels[model.PanelThemes].MinAvgConfidence)
}

func TestMergeNilOverride(t *testing.T) {
	merged := Merge(DefaultConfig(), nil)
	assert.Equal(t, DefaultConfig(), merged)
}

func TestEvaluateWithOverride(t *testing.T) {
	override := &model.ReadinessConfig{
		Panels: map[model.PanelKey]model.PanelThresholds{
			model.PanelOverallImpact: {MinPaired: model.IntRef(5)},
		},
	}
	cfg := Merge(DefaultConfig(), override)

	result := Evaluate(baseInput(), cfg)
	assert.True(t, result.Panels[model.PanelOverallImpact].Ready)
}

func TestMergeZeroOverrideDisablesGate(t *testing.T) {
	override := &model.ReadinessConfig{
		Panels: map[model.PanelKey]model.PanelThresholds{
			model.PanelOverallImpact: {MinPaired: model.IntRef(0)},
		},
	}
	cfg := Merge(DefaultConfig(), override)
	require.Equal(t, 0, *cfg.Panels[model.PanelOverallImpact].MinPaired)

	input := baseInput()
	input.NWithPrePost = 0

	result := Evaluate(input, cfg)
	panel := result.Panels[model.PanelOverallImpact]
	assert.True(t, panel.Ready)
	assert.Empty(t, panel.Reasons)
}

func TestMergeZeroPrivacyMinimumDisablesSuppression(t *testing.T) {
	override := &model.ReadinessConfig{PrivacyMinGroupSize: model.IntRef(0)}
	cfg := Merge(DefaultConfig(), override)

	input := baseInput()
	input.Groups = map[string]int{"gender:nonbinary": 1}

	result := Evaluate(input, cfg)
	assert.Equal(t, 0, result.Privacy.MinGroupSize)
	assert.Empty(t, result.Privacy.GroupsSuppressed)
}

func TestEvaluateTestimonials(t *testing.T) {
	input := baseInput()
	input.NTestimonials = 1

	result := Evaluate(input, DefaultConfig())

	panel := result.Panels[model.PanelTestimonials]
	assert.False(t, panel.Ready)
	assert.Contains(t, panel.Reasons, "Not enough testimonial quotes")
	assert.Contains(t, panel.Unlock[0], "2 more")
}
