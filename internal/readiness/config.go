// Package readiness gates dashboard panels on data sufficiency and privacy.
// The evaluator is a pure function over a pre-assembled input snapshot.
package readiness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"journey-insights/internal/model"
)

// ConfigVersion tags the built-in default thresholds
const ConfigVersion = "readiness/v1"

// DefaultConfig returns the built-in threshold configuration
func DefaultConfig() *model.ReadinessConfig {
	return &model.ReadinessConfig{
		Version:             ConfigVersion,
		PrivacyMinGroupSize: model.IntRef(5),
		Panels: map[model.PanelKey]model.PanelThresholds{
			model.PanelOverallImpact:     {MinPaired: model.IntRef(10)},
			model.PanelAssessmentChanges: {MinPaired: model.IntRef(5)},
			model.PanelStrengths:         {MinDocuments: model.IntRef(5), MinAvgConfidence: model.Float64Ref(0.6)},
			model.PanelGrowthAreas:       {MinDocuments: model.IntRef(5), MinAvgConfidence: model.Float64Ref(0.6)},
			model.PanelThemes:            {MinDocuments: model.IntRef(8), MinAvgConfidence: model.Float64Ref(0.6)},
			model.PanelParticipantReasons: {
				MinUniqueReasons: model.IntRef(5),
				MinDocuments:     model.IntRef(6),
			},
			model.PanelChallenges:   {MinDocuments: model.IntRef(5)},
			model.PanelTestimonials: {MinTestimonials: model.IntRef(3), MinAvgConfidence: model.Float64Ref(0.7)},
		},
	}
}

// Merge deep-merges an override onto a base config. Absent (nil) override
// fields keep the base value; a present value replaces it, so an explicit
// zero disables a default gate.
func Merge(base, override *model.ReadinessConfig) *model.ReadinessConfig {
	merged := &model.ReadinessConfig{
		Version:             base.Version,
		PrivacyMinGroupSize: base.PrivacyMinGroupSize,
		Panels:              map[model.PanelKey]model.PanelThresholds{},
	}
	for k, v := range base.Panels {
		merged.Panels[k] = v
	}
	if override == nil {
		return merged
	}
	if override.Version != "" {
		merged.Version = override.Version
	}
	if override.PrivacyMinGroupSize != nil {
		merged.PrivacyMinGroupSize = override.PrivacyMinGroupSize
	}
	for k, o := range override.Panels {
		merged.Panels[k] = mergePanel(merged.Panels[k], o)
	}
	return merged
}

func mergePanel(base, override model.PanelThresholds) model.PanelThresholds {
	if override.MinPaired != nil {
		base.MinPaired = override.MinPaired
	}
	if override.MinDocuments != nil {
		base.MinDocuments = override.MinDocuments
	}
	if override.MinAvgConfidence != nil {
		base.MinAvgConfidence = override.MinAvgConfidence
	}
	if override.MinUniqueReasons != nil {
		base.MinUniqueReasons = override.MinUniqueReasons
	}
	if override.MinTestimonials != nil {
		base.MinTestimonials = override.MinTestimonials
	}
	return base
}

// LoadYAML reads a threshold override file and merges it over the defaults
func LoadYAML(path string) (*model.ReadinessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read readiness config: %w", err)
	}
	var override model.ReadinessConfig
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse readiness config: %w", err)
	}
	return Merge(DefaultConfig(), &override), nil
}
