// Package registry holds the fixed survey-key metadata the parser and the
// facts builders validate against. Registries are immutable after
// construction and passed explicitly into each component, so tests can
// substitute their own.
package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"journey-insights/internal/model"
)

// Kind distinguishes numeric scale items from free-text items
type Kind string

const (
	KindScale Kind = "scale"
	KindText  Kind = "text"
)

// SurveyKey is the registered metadata for one survey item
type SurveyKey struct {
	Key        string           `yaml:"key"`
	Label      string           `yaml:"label"`
	Kind       Kind             `yaml:"kind"`
	ScaleMin   int              `yaml:"scaleMin,omitempty"`
	ScaleMax   int              `yaml:"scaleMax,omitempty"`
	BetterWhen model.BetterWhen `yaml:"betterWhen,omitempty"`
}

// Registry is an immutable survey-key lookup table
type Registry struct {
	keys    []SurveyKey
	byKey   map[string]SurveyKey
	byLabel map[string]SurveyKey
}

// New builds a registry from the given keys
func New(keys []SurveyKey) *Registry {
	r := &Registry{
		keys:    make([]SurveyKey, len(keys)),
		byKey:   make(map[string]SurveyKey, len(keys)),
		byLabel: make(map[string]SurveyKey, len(keys)),
	}
	copy(r.keys, keys)
	for _, k := range r.keys {
		r.byKey[k.Key] = k
		r.byLabel[normalizeLabel(k.Label)] = k
	}
	return r
}

// Default returns the built-in survey-key registry
func Default() *Registry {
	return New([]SurveyKey{
		{Key: "relationships_contentment", Label: "Contentment with relationships", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenHigher},
		{Key: "confidence_in_future", Label: "Confidence in the future", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenHigher},
		{Key: "emotional_wellbeing", Label: "Emotional wellbeing", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenHigher},
		{Key: "financial_stability", Label: "Financial stability", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenHigher},
		{Key: "community_connection", Label: "Connection to community", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenHigher},
		{Key: "purpose_clarity", Label: "Clarity of purpose", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenHigher},
		{Key: "physical_health", Label: "Physical health", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenHigher},
		{Key: "stress_level", Label: "Stress level", Kind: KindScale, ScaleMin: 1, ScaleMax: 10, BetterWhen: model.BetterWhenLower},
		{Key: "biggest_hope", Label: "Biggest hope for the program", Kind: KindText},
		{Key: "support_network", Label: "Who supports you today", Kind: KindText},
	})
}

// LoadYAML reads a registry definition file
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	var doc struct {
		Keys []SurveyKey `yaml:"keys"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse registry file: %w", err)
	}
	if len(doc.Keys) == 0 {
		return nil, fmt.Errorf("registry file %s defines no keys", path)
	}
	for i := range doc.Keys {
		k := &doc.Keys[i]
		if k.Key == "" || k.Label == "" {
			return nil, fmt.Errorf("registry file %s: entry %d missing key or label", path, i)
		}
		if k.Kind == "" {
			k.Kind = KindText
		}
		if k.Kind == KindScale {
			if k.ScaleMin == 0 && k.ScaleMax == 0 {
				k.ScaleMin, k.ScaleMax = model.ScaleScoreMin, model.ScaleScoreMax
			}
			if k.BetterWhen == "" {
				k.BetterWhen = model.BetterWhenHigher
			}
		}
	}
	return New(doc.Keys), nil
}

// ByKey looks up a survey key by its identifier
func (r *Registry) ByKey(key string) (SurveyKey, bool) {
	k, ok := r.byKey[key]
	return k, ok
}

// MatchLabel resolves a free-text answer label to a registered key.
// Exact normalized match first, then substring containment either way.
func (r *Registry) MatchLabel(label string) (SurveyKey, bool) {
	norm := normalizeLabel(label)
	if norm == "" {
		return SurveyKey{}, false
	}
	if k, ok := r.byLabel[norm]; ok {
		return k, true
	}
	if k, ok := r.byKey[norm]; ok {
		return k, true
	}
	for _, k := range r.keys {
		reg := normalizeLabel(k.Label)
		if strings.Contains(norm, reg) || strings.Contains(reg, norm) {
			return k, true
		}
	}
	return SurveyKey{}, false
}

// ScaleKeys returns the registered scale items sorted by key
func (r *Registry) ScaleKeys() []SurveyKey {
	var out []SurveyKey
	for _, k := range r.keys {
		if k.Kind == KindScale {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of registered keys
func (r *Registry) Len() int { return len(r.keys) }

func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = strings.TrimSuffix(s, "?")
	s = strings.ReplaceAll(s, "_", " ")
	return strings.Join(strings.Fields(s), " ")
}
