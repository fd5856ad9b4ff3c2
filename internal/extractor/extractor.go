// Package extractor is the boundary to the external text-signal model. The
// rest of the pipeline consumes the Extractor interface only, so tests and
// unconfigured deployments run on the deterministic mock.
package extractor

import (
	"context"
	"sort"
	"strings"

	"journey-insights/internal/model"
)

// Signals is what the extractor recovers from reflection and outcome text.
// ModelID names the model that produced the signals; implementations set it
// themselves rather than trusting the response body.
type Signals struct {
	Strengths    []string      `json:"strengths"`
	Improvements []string      `json:"improvements"`
	Themes       []string      `json:"themes"`
	Quotes       []model.Quote `json:"quotes"`
	Confidence   float64       `json:"confidence"`
	ModelID      string        `json:"modelId,omitempty"`
}

// Extractor extracts signals from one session's free text
type Extractor interface {
	Extract(ctx context.Context, text string) (*Signals, error)
}

// MockModelID marks signals produced by the keyword mock
const MockModelID = "mock"

// MockExtractor produces deterministic signals from keyword scanning. Used
// when no API key is configured and as the fallback path in tests.
type MockExtractor struct{}

// NewMockExtractor creates the deterministic keyword-based extractor
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

var mockKeywords = map[string][]string{
	"confidence":    {"confident", "confidence", "believe in myself"},
	"community":     {"community", "group", "together", "belong"},
	"stability":     {"stable", "stability", "steady", "secure"},
	"growth":        {"grow", "growth", "learn", "improve"},
	"relationships": {"family", "friend", "relationship", "partner"},
	"purpose":       {"purpose", "goal", "direction", "future"},
}

// Extract scans for theme keywords and picks the first sentences as quotes
func (m *MockExtractor) Extract(_ context.Context, text string) (*Signals, error) {
	lower := strings.ToLower(text)

	var themes []string
	for theme, words := range mockKeywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				themes = append(themes, theme)
				break
			}
		}
	}
	sort.Strings(themes)
	if len(themes) > model.MaxTags {
		themes = themes[:model.MaxTags]
	}

	sig := &Signals{
		Themes:     themes,
		Confidence: 0.5,
		ModelID:    MockModelID,
	}
	if len(themes) > 0 {
		sig.Strengths = []string{themes[0]}
		sig.Confidence = 0.6
	}
	if len(themes) > 1 {
		sig.Improvements = []string{themes[len(themes)-1]}
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) < 30 || len(sentence) > 240 {
			continue
		}
		theme := ""
		if len(themes) > 0 {
			theme = themes[len(sig.Quotes)%len(themes)]
		}
		sig.Quotes = append(sig.Quotes, model.Quote{Text: sentence, Theme: theme})
		if len(sig.Quotes) == model.MaxQuotes {
			break
		}
	}
	return sig, nil
}

func splitSentences(text string) []string {
	var out []string
	for _, chunk := range strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		trimmed := strings.TrimSpace(chunk)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
