package extractor

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"journey-insights/internal/model"
)

// RecoverSignals parses a model response in three tiers: strict JSON first,
// then a bracket-matched JSON object cut out of surrounding prose, then a
// minimal placeholder. Each degraded tier is logged.
func RecoverSignals(response string) (*Signals, error) {
	var sig Signals
	if err := json.Unmarshal([]byte(response), &sig); err == nil {
		return sanitize(&sig), nil
	}

	if candidate, ok := bracketedObject(response); ok {
		if err := json.Unmarshal([]byte(candidate), &sig); err == nil {
			log.Printf("Warning: extractor response needed bracket recovery")
			return sanitize(&sig), nil
		}
	}

	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("empty extractor response")
	}
	log.Printf("Warning: extractor response unusable, substituting placeholder signals")
	return &Signals{Confidence: 0}, nil
}

// bracketedObject cuts the first balanced {...} span out of the response,
// tracking string literals so braces inside quotes do not miscount
func bracketedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// sanitize enforces the per-session caps on untrusted extractor output
func sanitize(sig *Signals) *Signals {
	sig.Strengths = capTags(sig.Strengths)
	sig.Improvements = capTags(sig.Improvements)
	sig.Themes = capTags(sig.Themes)
	if len(sig.Quotes) > model.MaxQuotes {
		sig.Quotes = sig.Quotes[:model.MaxQuotes]
	}
	if sig.Confidence < 0 {
		sig.Confidence = 0
	}
	if sig.Confidence > 1 {
		sig.Confidence = 1
	}
	return sig
}

func capTags(tags []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range tags {
		norm := strings.ToLower(strings.TrimSpace(t))
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
		if len(out) == model.MaxTags {
			break
		}
	}
	return out
}
