// Package parser recovers structured sessions from loosely formatted
// program-journey documents. Parsing is heading-driven rather than
// grammar-driven: a fixed heading table locates sections, and each section is
// handed to its own sub-parser. Extraneous content between sections is
// tolerated.
package parser

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"journey-insights/internal/model"
	"journey-insights/internal/registry"
)

// ParseError is the structural failure type. It is returned only when a
// mandatory section is absent or a value violates a hard constraint; soft
// gaps degrade to empty fields with a warning instead.
type ParseError struct {
	Section string
	Detail  string
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("parse error in %s: %s", e.Section, e.Detail)
	}
	return fmt.Sprintf("parse error: %s", e.Detail)
}

// Parser parses journey documents against a survey-key registry
type Parser struct {
	registry *registry.Registry
}

// New creates a parser bound to the given registry
func New(reg *registry.Registry) *Parser {
	return &Parser{registry: reg}
}

// Parse converts one single-session document into a RawSession. It fails with
// a *ParseError when the milestones section is missing or a numeric survey
// answer is outside its registered scale. Demographics and application
// sections degrade to empty structures with a logged warning.
func (p *Parser) Parse(document string) (*model.RawSession, error) {
	lines := strings.Split(document, "\n")
	sections := locateSections(lines)

	milestoneLines, ok := sections.body(sectionMilestones)
	if !ok {
		return nil, &ParseError{Section: "Session Milestones", Detail: "mandatory section is missing"}
	}

	session := &model.RawSession{
		Demographics: map[string]string{},
	}

	if body, ok := sections.body(sectionOffering); ok {
		p.parseOffering(body, session)
	}
	if body, ok := sections.body(sectionVersion); ok {
		p.parseVersion(body, session)
	}

	if body, ok := sections.body(sectionDemographics); ok {
		for _, kv := range parseBullets(body) {
			session.Demographics[normalizeFieldKey(kv.key)] = kv.value
		}
	} else {
		log.Printf("Warning: document has no demographics section, continuing with empty demographics")
	}

	if body, ok := sections.body(sectionApplication); ok {
		session.Application = p.parseApplication(body)
	} else {
		log.Printf("Warning: document has no application section, continuing with empty application")
	}

	milestones, err := p.parseMilestones(milestoneLines)
	if err != nil {
		return nil, err
	}
	session.Milestones = milestones

	return session, nil
}

func (p *Parser) parseOffering(body []string, session *model.RawSession) {
	for _, kv := range parseBullets(body) {
		switch normalizeFieldKey(kv.key) {
		case "program id", "offering id":
			session.ProgramID = kv.value
		}
	}
}

func (p *Parser) parseVersion(body []string, session *model.RawSession) {
	for _, kv := range parseBullets(body) {
		switch normalizeFieldKey(kv.key) {
		case "session id", "version id":
			session.SessionID = kv.value
		case "schema version":
			session.SchemaVersion = kv.value
		case "generator version":
			session.Generator.Version = kv.value
		case "generator seed":
			if n, err := strconv.ParseInt(kv.value, 10, 64); err == nil {
				session.Generator.Seed = n
			}
		case "sentiment":
			session.Sentiment = kv.value
		}
	}
}

// parseApplication accepts both the bullet-list shape (Reasons:/Challenges:
// sub-lists) and the legacy Question/Answer block shape.
func (p *Parser) parseApplication(body []string) model.Application {
	app := model.Application{}

	current := ""
	sawSubList := false
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.EqualFold(trimmed, "Reasons:"):
			current = "reasons"
			sawSubList = true
		case strings.EqualFold(trimmed, "Challenges:"):
			current = "challenges"
			sawSubList = true
		case strings.HasPrefix(trimmed, "- "):
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
			if item == "" {
				continue
			}
			switch current {
			case "reasons":
				app.Reasons = append(app.Reasons, item)
			case "challenges":
				app.Challenges = append(app.Challenges, item)
			}
		}
	}
	if sawSubList {
		return app
	}

	for _, qa := range parseQABlocks(body) {
		if qa.answer == "" {
			continue
		}
		q := strings.ToLower(qa.question)
		switch {
		case strings.Contains(q, "challenge"), strings.Contains(q, "barrier"):
			app.Challenges = append(app.Challenges, qa.answer)
		default:
			app.Reasons = append(app.Reasons, qa.answer)
		}
	}
	return app
}

// validateScaleAnswer checks a survey answer against the registry. A numeric
// answer on a registered scale key must round into the key's range; anything
// non-numeric is preserved verbatim for downstream interpretation.
func (p *Parser) validateScaleAnswer(label, answer string) error {
	key, ok := p.registry.MatchLabel(label)
	if !ok || key.Kind != registry.KindScale {
		return nil
	}
	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		return nil
	}
	val, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil
	}
	rounded := int(val + 0.5)
	if val < 0 {
		rounded = int(val - 0.5)
	}
	if rounded < key.ScaleMin || rounded > key.ScaleMax {
		return &ParseError{
			Section: "Session Milestones",
			Detail:  fmt.Sprintf("answer %q for %q is outside the %d-%d scale", trimmed, label, key.ScaleMin, key.ScaleMax),
		}
	}
	return nil
}

func normalizeFieldKey(key string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(key))), " ")
}
