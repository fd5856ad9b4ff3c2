package parser

import (
	"log"
	"strings"

	"journey-insights/internal/model"
)

// milestoneMarkers maps "<Type> Milestone" marker text to the variant
var milestoneMarkers = []struct {
	marker string
	typ    model.MilestoneType
}{
	{"Applicant Survey Milestone", model.MilestoneApplicantSurvey},
	{"Meeting Milestone", model.MilestoneMeeting},
	{"Outcome Note Milestone", model.MilestoneOutcomeNote},
	{"Reflection Milestone", model.MilestoneReflection},
	{"Online Activity Milestone", model.MilestoneOnlineActivity},
}

// parseMilestones splits the milestones section on "Milestone:" delimiters
// and hands each segment to the sub-parser its marker line selects. Unknown
// milestone types are skipped with a warning.
func (p *Parser) parseMilestones(body []string) ([]model.Milestone, error) {
	segments := splitSegments(body, "Milestone:")
	var out []model.Milestone
	for _, seg := range segments {
		m, err := p.parseMilestone(seg)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

// splitSegments cuts lines into segments starting at each exact delimiter line
func splitSegments(lines []string, delimiter string) [][]string {
	var segments [][]string
	var current []string
	open := false
	for _, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), delimiter) {
			if open && len(current) > 0 {
				segments = append(segments, current)
			}
			current = nil
			open = true
			continue
		}
		if open {
			current = append(current, line)
		}
	}
	if open && len(current) > 0 {
		segments = append(segments, current)
	}
	return segments
}

func (p *Parser) parseMilestone(segment []string) (*model.Milestone, error) {
	m := &model.Milestone{}

	// First bulleted block carries the shared metadata.
	metaEnd := len(segment)
	for i, line := range segment {
		if _, ok := matchMilestoneMarker(line); ok {
			metaEnd = i
			break
		}
	}
	for _, kv := range parseBullets(segment[:metaEnd]) {
		switch normalizeFieldKey(kv.key) {
		case "title":
			m.Title = kv.value
		case "description":
			m.Description = kv.value
		case "completed", "completed at", "completed on":
			m.CompletedAt = kv.value
		}
	}

	var typ model.MilestoneType
	found := false
	detail := segment
	for i, line := range segment {
		if t, ok := matchMilestoneMarker(line); ok {
			typ = t
			found = true
			detail = segment[i+1:]
			break
		}
	}
	if !found || typ == "" {
		log.Printf("Warning: skipping milestone %q with unknown or missing type marker", m.Title)
		return nil, nil
	}
	m.Type = typ

	switch typ {
	case model.MilestoneApplicantSurvey:
		survey, err := p.parseSurveyDetail(detail)
		if err != nil {
			return nil, err
		}
		m.Survey = survey
	case model.MilestoneMeeting:
		m.Meeting = parseMeetingDetail(detail)
	case model.MilestoneOutcomeNote:
		m.Outcome = parseOutcomeDetail(detail)
	case model.MilestoneReflection:
		m.Reflection = parseReflectionDetail(detail, m.Title)
	case model.MilestoneOnlineActivity:
		m.Activity = parseActivityDetail(detail)
	}
	return m, nil
}

func matchMilestoneMarker(line string) (model.MilestoneType, bool) {
	trimmed := strings.TrimSpace(line)
	for _, mm := range milestoneMarkers {
		if strings.EqualFold(trimmed, mm.marker) {
			return mm.typ, true
		}
	}
	// Tolerate an unrecognized "<Something> Milestone" marker so the caller
	// can skip the whole segment instead of misreading its body.
	if strings.HasSuffix(strings.ToLower(trimmed), " milestone") {
		return "", true
	}
	return "", false
}

// parseSurveyDetail unifies the legacy Question/Answer block shape and the
// Answers: bullet-map shape into one canonical answers map. Labels that match
// a registered key are stored under the registry key, everything else under
// the raw label.
func (p *Parser) parseSurveyDetail(detail []string) (*model.SurveyDetail, error) {
	answers := map[string]string{}

	record := func(label, value string) error {
		if err := p.validateScaleAnswer(label, value); err != nil {
			return err
		}
		key := label
		if reg, ok := p.registry.MatchLabel(label); ok {
			key = reg.Key
		}
		answers[key] = value
		return nil
	}

	inMap := false
	for _, line := range detail {
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, "Answers:") {
			inMap = true
			continue
		}
		if inMap && strings.HasPrefix(trimmed, "- ") {
			rest := strings.TrimPrefix(trimmed, "- ")
			label, value, ok := strings.Cut(rest, ":")
			if !ok {
				continue
			}
			if err := record(strings.TrimSpace(label), strings.TrimSpace(value)); err != nil {
				return nil, err
			}
		}
	}

	for _, qa := range parseQABlocks(detail) {
		if err := record(qa.question, qa.answer); err != nil {
			return nil, err
		}
	}

	return &model.SurveyDetail{Answers: answers}, nil
}

func parseMeetingDetail(detail []string) *model.MeetingDetail {
	md := &model.MeetingDetail{}
	for _, kv := range parseBullets(detail) {
		switch normalizeFieldKey(kv.key) {
		case "scheduled", "scheduled at", "scheduled for":
			md.ScheduledAt = kv.value
		case "with", "facilitator":
			md.With = kv.value
		case "link", "location":
			md.Link = kv.value
		}
	}
	if md.Link == "" {
		log.Printf("Warning: meeting milestone has no link or location")
	}
	return md
}

func parseOutcomeDetail(detail []string) *model.OutcomeDetail {
	od := &model.OutcomeDetail{}
	var narrative []string
	inNarrative := false
	inPlan := false
	for _, line := range detail {
		trimmed := strings.TrimSpace(line)
		switch {
		case hasFieldPrefix(trimmed, "Narrative:"):
			inNarrative = true
			inPlan = false
			narrative = append(narrative, strings.TrimSpace(trimmed[len("Narrative:"):]))
		case strings.EqualFold(trimmed, "Plan:"):
			inNarrative = false
			inPlan = true
		case inPlan && strings.HasPrefix(trimmed, "- "):
			item := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
			if item != "" {
				od.Plan = append(od.Plan, item)
			}
		case inNarrative:
			narrative = append(narrative, trimmed)
		}
	}
	od.Narrative = strings.TrimSpace(strings.Join(narrative, "\n"))
	return od
}

func parseReflectionDetail(detail []string, title string) *model.ReflectionDetail {
	var text []string
	for _, line := range detail {
		text = append(text, strings.TrimSpace(line))
	}
	rd := &model.ReflectionDetail{Text: strings.TrimSpace(strings.Join(text, "\n"))}
	if rd.Text == "" {
		log.Printf("Warning: reflection milestone %q has no text", title)
	}
	return rd
}

func parseActivityDetail(detail []string) *model.ActivityDetail {
	ad := &model.ActivityDetail{}
	for _, kv := range parseBullets(detail) {
		switch normalizeFieldKey(kv.key) {
		case "platform":
			ad.Platform = kv.value
		case "link", "url":
			ad.Link = kv.value
		case "duration":
			ad.Duration = kv.value
		}
	}
	return ad
}
