package parser

import "strings"

// Canonical section names used by the heading table
const (
	sectionOffering     = "offering"
	sectionVersion      = "version"
	sectionDemographics = "demographics"
	sectionApplication  = "application"
	sectionMilestones   = "milestones"
)

// headings maps each canonical section to the heading texts that introduce it
var headings = map[string][]string{
	sectionOffering:     {"Offering Details:", "Offering Details"},
	sectionVersion:      {"Version Details:", "Version Details"},
	sectionDemographics: {"Participant Demographics:", "Participant Demographics", "Demographics:"},
	sectionApplication:  {"Program Application:", "Program Application", "Application:"},
	sectionMilestones:   {"Session Milestones:", "Session Milestones", "Milestones:"},
}

type section struct {
	name  string
	start int // line index of the heading
	end   int // exclusive
	lines []string
}

type sectionList []section

// body returns the lines between a section's heading and the next heading
func (s sectionList) body(name string) ([]string, bool) {
	for _, sec := range s {
		if sec.name == name {
			return sec.lines, true
		}
	}
	return nil, false
}

// locateSections scans the document for headings. An exact trimmed-line match
// is preferred; a case-insensitive substring match is the fallback, so minor
// prefixes or numbering around a heading do not lose the section.
func locateSections(lines []string) sectionList {
	var found sectionList
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if name, ok := matchHeading(trimmed); ok {
			found = append(found, section{name: name, start: i})
		}
	}
	for i := range found {
		if i+1 < len(found) {
			found[i].end = found[i+1].start
		} else {
			found[i].end = len(lines)
		}
		found[i].lines = lines[found[i].start+1 : found[i].end]
	}
	return found
}

func matchHeading(trimmed string) (string, bool) {
	for name, variants := range headings {
		for _, h := range variants {
			if strings.EqualFold(trimmed, h) {
				return name, true
			}
		}
	}
	lower := strings.ToLower(trimmed)
	for name, variants := range headings {
		for _, h := range variants {
			if strings.Contains(lower, strings.ToLower(h)) {
				return name, true
			}
		}
	}
	return "", false
}

type keyValue struct {
	key   string
	value string
}

// parseBullets reads "- Key: value" bullet lines in document order
func parseBullets(lines []string) []keyValue {
	var out []keyValue
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "- ") {
			continue
		}
		rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "- "))
		key, value, ok := strings.Cut(rest, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out = append(out, keyValue{key: key, value: strings.TrimSpace(value)})
	}
	return out
}

type qaPair struct {
	question string
	answer   string
}

// parseQABlocks reads repeated Question:/Answer: blocks. Multi-line answers
// are joined preserving blank-line breaks, then trimmed.
func parseQABlocks(lines []string) []qaPair {
	var out []qaPair
	var current *qaPair
	var answerLines []string
	inAnswer := false

	flush := func() {
		if current == nil {
			return
		}
		current.answer = joinAnswer(answerLines)
		out = append(out, *current)
		current = nil
		answerLines = nil
		inAnswer = false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case hasFieldPrefix(trimmed, "Question:"):
			flush()
			current = &qaPair{question: strings.TrimSpace(trimmed[len("Question:"):])}
		case hasFieldPrefix(trimmed, "Answer:") && current != nil:
			inAnswer = true
			first := strings.TrimSpace(trimmed[len("Answer:"):])
			answerLines = append(answerLines, first)
		case inAnswer:
			answerLines = append(answerLines, trimmed)
		}
	}
	flush()
	return out
}

func joinAnswer(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func hasFieldPrefix(line, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(line[:len(prefix)], prefix)
}
