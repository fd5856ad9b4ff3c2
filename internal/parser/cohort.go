package parser

import (
	"fmt"
	"log"
	"strings"

	"journey-insights/internal/model"
)

// CohortExtraction is the result of splitting a multi-session document.
// Failed segments never abort the batch; they accumulate in Skipped.
type CohortExtraction struct {
	Sessions []*model.RawSession
	Skipped  []model.IngestSkip
}

// hardSeparators end a session segment when a stray marker leaks into it
var hardSeparators = []string{"===", "---", "***"}

// extendedWindowLines is how far strategy four reads past the nominal
// segment end to recover sessions whose milestones ran long.
const extendedWindowLines = 20

// ExtractCohort splits one document containing many sessions on repeated
// "Version Details" markers and parses each segment independently. Each
// candidate segment is tried with four progressively more permissive slicing
// strategies before being given up on. Successful sessions get synthetic IDs
// cohort-001, cohort-002, ... so downstream joins never depend on embedded
// identifiers.
func (p *Parser) ExtractCohort(document string) *CohortExtraction {
	lines := strings.Split(document, "\n")

	markers := findMarkerLines(lines, headings[sectionVersion])
	result := &CohortExtraction{}
	if len(markers) == 0 {
		result.Skipped = append(result.Skipped, model.IngestSkip{
			Index:  0,
			Reason: "no version markers found in document",
		})
		return result
	}

	offerings := findMarkerLines(lines, headings[sectionOffering])

	for i, start := range markers {
		end := len(lines)
		if i+1 < len(markers) {
			end = markers[i+1]
		}

		header := nearestOfferingBlock(lines, offerings, start)
		versionID := embeddedVersionID(lines[start:end])

		session, err := p.parseSegmentWithStrategies(lines, start, end, header)
		if err != nil {
			log.Printf("Warning: skipping cohort segment %d (%s): %v", i, versionID, err)
			result.Skipped = append(result.Skipped, model.IngestSkip{
				Index:     i,
				VersionID: versionID,
				Reason:    err.Error(),
			})
			continue
		}

		if session.ProgramID == "" && len(header) > 0 {
			p.parseOffering(header, session)
		}
		session.SessionID = fmt.Sprintf("cohort-%03d", len(result.Sessions)+1)
		result.Sessions = append(result.Sessions, session)
	}
	return result
}

// parseSegmentWithStrategies tries the four slicing strategies in order:
// the segment as-is, the segment with its offering header re-attached, the
// segment trimmed at the first hard separator, and finally the segment with
// an extended tail window.
func (p *Parser) parseSegmentWithStrategies(lines []string, start, end int, header []string) (*model.RawSession, error) {
	segment := lines[start:end]

	session, firstErr := p.Parse(strings.Join(segment, "\n"))
	if firstErr == nil {
		return session, nil
	}

	if len(header) > 0 {
		withHeader := append(append([]string{}, header...), segment...)
		if session, err := p.Parse(strings.Join(withHeader, "\n")); err == nil {
			return session, nil
		}
	}

	if cut := cutAtHardSeparator(segment); cut < len(segment) {
		trimmed := append(append([]string{}, header...), segment[:cut]...)
		if session, err := p.Parse(strings.Join(trimmed, "\n")); err == nil {
			return session, nil
		}
	}

	extendedEnd := end + extendedWindowLines
	if extendedEnd > len(lines) {
		extendedEnd = len(lines)
	}
	if extendedEnd > end {
		extended := append(append([]string{}, header...), lines[start:extendedEnd]...)
		if session, err := p.Parse(strings.Join(extended, "\n")); err == nil {
			return session, nil
		}
	}

	return nil, firstErr
}

// findMarkerLines returns the indexes of lines matching any of the headings
func findMarkerLines(lines []string, variants []string) []int {
	var out []int
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		for _, h := range variants {
			if strings.EqualFold(trimmed, h) {
				out = append(out, i)
				break
			}
		}
	}
	return out
}

// nearestOfferingBlock returns the offering header block that most recently
// precedes the given line, up to but excluding the next version marker
func nearestOfferingBlock(lines []string, offerings []int, before int) []string {
	best := -1
	for _, idx := range offerings {
		if idx < before && idx > best {
			best = idx
		}
	}
	if best < 0 {
		return nil
	}
	end := best + 1
	for end < before {
		trimmed := strings.TrimSpace(lines[end])
		if trimmed == "" || !strings.HasPrefix(trimmed, "- ") {
			break
		}
		end++
	}
	return lines[best:end]
}

func cutAtHardSeparator(segment []string) int {
	for i, line := range segment {
		trimmed := strings.TrimSpace(line)
		for _, sep := range hardSeparators {
			if strings.HasPrefix(trimmed, sep) {
				return i
			}
		}
	}
	return len(segment)
}

// embeddedVersionID pulls the session/version identifier out of a segment
// for skip reporting only; parsed sessions get synthetic IDs instead
func embeddedVersionID(segment []string) string {
	for _, kv := range parseBullets(segment) {
		switch normalizeFieldKey(kv.key) {
		case "session id", "version id":
			return kv.value
		}
	}
	return ""
}
