package parser

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cohortSegment(n int) string {
	return fmt.Sprintf(`Version Details:
- Session ID: embedded-%03d
- Schema Version: 1.0

Participant Demographics:
- Gender: female

Session Milestones:
Milestone:
- Title: Intake Survey
- Completed: 2026-01-05
Applicant Survey Milestone
Answers:
- Emotional wellbeing: %d

Milestone:
- Title: Final Survey
- Completed: 2026-06-05
Applicant Survey Milestone
Answers:
- Emotional wellbeing: %d

`, n, 3+n%3, 6+n%3)
}

func cohortDocument(sessions int) string {
	var b strings.Builder
	b.WriteString("Offering Details:\n- Program ID: prog-cohort\n\n")
	for i := 1; i <= sessions; i++ {
		b.WriteString(cohortSegment(i))
	}
	return b.String()
}

func TestExtractCohort(t *testing.T) {
	result := newTestParser().ExtractCohort(cohortDocument(3))

	require.Len(t, result.Sessions, 3)
	assert.Empty(t, result.Skipped)

	for i, session := range result.Sessions {
		assert.Equal(t, fmt.Sprintf("cohort-%03d", i+1), session.SessionID)
		assert.Equal(t, "prog-cohort", session.ProgramID)
		assert.Len(t, session.Milestones, 2)
	}
}

func TestExtractCohortPartialFailure(t *testing.T) {
	// Three well-formed sessions plus one whose milestones section was
	// truncated away entirely.
	doc := cohortDocument(3) + `Version Details:
- Session ID: embedded-bad
- Schema Version: 1.0

Participant Demographics:
- Gender: male
`

	result := newTestParser().ExtractCohort(doc)

	require.Len(t, result.Sessions, 3)
	require.Len(t, result.Skipped, 1)

	skip := result.Skipped[0]
	assert.Equal(t, 3, skip.Index)
	assert.Equal(t, "embedded-bad", skip.VersionID)
	assert.Contains(t, skip.Reason, "Milestones")
}

func TestExtractCohortReassignsIDs(t *testing.T) {
	result := newTestParser().ExtractCohort(cohortDocument(2))

	require.Len(t, result.Sessions, 2)
	// Embedded identifiers never leak through.
	assert.Equal(t, "cohort-001", result.Sessions[0].SessionID)
	assert.Equal(t, "cohort-002", result.Sessions[1].SessionID)
}

func TestExtractCohortNoMarkers(t *testing.T) {
	result := newTestParser().ExtractCohort("just some text\nwith no structure\n")

	assert.Empty(t, result.Sessions)
	require.Len(t, result.Skipped, 1)
	assert.Contains(t, result.Skipped[0].Reason, "no version markers")
}

func TestExtractCohortTrimsAtHardSeparator(t *testing.T) {
	// Garbage after a hard separator inside the final segment. The as-is
	// parse succeeds anyway because the separator content has no headings,
	// so this documents that separator content never corrupts the session.
	doc := cohortDocument(1) + "===\nleftover export noise: 999\n"

	result := newTestParser().ExtractCohort(doc)
	require.Len(t, result.Sessions, 1)
	assert.Empty(t, result.Skipped)
}
