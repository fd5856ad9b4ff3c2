package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journey-insights/internal/model"
	"journey-insights/internal/registry"
)

const sampleDocument = `Offering Details:
- Program ID: prog-1
- Program Name: Pathways

Version Details:
- Session ID: sess-1
- Schema Version: 1.0
- Generator Version: gen/2
- Generator Seed: 42
- Sentiment: positive

Participant Demographics:
- Gender: female
- Birth Year: 1980

Program Application:
Reasons:
- build confidence
- reconnect with my community
Challenges:
- unemployment

Session Milestones:
Milestone:
- Title: Intake Survey
- Completed: 2026-01-05
Applicant Survey Milestone
Answers:
- Emotional wellbeing: 4
- Stress level: 8

Milestone:
- Title: Monthly Check-in
- Completed: 2026-03-14
Meeting Milestone
- Scheduled: 2026-03-14T10:00:00Z
- With: Case Manager

Milestone:
- Title: Midpoint Reflection
Reflection Milestone
I feel more confident about the future.

Milestone:
- Title: Final Survey
- Completed: 2026-06-05
Applicant Survey Milestone
Question: Emotional wellbeing
Answer: 7
Question: Stress level
Answer: 3
`

func newTestParser() *Parser {
	return New(registry.Default())
}

func TestParseFullDocument(t *testing.T) {
	session, err := newTestParser().Parse(sampleDocument)
	require.NoError(t, err)

	assert.Equal(t, "prog-1", session.ProgramID)
	assert.Equal(t, "sess-1", session.SessionID)
	assert.Equal(t, "1.0", session.SchemaVersion)
	assert.Equal(t, "gen/2", session.Generator.Version)
	assert.Equal(t, int64(42), session.Generator.Seed)
	assert.Equal(t, "positive", session.Sentiment)
	assert.Equal(t, "female", session.Demographics["gender"])
	assert.Equal(t, []string{"build confidence", "reconnect with my community"}, session.Application.Reasons)
	assert.Equal(t, []string{"unemployment"}, session.Application.Challenges)

	require.Len(t, session.Milestones, 4)
	assert.Equal(t, model.MilestoneApplicantSurvey, session.Milestones[0].Type)
	assert.Equal(t, model.MilestoneMeeting, session.Milestones[1].Type)
	assert.Equal(t, model.MilestoneReflection, session.Milestones[2].Type)
	assert.Equal(t, model.MilestoneApplicantSurvey, session.Milestones[3].Type)

	assert.True(t, session.Milestones[0].Completed())
	assert.False(t, session.Milestones[2].Completed())

	require.NoError(t, session.Validate())
}

func TestParseUnifiesSurveyShapes(t *testing.T) {
	session, err := newTestParser().Parse(sampleDocument)
	require.NoError(t, err)

	// Answers-map shape and legacy Question/Answer shape land in the same
	// canonical map, keyed by registry key.
	intake := session.Milestones[0].Survey
	require.NotNil(t, intake)
	assert.Equal(t, "4", intake.Answers["emotional_wellbeing"])
	assert.Equal(t, "8", intake.Answers["stress_level"])

	final := session.Milestones[3].Survey
	require.NotNil(t, final)
	assert.Equal(t, "7", final.Answers["emotional_wellbeing"])
	assert.Equal(t, "3", final.Answers["stress_level"])
}

func TestParseMissingMilestonesFails(t *testing.T) {
	doc := strings.Split(sampleDocument, "Session Milestones:")[0]

	_, err := newTestParser().Parse(doc)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Section, "Milestones")
}

func TestParseOutOfRangeAnswerFails(t *testing.T) {
	doc := strings.Replace(sampleDocument, "- Emotional wellbeing: 4", "- Emotional wellbeing: 12", 1)

	_, err := newTestParser().Parse(doc)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Contains(t, parseErr.Detail, "12")
}

func TestParseBoundaryScoresAccepted(t *testing.T) {
	doc := strings.Replace(sampleDocument, "- Emotional wellbeing: 4", "- Emotional wellbeing: 1", 1)
	doc = strings.Replace(doc, "- Stress level: 8", "- Stress level: 10", 1)

	session, err := newTestParser().Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "1", session.Milestones[0].Survey.Answers["emotional_wellbeing"])
	assert.Equal(t, "10", session.Milestones[0].Survey.Answers["stress_level"])
}

func TestParseNonNumericAnswerPreserved(t *testing.T) {
	doc := strings.Replace(sampleDocument, "- Emotional wellbeing: 4", "- Emotional wellbeing: prefer not to say", 1)

	session, err := newTestParser().Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "prefer not to say", session.Milestones[0].Survey.Answers["emotional_wellbeing"])
}

func TestParseSkipsUnknownMilestoneType(t *testing.T) {
	doc := sampleDocument + `
Milestone:
- Title: Billing Review
Administrative Milestone
- Invoice: 1234
`
	session, err := newTestParser().Parse(doc)
	require.NoError(t, err)
	assert.Len(t, session.Milestones, 4)
}

func TestParseDegradesMissingOptionalSections(t *testing.T) {
	start := strings.Index(sampleDocument, "Session Milestones:")
	doc := sampleDocument[start:]

	session, err := newTestParser().Parse(doc)
	require.NoError(t, err)
	assert.Empty(t, session.Demographics)
	assert.Empty(t, session.Application.Reasons)
	assert.Empty(t, session.Application.Challenges)
	assert.Len(t, session.Milestones, 4)
}
