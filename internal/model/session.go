package model

import "fmt"

// MilestoneType defines the closed set of milestone variants
type MilestoneType string

const (
	MilestoneApplicantSurvey MilestoneType = "applicant_survey" // pre/post assessment surveys
	MilestoneMeeting         MilestoneType = "meeting"          // scheduled program meeting
	MilestoneOutcomeNote     MilestoneType = "outcome_note"     // staff outcome narrative + plan
	MilestoneReflection      MilestoneType = "reflection"       // participant free-text reflection
	MilestoneOnlineActivity  MilestoneType = "online_activity"  // portal/online module activity
)

// Generator records provenance of generated documents
type Generator struct {
	Version string `json:"version,omitempty" bson:"version,omitempty"`
	Seed    int64  `json:"seed,omitempty" bson:"seed,omitempty"`
}

// Application holds the participant's intake application lists, in document order
type Application struct {
	Reasons    []string `json:"reasons" bson:"reasons"`
	Challenges []string `json:"challenges" bson:"challenges"`
}

// SurveyDetail is the canonical survey payload. Legacy question/answer pair
// blocks and answers-map blocks are both unified into Answers at the parse
// boundary, so downstream code never branches on the source format.
// Keys are registry keys where the label matched, otherwise the raw label.
// Values are kept verbatim; empty string means the participant left it blank.
type SurveyDetail struct {
	Answers map[string]string `json:"answers" bson:"answers"`
}

// MeetingDetail is scheduling metadata for a meeting milestone
type MeetingDetail struct {
	ScheduledAt string `json:"scheduledAt,omitempty" bson:"scheduled_at,omitempty"`
	With        string `json:"with,omitempty" bson:"with,omitempty"`
	Link        string `json:"link,omitempty" bson:"link,omitempty"`
}

// OutcomeDetail is a staff outcome narrative plus an ordered plan list
type OutcomeDetail struct {
	Narrative string   `json:"narrative" bson:"narrative"`
	Plan      []string `json:"plan" bson:"plan"`
}

// ReflectionDetail is participant free text
type ReflectionDetail struct {
	Text string `json:"text" bson:"text"`
}

// ActivityDetail describes an online activity milestone
type ActivityDetail struct {
	Platform string `json:"platform,omitempty" bson:"platform,omitempty"`
	Link     string `json:"link,omitempty" bson:"link,omitempty"`
	Duration string `json:"duration,omitempty" bson:"duration,omitempty"`
}

// Milestone is one discrete program-interaction event within a session.
// Exactly one payload pointer is set, matching Type.
type Milestone struct {
	Type        MilestoneType `json:"type" bson:"type"`
	Title       string        `json:"title" bson:"title"`
	Description string        `json:"description,omitempty" bson:"description,omitempty"`
	CompletedAt string        `json:"completedAt,omitempty" bson:"completed_at,omitempty"`

	Survey     *SurveyDetail     `json:"survey,omitempty" bson:"survey,omitempty"`
	Meeting    *MeetingDetail    `json:"meeting,omitempty" bson:"meeting,omitempty"`
	Outcome    *OutcomeDetail    `json:"outcome,omitempty" bson:"outcome,omitempty"`
	Reflection *ReflectionDetail `json:"reflection,omitempty" bson:"reflection,omitempty"`
	Activity   *ActivityDetail   `json:"activity,omitempty" bson:"activity,omitempty"`
}

// Completed reports whether the milestone carries a completion timestamp
func (m *Milestone) Completed() bool {
	return m.CompletedAt != ""
}

// payload returns the payload pointer matching the milestone type, or nil
func (m *Milestone) payload() interface{} {
	switch m.Type {
	case MilestoneApplicantSurvey:
		if m.Survey != nil {
			return m.Survey
		}
	case MilestoneMeeting:
		if m.Meeting != nil {
			return m.Meeting
		}
	case MilestoneOutcomeNote:
		if m.Outcome != nil {
			return m.Outcome
		}
	case MilestoneReflection:
		if m.Reflection != nil {
			return m.Reflection
		}
	case MilestoneOnlineActivity:
		if m.Activity != nil {
			return m.Activity
		}
	}
	return nil
}

// Validate checks the milestone type and that its payload is present
func (m *Milestone) Validate() error {
	switch m.Type {
	case MilestoneApplicantSurvey, MilestoneMeeting, MilestoneOutcomeNote,
		MilestoneReflection, MilestoneOnlineActivity:
	default:
		return fmt.Errorf("unknown milestone type %q", m.Type)
	}
	if m.payload() == nil {
		return fmt.Errorf("milestone %q missing %s payload", m.Title, m.Type)
	}
	return nil
}

// RawSession is one participant's raw parsed record. It is produced once per
// uploaded or generated document and never mutated afterwards. Every session
// belongs to exactly one program.
type RawSession struct {
	SchemaVersion string    `json:"schemaVersion" bson:"schema_version"`
	Generator     Generator `json:"generator,omitempty" bson:"generator,omitempty"`

	SessionID string `json:"sessionId" bson:"session_id"`
	ProgramID string `json:"programId" bson:"program_id"`
	Sentiment string `json:"sentiment,omitempty" bson:"sentiment,omitempty"`

	Demographics map[string]string `json:"demographics" bson:"demographics"`
	Application  Application       `json:"application" bson:"application"`
	Milestones   []Milestone       `json:"milestones" bson:"milestones"`
}

// MilestonesOfType returns milestones of the given type in document order
func (s *RawSession) MilestonesOfType(t MilestoneType) []*Milestone {
	var out []*Milestone
	for i := range s.Milestones {
		if s.Milestones[i].Type == t {
			out = append(out, &s.Milestones[i])
		}
	}
	return out
}

// Validate checks required fields and every milestone
func (s *RawSession) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session is missing a session id")
	}
	if s.ProgramID == "" {
		return fmt.Errorf("session %s is missing a program id", s.SessionID)
	}
	for i := range s.Milestones {
		if err := s.Milestones[i].Validate(); err != nil {
			return fmt.Errorf("session %s: %w", s.SessionID, err)
		}
	}
	return nil
}

// SourceDocument is the stored upload a session set was parsed from
type SourceDocument struct {
	ID         string `json:"id" bson:"_id,omitempty"`
	ProgramID  string `json:"programId" bson:"program_id"`
	Name       string `json:"name" bson:"name"`
	Text       string `json:"text" bson:"text"`
	UploadedAt string `json:"uploadedAt" bson:"uploaded_at"`
}
