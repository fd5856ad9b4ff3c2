package model

import "time"

// PanelKey identifies one downstream dashboard panel
type PanelKey string

const (
	PanelOverallImpact      PanelKey = "overallImpact"
	PanelAssessmentChanges  PanelKey = "assessmentChanges"
	PanelStrengths          PanelKey = "strengths"
	PanelGrowthAreas        PanelKey = "growthAreas"
	PanelThemes             PanelKey = "themes"
	PanelParticipantReasons PanelKey = "participantReasons"
	PanelChallenges         PanelKey = "challenges"
	PanelTestimonials       PanelKey = "testimonials"
)

// AllPanels lists every panel in evaluation order
var AllPanels = []PanelKey{
	PanelOverallImpact,
	PanelAssessmentChanges,
	PanelStrengths,
	PanelGrowthAreas,
	PanelThemes,
	PanelParticipantReasons,
	PanelChallenges,
	PanelTestimonials,
}

// PanelThresholds holds the per-panel minimums. A nil field means the
// threshold does not apply to that panel; a present zero disables the gate,
// which is how an override turns a default threshold off.
type PanelThresholds struct {
	MinPaired        *int     `json:"minPaired,omitempty" yaml:"minPaired,omitempty"`
	MinDocuments     *int     `json:"minDocuments,omitempty" yaml:"minDocuments,omitempty"`
	MinAvgConfidence *float64 `json:"minAvgConfidence,omitempty" yaml:"minAvgConfidence,omitempty"`
	MinUniqueReasons *int     `json:"minUniqueReasons,omitempty" yaml:"minUniqueReasons,omitempty"`
	MinTestimonials  *int     `json:"minTestimonials,omitempty" yaml:"minTestimonials,omitempty"`
}

// ReadinessConfig is the versioned threshold configuration. Overrides are
// deep-merged over defaults, so non-default governance policies never require
// code changes.
type ReadinessConfig struct {
	Version             string                       `json:"version" yaml:"version"`
	PrivacyMinGroupSize *int                         `json:"privacyMinGroupSize,omitempty" yaml:"privacyMinGroupSize,omitempty"`
	Panels              map[PanelKey]PanelThresholds `json:"panels" yaml:"panels"`
}

// IntRef returns a pointer to v, for building threshold overrides inline
func IntRef(v int) *int { return &v }

// Float64Ref returns a pointer to v
func Float64Ref(v float64) *float64 { return &v }

// ReadinessInput is the snapshot the evaluator runs against. It is assembled
// by the caller from facts and raw demographics; the evaluator itself does no
// I/O.
type ReadinessInput struct {
	ProgramID string `json:"programId"`

	NSessions    int `json:"nSessions"`
	NWithPrePost int `json:"nWithPrePost"`

	// Participant IDs observed on the pre / post side; paired count is the
	// set intersection.
	PreIDs  []string `json:"preIds"`
	PostIDs []string `json:"postIds"`

	// Raw response counts for the null-response rate.
	NullResponses  int `json:"nullResponses"`
	TotalResponses int `json:"totalResponses"`

	// Value-type sets observed per survey key on each side, for typedrift
	// detection (e.g. "number", "text", "empty").
	PreFieldTypes  map[string][]string `json:"preFieldTypes"`
	PostFieldTypes map[string][]string `json:"postFieldTypes"`

	// Externally supplied per-document extractor confidence scores.
	DocConfidences []float64 `json:"docConfidences"`

	// All application reasons across the cohort (not deduplicated).
	ApplicationReasons []string `json:"applicationReasons"`

	// Distinct tag counts per signal family.
	NStrengthTags    int `json:"nStrengthTags"`
	NImprovementTags int `json:"nImprovementTags"`
	NThemeTags       int `json:"nThemeTags"`
	NChallengeTags   int `json:"nChallengeTags"`

	NTestimonials int `json:"nTestimonials"`

	// Demographic/program group sizes, e.g. "gender:female" -> 4.
	Groups map[string]int `json:"groups"`
}

// DatasetHealth is the cohort-wide data summary
type DatasetHealth struct {
	Participants     int      `json:"participants"`
	PairedSurveys    int      `json:"pairedSurveys"`
	NullResponseRate float64  `json:"nullResponseRate"`
	TypeDrift        bool     `json:"typeDrift"`
	DriftKeys        []string `json:"driftKeys,omitempty"`
}

// LLMQuality summarizes extractor coverage and confidence
type LLMQuality struct {
	Documents      int     `json:"documents"`
	MeanConfidence float64 `json:"meanConfidence"`
}

// PrivacyStatus lists slices too small to display. Suppression never blocks
// overall readiness; it only marks the slice unsafe.
type PrivacyStatus struct {
	MinGroupSize     int      `json:"minGroupSize"`
	GroupsSuppressed []string `json:"groupsSuppressed"`
}

// PanelResult is the gate decision for one panel
type PanelResult struct {
	Ready        bool                   `json:"ready"`
	Inputs       map[string]interface{} `json:"inputs"`
	Reasons      []string               `json:"reasons"`
	Unlock       []string               `json:"unlock"`
	Denominators map[string]int         `json:"denominators,omitempty"`
}

// ReadinessResult is the full evaluation output
type ReadinessResult struct {
	ProgramID     string                   `json:"programId"`
	ConfigVersion string                   `json:"configVersion"`
	Panels        map[PanelKey]PanelResult `json:"panels"`
	Dataset       DatasetHealth            `json:"dataset"`
	LLM           LLMQuality               `json:"llm"`
	Privacy       PrivacyStatus            `json:"privacy"`
	EvaluatedAt   time.Time                `json:"evaluatedAt"`
}

// IngestSkip records one session segment that could not be parsed during
// cohort extraction
type IngestSkip struct {
	Index     int    `json:"index"`
	VersionID string `json:"versionId,omitempty"`
	Reason    string `json:"reason"`
}

// IngestFailure records one session whose normalization failed
type IngestFailure struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}

// IngestResult is returned after a document ingestion run
type IngestResult struct {
	DocumentID      string          `json:"documentId"`
	ProgramID       string          `json:"programId"`
	SessionsParsed  int             `json:"sessionsParsed"`
	SessionsSkipped []IngestSkip    `json:"sessionsSkipped,omitempty"`
	FactsBuilt      int             `json:"factsBuilt"`
	FactsFailed     []IngestFailure `json:"factsFailed,omitempty"`
}
