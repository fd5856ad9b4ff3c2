package model

import (
	"fmt"
	"time"
)

// Cardinality caps enforced on facts records before they are returned to
// callers. Extractor output is untrusted free text, so these are hard limits.
const (
	MaxTags       = 6
	MaxListItems  = 10
	MaxQuotes     = 2
	MaxExemplars  = 8
	MaxDataNotes  = 12
	MaxTopTags    = 6
	ScaleScoreMin = 1
	ScaleScoreMax = 10
)

// AssessmentDelta is one scale item's pre/post pairing. Pre and Post are nil
// when the participant gave no numeric response on that side; Change is set
// only when both sides are present.
type AssessmentDelta struct {
	Key    string `json:"key" bson:"key"`
	Label  string `json:"label" bson:"label"`
	Pre    *int   `json:"pre" bson:"pre"`
	Post   *int   `json:"post" bson:"post"`
	Change *int   `json:"change" bson:"change"`
}

// Paired reports whether both sides of the delta are present
func (d *AssessmentDelta) Paired() bool {
	return d.Pre != nil && d.Post != nil
}

// Completeness flags which session ingredients were present
type Completeness struct {
	HasPre         bool `json:"hasPre" bson:"has_pre"`
	HasPost        bool `json:"hasPost" bson:"has_post"`
	HasReflections bool `json:"hasReflections" bson:"has_reflections"`
}

// Quote is a short verbatim excerpt attributed to a theme
type Quote struct {
	Text  string `json:"text" bson:"text"`
	Theme string `json:"theme,omitempty" bson:"theme,omitempty"`
}

// SessionFacts is the normalized, validated per-session record. Derived from
// one RawSession and cached; recomputation is the only update path.
type SessionFacts struct {
	SessionID string `json:"sessionId" bson:"session_id"`
	ProgramID string `json:"programId" bson:"program_id"`

	MilestoneCompletionPct float64           `json:"milestoneCompletionPct" bson:"milestone_completion_pct"`
	Assessments            []AssessmentDelta `json:"assessments" bson:"assessments"`

	Strengths    []string `json:"strengths" bson:"strengths"`
	Improvements []string `json:"improvements" bson:"improvements"`
	Themes       []string `json:"themes" bson:"themes"`
	Reasons      []string `json:"reasons" bson:"reasons"`
	Challenges   []string `json:"challenges" bson:"challenges"`
	Quotes       []Quote  `json:"quotes" bson:"quotes"`

	Completeness Completeness `json:"completeness" bson:"completeness"`

	// SignalConfidence is the extractor's self-reported confidence for this
	// document, carried through for the readiness evaluator's LLM summary.
	SignalConfidence float64 `json:"signalConfidence" bson:"signal_confidence"`

	Version   string    `json:"version" bson:"version"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
}

// PairedCount returns the number of assessments with both pre and post
func (f *SessionFacts) PairedCount() int {
	n := 0
	for i := range f.Assessments {
		if f.Assessments[i].Paired() {
			n++
		}
	}
	return n
}

// Validate enforces ranges and cardinality before the record leaves the builder
func (f *SessionFacts) Validate() error {
	if f.SessionID == "" || f.ProgramID == "" {
		return fmt.Errorf("session facts missing identifiers")
	}
	if f.MilestoneCompletionPct < 0 || f.MilestoneCompletionPct > 100 {
		return fmt.Errorf("session %s: completion pct %.2f out of range", f.SessionID, f.MilestoneCompletionPct)
	}
	for i := range f.Assessments {
		d := &f.Assessments[i]
		for side, v := range map[string]*int{"pre": d.Pre, "post": d.Post} {
			if v != nil && (*v < ScaleScoreMin || *v > ScaleScoreMax) {
				return fmt.Errorf("session %s: %s %s score %d out of range", f.SessionID, d.Key, side, *v)
			}
		}
		if d.Change != nil && (*d.Change < ScaleScoreMin-ScaleScoreMax || *d.Change > ScaleScoreMax-ScaleScoreMin) {
			return fmt.Errorf("session %s: %s change %d out of range", f.SessionID, d.Key, *d.Change)
		}
	}
	for name, n := range map[string]int{
		"strengths":    len(f.Strengths),
		"improvements": len(f.Improvements),
		"themes":       len(f.Themes),
	} {
		if n > MaxTags {
			return fmt.Errorf("session %s: too many %s (%d)", f.SessionID, name, n)
		}
	}
	if len(f.Reasons) > MaxListItems || len(f.Challenges) > MaxListItems {
		return fmt.Errorf("session %s: reasons/challenges exceed %d items", f.SessionID, MaxListItems)
	}
	if len(f.Quotes) > MaxQuotes {
		return fmt.Errorf("session %s: too many quotes (%d)", f.SessionID, len(f.Quotes))
	}
	return nil
}

// BetterWhen is the registered improvement direction of a scale key
type BetterWhen string

const (
	BetterWhenHigher BetterWhen = "higher"
	BetterWhenLower  BetterWhen = "lower"
)

// CohortAssessment aggregates one scale key across a cohort's paired sessions
type CohortAssessment struct {
	Key         string     `json:"key" bson:"key"`
	Label       string     `json:"label" bson:"label"`
	NPaired     int        `json:"nPaired" bson:"n_paired"`
	AvgPre      float64    `json:"avgPre" bson:"avg_pre"`
	AvgPost     float64    `json:"avgPost" bson:"avg_post"`
	AvgChange   float64    `json:"avgChange" bson:"avg_change"`
	PctImproved float64    `json:"pctImproved" bson:"pct_improved"`
	BetterWhen  BetterWhen `json:"betterWhen" bson:"better_when"`
}

// TagCount is a free-text tag with its cohort frequency
type TagCount struct {
	Tag   string `json:"tag" bson:"tag"`
	Count int    `json:"count" bson:"count"`
}

// ExemplarQuote is a display-selected quote with its source session
type ExemplarQuote struct {
	SessionID string `json:"sessionId" bson:"session_id"`
	Theme     string `json:"theme,omitempty" bson:"theme,omitempty"`
	Text      string `json:"text" bson:"text"`
}

// CohortFacts is the reduction over one program's SessionFacts. Recomputed on
// demand; FactsHash is how callers detect whether recomputation changed
// anything.
type CohortFacts struct {
	ProgramID string `json:"programId" bson:"program_id"`

	NSessions    int `json:"nSessions" bson:"n_sessions"`
	NWithPrePost int `json:"nWithPrePost" bson:"n_with_pre_post"`

	CompletionMean   float64 `json:"completionMean" bson:"completion_mean"`
	CompletionMedian float64 `json:"completionMedian" bson:"completion_median"`

	Assessments []CohortAssessment `json:"assessments" bson:"assessments"`

	TopStrengths    []TagCount `json:"topStrengths" bson:"top_strengths"`
	TopImprovements []TagCount `json:"topImprovements" bson:"top_improvements"`
	TopThemes       []TagCount `json:"topThemes" bson:"top_themes"`
	TopChallenges   []TagCount `json:"topChallenges" bson:"top_challenges"`
	TopReasons      []TagCount `json:"topReasons" bson:"top_reasons"`

	ExemplarQuotes   []ExemplarQuote `json:"exemplarQuotes" bson:"exemplar_quotes"`
	DataQualityNotes []string        `json:"dataQualityNotes" bson:"data_quality_notes"`

	FactsHash   string    `json:"factsHash" bson:"facts_hash"`
	GeneratedAt time.Time `json:"generatedAt" bson:"generated_at"`
}

// Validate enforces cardinality caps on the aggregate
func (c *CohortFacts) Validate() error {
	if c.ProgramID == "" {
		return fmt.Errorf("cohort facts missing program id")
	}
	if c.NWithPrePost > c.NSessions {
		return fmt.Errorf("program %s: nWithPrePost %d exceeds nSessions %d", c.ProgramID, c.NWithPrePost, c.NSessions)
	}
	for name, n := range map[string]int{
		"topStrengths":    len(c.TopStrengths),
		"topImprovements": len(c.TopImprovements),
		"topThemes":       len(c.TopThemes),
		"topChallenges":   len(c.TopChallenges),
		"topReasons":      len(c.TopReasons),
	} {
		if n > MaxTopTags {
			return fmt.Errorf("program %s: %s exceeds %d entries", c.ProgramID, name, MaxTopTags)
		}
	}
	if len(c.ExemplarQuotes) > MaxExemplars {
		return fmt.Errorf("program %s: too many exemplar quotes (%d)", c.ProgramID, len(c.ExemplarQuotes))
	}
	if len(c.DataQualityNotes) > MaxDataNotes {
		return fmt.Errorf("program %s: too many data quality notes (%d)", c.ProgramID, len(c.DataQualityNotes))
	}
	return nil
}
