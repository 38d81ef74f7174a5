package models

import "time"

// Option tag vocabularies. Tags classify the narrative lean of a branching
// choice so choice history can feed preference analysis later.
const (
	// Action tendency
	ActionActive       = "active"
	ActionConservative = "conservative"
	ActionRisky        = "risky"
	ActionDiplomatic   = "diplomatic"
	ActionAggressive   = "aggressive"

	// Narrative impact
	ImpactExploration   = "exploration"
	ImpactDevelopment   = "development"
	ImpactResolution    = "resolution"
	ImpactRelationship  = "relationship"
	ImpactWorldbuilding = "worldbuilding"

	// Pacing
	PacingSlow   = "slow"
	PacingMedium = "medium"
	PacingFast   = "fast"
)

// OptionTags classifies a single branching option across five axes.
// Values outside the vocabularies above are tolerated on read (the model
// occasionally invents labels) and filtered by preference analysis, not here.
type OptionTags struct {
	ActionType      string `json:"action_type"`
	NarrativeImpact string `json:"narrative_impact"`
	CharacterFocus  string `json:"character_focus"`
	Pacing          string `json:"pacing"`
	EmotionalTone   string `json:"emotional_tone"`
}

// OptionWeightFactors are per-option preference weights, each in [0,1].
type OptionWeightFactors struct {
	RiskPreference    float64 `json:"risk_preference"`
	ExplorationDesire float64 `json:"exploration_desire"`
	PacingPreference  float64 `json:"pacing_preference"`
	RelationshipFocus float64 `json:"relationship_focus"`
	ActionOrientation float64 `json:"action_orientation"`
}

// Option is one branching choice attached to a completed chapter.
// Options only exist for completed chapters; they are written atomically with
// the final content.
type Option struct {
	ID            string               `json:"id"`
	ChapterID     string               `json:"chapter_id"`
	OptionOrder   int                  `json:"option_order"`
	OptionText    string               `json:"option_text"`
	ImpactHint    string               `json:"impact_hint"`
	Tags          *OptionTags          `json:"tags,omitempty"`
	WeightFactors *OptionWeightFactors `json:"weight_factors,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// UserChoice records which option a user picked for a chapter.
type UserChoice struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ChapterID string    `json:"chapter_id"`
	OptionID  string    `json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}
