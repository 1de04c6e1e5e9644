package models

import "time"

// InvestigationMethod is the closed set of ways a player can investigate a
// target.
type InvestigationMethod string

const (
	MethodDirectQuestioning       InvestigationMethod = "direct_questioning"
	MethodBehavioralObservation   InvestigationMethod = "behavioral_observation"
	MethodVotingPatternAnalysis   InvestigationMethod = "voting_pattern_analysis"
	MethodPsychologicalProfiling  InvestigationMethod = "psychological_profiling"
	MethodCommunicationMonitoring InvestigationMethod = "communication_monitoring"
	MethodForensicAnalysis        InvestigationMethod = "forensic_analysis"
	MethodAllianceAnalysis        InvestigationMethod = "alliance_analysis"
	MethodRoleAbilityUsage        InvestigationMethod = "role_ability_usage"
)

// AllInvestigationMethods lists the methods in a stable order.
func AllInvestigationMethods() []InvestigationMethod {
	return []InvestigationMethod{
		MethodDirectQuestioning,
		MethodBehavioralObservation,
		MethodVotingPatternAnalysis,
		MethodPsychologicalProfiling,
		MethodCommunicationMonitoring,
		MethodForensicAnalysis,
		MethodAllianceAnalysis,
		MethodRoleAbilityUsage,
	}
}

// Finding is one observation produced by an investigation.
type Finding struct {
	Type         string   `json:"type"`
	Text         string   `json:"text"`
	Confidence   float64  `json:"confidence"` // in [0, 1]
	Verifiable   bool     `json:"verifiable"`
	Implications []string `json:"implications,omitempty"`
}

// InvestigationCost describes what an investigation method costs and risks.
type InvestigationCost struct {
	ActionPoints   int      `json:"action_points"`
	ExposureChance float64  `json:"exposure_chance"`
	Consequences   []string `json:"consequences,omitempty"`
	Mitigation     string   `json:"mitigation,omitempty"`
}

// InvestigationResult is the immutable record of one investigation attempt.
type InvestigationResult struct {
	ID             string              `json:"id"`
	InvestigatorID string              `json:"investigator_id"`
	TargetID       string              `json:"target_id"`
	Method         InvestigationMethod `json:"method"`
	Findings       []Finding           `json:"findings"`
	Reliability    float64             `json:"reliability"` // in [0.1, 0.95]
	Cost           InvestigationCost   `json:"cost"`
	Success        bool                `json:"success"`
	Clue           *Clue               `json:"clue,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// InvestigationOption is one (method, target) pair a player may act on.
type InvestigationOption struct {
	Method         InvestigationMethod `json:"method"`
	TargetID       string              `json:"target_id"`
	Cost           InvestigationCost   `json:"cost"`
	CooldownRounds int                 `json:"cooldown_rounds"`
}
