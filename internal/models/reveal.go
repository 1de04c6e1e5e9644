package models

import "time"

// RevealMethod is how a clue reached its audience.
type RevealMethod string

const (
	RevealByInvestigation  RevealMethod = "investigation"
	RevealAutomatic        RevealMethod = "automatic"
	RevealByDeath          RevealMethod = "death"
	RevealByVotePattern    RevealMethod = "vote_pattern"
	RevealBySpecialAbility RevealMethod = "special_ability"
)

// AudienceKind scopes who sees a reveal.
type AudienceKind string

const (
	AudiencePlayer AudienceKind = "player"
	AudienceTeam   AudienceKind = "team"
	AudienceAll    AudienceKind = "all"
)

// Audience is the set of players a reveal is shown to.
type Audience struct {
	Kind      AudienceKind `json:"kind"`
	PlayerIDs []string     `json:"player_ids,omitempty"`
}

// Everyone is the broadcast audience.
func Everyone() Audience {
	return Audience{Kind: AudienceAll}
}

// StrategicValue tiers how much a reveal changes the game.
type StrategicValue string

const (
	StrategicCritical StrategicValue = "critical"
	StrategicHigh     StrategicValue = "high"
	StrategicModerate StrategicValue = "moderate"
	StrategicLow      StrategicValue = "low"
)

// Impact is the computed gameplay effect of a reveal.
type Impact struct {
	// SuspicionDeltas shifts per-player suspicion; misleading clues apply
	// dampened or negative deltas.
	SuspicionDeltas map[string]float64 `json:"suspicion_deltas,omitempty"`
	// NewTargets are players the reveal makes worth investigating.
	NewTargets     []string       `json:"new_targets,omitempty"`
	StrategicValue StrategicValue `json:"strategic_value"`
	NarrativeNotes string         `json:"narrative_notes,omitempty"`
	// UnlocksClues are related clues scheduled by chain propagation.
	UnlocksClues []string `json:"unlocks_clues,omitempty"`
}

// Reveal is the immutable record of a clue being shown to an audience.
type Reveal struct {
	ID          string       `json:"id"`
	ClueID      string       `json:"clue_id"`
	GameID      string       `json:"game_id"`
	Audience    Audience     `json:"audience"`
	TriggeredBy string       `json:"triggered_by,omitempty"`
	Method      RevealMethod `json:"method"`
	Timestamp   time.Time    `json:"timestamp"`
	Narrative   string       `json:"narrative"`
	Impact      Impact       `json:"impact"`
}

// GameClueSet is the balanced clue set handed back to the game engine.
type GameClueSet struct {
	GameID   string            `json:"game_id"`
	Clues    []*Clue           `json:"clues"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ClueByID returns the clue with the given id, or nil.
func (s *GameClueSet) ClueByID(id string) *Clue {
	for _, c := range s.Clues {
		if c.ID == id {
			return c
		}
	}
	return nil
}
