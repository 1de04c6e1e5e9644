package models

import (
	"fmt"
	"log/slog"
)

// ConditionKind is the closed set of reveal trigger kinds.
type ConditionKind string

const (
	ConditionRoundNumber      ConditionKind = "round_number"
	ConditionPlayerEliminated ConditionKind = "player_eliminated"
	ConditionAbilityUsed      ConditionKind = "ability_used"
	ConditionVotePattern      ConditionKind = "vote_pattern"
	ConditionRandom           ConditionKind = "random"
)

func (k ConditionKind) Valid() bool {
	switch k {
	case ConditionRoundNumber, ConditionPlayerEliminated, ConditionAbilityUsed,
		ConditionVotePattern, ConditionRandom:
		return true
	}
	return false
}

// DefaultRandomProbability gates random conditions that carry no explicit
// probability.
const DefaultRandomProbability = 0.5

// RevealCondition is a declarative trigger for revealing a clue.
//
// Condition is a small expression whose grammar depends on Kind:
// round_number and player_eliminated parse a comparator and an integer
// ("round >= 3", "eliminated > 1"); ability_used matches against event log
// descriptions; vote_pattern names one of unanimous, tie, or no_lynch; random
// ignores the string and rolls against Probability.
//
// Probability gates the condition individually. Zero means "always" for
// deterministic kinds and DefaultRandomProbability for random conditions.
type RevealCondition struct {
	Kind        ConditionKind `json:"kind" yaml:"kind"`
	Condition   string        `json:"condition,omitempty" yaml:"condition,omitempty"`
	Probability float64       `json:"probability,omitempty" yaml:"probability,omitempty"`
}

// EffectiveProbability resolves the gate probability for the condition.
func (c RevealCondition) EffectiveProbability() float64 {
	if c.Probability > 0 {
		return c.Probability
	}
	if c.Kind == ConditionRandom {
		return DefaultRandomProbability
	}
	return 1
}

// RoundCondition builds a round-number condition that fires at or after the
// given round with the given probability.
func RoundCondition(round int, probability float64) RevealCondition {
	return RevealCondition{
		Kind:        ConditionRoundNumber,
		Condition:   roundExpr(round),
		Probability: probability,
	}
}

func roundExpr(round int) string {
	return fmt.Sprintf("round >= %d", round)
}

func clueAttr(id string) slog.Attr {
	return slog.String("clue_id", id)
}
