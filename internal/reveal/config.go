package reveal

import "github.com/mirkola/moriarty/internal/models"

// Config carries the scheduler's tuning values. The probabilities and the
// complementary-type table are heuristic game-balance parameters, kept
// configurable rather than baked in.
type Config struct {
	// TensionThreshold gates the atmospheric pass; tension is
	// 0.6*eliminationRatio + 0.4*roundProgress.
	TensionThreshold float64 `env:"TENSION_THRESHOLD" envDefault:"0.7"`
	// AtmosphericProbability is the roll an atmospheric bonus reveal must
	// pass once tension clears the threshold.
	AtmosphericProbability float64 `env:"ATMOSPHERIC_PROBABILITY" envDefault:"0.3"`
	// ChainProbability is attached to round conditions created by chain
	// propagation.
	ChainProbability float64 `env:"CHAIN_PROBABILITY" envDefault:"0.8"`
	// FollowUpProbability is attached to the follow-up atmospheric clue
	// scheduled after a critical reveal.
	FollowUpProbability float64 `env:"FOLLOWUP_PROBABILITY" envDefault:"0.6"`
	// ComplementaryTypes is the fixed pair list driving chain propagation.
	ComplementaryTypes map[models.ClueType]models.ClueType
}

// DefaultConfig returns the tuning defaults.
func DefaultConfig() Config {
	return Config{
		TensionThreshold:       0.7,
		AtmosphericProbability: 0.3,
		ChainProbability:       0.8,
		FollowUpProbability:    0.6,
		ComplementaryTypes:     DefaultComplementaryTypes(),
	}
}

// DefaultComplementaryTypes returns the symmetric complementary-pair table:
// role hints pair with behavioral clues, action evidence with relationships,
// environmental clues with red herrings.
func DefaultComplementaryTypes() map[models.ClueType]models.ClueType {
	return map[models.ClueType]models.ClueType{
		models.ClueRoleHint:       models.ClueBehavioral,
		models.ClueBehavioral:     models.ClueRoleHint,
		models.ClueActionEvidence: models.ClueRelationship,
		models.ClueRelationship:   models.ClueActionEvidence,
		models.ClueEnvironmental:  models.ClueRedHerring,
		models.ClueRedHerring:     models.ClueEnvironmental,
	}
}

// complementary reports whether revealing a clue of type a should pull a
// related clue of type b into the schedule.
func (c Config) complementary(a, b models.ClueType) bool {
	return c.ComplementaryTypes[a] == b
}
