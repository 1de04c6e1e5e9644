package validator

// Tolerances bound the balance impact a clue or clue set may have before it is
// rejected or flagged for adjustment.
type Tolerances struct {
	// MaxInformationAdvantage caps the absolute per-faction information
	// advantage of a validated set.
	MaxInformationAdvantage float64 `env:"MAX_INFORMATION_ADVANTAGE" envDefault:"3.0"`
	// MaxDifficultyIncrease caps how much a single clue may raise the
	// effective difficulty of the set, on the normalized [0, 1] tier scale.
	MaxDifficultyIncrease float64 `env:"MAX_DIFFICULTY_INCREASE" envDefault:"0.5"`
	// MaxStrategicComplexity caps the normalized relation/condition load of a
	// single clue.
	MaxStrategicComplexity float64 `env:"MAX_STRATEGIC_COMPLEXITY" envDefault:"0.8"`
	// MinWinProbabilityShift and MaxWinProbabilityShift bound the estimated
	// per-faction win probability shift of a single clue.
	MinWinProbabilityShift float64 `env:"MIN_WIN_PROBABILITY_SHIFT" envDefault:"-0.15"`
	MaxWinProbabilityShift float64 `env:"MAX_WIN_PROBABILITY_SHIFT" envDefault:"0.15"`
}

// Config carries the validator thresholds.
type Config struct {
	// CoherenceThreshold is the minimum coherence score for a valid clue.
	CoherenceThreshold float64 `env:"COHERENCE_THRESHOLD" envDefault:"0.5"`
	// ThematicThreshold is the minimum thematic alignment for a valid clue.
	ThematicThreshold float64 `env:"THEMATIC_THRESHOLD" envDefault:"0.25"`
	Tolerances        Tolerances
}

// DefaultConfig returns the tuning defaults used when no configuration is
// supplied.
func DefaultConfig() Config {
	return Config{
		CoherenceThreshold: 0.5,
		ThematicThreshold:  0.25,
		Tolerances: Tolerances{
			MaxInformationAdvantage: 3.0,
			MaxDifficultyIncrease:   0.5,
			MaxStrategicComplexity:  0.8,
			MinWinProbabilityShift:  -0.15,
			MaxWinProbabilityShift:  0.15,
		},
	}
}
