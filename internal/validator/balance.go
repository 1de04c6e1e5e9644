package validator

import (
	"log/slog"
	"math"

	"github.com/mirkola/moriarty/internal/models"
)

// expectedActivityPerRound is the activity level (actions plus communications
// per round) treated as a neutral performance signal of 1.0.
const expectedActivityPerRound = 3.0

// PerformanceSignal derives a normalized measure of how well the players are
// doing from their activity counters. 1.0 is the expected baseline; above it
// players are outpacing the game.
func PerformanceSignal(players []*models.Player, state *models.GameContext) float64 {
	if len(players) == 0 {
		return 1
	}
	rounds := 1
	if state != nil && state.Round > 1 {
		rounds = state.Round
	}

	total := 0.0
	for _, p := range players {
		total += float64(p.Actions + p.Communications)
	}
	mean := total / float64(len(players))
	return mean / (expectedActivityPerRound * float64(rounds))
}

// BalanceCluesForPlayers adapts the set to measured player performance.
// Strong players (signal above 1.1) get harder clues with scaled-up
// information value and subtler red herrings; struggling players get the
// inverse. The input slice is mutated and returned.
func (v *Validator) BalanceCluesForPlayers(
	clues []*models.Clue,
	players []*models.Player,
	state *models.GameContext,
) []*models.Clue {
	signal := PerformanceSignal(players, state)
	multiplier := clampFloat(signal, 0.5, 1.5)

	v.logger.Debug("balancing clues for players",
		slog.Float64("signal", signal), slog.Float64("multiplier", multiplier))

	for _, clue := range clues {
		if clue.IsRevealed() {
			continue
		}

		switch {
		case multiplier > 1.1:
			clue.Difficulty = clue.Difficulty.Harder()
			scaled := int(math.Round(float64(clue.InformationValue) * multiplier))
			if err := clue.SetInformationValue(scaled); err != nil {
				continue
			}
		case multiplier < 0.9:
			clue.Difficulty = clue.Difficulty.Easier()
			scaled := int(math.Round(float64(clue.InformationValue) * multiplier))
			if err := clue.SetInformationValue(scaled); err != nil {
				continue
			}
		}

		// Red-herring misdirection scales inversely: the stronger the
		// players, the subtler the misdirection has to be.
		if clue.Type == models.ClueRedHerring {
			scaled := int(math.Round(float64(clue.MisdirectionLevel) / multiplier))
			_ = clue.SetMisdirectionLevel(scaled)
		}
	}

	return clues
}

// OptimizeInformationFlow computes each clue's optimal reveal round and
// replaces its round-number conditions with a matching one. The baseline is
// mid-game, shifted later for high-value clues, earlier for red herrings, and
// pulled toward the current round for investigation-triggered evidence.
func (v *Validator) OptimizeInformationFlow(
	clues []*models.Clue,
	scenario models.Scenario,
	currentRound int,
	expectedLength int,
) []*models.Clue {
	if expectedLength < 2 {
		expectedLength = 2
	}

	for _, clue := range clues {
		if clue.IsRevealed() {
			continue
		}

		optimal := optimalRevealRound(clue, currentRound, expectedLength)
		clue.RevealConditions = replaceRoundConditions(clue.RevealConditions, models.RoundCondition(optimal, 0))

		v.logger.Debug("planned reveal round",
			slog.String("clue_id", clue.ID),
			slog.String("type", string(clue.Type)),
			slog.Int("round", optimal))
	}
	return clues
}

func optimalRevealRound(clue *models.Clue, currentRound, expectedLength int) int {
	optimal := expectedLength / 2

	quarter := expectedLength / 4
	if quarter < 1 {
		quarter = 1
	}

	switch {
	case clue.Type == models.ClueRedHerring:
		// Red herrings only work while suspicion is still forming.
		optimal -= quarter
	case clue.InformationValue >= 8:
		// High-value clues land late so they decide rather than spoil.
		optimal += quarter
	}

	// Investigation-produced evidence belongs near the round it surfaced in.
	if clue.Type == models.ClueInvestigationResult || clue.Type == models.ClueDirectEvidence {
		optimal = (optimal + currentRound) / 2
		if optimal < currentRound {
			optimal = currentRound
		}
	}

	if optimal < 1 {
		optimal = 1
	}
	if optimal > expectedLength {
		optimal = expectedLength
	}
	return optimal
}

// replaceRoundConditions swaps out round-number conditions for the given one,
// keeping conditions of other kinds intact.
func replaceRoundConditions(conds []models.RevealCondition, round models.RevealCondition) []models.RevealCondition {
	kept := conds[:0]
	for _, cond := range conds {
		if cond.Kind != models.ConditionRoundNumber {
			kept = append(kept, cond)
		}
	}
	return append(kept, round)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
