package validator_test

import (
	"io"
	"testing"

	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/testhelpers"
	"github.com/mirkola/moriarty/internal/validator"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *validator.Validator {
	t.Helper()
	return validator.New(validator.DefaultConfig(), testhelpers.NewLogger(io.Discard))
}

func plainScenario() models.Scenario {
	return models.Scenario{
		Theme:      "murder",
		Setting:    "manor",
		Tone:       "gothic",
		Vocabulary: []string{"candle", "cellar", "letter"},
	}
}

func themedClue(clueType models.ClueType, info int) *models.Clue {
	clue := models.NewClue(clueType, "The candle in the manor", "A candle burned low in the manor cellar.", info)
	return clue
}

func TestValidator_coherencePenalties(t *testing.T) {
	v := newValidator(t)
	vctx := validator.Context{Scenario: plainScenario(), CurrentRound: 1}

	tests := []struct {
		name  string
		setup func(c *models.Clue)
		want  float64
	}{
		{
			name:  "clean clue",
			setup: func(_ *models.Clue) {},
			want:  1.0,
		},
		{
			name: "high information value marked misleading",
			setup: func(c *models.Clue) {
				require.NoError(t, c.SetInformationValue(8))
				c.Reliability = models.ReliabilityMisleading
			},
			want: 0.5,
		},
		{
			name: "easily verified but unreliable",
			setup: func(c *models.Clue) {
				c.Verifiability = models.VerifiabilityEasy
				c.Reliability = models.ReliabilityUnreliable
			},
			want: 0.3,
		},
		{
			name: "heavy misdirection on a non red herring",
			setup: func(c *models.Clue) {
				require.NoError(t, c.SetMisdirectionLevel(8))
			},
			want: 0.4,
		},
		{
			name: "penalties multiply",
			setup: func(c *models.Clue) {
				c.Verifiability = models.VerifiabilityEasy
				c.Reliability = models.ReliabilityUnreliable
				require.NoError(t, c.SetMisdirectionLevel(9))
			},
			want: 0.3 * 0.4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clue := themedClue(models.ClueBehavioral, 5)
			tt.setup(clue)
			result := v.ValidateClue(clue, vctx)
			require.InDelta(t, tt.want, result.CoherenceScore, 1e-9)
		})
	}
}

func TestValidator_numericInvariantsAfterValidation(t *testing.T) {
	v := newValidator(t)
	clues := []*models.Clue{
		themedClue(models.ClueRoleHint, 25),
		themedClue(models.ClueRedHerring, -4),
		themedClue(models.ClueDirectEvidence, 10),
	}
	require.NoError(t, clues[1].SetMisdirectionLevel(99))

	v.ValidateClueSet(clues, plainScenario(), nil, nil)

	for _, clue := range clues {
		require.GreaterOrEqual(t, clue.InformationValue, 1)
		require.LessOrEqual(t, clue.InformationValue, 10)
		require.GreaterOrEqual(t, clue.MisdirectionLevel, 0)
		require.LessOrEqual(t, clue.MisdirectionLevel, 10)
	}
}

func TestValidator_redHerringTargetConflict(t *testing.T) {
	v := newValidator(t)
	players := []*models.Player{
		{ID: "p1", Role: models.Role{Alignment: models.AlignmentTown}, Alive: true},
		{ID: "p2", Role: models.Role{Alignment: models.AlignmentMafia}, Alive: true},
	}

	// Conclusive direct evidence against a mafia member is fine as evidence.
	evidence := themedClue(models.ClueDirectEvidence, 8)
	evidence.PointsToPlayer = "p2"
	evidence.EvidenceStrength = models.EvidenceConclusive
	result := v.ValidateClue(evidence, validator.Context{Scenario: plainScenario(), Players: players})
	require.Empty(t, result.Conflicts)

	// Re-typed as a red herring it must fail red-herring-target validation.
	herring := themedClue(models.ClueRedHerring, 3)
	herring.PointsToPlayer = "p2"
	herring.EvidenceStrength = models.EvidenceConclusive
	result = v.ValidateClue(herring, validator.Context{Scenario: plainScenario(), Players: players})
	require.False(t, result.Valid)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, validator.ConflictRedHerringTarget, result.Conflicts[0].Kind)
}

func TestValidator_temporalImpossibility(t *testing.T) {
	v := newValidator(t)
	clue := themedClue(models.ClueActionEvidence, 5)
	clue.RevealConditions = []models.RevealCondition{models.RoundCondition(7, 0)}

	result := v.ValidateClue(clue, validator.Context{Scenario: plainScenario(), CurrentRound: 3})
	require.False(t, result.Valid)
	require.Len(t, result.Conflicts, 1)
	require.Equal(t, validator.ConflictTemporal, result.Conflicts[0].Kind)

	// Round current+2 is still plausible.
	clue.RevealConditions = []models.RevealCondition{models.RoundCondition(5, 0)}
	result = v.ValidateClue(clue, validator.Context{Scenario: plainScenario(), CurrentRound: 3})
	require.Empty(t, result.Conflicts)
}

func TestValidator_pairwiseConflicts(t *testing.T) {
	v := newValidator(t)

	redundantA := themedClue(models.ClueRoleHint, 5)
	redundantA.TargetPlayers = []string{"p3"}
	redundantB := themedClue(models.ClueRoleHint, 6)
	redundantB.TargetPlayers = []string{"p3"}

	analysis := v.ValidateClueSet([]*models.Clue{redundantA, redundantB}, plainScenario(), nil, nil)
	require.False(t, analysis.Valid)
	require.NotEmpty(t, analysis.PairwiseConflicts)
	require.Equal(t, validator.ConflictRedundancy, analysis.PairwiseConflicts[0].Kind)

	guilt := themedClue(models.ClueDirectEvidence, 7)
	guilt.PointsToPlayer = "p4"
	innocence := themedClue(models.ClueRedHerring, 3)
	innocence.PointsToPlayer = "p4"

	analysis = v.ValidateClueSet([]*models.Clue{guilt, innocence}, plainScenario(), nil, nil)
	require.False(t, analysis.Valid)
	require.Equal(t, validator.ConflictContradiction, analysis.PairwiseConflicts[0].Kind)
	// Contradictions recommend removal with top priority.
	require.NotEmpty(t, analysis.Adjustments)
	require.Equal(t, validator.AdjustRemove, analysis.Adjustments[0].Kind)
}

func TestValidator_balanceBound(t *testing.T) {
	v := newValidator(t)
	cfg := validator.DefaultConfig()

	clues := []*models.Clue{
		themedClue(models.ClueRoleHint, 6),
		themedClue(models.ClueBehavioral, 4),
		themedClue(models.ClueRedHerring, 2),
	}
	analysis := v.ValidateClueSet(clues, plainScenario(), nil, nil)
	if analysis.Valid {
		require.LessOrEqual(t, analysis.MaxInformationAdvantage, cfg.Tolerances.MaxInformationAdvantage)
	}

	// Stacking maximal evidence clues must exceed the advantage tolerance and
	// produce information-value adjustments.
	var stacked []*models.Clue
	for i := 0; i < 4; i++ {
		clue := themedClue(models.ClueDirectEvidence, 10)
		clue.TargetPlayers = []string{string(rune('a' + i))}
		stacked = append(stacked, clue)
	}
	analysis = v.ValidateClueSet(stacked, plainScenario(), nil, nil)
	require.False(t, analysis.Valid)
	require.Greater(t, analysis.MaxInformationAdvantage, cfg.Tolerances.MaxInformationAdvantage)

	found := false
	for _, adj := range analysis.Adjustments {
		if adj.Kind == validator.AdjustInformationValue {
			found = true
		}
	}
	require.True(t, found, "expected an information value adjustment")
}

func TestValidator_BalanceCluesForPlayers(t *testing.T) {
	v := newValidator(t)

	strongPlayers := []*models.Player{
		{ID: "p1", Alive: true, Actions: 8, Communications: 4},
		{ID: "p2", Alive: true, Actions: 7, Communications: 5},
	}
	weakPlayers := []*models.Player{
		{ID: "p1", Alive: true, Actions: 1, Communications: 0},
		{ID: "p2", Alive: true, Actions: 0, Communications: 1},
	}
	state := &models.GameContext{Round: 2}

	t.Run("strong players get harder clues and subtler herrings", func(t *testing.T) {
		clue := themedClue(models.ClueBehavioral, 4)
		herring := themedClue(models.ClueRedHerring, 2)
		require.NoError(t, herring.SetMisdirectionLevel(8))

		v.BalanceCluesForPlayers([]*models.Clue{clue, herring}, strongPlayers, state)

		require.Equal(t, models.DifficultyHard, clue.Difficulty)
		require.Greater(t, clue.InformationValue, 4)
		require.Less(t, herring.MisdirectionLevel, 8)
	})

	t.Run("struggling players get easier clues", func(t *testing.T) {
		clue := themedClue(models.ClueBehavioral, 6)
		v.BalanceCluesForPlayers([]*models.Clue{clue}, weakPlayers, state)
		require.Equal(t, models.DifficultyEasy, clue.Difficulty)
		require.Less(t, clue.InformationValue, 6)
	})
}

func TestValidator_OptimizeInformationFlow(t *testing.T) {
	v := newValidator(t)
	const expectedLength = 8

	highValue := themedClue(models.ClueAlignmentHint, 9)
	herring := themedClue(models.ClueRedHerring, 2)
	evidence := themedClue(models.ClueInvestigationResult, 5)
	baseline := themedClue(models.ClueSocial, 5)

	v.OptimizeInformationFlow([]*models.Clue{highValue, herring, evidence, baseline},
		plainScenario(), 2, expectedLength)

	round := func(c *models.Clue) int {
		require.Len(t, c.RevealConditions, 1)
		require.Equal(t, models.ConditionRoundNumber, c.RevealConditions[0].Kind)
		n, ok := validator.ParseRoundOperand(c.RevealConditions[0].Condition)
		require.True(t, ok)
		return n
	}

	require.Equal(t, expectedLength/2, round(baseline), "baseline is mid-game")
	require.Greater(t, round(highValue), round(baseline), "high value clues land later")
	require.Less(t, round(herring), round(baseline), "red herrings land earlier")
	require.LessOrEqual(t, round(evidence), round(baseline), "investigation evidence is pulled toward the current round")
	require.GreaterOrEqual(t, round(evidence), 2)
}
