package reveal_test

import (
	"testing"
	"time"

	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/random"
	"github.com/mirkola/moriarty/internal/reveal"
	"github.com/stretchr/testify/require"
)

func TestEvaluateCondition_roundNumber(t *testing.T) {
	always := random.FixedRoller(0)
	cond := models.RevealCondition{Kind: models.ConditionRoundNumber, Condition: "round >= 3"}

	tests := []struct {
		name  string
		round int
		want  bool
	}{
		{name: "below", round: 2, want: false},
		{name: "at boundary", round: 3, want: true},
		{name: "above", round: 4, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &models.GameContext{Round: tt.round}
			require.Equal(t, tt.want, reveal.EvaluateCondition(cond, state, always))
		})
	}
}

func TestEvaluateCondition_comparators(t *testing.T) {
	always := random.FixedRoller(0)
	tests := []struct {
		expr  string
		round int
		want  bool
	}{
		{expr: "round > 2", round: 2, want: false},
		{expr: "round > 2", round: 3, want: true},
		{expr: "round <= 2", round: 2, want: true},
		{expr: "round < 2", round: 2, want: false},
		{expr: "round = 2", round: 2, want: true},
		{expr: "round == 2", round: 3, want: false},
		{expr: "round>=4", round: 4, want: true}, // compact form
		{expr: "gibberish", round: 4, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			cond := models.RevealCondition{Kind: models.ConditionRoundNumber, Condition: tt.expr}
			state := &models.GameContext{Round: tt.round}
			require.Equal(t, tt.want, reveal.EvaluateCondition(cond, state, always))
		})
	}
}

func TestEvaluateCondition_playerEliminated(t *testing.T) {
	always := random.FixedRoller(0)
	cond := models.RevealCondition{Kind: models.ConditionPlayerEliminated, Condition: "eliminated >= 2"}

	state := &models.GameContext{EliminatedPlayers: []string{"p1"}}
	require.False(t, reveal.EvaluateCondition(cond, state, always))

	state.EliminatedPlayers = append(state.EliminatedPlayers, "p2")
	require.True(t, reveal.EvaluateCondition(cond, state, always))
}

func TestEvaluateCondition_abilityUsed(t *testing.T) {
	always := random.FixedRoller(0)
	state := &models.GameContext{
		EventLog: []models.GameEvent{
			{Kind: models.EventPhaseChange, Description: "night falls"},
			{Kind: models.EventAbilityUsed, Description: "the Seer peers into the dark"},
		},
	}

	cond := models.RevealCondition{Kind: models.ConditionAbilityUsed, Condition: "seer"}
	require.True(t, reveal.EvaluateCondition(cond, state, always))

	cond.Condition = "doctor"
	require.False(t, reveal.EvaluateCondition(cond, state, always))
}

func TestEvaluateCondition_votePattern(t *testing.T) {
	always := random.FixedRoller(0)

	tests := []struct {
		name      string
		condition string
		vote      models.VoteRecord
		want      bool
	}{
		{
			name:      "unanimous",
			condition: "unanimous",
			vote:      models.VoteRecord{Votes: map[string]string{"a": "x", "b": "x"}},
			want:      true,
		},
		{
			name:      "tie",
			condition: "tie",
			vote:      models.VoteRecord{Votes: map[string]string{"a": "x", "b": "y"}},
			want:      true,
		},
		{
			name:      "no_lynch",
			condition: "no_lynch",
			vote:      models.VoteRecord{NoLynch: true},
			want:      true,
		},
		{
			name:      "unknown predicate",
			condition: "landslide",
			vote:      models.VoteRecord{Votes: map[string]string{"a": "x"}},
			want:      false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &models.GameContext{VotingHistory: []models.VoteRecord{tt.vote}}
			cond := models.RevealCondition{Kind: models.ConditionVotePattern, Condition: tt.condition}
			require.Equal(t, tt.want, reveal.EvaluateCondition(cond, state, always))
		})
	}

	// No voting history means no pattern can hold.
	cond := models.RevealCondition{Kind: models.ConditionVotePattern, Condition: "tie"}
	require.False(t, reveal.EvaluateCondition(cond, &models.GameContext{}, always))
}

func TestEvaluateCondition_randomGating(t *testing.T) {
	cond := models.RevealCondition{Kind: models.ConditionRandom, Probability: 0.5}
	state := &models.GameContext{}

	require.True(t, reveal.EvaluateCondition(cond, state, random.FixedRoller(0.4)))
	require.False(t, reveal.EvaluateCondition(cond, state, random.FixedRoller(0.6)))
}

func TestCheckRevealConditions(t *testing.T) {
	always := random.FixedRoller(0)
	state := &models.GameContext{Round: 2}

	t.Run("empty condition list is always revealable", func(t *testing.T) {
		clue := models.NewClue(models.ClueSocial, "t", "c", 3)
		require.True(t, reveal.CheckRevealConditions(clue, state, always))
	})

	t.Run("revealed clue never qualifies", func(t *testing.T) {
		clue := models.NewClue(models.ClueSocial, "t", "c", 3)
		require.NoError(t, clue.MarkRevealed("p1", time.Now()))
		require.False(t, reveal.CheckRevealConditions(clue, state, always))
	})

	t.Run("conditions are OR'd", func(t *testing.T) {
		clue := models.NewClue(models.ClueSocial, "t", "c", 3)
		clue.RevealConditions = []models.RevealCondition{
			{Kind: models.ConditionRoundNumber, Condition: "round >= 5"},
			{Kind: models.ConditionPlayerEliminated, Condition: "eliminated >= 0"},
		}
		require.True(t, reveal.CheckRevealConditions(clue, state, always))

		clue.RevealConditions = clue.RevealConditions[:1]
		require.False(t, reveal.CheckRevealConditions(clue, state, always))
	})
}
