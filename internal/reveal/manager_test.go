package reveal_test

import (
	"context"
	"io"
	"testing"

	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/random"
	"github.com/mirkola/moriarty/internal/reveal"
	"github.com/mirkola/moriarty/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

// newManager builds a Manager with a forced-open probability gate and no
// persistence.
func newManager(t *testing.T, roller random.Roller) *reveal.Manager {
	t.Helper()
	if roller == nil {
		roller = random.FixedRoller(0)
	}
	return reveal.NewManager(reveal.DefaultConfig(), nil, nil, roller, testhelpers.NewLogger(io.Discard))
}

func gameState(gameID string, round int) *models.GameContext {
	return &models.GameContext{
		GameID:         gameID,
		Round:          round,
		ExpectedLength: 8,
		Players: []*models.Player{
			{ID: "p1", Alive: true}, {ID: "p2", Alive: true},
			{ID: "p3", Alive: true}, {ID: "p4", Alive: true},
		},
		AlivePlayers: []string{"p1", "p2", "p3", "p4"},
		Scenario:     models.Scenario{Theme: "murder", Setting: "manor", Tone: "gothic"},
	}
}

func TestManager_RevealClue_idempotent(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 3)

	clue := models.NewClue(models.ClueBehavioral, "Nervous hands", "Someone's hands shake at dusk.", 5)
	clue.TargetPlayers = []string{"p2"}
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{clue}))

	first, err := m.RevealClue(ctx, clue.ID, "g1", "p1", state)
	require.NoError(t, err)
	require.Equal(t, clue.ID, first.ClueID)
	require.Equal(t, models.RevealByInvestigation, first.Method)
	require.NotEmpty(t, first.Narrative)
	require.Contains(t, first.Impact.SuspicionDeltas, "p2")

	// The second attempt must fail without producing a second record.
	_, err = m.RevealClue(ctx, clue.ID, "g1", "p1", state)
	require.ErrorIs(t, err, models.ErrAlreadyRevealed)
}

func TestManager_RevealClue_preconditions(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 1)

	clue := models.NewClue(models.ClueRoleHint, "t", "c", 5)
	clue.RevealConditions = []models.RevealCondition{models.RoundCondition(5, 0)}
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{clue}))

	// No override actor and conditions unmet: typed precondition failure.
	_, err := m.RevealClue(ctx, clue.ID, "g1", "", state)
	require.ErrorIs(t, err, reveal.ErrConditionsNotMet)

	// An override actor bypasses the conditions.
	_, err = m.RevealClue(ctx, clue.ID, "g1", "p1", state)
	require.NoError(t, err)

	// Unknown ids surface as typed not-found failures.
	_, err = m.RevealClue(ctx, "nonexistent", "g1", "p1", state)
	require.ErrorIs(t, err, reveal.ErrClueNotFound)
	_, err = m.RevealClue(ctx, clue.ID, "nonexistent", "p1", state)
	require.ErrorIs(t, err, reveal.ErrGameNotFound)
}

func TestManager_chainPropagation(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 4)

	related := models.NewClue(models.ClueBehavioral, "Pacing at night", "Footsteps overhead after midnight.", 4)
	origin := models.NewClue(models.ClueRoleHint, "A doctor's bag", "A worn leather bag smells of antiseptic.", 6)
	origin.RelatedClues = []string{related.ID}
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{origin, related}))

	rev, err := m.RevealClue(ctx, origin.ID, "g1", "p1", state)
	require.NoError(t, err)
	require.Equal(t, []string{related.ID}, rev.Impact.UnlocksClues)

	// The related behavioral clue is scheduled with an 0.8-probability
	// round-number condition at the current round.
	require.Len(t, related.RevealConditions, 1)
	cond := related.RevealConditions[0]
	require.Equal(t, models.ConditionRoundNumber, cond.Kind)
	require.Equal(t, "round >= 4", cond.Condition)
	require.InDelta(t, 0.8, cond.Probability, 1e-9)
	require.Equal(t, 1, m.PendingCount("g1"))
}

func TestManager_chainPropagation_cycleGuard(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 2)

	// a and b reference each other; the traversal must terminate.
	a := models.NewClue(models.ClueRoleHint, "a", "content a", 5)
	b := models.NewClue(models.ClueBehavioral, "b", "content b", 5)
	a.RelatedClues = []string{b.ID}
	b.RelatedClues = []string{a.ID}
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{a, b}))

	rev, err := m.RevealClue(ctx, a.ID, "g1", "p1", state)
	require.NoError(t, err)
	require.Equal(t, []string{b.ID}, rev.Impact.UnlocksClues)
}

func TestManager_chainPropagation_skipsNonComplementary(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 2)

	related := models.NewClue(models.ClueSocial, "gossip", "Whispers travel.", 3)
	origin := models.NewClue(models.ClueRoleHint, "hint", "A hint.", 5)
	origin.RelatedClues = []string{related.ID}
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{origin, related}))

	rev, err := m.RevealClue(ctx, origin.ID, "g1", "p1", state)
	require.NoError(t, err)
	require.Empty(t, rev.Impact.UnlocksClues)
	require.Zero(t, m.PendingCount("g1"))
}

func TestManager_ProcessAutomaticReveals(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 3)

	ready := models.NewClue(models.ClueActionEvidence, "Muddy boots", "Boots caked in fresh mud.", 6)
	notYet := models.NewClue(models.ClueAlignmentHint, "Letters", "A coded letter.", 7)
	require.NoError(t, m.ScheduleReveal(ctx, ready, "g1",
		[]models.RevealCondition{models.RoundCondition(3, 0)}))
	require.NoError(t, m.ScheduleReveal(ctx, notYet, "g1",
		[]models.RevealCondition{models.RoundCondition(6, 0)}))

	reveals, err := m.ProcessAutomaticReveals(ctx, state)
	require.NoError(t, err)
	require.Len(t, reveals, 1)
	require.Equal(t, ready.ID, reveals[0].ClueID)
	require.Equal(t, models.RevealAutomatic, reveals[0].Method)
	require.True(t, ready.IsRevealed())
	require.False(t, notYet.IsRevealed())
	require.Equal(t, 1, m.PendingCount("g1"), "unmet entry stays pending")

	// Draining again reveals nothing new.
	reveals, err = m.ProcessAutomaticReveals(ctx, state)
	require.NoError(t, err)
	require.Empty(t, reveals)
}

func TestManager_ProcessAutomaticReveals_priorityOrder(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 5)

	low := models.NewClue(models.ClueRedHerring, "bait", "A planted note.", 3)
	high := models.NewClue(models.ClueDirectEvidence, "proof", "Undeniable proof.", 9)
	mid := models.NewClue(models.ClueBehavioral, "habit", "A telling habit.", 5)

	for _, clue := range []*models.Clue{low, high, mid} {
		require.NoError(t, m.ScheduleReveal(ctx, clue, "g1",
			[]models.RevealCondition{models.RoundCondition(1, 0)}))
	}

	reveals, err := m.ProcessAutomaticReveals(ctx, state)
	require.NoError(t, err)
	require.Len(t, reveals, 3)
	require.Equal(t, high.ID, reveals[0].ClueID, "information value 9 (+3 boost) drains first")
	require.Equal(t, mid.ID, reveals[1].ClueID)
	require.Equal(t, low.ID, reveals[2].ClueID, "red herring penalty drains last")
}

func TestManager_ProcessAutomaticReveals_methodTracksCondition(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)

	state := gameState("g1", 4)
	state.EliminatedPlayers = []string{"p4"}
	state.EventLog = []models.GameEvent{
		{Kind: models.EventAbilityUsed, Round: 4, ActorID: "p2", Description: "a locked door forced open"},
	}
	state.VotingHistory = []models.VoteRecord{{
		Round: 4,
		Votes: map[string]string{"p1": "p4", "p2": "p4", "p3": "p4"},
	}}

	death := models.NewClue(models.ClueActionEvidence, "last effects", "What the dead man carried.", 5)
	ability := models.NewClue(models.ClueEnvironmental, "splinters", "Splinters around the lock.", 4)
	vote := models.NewClue(models.ClueSocial, "herd", "The table moved as one.", 3)
	plain := models.NewClue(models.ClueBehavioral, "habit", "A telling habit.", 2)

	require.NoError(t, m.ScheduleReveal(ctx, death, "g1", []models.RevealCondition{
		{Kind: models.ConditionPlayerEliminated, Condition: "eliminated >= 1"},
	}))
	require.NoError(t, m.ScheduleReveal(ctx, ability, "g1", []models.RevealCondition{
		{Kind: models.ConditionAbilityUsed, Condition: "locked door"},
	}))
	require.NoError(t, m.ScheduleReveal(ctx, vote, "g1", []models.RevealCondition{
		{Kind: models.ConditionVotePattern, Condition: "unanimous"},
	}))
	require.NoError(t, m.ScheduleReveal(ctx, plain, "g1", []models.RevealCondition{
		models.RoundCondition(4, 0),
	}))

	reveals, err := m.ProcessAutomaticReveals(ctx, state)
	require.NoError(t, err)
	require.Len(t, reveals, 4)

	methods := make(map[string]models.RevealMethod)
	for _, rev := range reveals {
		methods[rev.ClueID] = rev.Method
	}
	require.Equal(t, models.RevealByDeath, methods[death.ID])
	require.Equal(t, models.RevealBySpecialAbility, methods[ability.ID])
	require.Equal(t, models.RevealByVotePattern, methods[vote.ID])
	require.Equal(t, models.RevealAutomatic, methods[plain.ID])
}

func TestManager_ProcessAutomaticReveals_keepsScheduleThroughChain(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 3)

	// origin fires this round and chains into related; unready waits. The
	// pass must hold on to both the unready entry and the chained one.
	related := models.NewClue(models.ClueBehavioral, "pacing", "Footsteps after midnight.", 4)
	origin := models.NewClue(models.ClueRoleHint, "bag", "A worn leather bag.", 6)
	origin.RelatedClues = []string{related.ID}
	unready := models.NewClue(models.ClueAlignmentHint, "letters", "A coded letter.", 7)

	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{related}))
	require.NoError(t, m.ScheduleReveal(ctx, origin, "g1",
		[]models.RevealCondition{models.RoundCondition(3, 0)}))
	require.NoError(t, m.ScheduleReveal(ctx, unready, "g1",
		[]models.RevealCondition{models.RoundCondition(9, 0)}))

	reveals, err := m.ProcessAutomaticReveals(ctx, state)
	require.NoError(t, err)
	require.Len(t, reveals, 1)
	require.Equal(t, origin.ID, reveals[0].ClueID)
	require.Equal(t, []string{related.ID}, reveals[0].Impact.UnlocksClues)
	require.Equal(t, 2, m.PendingCount("g1"), "unmet and chained entries both survive the pass")
}

func TestManager_atmosphericPass_belowThreshold(t *testing.T) {
	ctx := context.Background()
	// Roller forced open: if tension gating is broken the bonus would fire.
	m := newManager(t, random.FixedRoller(0))

	// Round 5 of 8 with 2 of 8 eliminated: tension = 0.6*0.25 + 0.4*0.625 = 0.4.
	state := &models.GameContext{
		GameID:         "g1",
		Round:          5,
		ExpectedLength: 8,
		Players: []*models.Player{
			{ID: "p1"}, {ID: "p2"}, {ID: "p3"}, {ID: "p4"},
			{ID: "p5"}, {ID: "p6"}, {ID: "p7"}, {ID: "p8"},
		},
		EliminatedPlayers: []string{"p7", "p8"},
	}
	require.InDelta(t, 0.4, reveal.Tension(state), 1e-9)

	atmos := models.NewClue(models.ClueNarrative, "Dusk", "The light fails early tonight.", 1)
	atmos.NarrativeWeight = 2
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{atmos}))

	// Deterministically no bonus reveal, across repeated runs.
	for i := 0; i < 5; i++ {
		reveals, err := m.ProcessAutomaticReveals(ctx, state)
		require.NoError(t, err)
		require.Empty(t, reveals)
	}
	require.False(t, atmos.IsRevealed())
}

func TestManager_atmosphericPass_aboveThreshold(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, random.FixedRoller(0))

	// 6 of 8 eliminated at round 8 of 8: tension = 0.6*0.75 + 0.4*1 = 0.85.
	state := gameState("g1", 8)
	state.Players = append(state.Players,
		&models.Player{ID: "p5"}, &models.Player{ID: "p6"},
		&models.Player{ID: "p7"}, &models.Player{ID: "p8"})
	state.EliminatedPlayers = []string{"p1", "p2", "p3", "p4", "p5", "p6"}

	atmos := models.NewClue(models.ClueNarrative, "Dread", "The house itself seems to listen.", 1)
	atmos.NarrativeWeight = 3
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{atmos}))

	reveals, err := m.ProcessAutomaticReveals(ctx, state)
	require.NoError(t, err)
	require.Len(t, reveals, 1, "exactly one atmospheric bonus per pass")
	require.Equal(t, atmos.ID, reveals[0].ClueID)
}

func TestManager_UnscheduleReveal(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)

	clue := models.NewClue(models.ClueRelationship, "glance", "A shared glance.", 4)
	require.NoError(t, m.ScheduleReveal(ctx, clue, "g1",
		[]models.RevealCondition{models.RoundCondition(2, 0)}))
	require.Equal(t, 1, m.PendingCount("g1"))

	require.NoError(t, m.UnscheduleReveal(ctx, clue.ID, "g1"))
	require.Zero(t, m.PendingCount("g1"))

	reveals, err := m.ProcessAutomaticReveals(ctx, gameState("g1", 3))
	require.NoError(t, err)
	require.Empty(t, reveals, "unscheduled clue must not fire")
}

func TestManager_ExpireGame(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)

	clue := models.NewClue(models.ClueEnvironmental, "draft", "A cold draft.", 3)
	require.NoError(t, m.ScheduleReveal(ctx, clue, "g1", nil))

	require.NoError(t, m.ExpireGame(ctx, "g1"))
	require.Equal(t, models.ClueStateExpired, clue.State)

	_, err := m.RevealClue(ctx, clue.ID, "g1", "p1", gameState("g1", 9))
	require.ErrorIs(t, err, reveal.ErrGameNotFound)
}

func TestManager_criticalRevealSchedulesFollowUp(t *testing.T) {
	ctx := context.Background()
	m := newManager(t, nil)
	state := gameState("g1", 3)

	clue := models.NewClue(models.ClueDirectEvidence, "The bloody key", "A key, unmistakably his.", 9)
	clue.EvidenceStrength = models.EvidenceConclusive
	require.NoError(t, m.RegisterClues(ctx, "g1", []*models.Clue{clue}))

	rev, err := m.RevealClue(ctx, clue.ID, "g1", "p1", state)
	require.NoError(t, err)
	require.Equal(t, models.StrategicCritical, rev.Impact.StrategicValue)
	require.Equal(t, 1, m.PendingCount("g1"), "a follow-up atmospheric clue is scheduled")
}
