package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mirkola/moriarty/internal/ai"
	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/store"
	"github.com/mirkola/moriarty/internal/validator"
)

// Bounds on contextual reveals per event, so a single elimination cannot dump
// the whole schedule at once.
const (
	maxEliminationReveals = 2
	maxAbilityReveals     = 1
	maxPhaseReveals       = 1
)

// ProcessGameEvent reacts to one game event: it promotes a bounded number of
// contextually relevant clues into the current round's schedule, then runs the
// automatic-reveal pass.
func (e *Engine) ProcessGameEvent(
	ctx context.Context,
	event models.GameEvent,
	state *models.GameContext,
) ([]*models.Reveal, error) {
	clues, err := e.clueSnapshot(state.GameID)
	if err != nil {
		return nil, err
	}

	// Promoted clues carry a condition of the matching kind so the automatic
	// pass records the reveal under the method that actually triggered it.
	switch event.Kind {
	case models.EventElimination:
		cond := models.RevealCondition{
			Kind:      models.ConditionPlayerEliminated,
			Condition: fmt.Sprintf("eliminated >= %d", len(state.EliminatedPlayers)),
		}
		e.promoteClues(ctx, clues, state, maxEliminationReveals, cond, func(c *models.Clue) bool {
			return referencesPlayer(c, event.TargetID)
		})
	case models.EventAbilityUsed:
		state = withEvent(state, event)
		cond := models.RevealCondition{
			Kind:      models.ConditionAbilityUsed,
			Condition: event.Description,
		}
		e.promoteClues(ctx, clues, state, maxAbilityReveals, cond, func(c *models.Clue) bool {
			return c.Type == models.ClueActionEvidence && referencesPlayer(c, event.ActorID)
		})
	case models.EventPhaseChange:
		if state.Phase == models.PhaseNight {
			e.promoteClues(ctx, clues, state, maxPhaseReveals, models.RoundCondition(state.Round, 0),
				func(c *models.Clue) bool {
					return c.Type == models.ClueEnvironmental
				})
		}
	case models.EventVote:
		// Vote-pattern conditions are evaluated by the automatic pass itself.
	}

	reveals, err := e.manager.ProcessAutomaticReveals(ctx, state)
	if err != nil {
		return reveals, errors.Wrap(err, "process automatic reveals",
			slog.String("game_id", state.GameID), slog.String("event", string(event.Kind)))
	}
	return reveals, nil
}

// withEvent returns a state whose event log contains the event, copying the
// snapshot when the caller has not recorded it yet.
func withEvent(state *models.GameContext, event models.GameEvent) *models.GameContext {
	for _, logged := range state.EventLog {
		if logged == event {
			return state
		}
	}
	snapshot := *state
	snapshot.EventLog = append(append([]models.GameEvent(nil), state.EventLog...), event)
	return &snapshot
}

// promoteClues reschedules up to limit matching unrevealed clues under the
// given condition so the next automatic pass picks them up this round.
func (e *Engine) promoteClues(
	ctx context.Context,
	clues []*models.Clue,
	state *models.GameContext,
	limit int,
	cond models.RevealCondition,
	match func(*models.Clue) bool,
) {
	promoted := 0
	for _, clue := range clues {
		if promoted == limit {
			return
		}
		if clue.CurrentState() != models.ClueStateUnrevealed || !match(clue) {
			continue
		}
		if err := e.manager.ScheduleReveal(ctx, clue, state.GameID, []models.RevealCondition{cond}); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "failed to promote clue",
				errors.SlogError(err), slog.String("clue_id", clue.ID))
			continue
		}
		promoted++
	}
}

func referencesPlayer(clue *models.Clue, playerID string) bool {
	if playerID == "" {
		return false
	}
	if clue.PointsToPlayer == playerID {
		return true
	}
	for _, id := range clue.TargetPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

// RunInvestigation executes a player-initiated investigation and, when it
// produces a clue, registers it and reveals it immediately to the game. The
// method must be one the investigator's abilities grant, e.g. picked from
// AvailableInvestigations.
func (e *Engine) RunInvestigation(
	ctx context.Context,
	investigatorID, targetID string,
	method models.InvestigationMethod,
	state *models.GameContext,
) (*models.InvestigationResult, *models.Reveal, error) {
	result, err := e.simulator.ConductInvestigationWithMethod(ctx, investigatorID, targetID, method, state)
	if err != nil {
		return nil, nil, err
	}
	if !result.Success || result.Clue == nil {
		return result, nil, nil
	}

	e.appendClues(state.GameID, result.Clue)
	if err := e.manager.RegisterClues(ctx, state.GameID, []*models.Clue{result.Clue}); err != nil {
		return result, nil, errors.Wrap(err, "register investigation clue",
			slog.String("clue_id", result.Clue.ID))
	}
	rev, err := e.manager.RevealClue(ctx, result.Clue.ID, state.GameID, investigatorID, state)
	if err != nil {
		return result, nil, errors.Wrap(err, "reveal investigation clue",
			slog.String("clue_id", result.Clue.ID))
	}
	return result, rev, nil
}

// AvailableInvestigations lists the investigation options open to a player.
func (e *Engine) AvailableInvestigations(
	playerID string,
	state *models.GameContext,
) ([]models.InvestigationOption, error) {
	return e.simulator.AvailableInvestigations(playerID, state)
}

// UpdateClueRelevance drops pending reveals whose subjects have left the game,
// then rebalances and replans the remainder against the live state.
func (e *Engine) UpdateClueRelevance(ctx context.Context, state *models.GameContext) error {
	clues, err := e.clueSnapshot(state.GameID)
	if err != nil {
		return err
	}

	var live []*models.Clue
	for _, clue := range clues {
		if clue.CurrentState() != models.ClueStateUnrevealed {
			continue
		}
		if irrelevant(clue, state) {
			if err := e.manager.UnscheduleReveal(ctx, clue.ID, state.GameID); err != nil {
				return errors.Wrap(err, "unschedule irrelevant clue", slog.String("clue_id", clue.ID))
			}
			e.logger.DebugContext(ctx, "dropped irrelevant clue", slog.String("clue_id", clue.ID))
			continue
		}
		live = append(live, clue)
	}

	e.validator.BalanceCluesForPlayers(live, state.Players, state)
	e.validator.OptimizeInformationFlow(live, state.Scenario, state.Round, state.ExpectedLength)
	return nil
}

// irrelevant reports whether every player a clue speaks about is already out.
func irrelevant(clue *models.Clue, state *models.GameContext) bool {
	subjects := clue.TargetPlayers
	if clue.PointsToPlayer != "" {
		subjects = append(subjects[:len(subjects):len(subjects)], clue.PointsToPlayer)
	}
	if len(subjects) == 0 {
		return false
	}
	for _, id := range subjects {
		if !state.IsEliminated(id) {
			return false
		}
	}
	return true
}

// GenerateAdaptiveClues injects new clues in response to measured player
// performance: easier material when the table is struggling, harder when it is
// cruising, and a stalemate breaker when voting has stalled.
func (e *Engine) GenerateAdaptiveClues(ctx context.Context, state *models.GameContext) ([]*models.Clue, error) {
	if _, err := e.ClueSet(state.GameID); err != nil {
		return nil, err
	}

	var clues []*models.Clue
	if stalled(state) {
		if breaker := e.stalemateBreaker(ctx, state); breaker != nil {
			clues = append(clues, breaker)
		}
	}

	signal := validator.PerformanceSignal(state.Players, state)
	e.recordPerformance(ctx, state, signal)
	switch {
	case signal < 0.9:
		boost := models.NewClue(models.ClueAlignmentHint, "A clearer thread",
			ai.GenerateOrFallback(ctx, e.generator, e.adaptiveBrief(state, models.ClueAlignmentHint)), 6)
		boost.Difficulty = models.DifficultyEasy
		clues = append(clues, boost)
	case signal > 1.1:
		tangle := models.NewClue(models.ClueSocial, "A tangled thread",
			ai.GenerateOrFallback(ctx, e.generator, e.adaptiveBrief(state, models.ClueSocial)), 5)
		tangle.Difficulty = models.DifficultyHard
		clues = append(clues, tangle)
	}

	for _, clue := range clues {
		conds := []models.RevealCondition{models.RoundCondition(state.Round + 1, 0)}
		if err := e.manager.ScheduleReveal(ctx, clue, state.GameID, conds); err != nil {
			return clues, errors.Wrap(err, "schedule adaptive clue", slog.String("clue_id", clue.ID))
		}
		e.appendClues(state.GameID, clue)
	}

	e.logger.InfoContext(ctx, "adaptive clues generated",
		slog.String("game_id", state.GameID),
		slog.Int("count", len(clues)),
		slog.Float64("signal", signal))

	return clues, nil
}

// recordPerformance persists per-player performance profiles so a later game
// with the same table can seed its balancing. Best effort.
func (e *Engine) recordPerformance(ctx context.Context, state *models.GameContext, signal float64) {
	if e.clueStore == nil {
		return
	}
	for _, p := range state.Players {
		profile := store.PlayerProfile{
			PlayerID:          p.ID,
			PerformanceSignal: signal,
		}
		if err := e.clueStore.PutProfile(ctx, profile); err != nil {
			e.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist player profile",
				errors.SlogError(err), slog.String("player_id", p.ID))
		}
	}
}

// stalled reports whether the last two votes both failed to eliminate anyone.
func stalled(state *models.GameContext) bool {
	n := len(state.VotingHistory)
	if n < 2 {
		return false
	}
	for _, record := range state.VotingHistory[n-2:] {
		if record.Eliminated != "" {
			return false
		}
	}
	return true
}

// stalemateBreaker mints a high-value, easy clue against a living mafia
// member to get a stalled table moving again.
func (e *Engine) stalemateBreaker(ctx context.Context, state *models.GameContext) *models.Clue {
	var target *models.Player
	for _, p := range state.Players {
		if p.Alive && p.Role.Alignment == models.AlignmentMafia {
			target = p
			break
		}
	}
	if target == nil {
		return nil
	}

	brief := e.adaptiveBrief(state, models.ClueActionEvidence)
	brief.Target = target.Name
	clue := models.NewClue(models.ClueActionEvidence,
		fmt.Sprintf("The deadlock breaks over %s", target.Name),
		ai.GenerateOrFallback(ctx, e.generator, brief), 8)
	clue.TargetPlayers = []string{target.ID}
	clue.Difficulty = models.DifficultyEasy
	return clue
}

func (e *Engine) adaptiveBrief(state *models.GameContext, clueType models.ClueType) ai.Brief {
	return ai.Brief{
		Theme:    state.Scenario.Theme,
		Setting:  state.Scenario.Setting,
		Tone:     state.Scenario.Tone,
		Scenario: strings.Join(state.Communications, " "),
		ClueType: clueType,
	}
}
