package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mirkola/moriarty/internal/ai"
	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/investigation"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/reveal"
	"github.com/mirkola/moriarty/internal/store"
	"github.com/mirkola/moriarty/internal/validator"
)

var ErrUnknownGame = errors.NewSentinel("no clue set generated for game")

// GameConfig describes the game a clue set is generated for.
type GameConfig struct {
	GameID         string           `json:"game_id" yaml:"game_id"`
	Scenario       models.Scenario  `json:"scenario" yaml:"scenario"`
	Players        []*models.Player `json:"players" yaml:"players"`
	ExpectedLength int              `json:"expected_length" yaml:"expected_length"`
	// RedHerrings overrides the default of one red herring per four players.
	RedHerrings int `json:"red_herrings,omitempty" yaml:"red_herrings,omitempty"`
	// Atmosphere overrides the default of two narrative clues.
	Atmosphere int `json:"atmosphere,omitempty" yaml:"atmosphere,omitempty"`
}

// Engine is the facade the surrounding game engine talks to. It coordinates
// generation, validation, scheduling, and investigations; it holds no global
// state beyond the clue sets of the games it generated.
type Engine struct {
	validator *validator.Validator
	manager   *reveal.Manager
	simulator *investigation.Simulator
	generator ai.Generator
	clueStore *store.ClueStore
	logger    *slog.Logger

	mu   sync.Mutex
	sets map[string]*models.GameClueSet
}

// New constructs an Engine. generator and clueStore may be nil.
func New(
	v *validator.Validator,
	m *reveal.Manager,
	s *investigation.Simulator,
	generator ai.Generator,
	clueStore *store.ClueStore,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		validator: v,
		manager:   m,
		simulator: s,
		generator: generator,
		clueStore: clueStore,
		logger:    logger.With("source", "Engine"),
		sets:      make(map[string]*models.GameClueSet),
	}
}

// GenerateGameClues builds a balanced clue set for a game: generate core and
// specialized clues, validate the set, apply the recommended adjustments,
// balance for the players, plan the information flow, and schedule every
// surviving clue.
func (e *Engine) GenerateGameClues(ctx context.Context, cfg GameConfig) (*models.GameClueSet, error) {
	if cfg.ExpectedLength < 2 {
		cfg.ExpectedLength = 8
	}

	clues := e.generateClues(ctx, cfg)

	analysis := e.validator.ValidateClueSet(clues, cfg.Scenario, cfg.Players, nil)
	clues = applyAdjustments(clues, analysis.Adjustments)

	seed := &models.GameContext{
		GameID:         cfg.GameID,
		Round:          1,
		ExpectedLength: cfg.ExpectedLength,
		Players:        cfg.Players,
	}
	// A table with no recorded activity yet reads as a zero signal; balancing
	// waits until there is data.
	if validator.PerformanceSignal(cfg.Players, seed) > 0 {
		clues = e.validator.BalanceCluesForPlayers(clues, cfg.Players, seed)
	}
	clues = e.validator.OptimizeInformationFlow(clues, cfg.Scenario, 1, cfg.ExpectedLength)

	for _, clue := range clues {
		if err := e.manager.ScheduleReveal(ctx, clue, cfg.GameID, nil); err != nil {
			return nil, errors.Wrap(err, "schedule generated clue",
				slog.String("clue_id", clue.ID), slog.String("game_id", cfg.GameID))
		}
	}

	set := &models.GameClueSet{
		GameID: cfg.GameID,
		Clues:  clues,
		Metadata: map[string]string{
			"clue_count":            fmt.Sprintf("%d", len(clues)),
			"narrative_consistency": fmt.Sprintf("%.2f", analysis.NarrativeConsistency),
			"generated_at":          time.Now().UTC().Format(time.RFC3339),
		},
	}

	e.mu.Lock()
	e.sets[cfg.GameID] = set
	e.mu.Unlock()

	e.logger.InfoContext(ctx, "generated game clue set",
		slog.String("game_id", cfg.GameID),
		slog.Int("clues", len(clues)),
		slog.Bool("valid", analysis.Valid))

	return set, nil
}

// generateClues produces the raw clue list before validation. Core clues point
// at the mafia roster; specialized clues add misdirection and atmosphere.
func (e *Engine) generateClues(ctx context.Context, cfg GameConfig) []*models.Clue {
	var mafia, town []*models.Player
	for _, p := range cfg.Players {
		switch p.Role.Alignment {
		case models.AlignmentMafia:
			mafia = append(mafia, p)
		case models.AlignmentTown:
			town = append(town, p)
		}
	}

	brief := func(clueType models.ClueType, target *models.Player) ai.Brief {
		b := ai.Brief{
			Theme:    cfg.Scenario.Theme,
			Setting:  cfg.Scenario.Setting,
			Tone:     cfg.Scenario.Tone,
			ClueType: clueType,
		}
		if target != nil {
			b.Target = target.Name
			b.TargetRole = target.Role.Name
		}
		return b
	}

	var clues []*models.Clue

	// Core clues: a role hint and a linked behavioral clue per mafia member.
	// The pairing feeds chain propagation once either one is revealed.
	for _, p := range mafia {
		hint := models.NewClue(models.ClueRoleHint,
			fmt.Sprintf("Hints of a %s", p.Role.Name),
			ai.GenerateOrFallback(ctx, e.generator, brief(models.ClueRoleHint, p)), 6)
		hint.TargetPlayers = []string{p.ID}

		tell := models.NewClue(models.ClueBehavioral,
			"A telling habit",
			ai.GenerateOrFallback(ctx, e.generator, brief(models.ClueBehavioral, p)), 4)
		tell.TargetPlayers = []string{p.ID}

		hint.RelatedClues = []string{tell.ID}
		tell.RelatedClues = []string{hint.ID}
		clues = append(clues, hint, tell)
	}

	// One piece of hard evidence against the first mafia member, held back for
	// the late game by the flow optimizer.
	if len(mafia) > 0 {
		evidence := models.NewClue(models.ClueDirectEvidence,
			"Hard evidence",
			ai.GenerateOrFallback(ctx, e.generator, brief(models.ClueDirectEvidence, mafia[0])), 8)
		evidence.TargetPlayers = []string{mafia[0].ID}
		evidence.EvidenceStrength = models.EvidenceStrong
		clues = append(clues, evidence)
	}

	// Red herrings aimed at town members.
	herrings := cfg.RedHerrings
	if herrings == 0 {
		herrings = (len(cfg.Players) + 3) / 4
	}
	for i := 0; i < herrings && i < len(town); i++ {
		herring := models.NewClue(models.ClueRedHerring,
			"A planted suspicion",
			ai.GenerateOrFallback(ctx, e.generator, brief(models.ClueRedHerring, town[i])), 3)
		herring.PointsToPlayer = town[i].ID
		herring.MisdirectionLevel = 6
		herring.Reliability = models.ReliabilityMisleading
		clues = append(clues, herring)
	}

	// Atmosphere for the tension-gated bonus pass.
	atmosphere := cfg.Atmosphere
	if atmosphere == 0 {
		atmosphere = 2
	}
	for i := 0; i < atmosphere; i++ {
		mood := models.NewClue(models.ClueNarrative,
			"The mood shifts",
			ai.GenerateOrFallback(ctx, e.generator, brief(models.ClueNarrative, nil)), 1)
		mood.NarrativeWeight = float64(atmosphere - i)
		clues = append(clues, mood)
	}

	return clues
}

// applyAdjustments executes the validator's recommendations in priority order.
// Removals drop the clue; the rest mutate it in place. Adjustments against
// clues removed earlier in the pass are skipped.
func applyAdjustments(clues []*models.Clue, adjustments []validator.ClueAdjustment) []*models.Clue {
	byID := make(map[string]*models.Clue, len(clues))
	for _, c := range clues {
		byID[c.ID] = c
	}

	removed := make(map[string]bool)
	for _, adj := range adjustments {
		clue, ok := byID[adj.ClueID]
		if !ok || removed[adj.ClueID] {
			continue
		}
		switch adj.Kind {
		case validator.AdjustRemove:
			removed[adj.ClueID] = true
		case validator.AdjustInformationValue:
			_ = clue.SetInformationValue(adj.NewInformationValue)
		case validator.AdjustReliability:
			clue.Reliability = adj.NewReliability
		case validator.AdjustDifficulty:
			clue.Difficulty = adj.NewDifficulty
		case validator.AdjustRevealConditions:
			// Reveal conditions are rebuilt by the flow optimizer afterwards.
		}
	}

	if len(removed) == 0 {
		return clues
	}
	kept := clues[:0]
	for _, c := range clues {
		if !removed[c.ID] {
			kept = append(kept, c)
		}
	}
	return kept
}

// ClueSet returns the generated set for a game.
func (e *Engine) ClueSet(gameID string) (*models.GameClueSet, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.sets[gameID]
	if !ok {
		return nil, errors.Wrap(ErrUnknownGame, "lookup clue set", slog.String("game_id", gameID))
	}
	return set, nil
}

// clueSnapshot copies the game's clue list under the engine mutex so callers
// can iterate it while investigations and adaptive passes append to the set.
func (e *Engine) clueSnapshot(gameID string) ([]*models.Clue, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	set, ok := e.sets[gameID]
	if !ok {
		return nil, errors.Wrap(ErrUnknownGame, "lookup clue set", slog.String("game_id", gameID))
	}
	return append([]*models.Clue(nil), set.Clues...), nil
}

// appendClues grows a game's clue set under the engine mutex. Unknown games
// are ignored; the caller has already resolved the set.
func (e *Engine) appendClues(gameID string, clues ...*models.Clue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if set, ok := e.sets[gameID]; ok {
		set.Clues = append(set.Clues, clues...)
	}
}
