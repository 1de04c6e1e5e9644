package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mirkola/moriarty/internal/ai"
	"github.com/mirkola/moriarty/internal/engine"
	"github.com/mirkola/moriarty/internal/envstruct"
	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/investigation"
	"github.com/mirkola/moriarty/internal/logging"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/pprofserver"
	"github.com/mirkola/moriarty/internal/random"
	"github.com/mirkola/moriarty/internal/reveal"
	"github.com/mirkola/moriarty/internal/sqlite"
	"github.com/mirkola/moriarty/internal/store"
	"github.com/mirkola/moriarty/internal/validator"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	simulateGameFile string
	simulateSeed     uint64
	simulateDBURL    string
)

func init() {
	simulateCmd.Flags().StringVar(&simulateGameFile, "game", "game.yaml", "game definition yaml")
	simulateCmd.Flags().Uint64Var(&simulateSeed, "seed", 1, "random seed for deterministic runs")
	simulateCmd.Flags().StringVar(&simulateDBURL, "sqlite-url", "", "SQLite URL for clue persistence, empty to run in memory only")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a scripted game against a scenario and print every reveal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSimulate(cmd.Context())
	},
}

func runSimulate(ctx context.Context) error {
	logger := newLogger()
	if pprofPort != "" {
		pprofserver.Launch(pprofPort, logger)
	}

	cfg, err := loadGameConfig(simulateGameFile)
	if err != nil {
		return err
	}
	ctx = logging.WithAttrs(ctx, slog.String("game_id", cfg.GameID))

	vcfg := validator.DefaultConfig()
	if err := envstruct.Populate(&vcfg, os.LookupEnv); err != nil {
		return errors.Wrap(err, "populate validator config")
	}
	if err := envstruct.Populate(&vcfg.Tolerances, os.LookupEnv); err != nil {
		return errors.Wrap(err, "populate balance tolerances")
	}
	rcfg := reveal.DefaultConfig()
	if err := envstruct.Populate(&rcfg, os.LookupEnv); err != nil {
		return errors.Wrap(err, "populate reveal config")
	}

	var clueStore *store.ClueStore
	if simulateDBURL != "" {
		db, err := sqlite.NewDatabase(ctx, simulateDBURL, logger)
		if err != nil {
			return errors.Wrap(err, "open database", slog.String("url", simulateDBURL))
		}
		defer db.Close()
		go db.StartDatabaseOptimizer(ctx)
		clueStore = store.NewClueStore(db, logger)
	}

	var generator ai.Generator = ai.StaticGenerator{}
	if os.Getenv("OPENAI_API_KEY") != "" {
		generator = ai.NewClient()
	}

	roller := random.NewRoller(simulateSeed)
	eng := engine.New(
		validator.New(vcfg, logger),
		reveal.NewManager(rcfg, generator, clueStore, roller, logger),
		investigation.NewSimulator(roller, logger),
		generator,
		clueStore,
		logger,
	)

	set, err := eng.GenerateGameClues(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "generate game clues", slog.String("game_id", cfg.GameID))
	}
	fmt.Printf("generated %d clues for %q\n\n", len(set.Clues), cfg.GameID)

	return playRounds(ctx, eng, cfg)
}

// playRounds scripts a simple game: each round a night phase with one
// detective investigation, then a vote that eliminates players alternating
// between the factions.
func playRounds(ctx context.Context, eng *engine.Engine, cfg engine.GameConfig) error {
	state := &models.GameContext{
		GameID:         cfg.GameID,
		Round:          1,
		ExpectedLength: cfg.ExpectedLength,
		Players:        cfg.Players,
		Scenario:       cfg.Scenario,
	}
	for _, p := range cfg.Players {
		state.AlivePlayers = append(state.AlivePlayers, p.ID)
	}

	detective := findDetective(cfg.Players)

	for round := 1; round <= cfg.ExpectedLength; round++ {
		state.Round = round
		fmt.Printf("--- round %d ---\n", round)

		state.Phase = models.PhaseNight
		if detective != nil && detective.Alive {
			target := investigationTarget(state, detective.ID)
			if method, ok := preferredMethod(eng, detective.ID, state); ok && target != "" {
				result, rev, err := eng.RunInvestigation(ctx, detective.ID, target, method, state)
				if err != nil && !errors.Is(err, investigation.ErrNoInvestigativeAbility) {
					return err
				}
				if result != nil && rev != nil {
					fmt.Printf("[investigation] %s\n", rev.Narrative)
				}
			}
		}

		state.Phase = models.PhaseVoting
		eliminated := scriptedElimination(state, round)
		event := models.GameEvent{Kind: models.EventVote, Round: round}
		if eliminated != "" {
			event = models.GameEvent{Kind: models.EventElimination, Round: round, TargetID: eliminated}
			fmt.Printf("[vote] %s is eliminated\n", eliminated)
		}

		reveals, err := eng.ProcessGameEvent(ctx, event, state)
		if err != nil {
			return errors.Wrap(err, "process game event", slog.Int("round", round))
		}
		for _, rev := range reveals {
			fmt.Printf("[%s] %s\n", rev.Method, rev.Narrative)
		}

		if err := eng.UpdateClueRelevance(ctx, state); err != nil {
			return errors.Wrap(err, "update clue relevance", slog.Int("round", round))
		}
		fmt.Println()
	}
	return nil
}

// preferredMethod picks the most specialized investigation method open to the
// investigator. Options list the base methods first, so the last one wins.
func preferredMethod(eng *engine.Engine, investigatorID string, state *models.GameContext) (models.InvestigationMethod, bool) {
	options, err := eng.AvailableInvestigations(investigatorID, state)
	if err != nil || len(options) == 0 {
		return "", false
	}
	return options[len(options)-1].Method, true
}

func findDetective(players []*models.Player) *models.Player {
	for _, p := range players {
		if p.Role.HasAbilityType(models.AbilityInvestigate) {
			return p
		}
	}
	return nil
}

// investigationTarget picks the first living mafia member, falling back to any
// living player other than the investigator.
func investigationTarget(state *models.GameContext, investigatorID string) string {
	var fallback string
	for _, p := range state.Players {
		if !p.Alive || p.ID == investigatorID {
			continue
		}
		if p.Role.Alignment == models.AlignmentMafia {
			return p.ID
		}
		if fallback == "" {
			fallback = p.ID
		}
	}
	return fallback
}

// scriptedElimination removes a town player on even rounds and a mafia member
// on every third round, leaving other rounds to end in a stand-off.
func scriptedElimination(state *models.GameContext, round int) string {
	var want models.Alignment
	switch {
	case round%3 == 0:
		want = models.AlignmentMafia
	case round%2 == 0:
		want = models.AlignmentTown
	default:
		return ""
	}
	for _, p := range state.Players {
		if p.Alive && p.Role.Alignment == want {
			p.Alive = false
			state.EliminatedPlayers = append(state.EliminatedPlayers, p.ID)
			return p.ID
		}
	}
	return ""
}

func loadGameConfig(path string) (engine.GameConfig, error) {
	var cfg engine.GameConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read game file", slog.String("path", path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parse game file", slog.String("path", path))
	}
	if cfg.GameID == "" || len(cfg.Players) == 0 {
		return cfg, errors.New("game file needs a game_id and players", slog.String("path", path))
	}
	return cfg, nil
}
