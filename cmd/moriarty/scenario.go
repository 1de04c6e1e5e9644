package main

import (
	"fmt"

	"github.com/mirkola/moriarty/internal/engine"
	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var scenarioPlayers int

func init() {
	scenarioCmd.Flags().IntVar(&scenarioPlayers, "players", 6, "number of players in the starter roster")
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Print a starter game definition yaml to adapt",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runScenario()
	},
}

func runScenario() error {
	if scenarioPlayers < 4 {
		return errors.New("a game needs at least four players")
	}
	mafia := scenarioPlayers / 4
	if mafia < 1 {
		mafia = 1
	}

	cfg := engine.GameConfig{
		GameID:         "manor-night",
		ExpectedLength: 8,
		Scenario: models.Scenario{
			Theme:      "murder mystery",
			Setting:    "manor",
			Tone:       "gothic",
			Vocabulary: []string{"manor", "night", "candle", "guest", "cellar"},
		},
	}

	cfg.Players = append(cfg.Players, &models.Player{
		ID: "p1", Name: "Player 1", Alive: true,
		Role: models.Role{
			Name: "Detective", Type: models.RoleInvestigative, Alignment: models.AlignmentTown,
			Abilities: []models.Ability{
				{Name: "Forensic Kit", Type: models.AbilityInvestigate, UsesLeft: 3},
			},
		},
	})
	for i := 2; i <= scenarioPlayers-mafia; i++ {
		cfg.Players = append(cfg.Players, &models.Player{
			ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i), Alive: true,
			Role: models.Role{Name: "Villager", Type: models.RoleVanilla, Alignment: models.AlignmentTown},
		})
	}
	for i := scenarioPlayers - mafia + 1; i <= scenarioPlayers; i++ {
		cfg.Players = append(cfg.Players, &models.Player{
			ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i), Alive: true,
			Role: models.Role{
				Name: "Mafioso", Type: models.RoleKilling, Alignment: models.AlignmentMafia,
				Abilities: []models.Ability{{Name: "Hit", Type: models.AbilityKill, UsesLeft: 99}},
			},
		})
	}

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "marshal starter scenario")
	}
	fmt.Print(string(out))
	return nil
}
