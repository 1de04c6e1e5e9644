package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/validator"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var validateFile string

func init() {
	validateCmd.Flags().StringVar(&validateFile, "clues", "clues.yaml", "clue set yaml to validate")
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a clue-set yaml against its scenario",
	RunE: func(_ *cobra.Command, _ []string) error {
		return runValidate()
	},
}

// clueSpec is the yaml shape of an authored clue.
type clueSpec struct {
	Title             string                   `yaml:"title"`
	Content           string                   `yaml:"content"`
	Type              models.ClueType          `yaml:"type"`
	InformationValue  int                      `yaml:"information_value"`
	MisdirectionLevel int                      `yaml:"misdirection_level"`
	Reliability       models.Reliability       `yaml:"reliability,omitempty"`
	Difficulty        models.Difficulty        `yaml:"difficulty,omitempty"`
	TargetPlayers     []string                 `yaml:"target_players,omitempty"`
	PointsToPlayer    string                   `yaml:"points_to_player,omitempty"`
	EvidenceStrength  models.EvidenceStrength  `yaml:"evidence_strength,omitempty"`
	RevealConditions  []models.RevealCondition `yaml:"reveal_conditions,omitempty"`
}

type clueSetFile struct {
	Scenario models.Scenario  `yaml:"scenario"`
	Players  []*models.Player `yaml:"players,omitempty"`
	Clues    []clueSpec       `yaml:"clues"`
}

func runValidate() error {
	logger := newLogger()

	data, err := os.ReadFile(validateFile)
	if err != nil {
		return errors.Wrap(err, "read clue set", slog.String("path", validateFile))
	}
	var file clueSetFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, "parse clue set", slog.String("path", validateFile))
	}
	if len(file.Clues) == 0 {
		return errors.New("clue set file holds no clues", slog.String("path", validateFile))
	}

	clues := make([]*models.Clue, 0, len(file.Clues))
	for _, spec := range file.Clues {
		if !spec.Type.Valid() {
			return errors.New("unknown clue type",
				slog.String("title", spec.Title), slog.String("type", string(spec.Type)))
		}
		clue := models.NewClue(spec.Type, spec.Title, spec.Content, spec.InformationValue)
		if err := clue.SetMisdirectionLevel(spec.MisdirectionLevel); err != nil {
			return errors.Wrap(err, "set misdirection level", slog.String("title", spec.Title))
		}
		clue.TargetPlayers = spec.TargetPlayers
		clue.PointsToPlayer = spec.PointsToPlayer
		clue.RevealConditions = spec.RevealConditions
		if spec.Reliability != "" {
			clue.Reliability = spec.Reliability
		}
		if spec.Difficulty != "" {
			clue.Difficulty = spec.Difficulty
		}
		if spec.EvidenceStrength != "" {
			clue.EvidenceStrength = spec.EvidenceStrength
		}
		clues = append(clues, clue)
	}

	v := validator.New(validator.DefaultConfig(), logger)
	analysis := v.ValidateClueSet(clues, file.Scenario, file.Players, nil)

	fmt.Printf("clues: %d\n", len(clues))
	fmt.Printf("valid: %v\n", analysis.Valid)
	fmt.Printf("max faction advantage: %.2f\n", analysis.MaxInformationAdvantage)
	fmt.Printf("narrative consistency: %.2f\n", analysis.NarrativeConsistency)
	fmt.Printf("mean information value: %.2f\n", analysis.Quality.MeanInformationValue)

	for _, conflict := range analysis.PairwiseConflicts {
		fmt.Printf("conflict [%s]: %s\n", conflict.Kind, conflict.Description)
	}
	for _, adj := range analysis.Adjustments {
		fmt.Printf("adjustment p%d [%s] clue %s: %s\n", adj.Priority, adj.Kind, adj.ClueID, adj.Reason)
	}

	if !analysis.Valid {
		return errors.New("clue set failed validation", slog.String("path", validateFile))
	}
	return nil
}
