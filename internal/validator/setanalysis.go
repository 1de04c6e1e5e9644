package validator

import (
	"fmt"
	"sort"

	"github.com/mirkola/moriarty/internal/models"
)

// AdjustmentKind names what a ClueAdjustment changes.
type AdjustmentKind string

const (
	AdjustInformationValue AdjustmentKind = "adjust_information_value"
	AdjustReliability      AdjustmentKind = "adjust_reliability"
	AdjustDifficulty       AdjustmentKind = "adjust_difficulty"
	AdjustRevealConditions AdjustmentKind = "adjust_reveal_conditions"
	AdjustRemove           AdjustmentKind = "remove"
)

// ClueAdjustment is one recommended change to bring a set within tolerances.
// Higher priority adjustments should be applied first.
type ClueAdjustment struct {
	ClueID              string             `json:"clue_id"`
	Kind                AdjustmentKind     `json:"kind"`
	Priority            int                `json:"priority"`
	NewInformationValue int                `json:"new_information_value,omitempty"`
	NewReliability      models.Reliability `json:"new_reliability,omitempty"`
	NewDifficulty       models.Difficulty  `json:"new_difficulty,omitempty"`
	Reason              string             `json:"reason"`
}

// QualityMetrics summarize a clue set.
type QualityMetrics struct {
	MeanInformationValue    float64 `json:"mean_information_value"`
	InformationVariance     float64 `json:"information_variance"`
	RedHerringEffectiveness float64 `json:"red_herring_effectiveness"`
	InvestigativeFraction   float64 `json:"investigative_fraction"`
	NarrativeImmersion      float64 `json:"narrative_immersion"`
	StrategicDepth          float64 `json:"strategic_depth"`
}

// ClueSetAnalysis is the ephemeral result of validating a whole set. It is
// recomputed on demand and never persisted.
type ClueSetAnalysis struct {
	Valid                   bool                         `json:"valid"`
	InformationByFaction    map[models.Alignment]float64 `json:"information_by_faction"`
	MaxInformationAdvantage float64                      `json:"max_information_advantage"`
	ClueResults             []ValidationResult           `json:"clue_results"`
	PairwiseConflicts       []Conflict                   `json:"pairwise_conflicts,omitempty"`
	NarrativeConsistency    float64                      `json:"narrative_consistency"`
	Quality                 QualityMetrics               `json:"quality"`
	Adjustments             []ClueAdjustment             `json:"adjustments,omitempty"`
}

// ValidateClueSet aggregates per-clue validation, pairwise coherence,
// narrative consistency, and quality metrics, and produces a ranked adjustment
// list. state may be nil before the game starts.
func (v *Validator) ValidateClueSet(
	clues []*models.Clue,
	scenario models.Scenario,
	players []*models.Player,
	state *models.GameContext,
) ClueSetAnalysis {
	currentRound := 0
	if state != nil {
		currentRound = state.Round
	}

	analysis := ClueSetAnalysis{
		InformationByFaction: map[models.Alignment]float64{
			models.AlignmentTown:  0,
			models.AlignmentMafia: 0,
		},
	}

	for _, clue := range clues {
		vctx := Context{
			Scenario:     scenario,
			CurrentRound: currentRound,
			Players:      players,
			OtherClues:   clues,
		}
		result := v.ValidateClue(clue, vctx)
		analysis.ClueResults = append(analysis.ClueResults, result)
		for alignment, advantage := range result.Balance.InformationAdvantage {
			analysis.InformationByFaction[alignment] += advantage
		}
	}

	// Pairwise pass over all clue pairs.
	for i := 0; i < len(clues); i++ {
		for j := i + 1; j < len(clues); j++ {
			if conflict, ok := pairConflict(clues[i], clues[j]); ok {
				analysis.PairwiseConflicts = append(analysis.PairwiseConflicts, conflict)
			}
		}
	}

	analysis.MaxInformationAdvantage = maxAbsAdvantage(analysis.InformationByFaction)
	analysis.NarrativeConsistency = v.narrativeConsistency(clues, scenario)
	analysis.Quality = computeQuality(clues, analysis.ClueResults)
	analysis.Adjustments = v.recommendAdjustments(clues, analysis)

	analysis.Valid = analysis.MaxInformationAdvantage <= v.cfg.Tolerances.MaxInformationAdvantage &&
		len(analysis.PairwiseConflicts) == 0 &&
		allValid(analysis.ClueResults)

	return analysis
}

// narrativeConsistency blends mean thematic alignment with temporal ordering
// of the planned reveals.
func (v *Validator) narrativeConsistency(clues []*models.Clue, scenario models.Scenario) float64 {
	if len(clues) == 0 {
		return 1
	}

	alignmentSum := 0.0
	for _, clue := range clues {
		alignmentSum += v.thematicAlignment(clue, scenario)
	}
	meanAlignment := alignmentSum / float64(len(clues))

	// Temporal ordering: high-value clues planned earlier than red herrings
	// flatten the arc. Count orderly pairs among round-conditioned clues.
	type planned struct {
		round int
		value int
	}
	var plan []planned
	for _, clue := range clues {
		if round, ok := earliestRoundReference(clue); ok {
			plan = append(plan, planned{round: round, value: clue.InformationValue})
		}
	}
	ordering := 1.0
	if len(plan) > 1 {
		sort.Slice(plan, func(i, j int) bool { return plan[i].round < plan[j].round })
		orderly := 0
		for i := 1; i < len(plan); i++ {
			if plan[i].value >= plan[i-1].value-2 {
				orderly++
			}
		}
		ordering = float64(orderly) / float64(len(plan)-1)
	}

	return 0.7*meanAlignment + 0.3*ordering
}

func computeQuality(clues []*models.Clue, results []ValidationResult) QualityMetrics {
	if len(clues) == 0 {
		return QualityMetrics{}
	}

	var (
		infoSum        float64
		herrings       int
		herringMisdSum float64
		investigative  int
		immersionSum   float64
		depthSum       float64
	)
	for i, clue := range clues {
		infoSum += float64(clue.InformationValue)
		switch clue.Type {
		case models.ClueRedHerring:
			herrings++
			herringMisdSum += float64(clue.MisdirectionLevel) / float64(models.MaxMisdirection)
		case models.ClueDirectEvidence, models.ClueInvestigationResult, models.ClueActionEvidence:
			investigative++
		}
		immersionSum += clue.NarrativeWeight
		depthSum += results[i].Balance.StrategicComplexity
	}

	mean := infoSum / float64(len(clues))
	variance := 0.0
	for _, clue := range clues {
		d := float64(clue.InformationValue) - mean
		variance += d * d
	}
	variance /= float64(len(clues))

	herringEffectiveness := 0.0
	if herrings > 0 {
		herringEffectiveness = herringMisdSum / float64(herrings)
	}

	return QualityMetrics{
		MeanInformationValue:    mean,
		InformationVariance:     variance,
		RedHerringEffectiveness: herringEffectiveness,
		InvestigativeFraction:   float64(investigative) / float64(len(clues)),
		NarrativeImmersion:      immersionSum / float64(len(clues)),
		StrategicDepth:          depthSum / float64(len(clues)),
	}
}

// recommendAdjustments turns analysis findings into a priority-ranked list of
// concrete changes.
func (v *Validator) recommendAdjustments(clues []*models.Clue, analysis ClueSetAnalysis) []ClueAdjustment {
	var adjustments []ClueAdjustment

	for i, result := range analysis.ClueResults {
		clue := clues[i]
		for _, conflict := range result.Conflicts {
			switch conflict.Kind {
			case ConflictValueMisdirection:
				adjustments = append(adjustments, ClueAdjustment{
					ClueID:              clue.ID,
					Kind:                AdjustInformationValue,
					Priority:            9,
					NewInformationValue: clue.InformationValue - 3,
					Reason:              conflict.Description,
				})
			case ConflictTemporal:
				adjustments = append(adjustments, ClueAdjustment{
					ClueID:   clue.ID,
					Kind:     AdjustRevealConditions,
					Priority: 8,
					Reason:   conflict.Description,
				})
			case ConflictRedundancy, ConflictContradiction, ConflictRedHerringTarget:
				adjustments = append(adjustments, ClueAdjustment{
					ClueID:   clue.ID,
					Kind:     AdjustRemove,
					Priority: 10,
					Reason:   conflict.Description,
				})
			}
		}

		if len(result.Conflicts) == 0 && result.CoherenceScore < v.cfg.CoherenceThreshold {
			adjustments = append(adjustments, ClueAdjustment{
				ClueID:         clue.ID,
				Kind:           AdjustReliability,
				Priority:       6,
				NewReliability: models.ReliabilityUnreliable,
				Reason:         fmt.Sprintf("coherence %.2f below threshold %.2f", result.CoherenceScore, v.cfg.CoherenceThreshold),
			})
		}
	}

	// Over-advantage: trim the most informative clues until the spread could
	// come back within tolerance.
	if analysis.MaxInformationAdvantage > v.cfg.Tolerances.MaxInformationAdvantage {
		excess := analysis.MaxInformationAdvantage - v.cfg.Tolerances.MaxInformationAdvantage
		for _, clue := range highestValueClues(clues, 2) {
			adjustments = append(adjustments, ClueAdjustment{
				ClueID:              clue.ID,
				Kind:                AdjustInformationValue,
				Priority:            7,
				NewInformationValue: clue.InformationValue - 2,
				Reason:              fmt.Sprintf("faction information advantage exceeds tolerance by %.2f", excess),
			})
		}
	}

	sort.SliceStable(adjustments, func(i, j int) bool {
		return adjustments[i].Priority > adjustments[j].Priority
	})
	return adjustments
}

func highestValueClues(clues []*models.Clue, n int) []*models.Clue {
	sorted := make([]*models.Clue, len(clues))
	copy(sorted, clues)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].InformationValue > sorted[j].InformationValue
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func maxAbsAdvantage(byFaction map[models.Alignment]float64) float64 {
	max := 0.0
	for _, advantage := range byFaction {
		if abs(advantage) > max {
			max = abs(advantage)
		}
	}
	return max
}

func allValid(results []ValidationResult) bool {
	for _, r := range results {
		if !r.Valid {
			return false
		}
	}
	return true
}
