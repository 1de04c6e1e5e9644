package reveal

import (
	"context"
	"fmt"

	"github.com/mirkola/moriarty/internal/ai"
	"github.com/mirkola/moriarty/internal/models"
)

// Tension derives a [0, 1] intensity measure from the elimination ratio
// (weighted 0.6) and round progress (weighted 0.4). It gates the atmospheric
// pass.
func Tension(state *models.GameContext) float64 {
	eliminationRatio := 0.0
	if total := state.TotalPlayers(); total > 0 {
		eliminationRatio = float64(len(state.EliminatedPlayers)) / float64(total)
	}
	roundProgress := 0.0
	if state.ExpectedLength > 0 {
		roundProgress = float64(state.Round) / float64(state.ExpectedLength)
		if roundProgress > 1 {
			roundProgress = 1
		}
	}
	return 0.6*eliminationRatio + 0.4*roundProgress
}

// narrativeTrigger keys the reveal narrative template.
type narrativeTrigger int

const (
	triggerAutomatic narrativeTrigger = iota
	triggerInvestigation
	triggerAtmospheric
)

// revealNarrative synthesizes the narrative text shown alongside a reveal.
// The generator embellishes when available; the deterministic templates carry
// the reveal either way.
func (m *Manager) revealNarrative(
	ctx context.Context,
	clue *models.Clue,
	state *models.GameContext,
	trigger narrativeTrigger,
) string {
	var frame string
	switch trigger {
	case triggerInvestigation:
		frame = "The investigation bears fruit. %s"
	case triggerAtmospheric:
		frame = "A hush falls over the %[2]s. %[1]s"
	case triggerAutomatic:
		frame = "As round %[3]d unfolds, something comes to light. %[1]s"
	}

	setting := state.Scenario.Setting
	if setting == "" {
		setting = "room"
	}
	narrative := fmt.Sprintf(frame, clue.Content, setting, state.Round)

	if m.generator != nil && trigger == triggerAtmospheric {
		brief := ai.Brief{
			Theme:    state.Scenario.Theme,
			Setting:  state.Scenario.Setting,
			Tone:     state.Scenario.Tone,
			Scenario: clue.Content,
			ClueType: clue.Type,
		}
		if text, err := m.generator.Generate(ctx, brief); err == nil && text != "" {
			narrative = text
		}
	}
	return narrative
}

// computeImpact derives the gameplay effect of revealing the clue. Suspicion
// deltas scale with the clue type's evidentiary weight; misleading clues push
// suspicion the wrong way.
func computeImpact(clue *models.Clue, state *models.GameContext) models.Impact {
	weight := suspicionWeight(clue.Type)
	delta := weight * float64(clue.InformationValue) / float64(models.MaxInformationValue)

	switch clue.Reliability {
	case models.ReliabilityMisleading:
		delta = -0.5 * delta
	case models.ReliabilityUnreliable:
		delta *= 0.5
	case models.ReliabilityReliable:
	}

	deltas := make(map[string]float64)
	for _, target := range clue.TargetPlayers {
		deltas[target] = delta
	}
	if clue.PointsToPlayer != "" {
		deltas[clue.PointsToPlayer] = delta
	}

	var newTargets []string
	for target := range deltas {
		if !state.IsEliminated(target) {
			newTargets = append(newTargets, target)
		}
	}

	return models.Impact{
		SuspicionDeltas: deltas,
		NewTargets:      newTargets,
		StrategicValue:  strategicValue(clue),
		NarrativeNotes:  fmt.Sprintf("%s surfaces in round %d", clue.Title, state.Round),
	}
}

// suspicionWeight ranks how directly each clue type implicates its targets.
func suspicionWeight(t models.ClueType) float64 {
	switch t {
	case models.ClueDirectEvidence:
		return 0.9
	case models.ClueInvestigationResult:
		return 0.8
	case models.ClueRoleHint, models.ClueAlignmentHint:
		return 0.7
	case models.ClueActionEvidence:
		return 0.6
	case models.ClueBehavioral, models.ClueSocial, models.ClueRelationship:
		return 0.4
	case models.ClueEnvironmental:
		return 0.2
	case models.ClueNarrative:
		return 0.1
	case models.ClueRedHerring:
		return 0.3
	}
	return 0.3
}

func strategicValue(clue *models.Clue) models.StrategicValue {
	switch {
	case clue.Type == models.ClueDirectEvidence && clue.EvidenceStrength == models.EvidenceConclusive:
		return models.StrategicCritical
	case clue.InformationValue >= 9:
		return models.StrategicCritical
	case clue.InformationValue >= 7:
		return models.StrategicHigh
	case clue.InformationValue >= 4:
		return models.StrategicModerate
	}
	return models.StrategicLow
}
