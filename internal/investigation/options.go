package investigation

import (
	"log/slog"
	"strings"

	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
)

// maxTargetsPerMethod caps the option fan-out per method.
const maxTargetsPerMethod = 3

// MethodCost returns the fixed action cost and exposure risk of a method.
func MethodCost(method models.InvestigationMethod) models.InvestigationCost {
	switch method {
	case models.MethodDirectQuestioning:
		return models.InvestigationCost{
			ActionPoints:   1,
			ExposureChance: 0.3,
			Consequences:   []string{"the target knows they are suspected"},
			Mitigation:     "raise the questions in open discussion",
		}
	case models.MethodBehavioralObservation:
		return models.InvestigationCost{ActionPoints: 1, ExposureChance: 0.1}
	case models.MethodVotingPatternAnalysis:
		return models.InvestigationCost{ActionPoints: 1, ExposureChance: 0}
	case models.MethodPsychologicalProfiling:
		return models.InvestigationCost{ActionPoints: 2, ExposureChance: 0.15}
	case models.MethodCommunicationMonitoring:
		return models.InvestigationCost{
			ActionPoints:   2,
			ExposureChance: 0.25,
			Consequences:   []string{"intercepted parties may change channels"},
			Mitigation:     "monitor passively without replying",
		}
	case models.MethodForensicAnalysis:
		return models.InvestigationCost{ActionPoints: 3, ExposureChance: 0.2}
	case models.MethodAllianceAnalysis:
		return models.InvestigationCost{ActionPoints: 2, ExposureChance: 0.05}
	case models.MethodRoleAbilityUsage:
		return models.InvestigationCost{ActionPoints: 2, ExposureChance: 0.1}
	}
	return models.InvestigationCost{ActionPoints: 1, ExposureChance: 0.1}
}

// methodCooldown is how many rounds must pass between uses of a method.
func methodCooldown(method models.InvestigationMethod) int {
	switch method {
	case models.MethodForensicAnalysis:
		return 2
	case models.MethodPsychologicalProfiling, models.MethodCommunicationMonitoring:
		return 1
	}
	return 0
}

// methodKeywords maps substrings of ability names onto specialized methods.
// An ability called "Forensic Kit" unlocks forensic analysis, a "Watcher"
// unlocks behavioral observation, and so on.
var methodKeywords = map[models.InvestigationMethod][]string{
	models.MethodForensicAnalysis:        {"forensic", "detective"},
	models.MethodBehavioralObservation:   {"watch", "observe", "track"},
	models.MethodPsychologicalProfiling:  {"profile", "psychic", "seer"},
	models.MethodCommunicationMonitoring: {"wiretap", "monitor", "spy"},
	models.MethodRoleAbilityUsage:        {"sense", "aura"},
	models.MethodAllianceAnalysis:        {"network", "broker"},
}

// methodsForAbility resolves which methods an investigate ability grants.
// Every investigator can question, watch, and read the vote tallies; the
// specialized methods require a matching ability name.
func methodsForAbility(ability models.Ability) []models.InvestigationMethod {
	methods := []models.InvestigationMethod{
		models.MethodDirectQuestioning,
		models.MethodBehavioralObservation,
		models.MethodVotingPatternAnalysis,
	}
	name := strings.ToLower(ability.Name)
	for _, method := range models.AllInvestigationMethods() {
		for _, keyword := range methodKeywords[method] {
			if strings.Contains(name, keyword) {
				methods = append(methods, method)
				break
			}
		}
	}
	return methods
}

// methodForAbility picks the single method an ability's name implies: the
// first specialized method with a matching keyword, falling back to direct
// questioning.
func methodForAbility(ability models.Ability) models.InvestigationMethod {
	name := strings.ToLower(ability.Name)
	for _, method := range models.AllInvestigationMethods() {
		for _, keyword := range methodKeywords[method] {
			if strings.Contains(name, keyword) {
				return method
			}
		}
	}
	return models.MethodDirectQuestioning
}

// grantsMethod reports whether any of the abilities unlocks the method.
func grantsMethod(abilities []*models.Ability, method models.InvestigationMethod) bool {
	for _, ability := range abilities {
		for _, granted := range methodsForAbility(*ability) {
			if granted == method {
				return true
			}
		}
	}
	return false
}

// AvailableInvestigations enumerates the (method, target) pairs open to a
// player right now, across every investigate ability the player holds.
// Targets are living players other than the investigator, capped per method
// in roster order. Cooldowns count down from the granting ability's last
// use; a method granted by several abilities is listed once, for the first
// ability with uses left.
func (s *Simulator) AvailableInvestigations(
	investigatorID string,
	state *models.GameContext,
) ([]models.InvestigationOption, error) {
	investigator := state.Player(investigatorID)
	if investigator == nil || !investigator.Alive {
		return nil, errors.Wrap(ErrInvestigatorNotFound, "enumerate investigations",
			slog.String("investigator_id", investigatorID))
	}
	abilities := investigateAbilities(investigator)
	if len(abilities) == 0 {
		return nil, errors.Wrap(ErrNoInvestigativeAbility, "enumerate investigations",
			slog.String("investigator_id", investigatorID))
	}

	var targets []string
	for _, p := range state.Players {
		if p.ID == investigatorID || !p.Alive {
			continue
		}
		targets = append(targets, p.ID)
		if len(targets) == maxTargetsPerMethod {
			break
		}
	}

	var options []models.InvestigationOption
	seen := make(map[models.InvestigationMethod]bool)
	for _, ability := range abilities {
		if ability.UsesLeft <= 0 {
			continue
		}
		for _, method := range methodsForAbility(*ability) {
			if seen[method] {
				continue
			}
			seen[method] = true
			cooldown := 0
			if ability.LastUsedRound > 0 {
				if remaining := ability.LastUsedRound + methodCooldown(method) - state.Round; remaining > 0 {
					cooldown = remaining
				}
			}
			cost := MethodCost(method)
			for _, targetID := range targets {
				options = append(options, models.InvestigationOption{
					Method:         method,
					TargetID:       targetID,
					Cost:           cost,
					CooldownRounds: cooldown,
				})
			}
		}
	}
	return options, nil
}
