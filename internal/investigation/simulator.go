package investigation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/random"
)

var (
	ErrInvestigatorNotFound   = errors.NewSentinel("investigator not found")
	ErrTargetNotFound         = errors.NewSentinel("target not found")
	ErrNoInvestigativeAbility = errors.NewSentinel("player has no investigative ability")
	ErrMethodNotGranted       = errors.NewSentinel("no ability grants the investigation method")
	ErrInvestigationBusy      = errors.NewSentinel("investigator already has an investigation in progress")
)

const (
	baseReliability      = 0.7
	minReliability       = 0.1
	maxReliability       = 0.95
	minFindingConfidence = 0.3
)

// Simulator runs investigation attempts against a game snapshot. Attempts by
// the same investigator are serialized; a second concurrent attempt fails
// with ErrInvestigationBusy instead of queueing.
type Simulator struct {
	roller random.Roller
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex
	busy map[string]bool
}

// NewSimulator constructs a Simulator. A nil roller gets a time-seeded one.
func NewSimulator(roller random.Roller, logger *slog.Logger) *Simulator {
	if roller == nil {
		roller = random.NewRoller(uint64(time.Now().UnixNano()))
	}
	return &Simulator{
		roller: roller,
		logger: logger.With("source", "InvestigationSimulator"),
		now:    time.Now,
		busy:   make(map[string]bool),
	}
}

// SetNowFunc overrides the clock for tests.
func (s *Simulator) SetNowFunc(now func() time.Time) {
	s.now = now
}

func (s *Simulator) acquire(investigatorID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[investigatorID] {
		return errors.Wrap(ErrInvestigationBusy, "acquire investigator",
			slog.String("investigator_id", investigatorID))
	}
	s.busy[investigatorID] = true
	return nil
}

func (s *Simulator) release(investigatorID string) {
	s.mu.Lock()
	delete(s.busy, investigatorID)
	s.mu.Unlock()
}

// ConductInvestigation runs one attempt by investigatorID against targetID.
// The method is derived from the investigator's investigate ability name, so
// a "Forensic Kit" conducts forensic analysis and an unadorned hunch falls
// back to direct questioning. The investigator must be alive and carry an
// investigate ability. Findings below the confidence floor are discarded; an
// attempt whose findings all fall below it fails without producing a clue.
func (s *Simulator) ConductInvestigation(
	ctx context.Context,
	investigatorID, targetID string,
	state *models.GameContext,
) (*models.InvestigationResult, error) {
	investigator, target, err := s.participants(investigatorID, targetID, state)
	if err != nil {
		return nil, err
	}
	abilities := investigateAbilities(investigator)
	if len(abilities) == 0 {
		return nil, errors.Wrap(ErrNoInvestigativeAbility, "conduct investigation",
			slog.String("investigator_id", investigatorID))
	}
	return s.conduct(ctx, investigator, target, methodForAbility(*abilities[0]), state)
}

// ConductInvestigationWithMethod runs one attempt with an explicitly chosen
// method, e.g. one picked from AvailableInvestigations. The method must be
// granted by one of the investigator's investigate abilities.
func (s *Simulator) ConductInvestigationWithMethod(
	ctx context.Context,
	investigatorID, targetID string,
	method models.InvestigationMethod,
	state *models.GameContext,
) (*models.InvestigationResult, error) {
	investigator, target, err := s.participants(investigatorID, targetID, state)
	if err != nil {
		return nil, err
	}
	abilities := investigateAbilities(investigator)
	if len(abilities) == 0 {
		return nil, errors.Wrap(ErrNoInvestigativeAbility, "conduct investigation",
			slog.String("investigator_id", investigatorID))
	}
	if !grantsMethod(abilities, method) {
		return nil, errors.Wrap(ErrMethodNotGranted, "conduct investigation",
			slog.String("investigator_id", investigatorID),
			slog.String("method", string(method)))
	}
	return s.conduct(ctx, investigator, target, method, state)
}

func (s *Simulator) participants(
	investigatorID, targetID string,
	state *models.GameContext,
) (investigator, target *models.Player, err error) {
	investigator = state.Player(investigatorID)
	if investigator == nil || !investigator.Alive {
		return nil, nil, errors.Wrap(ErrInvestigatorNotFound, "conduct investigation",
			slog.String("investigator_id", investigatorID))
	}
	target = state.Player(targetID)
	if target == nil {
		return nil, nil, errors.Wrap(ErrTargetNotFound, "conduct investigation",
			slog.String("target_id", targetID))
	}
	return investigator, target, nil
}

func (s *Simulator) conduct(
	ctx context.Context,
	investigator, target *models.Player,
	method models.InvestigationMethod,
	state *models.GameContext,
) (*models.InvestigationResult, error) {
	investigatorID, targetID := investigator.ID, target.ID
	if err := s.acquire(investigatorID); err != nil {
		return nil, err
	}
	defer s.release(investigatorID)

	rel := Reliability(investigator, target, state)

	var findings []models.Finding
	for _, f := range buildFindings(method, target, state, rel) {
		if f.Confidence >= minFindingConfidence {
			findings = append(findings, f)
		}
	}

	cost := MethodCost(method)
	if s.roller.Roll() < cost.ExposureChance {
		cost.Consequences = append(cost.Consequences, "the target noticed the scrutiny")
	}

	result := &models.InvestigationResult{
		ID:             uuid.NewString(),
		InvestigatorID: investigatorID,
		TargetID:       targetID,
		Method:         method,
		Findings:       findings,
		Reliability:    rel,
		Cost:           cost,
		Success:        len(findings) > 0,
		CreatedAt:      s.now(),
	}
	if result.Success {
		result.Clue = deriveClue(result, target)
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "investigation conducted",
		slog.String("investigator_id", investigatorID),
		slog.String("target_id", targetID),
		slog.String("method", string(method)),
		slog.Bool("success", result.Success),
		slog.Float64("reliability", rel))

	return result, nil
}

// Reliability scores how trustworthy an attempt's findings are, in
// [0.1, 0.95]. Investigative roles read people better, slippery targets
// (blockers, protectors) are harder to pin down, night cover helps, and an
// investigator down to their last use works with desperate focus.
func Reliability(investigator, target *models.Player, state *models.GameContext) float64 {
	rel := baseReliability
	if investigator.Role.Type == models.RoleInvestigative {
		rel += 0.15
	}
	if target.Role.HasAbilityType(models.AbilityBlock) || target.Role.HasAbilityType(models.AbilityProtect) {
		rel -= 0.1
	}
	if state.Phase == models.PhaseNight {
		rel += 0.1
	}
	if a := investigateAbility(investigator); a != nil && a.UsesLeft <= 1 {
		rel += 0.05
	}
	return math.Min(maxReliability, math.Max(minReliability, rel))
}

func investigateAbility(p *models.Player) *models.Ability {
	for i := range p.Role.Abilities {
		if p.Role.Abilities[i].Type == models.AbilityInvestigate {
			return &p.Role.Abilities[i]
		}
	}
	return nil
}

// investigateAbilities collects every investigate ability a player holds, in
// declaration order.
func investigateAbilities(p *models.Player) []*models.Ability {
	var abilities []*models.Ability
	for i := range p.Role.Abilities {
		if p.Role.Abilities[i].Type == models.AbilityInvestigate {
			abilities = append(abilities, &p.Role.Abilities[i])
		}
	}
	return abilities
}

// buildFindings produces the raw method-specific observations before the
// confidence filter. Confidence scales off the attempt's reliability; the
// more inferential a finding, the steeper the discount.
func buildFindings(
	method models.InvestigationMethod,
	target *models.Player,
	state *models.GameContext,
	rel float64,
) []models.Finding {
	switch method {
	case models.MethodDirectQuestioning:
		findings := []models.Finding{{
			Type:       "statement",
			Text:       fmt.Sprintf("%s answered questions with %d recorded statements on the table", target.Name, target.Communications),
			Confidence: rel,
			Verifiable: true,
		}}
		if target.Role.Alignment == models.AlignmentMafia {
			findings = append(findings, models.Finding{
				Type:         "evasion",
				Text:         fmt.Sprintf("%s deflected every question about the night hours", target.Name),
				Confidence:   rel * 0.7,
				Implications: []string{"possible concealment"},
			})
		}
		return findings

	case models.MethodBehavioralObservation:
		tone := "withdrawn"
		if target.Actions > 2 {
			tone = "restless"
		}
		return []models.Finding{{
			Type:       "behavior",
			Text:       fmt.Sprintf("%s has been %s, with %d notable actions observed", target.Name, tone, target.Actions),
			Confidence: rel * 0.9,
		}}

	case models.MethodVotingPatternAnalysis:
		return votingFindings(target, state, rel)

	case models.MethodPsychologicalProfiling:
		return []models.Finding{{
			Type:         "profile",
			Text:         fmt.Sprintf("%s fits the pattern of a %s role", target.Name, target.Role.Type),
			Confidence:   rel * 0.75,
			Implications: []string{fmt.Sprintf("likely %s", target.Role.Type)},
		}}

	case models.MethodCommunicationMonitoring:
		if target.Communications == 0 {
			return []models.Finding{{
				Type:       "silence",
				Text:       fmt.Sprintf("%s has sent nothing worth intercepting", target.Name),
				Confidence: rel * 0.6,
			}}
		}
		return []models.Finding{{
			Type:       "intercept",
			Text:       fmt.Sprintf("intercepted %d messages from %s", target.Communications, target.Name),
			Confidence: rel * 0.85,
			Verifiable: true,
		}}

	case models.MethodForensicAnalysis:
		return []models.Finding{{
			Type:         "forensic",
			Text:         fmt.Sprintf("physical traces place %s near the last incident", target.Name),
			Confidence:   rel,
			Verifiable:   true,
			Implications: []string{fmt.Sprintf("alignment reads as %s", target.Role.Alignment)},
		}}

	case models.MethodAllianceAnalysis:
		return allianceFindings(target, state, rel)

	case models.MethodRoleAbilityUsage:
		return abilityUsageFindings(target, state, rel)
	}
	return nil
}

func votingFindings(target *models.Player, state *models.GameContext, rel float64) []models.Finding {
	var cast []string
	for _, record := range state.VotingHistory {
		if suspect, ok := record.Votes[target.ID]; ok {
			cast = append(cast, suspect)
		}
	}
	if len(cast) == 0 {
		return []models.Finding{{
			Type:       "voting",
			Text:       fmt.Sprintf("%s has avoided committing to a vote", target.Name),
			Confidence: rel * 0.6,
		}}
	}
	return []models.Finding{{
		Type:         "voting",
		Text:         fmt.Sprintf("%s voted against %s across %d rounds", target.Name, strings.Join(cast, ", "), len(cast)),
		Confidence:   rel * 0.9,
		Verifiable:   true,
		Implications: []string{"voting record on file"},
	}}
}

func allianceFindings(target *models.Player, state *models.GameContext, rel float64) []models.Finding {
	// Players who repeatedly vote with the target read as allies.
	allies := make(map[string]int)
	for _, record := range state.VotingHistory {
		suspect, ok := record.Votes[target.ID]
		if !ok {
			continue
		}
		for voter, other := range record.Votes {
			if voter != target.ID && other == suspect {
				allies[voter]++
			}
		}
	}
	var names []string
	for voter, shared := range allies {
		if shared >= 2 {
			names = append(names, voter)
		}
	}
	if len(names) == 0 {
		return []models.Finding{{
			Type:       "alliance",
			Text:       fmt.Sprintf("%s shows no consistent voting bloc", target.Name),
			Confidence: rel * 0.5,
		}}
	}
	return []models.Finding{{
		Type:         "alliance",
		Text:         fmt.Sprintf("%s consistently votes alongside %s", target.Name, strings.Join(names, ", ")),
		Confidence:   rel * 0.8,
		Implications: []string{"possible coordination"},
	}}
}

func abilityUsageFindings(target *models.Player, state *models.GameContext, rel float64) []models.Finding {
	used := 0
	for _, event := range state.EventLog {
		if event.Kind == models.EventAbilityUsed && event.ActorID == target.ID {
			used++
		}
	}
	if used == 0 {
		return []models.Finding{{
			Type:       "ability",
			Text:       fmt.Sprintf("no trace of %s using an ability", target.Name),
			Confidence: rel * 0.55,
		}}
	}
	return []models.Finding{{
		Type:         "ability",
		Text:         fmt.Sprintf("%s has acted %d times outside the open discussion", target.Name, used),
		Confidence:   rel * 0.85,
		Verifiable:   true,
		Implications: []string{"holds an active role"},
	}}
}

// deriveClue turns a successful investigation into a revealable clue. The
// clue's information value tracks the mean finding confidence.
func deriveClue(result *models.InvestigationResult, target *models.Player) *models.Clue {
	var sum float64
	texts := make([]string, 0, len(result.Findings))
	verifiable := false
	for _, f := range result.Findings {
		sum += f.Confidence
		texts = append(texts, f.Text)
		verifiable = verifiable || f.Verifiable
	}
	mean := sum / float64(len(result.Findings))

	clue := models.NewClue(
		models.ClueInvestigationResult,
		fmt.Sprintf("Investigation of %s", target.Name),
		strings.Join(texts, " "),
		int(math.Round(mean*float64(models.MaxInformationValue))),
	)
	clue.TargetPlayers = []string{target.ID}
	clue.Tags = []string{string(result.Method)}

	switch {
	case mean >= 0.75:
		clue.Reliability = models.ReliabilityReliable
	case mean >= 0.4:
		clue.Reliability = models.ReliabilityUnreliable
	default:
		clue.Reliability = models.ReliabilityMisleading
	}
	if verifiable {
		clue.Verifiability = models.VerifiabilityEasy
	}
	return clue
}
