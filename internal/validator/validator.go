package validator

import (
	"log/slog"
	"strings"

	"github.com/mirkola/moriarty/internal/models"
)

// Validator scores clues and clue sets for coherence, thematic alignment, and
// faction balance. It holds no mutable state of its own; every call works on
// the supplied snapshot.
type Validator struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Validator {
	return &Validator{
		cfg:    cfg,
		logger: logger.With("source", "Validator"),
	}
}

// Context is the surrounding state a single clue is validated against.
type Context struct {
	Scenario     models.Scenario
	CurrentRound int
	Players      []*models.Player
	// OtherClues are the rest of the set, used for redundancy and
	// contradiction detection.
	OtherClues []*models.Clue
}

// ConflictKind classifies hard consistency conflicts.
type ConflictKind string

const (
	ConflictValueMisdirection ConflictKind = "value_misdirection"
	ConflictTemporal          ConflictKind = "temporal_impossibility"
	ConflictRedundancy        ConflictKind = "redundancy"
	ConflictContradiction     ConflictKind = "contradiction"
	ConflictRedHerringTarget  ConflictKind = "red_herring_target"
)

// Conflict is one hard consistency failure. Any conflict makes a clue invalid
// regardless of its scores.
type Conflict struct {
	Kind        ConflictKind `json:"kind"`
	ClueIDs     []string     `json:"clue_ids"`
	Description string       `json:"description"`
}

// BalanceImpact estimates how a clue shifts each faction's information
// position.
type BalanceImpact struct {
	InformationAdvantage map[models.Alignment]float64 `json:"information_advantage"`
	WinProbabilityShift  map[models.Alignment]float64 `json:"win_probability_shift"`
	DifficultyIncrease   float64                      `json:"difficulty_increase"`
	StrategicComplexity  float64                      `json:"strategic_complexity"`
}

// ValidationResult is the ephemeral outcome of validating one clue.
type ValidationResult struct {
	ClueID            string        `json:"clue_id"`
	Valid             bool          `json:"valid"`
	CoherenceScore    float64       `json:"coherence_score"`
	ThematicAlignment float64       `json:"thematic_alignment"`
	Balance           BalanceImpact `json:"balance"`
	Conflicts         []Conflict    `json:"conflicts,omitempty"`
}

// ValidateClue scores a single clue. Validity requires the coherence score and
// thematic alignment to clear their thresholds, zero hard conflicts, and the
// balance impact to stay within tolerances.
func (v *Validator) ValidateClue(clue *models.Clue, vctx Context) ValidationResult {
	result := ValidationResult{
		ClueID:            clue.ID,
		CoherenceScore:    v.coherenceScore(clue),
		ThematicAlignment: v.thematicAlignment(clue, vctx.Scenario),
		Balance:           v.balanceImpact(clue),
		Conflicts:         v.consistencyConflicts(clue, vctx),
	}

	result.Valid = result.CoherenceScore >= v.cfg.CoherenceThreshold &&
		result.ThematicAlignment >= v.cfg.ThematicThreshold &&
		len(result.Conflicts) == 0 &&
		v.withinTolerances(result.Balance)

	return result
}

// coherenceScore is the product of independent multiplicative checks, each
// penalizing a combination of attributes that undermines the clue's internal
// logic.
func (v *Validator) coherenceScore(clue *models.Clue) float64 {
	if clue.Content == "" {
		return 0
	}

	score := 1.0

	// A clue that teaches a lot but is marked misleading contradicts itself.
	if clue.InformationValue >= 7 && clue.Reliability == models.ReliabilityMisleading {
		score *= 0.5
	}
	// Players can confirm easily verified clues, so marking one unreliable is
	// close to nonsense.
	if clue.Verifiability == models.VerifiabilityEasy && clue.Reliability == models.ReliabilityUnreliable {
		score *= 0.3
	}
	// Heavy misdirection belongs on red herrings only.
	if clue.MisdirectionLevel > 7 && !clue.Type.AllowsMisdirection() {
		score *= 0.4
	}
	// A red herring packed with real information defeats its purpose.
	if clue.Type == models.ClueRedHerring && clue.InformationValue >= 8 {
		score *= 0.6
	}
	// Trivial difficulty on near-maximal information hands the game away.
	if clue.Difficulty == models.DifficultyTrivial && clue.InformationValue >= 9 {
		score *= 0.7
	}
	// Expert difficulty on near-worthless information wastes a reveal slot.
	if clue.Difficulty == models.DifficultyExpert && clue.InformationValue <= 2 {
		score *= 0.8
	}

	return score
}

// thematicAlignment measures keyword overlap between the clue text and the
// scenario vocabulary. A scenario without vocabulary constrains nothing.
func (v *Validator) thematicAlignment(clue *models.Clue, scenario models.Scenario) float64 {
	vocab := make([]string, 0, len(scenario.Vocabulary)+3)
	vocab = append(vocab, scenario.Vocabulary...)
	for _, word := range []string{scenario.Theme, scenario.Setting, scenario.Tone} {
		if word != "" {
			vocab = append(vocab, word)
		}
	}
	if len(vocab) == 0 {
		return 1
	}

	text := strings.ToLower(clue.Title + " " + clue.Content + " " + strings.Join(clue.Tags, " "))
	matches := 0
	for _, word := range vocab {
		if strings.Contains(text, strings.ToLower(word)) {
			matches++
		}
	}

	// A small base keeps a single matching keyword from being worthless on a
	// large vocabulary.
	const base = 0.1
	alignment := base + (1-base)*float64(matches)/float64(len(vocab))
	if matches > 0 && alignment < 0.3 {
		alignment = 0.3
	}
	return alignment
}

// balanceImpact derives the per-faction information advantage from the clue
// type and magnitude. Information-bearing clues favor town; misdirection
// favors mafia.
func (v *Validator) balanceImpact(clue *models.Clue) BalanceImpact {
	info := float64(clue.InformationValue) / float64(models.MaxInformationValue)
	misdirection := float64(clue.MisdirectionLevel) / float64(models.MaxMisdirection)

	advantage := map[models.Alignment]float64{
		models.AlignmentTown:  0,
		models.AlignmentMafia: 0,
	}

	switch clue.Type {
	case models.ClueRoleHint, models.ClueAlignmentHint, models.ClueDirectEvidence,
		models.ClueActionEvidence, models.ClueInvestigationResult:
		advantage[models.AlignmentTown] = info * 2
	case models.ClueBehavioral, models.ClueRelationship, models.ClueSocial:
		advantage[models.AlignmentTown] = info
	case models.ClueRedHerring:
		advantage[models.AlignmentMafia] = misdirection * 1.6
		advantage[models.AlignmentTown] = info * 0.4
	case models.ClueEnvironmental, models.ClueNarrative:
		advantage[models.AlignmentTown] = info * 0.5
	}

	if clue.Reliability == models.ReliabilityMisleading {
		advantage[models.AlignmentMafia] += advantage[models.AlignmentTown] * 0.5
		advantage[models.AlignmentTown] *= 0.5
	}

	shift := map[models.Alignment]float64{
		models.AlignmentTown:  advantage[models.AlignmentTown] * 0.05,
		models.AlignmentMafia: advantage[models.AlignmentMafia] * 0.05,
	}

	// Difficulty increase is measured against the medium baseline; only tiers
	// above it push the set harder.
	difficultyIncrease := difficultyTierValue(clue.Difficulty) - 0.5
	if difficultyIncrease < 0 {
		difficultyIncrease = 0
	}

	return BalanceImpact{
		InformationAdvantage: advantage,
		WinProbabilityShift:  shift,
		DifficultyIncrease:   difficultyIncrease,
		StrategicComplexity:  strategicComplexity(clue),
	}
}

func (v *Validator) withinTolerances(impact BalanceImpact) bool {
	tol := v.cfg.Tolerances
	for _, advantage := range impact.InformationAdvantage {
		if abs(advantage) > tol.MaxInformationAdvantage {
			return false
		}
	}
	for _, shift := range impact.WinProbabilityShift {
		if shift < tol.MinWinProbabilityShift || shift > tol.MaxWinProbabilityShift {
			return false
		}
	}
	return impact.DifficultyIncrease <= tol.MaxDifficultyIncrease+1e-9 &&
		impact.StrategicComplexity <= tol.MaxStrategicComplexity+1e-9
}

// difficultyTierValue maps the difficulty tiers onto [0, 1].
func difficultyTierValue(d models.Difficulty) float64 {
	switch d {
	case models.DifficultyTrivial:
		return 0
	case models.DifficultyEasy:
		return 0.25
	case models.DifficultyMedium:
		return 0.5
	case models.DifficultyHard:
		return 0.75
	case models.DifficultyExpert:
		return 1
	}
	return 0.5
}

func strategicComplexity(clue *models.Clue) float64 {
	load := float64(len(clue.RelatedClues)+len(clue.RevealConditions)) / 6.0
	if load > 1 {
		return 1
	}
	return load
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
