package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mirkola/moriarty/internal/errors"
)

var (
	ErrAlreadyRevealed = errors.NewSentinel("clue already revealed")
	ErrClueExpired     = errors.NewSentinel("clue expired")
	ErrFrozenClue      = errors.NewSentinel("clue attributes frozen after reveal")
)

// ClueType is the closed taxonomy of clues. Every consumer switches
// exhaustively over it so that a new type cannot be added without updating the
// validator, the condition evaluator, and the narrative selector.
type ClueType string

const (
	ClueRoleHint            ClueType = "role_hint"
	ClueAlignmentHint       ClueType = "alignment_hint"
	ClueActionEvidence      ClueType = "action_evidence"
	ClueRelationship        ClueType = "relationship"
	ClueBehavioral          ClueType = "behavioral"
	ClueEnvironmental       ClueType = "environmental"
	ClueRedHerring          ClueType = "red_herring"
	ClueDirectEvidence      ClueType = "direct_evidence"
	ClueInvestigationResult ClueType = "investigation_result"
	ClueNarrative           ClueType = "narrative"
	ClueSocial              ClueType = "social"
)

// AllClueTypes lists every member of the taxonomy in a stable order.
func AllClueTypes() []ClueType {
	return []ClueType{
		ClueRoleHint,
		ClueAlignmentHint,
		ClueActionEvidence,
		ClueRelationship,
		ClueBehavioral,
		ClueEnvironmental,
		ClueRedHerring,
		ClueDirectEvidence,
		ClueInvestigationResult,
		ClueNarrative,
		ClueSocial,
	}
}

func (t ClueType) Valid() bool {
	switch t {
	case ClueRoleHint, ClueAlignmentHint, ClueActionEvidence, ClueRelationship,
		ClueBehavioral, ClueEnvironmental, ClueRedHerring, ClueDirectEvidence,
		ClueInvestigationResult, ClueNarrative, ClueSocial:
		return true
	}
	return false
}

// AllowsMisdirection reports whether non-zero misdirection is expected on this
// type. Only red herrings mislead by design.
func (t ClueType) AllowsMisdirection() bool {
	return t == ClueRedHerring
}

// Reliability is the qualitative trust level of a clue's content.
type Reliability string

const (
	ReliabilityReliable   Reliability = "reliable"
	ReliabilityUnreliable Reliability = "unreliable"
	ReliabilityMisleading Reliability = "misleading"
)

// Verifiability describes how easily players can confirm a clue.
type Verifiability string

const (
	VerifiabilityEasy         Verifiability = "easily_verified"
	VerifiabilityHard         Verifiability = "hard_to_verify"
	VerifiabilityUnverifiable Verifiability = "unverifiable"
)

// Difficulty is the tiered difficulty of interpreting a clue.
type Difficulty string

const (
	DifficultyTrivial Difficulty = "trivial"
	DifficultyEasy    Difficulty = "easy"
	DifficultyMedium  Difficulty = "medium"
	DifficultyHard    Difficulty = "hard"
	DifficultyExpert  Difficulty = "expert"
)

var difficultyTiers = []Difficulty{
	DifficultyTrivial, DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyExpert,
}

// Harder returns the next difficulty tier up, saturating at expert.
func (d Difficulty) Harder() Difficulty {
	for i, tier := range difficultyTiers {
		if tier == d && i < len(difficultyTiers)-1 {
			return difficultyTiers[i+1]
		}
	}
	return d
}

// Easier returns the next difficulty tier down, saturating at trivial.
func (d Difficulty) Easier() Difficulty {
	for i, tier := range difficultyTiers {
		if tier == d && i > 0 {
			return difficultyTiers[i-1]
		}
	}
	return d
}

// EvidenceStrength qualifies direct evidence clues.
type EvidenceStrength string

const (
	EvidenceSuggestive EvidenceStrength = "suggestive"
	EvidenceStrong     EvidenceStrength = "strong"
	EvidenceConclusive EvidenceStrength = "conclusive"
)

// ClueState is the lifecycle state of a clue. Unrevealed is initial; revealed
// and expired are terminal.
type ClueState string

const (
	ClueStateUnrevealed ClueState = "unrevealed"
	ClueStateRevealed   ClueState = "revealed"
	ClueStateExpired    ClueState = "expired"
)

const (
	MinInformationValue = 1
	MaxInformationValue = 10
	MinMisdirection     = 0
	MaxMisdirection     = 10
)

// Clue is a unit of partial information owned by a single game instance.
//
// Numeric attributes are clamped to their ranges on every mutation and frozen
// once the clue is revealed. The unrevealed-to-revealed transition is a
// check-and-set guarded by a per-clue mutex so that racing reveal attempts
// resolve to exactly one winner.
type Clue struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Type    ClueType `json:"type"`

	InformationValue  int     `json:"information_value"`
	MisdirectionLevel int     `json:"misdirection_level"`
	NarrativeWeight   float64 `json:"narrative_weight"`

	Reliability   Reliability   `json:"reliability"`
	Verifiability Verifiability `json:"verifiability"`
	Difficulty    Difficulty    `json:"difficulty"`

	TargetPlayers []string `json:"target_players,omitempty"`
	RelatedClues  []string `json:"related_clues,omitempty"`
	Tags          []string `json:"tags,omitempty"`

	// PointsToPlayer and EvidenceStrength are set on direct evidence clues.
	PointsToPlayer   string           `json:"points_to_player,omitempty"`
	EvidenceStrength EvidenceStrength `json:"evidence_strength,omitempty"`

	RevealConditions []RevealCondition `json:"reveal_conditions,omitempty"`

	State      ClueState  `json:"state"`
	RevealedAt *time.Time `json:"revealed_at,omitempty"`
	RevealedBy string     `json:"revealed_by,omitempty"`

	mu sync.Mutex
}

// NewClue constructs an unrevealed clue with a fresh id and clamped numerics.
func NewClue(clueType ClueType, title, content string, informationValue int) *Clue {
	return &Clue{
		ID:               uuid.NewString(),
		Title:            title,
		Content:          content,
		Type:             clueType,
		InformationValue: clampInt(informationValue, MinInformationValue, MaxInformationValue),
		Reliability:      ReliabilityReliable,
		Verifiability:    VerifiabilityHard,
		Difficulty:       DifficultyMedium,
		State:            ClueStateUnrevealed,
	}
}

// SetInformationValue clamps v into [1, 10]. Fails once the clue is revealed.
func (c *Clue) SetInformationValue(v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State == ClueStateRevealed {
		return errors.Wrap(ErrFrozenClue, "set information value", clueAttr(c.ID))
	}
	c.InformationValue = clampInt(v, MinInformationValue, MaxInformationValue)
	return nil
}

// SetMisdirectionLevel clamps v into [0, 10]. Fails once the clue is revealed.
func (c *Clue) SetMisdirectionLevel(v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State == ClueStateRevealed {
		return errors.Wrap(ErrFrozenClue, "set misdirection level", clueAttr(c.ID))
	}
	c.MisdirectionLevel = clampInt(v, MinMisdirection, MaxMisdirection)
	return nil
}

// IsRevealed reports whether the clue has reached the revealed state.
func (c *Clue) IsRevealed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.State == ClueStateRevealed
}

// CurrentState reads the lifecycle state under the clue mutex, for callers
// racing against a reveal in flight.
func (c *Clue) CurrentState() ClueState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.State
}

// MarkRevealed performs the atomic unrevealed-to-revealed transition. Exactly
// one caller succeeds; the rest observe ErrAlreadyRevealed or ErrClueExpired.
func (c *Clue) MarkRevealed(by string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.State {
	case ClueStateRevealed:
		return errors.Wrap(ErrAlreadyRevealed, "mark revealed", clueAttr(c.ID))
	case ClueStateExpired:
		return errors.Wrap(ErrClueExpired, "mark revealed", clueAttr(c.ID))
	case ClueStateUnrevealed:
	}
	c.State = ClueStateRevealed
	c.RevealedAt = &at
	c.RevealedBy = by
	return nil
}

// Expire marks an unrevealed clue as expired at game end. Revealed clues stay
// revealed.
func (c *Clue) Expire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.State == ClueStateUnrevealed {
		c.State = ClueStateExpired
	}
}

// Targets reports whether the clue concerns the given player.
func (c *Clue) Targets(playerID string) bool {
	for _, id := range c.TargetPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}

// HasTag reports whether the clue carries the given tag.
func (c *Clue) HasTag(tag string) bool {
	for _, t := range c.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
