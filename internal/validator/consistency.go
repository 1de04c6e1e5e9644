package validator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mirkola/moriarty/internal/models"
)

// consistencyConflicts runs the hard checks. Any returned conflict makes the
// clue invalid regardless of its scores.
func (v *Validator) consistencyConflicts(clue *models.Clue, vctx Context) []Conflict {
	var conflicts []Conflict

	// A clue cannot be both highly informative and highly misleading.
	if clue.InformationValue >= 8 && clue.MisdirectionLevel >= 8 {
		conflicts = append(conflicts, Conflict{
			Kind:        ConflictValueMisdirection,
			ClueIDs:     []string{clue.ID},
			Description: "information value and misdirection level are both near maximum",
		})
	}

	// Temporal impossibility: referencing a round further out than the
	// current round plus two.
	if round, ok := earliestRoundReference(clue); ok && round > vctx.CurrentRound+2 {
		conflicts = append(conflicts, Conflict{
			Kind:        ConflictTemporal,
			ClueIDs:     []string{clue.ID},
			Description: fmt.Sprintf("references round %d at round %d", round, vctx.CurrentRound),
		})
	}

	// Red herrings must not point conclusive evidence at an actual mafia
	// member; that would out them instead of misleading.
	if clue.Type == models.ClueRedHerring &&
		clue.EvidenceStrength == models.EvidenceConclusive &&
		clue.PointsToPlayer != "" {
		if target := playerByID(vctx.Players, clue.PointsToPlayer); target != nil &&
			target.Role.Alignment == models.AlignmentMafia {
			conflicts = append(conflicts, Conflict{
				Kind:        ConflictRedHerringTarget,
				ClueIDs:     []string{clue.ID},
				Description: "red herring points conclusive evidence at a mafia member",
			})
		}
	}

	for _, other := range vctx.OtherClues {
		if other.ID == clue.ID {
			continue
		}
		if conflict, ok := pairConflict(clue, other); ok {
			conflicts = append(conflicts, conflict)
		}
	}

	return conflicts
}

// pairConflict detects redundancy and contradiction between two clues.
func pairConflict(a, b *models.Clue) (Conflict, bool) {
	// Redundancy: same type, same target, near-identical information value.
	if a.Type == b.Type && sharesTarget(a, b) && absInt(a.InformationValue-b.InformationValue) <= 1 {
		return Conflict{
			Kind:        ConflictRedundancy,
			ClueIDs:     []string{a.ID, b.ID},
			Description: "two clues of the same type target the same player with near-identical information value",
		}, true
	}

	// Contradiction: one clue implies a player's guilt while a red herring
	// implies the same player's innocence.
	guilt, herring := a, b
	if guilt.Type == models.ClueRedHerring {
		guilt, herring = b, a
	}
	if guilt.Type != models.ClueRedHerring && herring.Type == models.ClueRedHerring &&
		guilt.PointsToPlayer != "" && guilt.PointsToPlayer == herring.PointsToPlayer {
		return Conflict{
			Kind:        ConflictContradiction,
			ClueIDs:     []string{guilt.ID, herring.ID},
			Description: "evidence implies guilt of a player a red herring paints as innocent",
		}, true
	}

	return Conflict{}, false
}

// earliestRoundReference extracts the smallest round operand from the clue's
// round-number conditions.
func earliestRoundReference(clue *models.Clue) (int, bool) {
	found := false
	earliest := 0
	for _, cond := range clue.RevealConditions {
		if cond.Kind != models.ConditionRoundNumber {
			continue
		}
		if round, ok := ParseRoundOperand(cond.Condition); ok {
			if !found || round < earliest {
				earliest = round
				found = true
			}
		}
	}
	return earliest, found
}

// ParseRoundOperand pulls the integer operand out of a round expression such
// as "round >= 3".
func ParseRoundOperand(expr string) (int, bool) {
	fields := strings.Fields(expr)
	for i := len(fields) - 1; i >= 0; i-- {
		if n, err := strconv.Atoi(fields[i]); err == nil {
			return n, true
		}
	}
	return 0, false
}

func sharesTarget(a, b *models.Clue) bool {
	for _, target := range a.TargetPlayers {
		if b.Targets(target) {
			return true
		}
	}
	return false
}

func playerByID(players []*models.Player, id string) *models.Player {
	for _, p := range players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
