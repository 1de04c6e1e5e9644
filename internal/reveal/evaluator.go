package reveal

import (
	"strconv"
	"strings"

	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/random"
)

// EvaluateCondition interprets one declarative trigger against a game-state
// snapshot and gates the result through the condition's own probability roll.
func EvaluateCondition(cond models.RevealCondition, state *models.GameContext, roller random.Roller) bool {
	if !conditionHolds(cond, state) {
		return false
	}
	probability := cond.EffectiveProbability()
	if probability >= 1 {
		return true
	}
	return roller.Roll() < probability
}

// conditionHolds is the semantic half of the evaluator, before probability
// gating.
func conditionHolds(cond models.RevealCondition, state *models.GameContext) bool {
	switch cond.Kind {
	case models.ConditionRoundNumber:
		return compareExpr(cond.Condition, state.Round)
	case models.ConditionPlayerEliminated:
		return compareExpr(cond.Condition, len(state.EliminatedPlayers))
	case models.ConditionAbilityUsed:
		return abilityUsed(cond.Condition, state)
	case models.ConditionVotePattern:
		return votePattern(cond.Condition, state)
	case models.ConditionRandom:
		return true
	}
	return false
}

// compareExpr parses a comparator and an integer operand out of an expression
// such as "round >= 3" or "eliminated > 1" and compares against value.
// Malformed expressions never fire.
func compareExpr(expr string, value int) bool {
	comparator, operand, ok := parseComparison(expr)
	if !ok {
		return false
	}
	switch comparator {
	case ">=":
		return value >= operand
	case ">":
		return value > operand
	case "<=":
		return value <= operand
	case "<":
		return value < operand
	case "=", "==":
		return value == operand
	}
	return false
}

func parseComparison(expr string) (comparator string, operand int, ok bool) {
	fields := strings.Fields(expr)
	for i, field := range fields {
		switch field {
		case ">=", ">", "<=", "<", "=", "==":
			if i+1 < len(fields) {
				if n, err := strconv.Atoi(fields[i+1]); err == nil {
					return field, n, true
				}
			}
			return "", 0, false
		}
	}
	// Compact form without spaces, e.g. "round>=3".
	for _, c := range []string{">=", "<=", "==", ">", "<", "="} {
		if idx := strings.Index(expr, c); idx >= 0 {
			if n, err := strconv.Atoi(strings.TrimSpace(expr[idx+len(c):])); err == nil {
				return c, n, true
			}
			return "", 0, false
		}
	}
	return "", 0, false
}

// abilityUsed scans the event log for an ability-used event whose description
// matches the condition string.
func abilityUsed(condition string, state *models.GameContext) bool {
	needle := strings.ToLower(condition)
	for _, event := range state.EventLog {
		if event.Kind != models.EventAbilityUsed {
			continue
		}
		if needle == "" || strings.Contains(strings.ToLower(event.Description), needle) {
			return true
		}
	}
	return false
}

// votePattern recognizes the three named predicates against the latest voting
// result.
func votePattern(condition string, state *models.GameContext) bool {
	vote, ok := state.LatestVote()
	if !ok {
		return false
	}
	switch strings.TrimSpace(strings.ToLower(condition)) {
	case "unanimous":
		return vote.Unanimous()
	case "tie":
		return vote.Tie()
	case "no_lynch":
		return vote.NoLynch
	}
	return false
}

// FiredCondition returns the first condition permitting a reveal against the
// given state. An already revealed clue never qualifies; an empty condition
// list always does, reported as a zero condition; otherwise the conditions
// are OR'd, each individually probability-gated.
func FiredCondition(clue *models.Clue, state *models.GameContext, roller random.Roller) (models.RevealCondition, bool) {
	if clue.IsRevealed() {
		return models.RevealCondition{}, false
	}
	if len(clue.RevealConditions) == 0 {
		return models.RevealCondition{}, true
	}
	for _, cond := range clue.RevealConditions {
		if EvaluateCondition(cond, state, roller) {
			return cond, true
		}
	}
	return models.RevealCondition{}, false
}

// CheckRevealConditions reports whether the clue may be revealed against the
// given state.
func CheckRevealConditions(clue *models.Clue, state *models.GameContext, roller random.Roller) bool {
	_, ok := FiredCondition(clue, state, roller)
	return ok
}
