package ai

import (
	"context"
	"fmt"

	"github.com/mirkola/moriarty/internal/models"
)

// fallbackTemplates are deterministic clue texts indexed by clue type. They are
// used whenever the generator fails so that generation failures never surface
// past this package's callers.
var fallbackTemplates = map[models.ClueType]string{
	models.ClueRoleHint:            "Someone here carries themselves like a %s. Their hands give away practiced habits.",
	models.ClueAlignmentHint:       "Loyalties in the %s run deeper than anyone admits. One of you serves another master.",
	models.ClueActionEvidence:      "Traces of last night's movements linger in the %s. Somebody was where they should not have been.",
	models.ClueRelationship:        "Two guests exchanged a glance across the %s that lasted a breath too long.",
	models.ClueBehavioral:          "Watch how they answer questions about the %s. Hesitation has its own vocabulary.",
	models.ClueEnvironmental:       "The %s holds small disturbances: a moved chair, a snuffed candle, a door ajar.",
	models.ClueRedHerring:          "A torn note found near the %s names a name. Notes can be planted as easily as dropped.",
	models.ClueDirectEvidence:      "Found in the %s: evidence that points squarely at one of the players.",
	models.ClueInvestigationResult: "The inquiry into the %s has produced findings worth weighing carefully.",
	models.ClueNarrative:           "Night settles over the %s. Whatever began here is not finished.",
	models.ClueSocial:              "Alliances shift in the %s like weather. Listen to who defends whom.",
}

// Fallback returns the deterministic template text for the brief's clue type.
func Fallback(brief Brief) string {
	tmpl, ok := fallbackTemplates[brief.ClueType]
	if !ok {
		tmpl = fallbackTemplates[models.ClueNarrative]
	}
	place := brief.Setting
	if place == "" {
		place = "scene"
	}
	if brief.ClueType == models.ClueRoleHint && brief.TargetRole != "" {
		return fmt.Sprintf(tmpl, brief.TargetRole)
	}
	return fmt.Sprintf(tmpl, place)
}

// GenerateOrFallback runs the generator and substitutes the fallback template
// on any failure. A nil generator always falls back.
func GenerateOrFallback(ctx context.Context, g Generator, brief Brief) string {
	if g == nil {
		return Fallback(brief)
	}
	text, err := g.Generate(ctx, brief)
	if err != nil || text == "" {
		return Fallback(brief)
	}
	return text
}

// StaticGenerator returns canned text for offline simulation and tests.
type StaticGenerator struct {
	Text string
	Err  error
}

func (g StaticGenerator) Generate(_ context.Context, brief Brief) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	if g.Text != "" {
		return g.Text, nil
	}
	return Fallback(brief), nil
}
