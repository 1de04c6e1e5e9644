package ai_test

import (
	"context"
	"testing"

	"github.com/mirkola/moriarty/internal/ai"
	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/stretchr/testify/require"
)

func TestFallback_coversEveryClueType(t *testing.T) {
	for _, clueType := range models.AllClueTypes() {
		brief := ai.Brief{Setting: "manor", ClueType: clueType}
		text := ai.Fallback(brief)
		require.NotEmpty(t, text, "fallback for %s", clueType)
		// Deterministic: same brief, same text.
		require.Equal(t, text, ai.Fallback(brief))
	}
}

func TestGenerateOrFallback(t *testing.T) {
	ctx := context.Background()
	brief := ai.Brief{Setting: "observatory", ClueType: models.ClueEnvironmental}

	tests := []struct {
		name      string
		generator ai.Generator
		want      string
	}{
		{
			name:      "nil generator falls back",
			generator: nil,
			want:      ai.Fallback(brief),
		},
		{
			name:      "failing generator falls back",
			generator: ai.StaticGenerator{Err: errors.New("unavailable")},
			want:      ai.Fallback(brief),
		},
		{
			name:      "generated text wins",
			generator: ai.StaticGenerator{Text: "A telescope stands askew."},
			want:      "A telescope stands askew.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ai.GenerateOrFallback(ctx, tt.generator, brief))
		})
	}
}
