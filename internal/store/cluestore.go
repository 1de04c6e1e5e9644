package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/sqlite"
)

const (
	cluePrefix     = "clue:"
	schedulePrefix = "schedule:"
	profilePrefix  = "profile:"

	// profileTTL bounds how long cached player profiles stay fresh.
	profileTTL = 30 * time.Minute
)

// PlayerProfile is a cached summary of a player's measured performance used by
// the dynamic balancer.
type PlayerProfile struct {
	PlayerID          string    `json:"player_id"`
	PerformanceSignal float64   `json:"performance_signal"`
	CluesSolved       int       `json:"clues_solved"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ClueStore persists clues, per-game reveal schedules, and cached player
// profiles through the key-value storage collaborator.
type ClueStore struct {
	kv     *KV
	logger *slog.Logger
}

func NewClueStore(db *sqlite.Database, logger *slog.Logger) *ClueStore {
	return &ClueStore{
		kv:     NewKV(db, logger),
		logger: logger.With("source", "ClueStore"),
	}
}

// PutClue stores the clue under clue:<id>. Clues do not expire.
func (s *ClueStore) PutClue(ctx context.Context, clue *models.Clue) error {
	value, err := json.Marshal(clue)
	if err != nil {
		return errors.Wrap(err, "marshal clue", slog.String("clue_id", clue.ID))
	}
	if err = s.kv.Set(ctx, cluePrefix+clue.ID, value, 0); err != nil {
		return errors.Wrap(err, "put clue", slog.String("clue_id", clue.ID))
	}
	return nil
}

// GetClue loads a clue by id. Returns ErrNotFound for unknown ids.
func (s *ClueStore) GetClue(ctx context.Context, clueID string) (*models.Clue, error) {
	value, err := s.kv.Get(ctx, cluePrefix+clueID)
	if err != nil {
		return nil, errors.Wrap(err, "get clue", slog.String("clue_id", clueID))
	}
	var clue models.Clue
	if err = json.Unmarshal(value, &clue); err != nil {
		return nil, errors.Wrap(err, "unmarshal clue", slog.String("clue_id", clueID))
	}
	return &clue, nil
}

// PutSchedule stores an opaque schedule snapshot under schedule:<gameID>.
func (s *ClueStore) PutSchedule(ctx context.Context, gameID string, snapshot any) error {
	value, err := json.Marshal(snapshot)
	if err != nil {
		return errors.Wrap(err, "marshal schedule", slog.String("game_id", gameID))
	}
	if err = s.kv.Set(ctx, schedulePrefix+gameID, value, 0); err != nil {
		return errors.Wrap(err, "put schedule", slog.String("game_id", gameID))
	}
	return nil
}

// GetSchedule loads the schedule snapshot for a game into dest.
func (s *ClueStore) GetSchedule(ctx context.Context, gameID string, dest any) error {
	value, err := s.kv.Get(ctx, schedulePrefix+gameID)
	if err != nil {
		return errors.Wrap(err, "get schedule", slog.String("game_id", gameID))
	}
	if err = json.Unmarshal(value, dest); err != nil {
		return errors.Wrap(err, "unmarshal schedule", slog.String("game_id", gameID))
	}
	return nil
}

// DeleteSchedule removes the schedule snapshot for a finished game.
func (s *ClueStore) DeleteSchedule(ctx context.Context, gameID string) error {
	if err := s.kv.Delete(ctx, schedulePrefix+gameID); err != nil {
		return errors.Wrap(err, "delete schedule", slog.String("game_id", gameID))
	}
	return nil
}

// PutProfile caches a player profile with a TTL so stale performance data
// ages out instead of steering the balancer forever.
func (s *ClueStore) PutProfile(ctx context.Context, profile PlayerProfile) error {
	value, err := json.Marshal(profile)
	if err != nil {
		return errors.Wrap(err, "marshal profile", slog.String("player_id", profile.PlayerID))
	}
	if err = s.kv.Set(ctx, profilePrefix+profile.PlayerID, value, profileTTL); err != nil {
		return errors.Wrap(err, "put profile", slog.String("player_id", profile.PlayerID))
	}
	return nil
}

// GetProfile loads a cached player profile. Returns ErrNotFound when the
// cache entry is absent or expired.
func (s *ClueStore) GetProfile(ctx context.Context, playerID string) (PlayerProfile, error) {
	var profile PlayerProfile
	value, err := s.kv.Get(ctx, profilePrefix+playerID)
	if err != nil {
		return profile, errors.Wrap(err, "get profile", slog.String("player_id", playerID))
	}
	if err = json.Unmarshal(value, &profile); err != nil {
		return profile, errors.Wrap(err, "unmarshal profile", slog.String("player_id", playerID))
	}
	return profile, nil
}
