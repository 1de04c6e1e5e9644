package reveal

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mirkola/moriarty/internal/ai"
	"github.com/mirkola/moriarty/internal/errors"
	"github.com/mirkola/moriarty/internal/models"
	"github.com/mirkola/moriarty/internal/random"
	"github.com/mirkola/moriarty/internal/store"
)

var (
	ErrClueNotFound     = errors.NewSentinel("clue not found")
	ErrGameNotFound     = errors.NewSentinel("game not found")
	ErrConditionsNotMet = errors.NewSentinel("reveal conditions not met")
)

// ScheduleEntry is one pending reveal in a game's schedule.
type ScheduleEntry struct {
	ClueID     string                   `json:"clue_id"`
	Priority   int                      `json:"priority"`
	Conditions []models.RevealCondition `json:"conditions"`
}

// gameSchedule is the per-game state. Schedules of different games are fully
// independent; each one is guarded by its own mutex so appends and the
// priority-ordered drain exclude each other per game only.
type gameSchedule struct {
	mu      sync.Mutex
	clues   map[string]*models.Clue
	pending []ScheduleEntry
}

// Manager owns the reveal schedules: it registers clues, runs the automatic
// and atmospheric passes, performs chain propagation, and finalizes reveals.
type Manager struct {
	cfg       Config
	generator ai.Generator
	clueStore *store.ClueStore
	roller    random.Roller
	logger    *slog.Logger
	now       func() time.Time

	mu    sync.Mutex
	games map[string]*gameSchedule
}

// NewManager constructs a Manager. generator may be nil (fallback templates
// only); clueStore may be nil (no persistence).
func NewManager(
	cfg Config,
	generator ai.Generator,
	clueStore *store.ClueStore,
	roller random.Roller,
	logger *slog.Logger,
) *Manager {
	if roller == nil {
		roller = random.NewRoller(uint64(time.Now().UnixNano()))
	}
	return &Manager{
		cfg:       cfg,
		generator: generator,
		clueStore: clueStore,
		roller:    roller,
		logger:    logger.With("source", "RevealManager"),
		now:       time.Now,
		games:     make(map[string]*gameSchedule),
	}
}

// SetNowFunc overrides the clock for tests.
func (m *Manager) SetNowFunc(now func() time.Time) {
	m.now = now
}

func (m *Manager) game(gameID string) *gameSchedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		g = &gameSchedule{clues: make(map[string]*models.Clue)}
		m.games[gameID] = g
	}
	return g
}

func (m *Manager) lookupGame(gameID string) (*gameSchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return nil, errors.Wrap(ErrGameNotFound, "lookup game", slog.String("game_id", gameID))
	}
	return g, nil
}

// RegisterClues makes the clues known to the given game and persists them.
func (m *Manager) RegisterClues(ctx context.Context, gameID string, clues []*models.Clue) error {
	g := m.game(gameID)
	g.mu.Lock()
	for _, clue := range clues {
		g.clues[clue.ID] = clue
	}
	g.mu.Unlock()

	if m.clueStore == nil {
		return nil
	}
	for _, clue := range clues {
		if err := m.clueStore.PutClue(ctx, clue); err != nil {
			return errors.Wrap(err, "persist clue", slog.String("clue_id", clue.ID))
		}
	}
	return nil
}

// ScheduleReveal appends a schedule entry for the clue with a computed
// priority. If conditions are given they replace the clue's reveal conditions.
func (m *Manager) ScheduleReveal(
	ctx context.Context,
	clue *models.Clue,
	gameID string,
	conditions []models.RevealCondition,
) error {
	g := m.game(gameID)

	g.mu.Lock()
	g.clues[clue.ID] = clue
	if len(conditions) > 0 {
		clue.RevealConditions = conditions
	}
	entry := ScheduleEntry{
		ClueID:     clue.ID,
		Priority:   schedulePriority(clue),
		Conditions: clue.RevealConditions,
	}
	g.pending = append(g.pending, entry)
	g.mu.Unlock()

	m.logger.DebugContext(ctx, "scheduled reveal",
		slog.String("game_id", gameID),
		slog.String("clue_id", clue.ID),
		slog.Int("priority", entry.Priority))

	return m.persistSchedule(ctx, gameID, g)
}

// UnscheduleReveal removes a pending entry, e.g. when its clue became
// irrelevant. Removing an entry that is not scheduled is not an error.
func (m *Manager) UnscheduleReveal(ctx context.Context, clueID, gameID string) error {
	g, err := m.lookupGame(gameID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	kept := g.pending[:0]
	for _, entry := range g.pending {
		if entry.ClueID != clueID {
			kept = append(kept, entry)
		}
	}
	g.pending = kept
	g.mu.Unlock()

	return m.persistSchedule(ctx, gameID, g)
}

// schedulePriority computes the drain order: base is the clue's information
// value, boosted for very informative clues and event-driven triggers,
// penalized for red herrings.
func schedulePriority(clue *models.Clue) int {
	priority := clue.InformationValue
	if clue.InformationValue > 7 {
		priority += 3
	}
	for _, cond := range clue.RevealConditions {
		if cond.Kind == models.ConditionAbilityUsed || cond.Kind == models.ConditionPlayerEliminated {
			priority += 2
			break
		}
	}
	if clue.Type == models.ClueRedHerring {
		priority -= 2
	}
	return priority
}

// ProcessAutomaticReveals drains every pending entry whose condition now
// holds, in priority order with ties broken by clue id for determinism, then
// runs the atmospheric pass.
func (m *Manager) ProcessAutomaticReveals(ctx context.Context, state *models.GameContext) ([]*models.Reveal, error) {
	g, err := m.lookupGame(state.GameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	// Detach the current schedule before draining: chain propagation and
	// follow-ups append fresh entries to g.pending while we iterate, and
	// those must survive this pass untouched.
	entries := g.pending
	g.pending = nil

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Priority != entries[j].Priority {
			return entries[i].Priority > entries[j].Priority
		}
		return entries[i].ClueID < entries[j].ClueID
	})

	reveals, kept, drainErr := m.drainLocked(ctx, g, entries, state)
	g.pending = append(g.pending, kept...)
	if drainErr != nil {
		return reveals, drainErr
	}

	if bonus := m.atmosphericPassLocked(ctx, g, state); bonus != nil {
		reveals = append(reveals, bonus)
	}

	if err := m.persistScheduleLocked(ctx, state.GameID, g); err != nil {
		return reveals, err
	}
	return reveals, nil
}

// drainLocked finalizes every entry whose condition fires, recording each
// reveal under the method matching the fired condition's kind. Entries whose
// conditions did not fire, plus the not-yet-evaluated tail on error, come
// back as kept: the caller re-appends them so no entry is lost.
func (m *Manager) drainLocked(
	ctx context.Context,
	g *gameSchedule,
	entries []ScheduleEntry,
	state *models.GameContext,
) (reveals []*models.Reveal, kept []ScheduleEntry, err error) {
	for i, entry := range entries {
		clue, ok := g.clues[entry.ClueID]
		if !ok || clue.State == models.ClueStateExpired {
			continue // dropped from the schedule
		}
		cond, fired := FiredCondition(clue, state, m.roller)
		if !fired {
			if !clue.IsRevealed() {
				kept = append(kept, entry)
			}
			continue
		}
		rev, ferr := m.finalizeLocked(ctx, g, clue, state, revealMethodFor(cond.Kind), "", triggerAutomatic)
		if ferr != nil {
			if errors.Is(ferr, models.ErrAlreadyRevealed) || errors.Is(ferr, models.ErrClueExpired) {
				continue
			}
			return reveals, append(kept, entries[i+1:]...), ferr
		}
		reveals = append(reveals, rev)
	}
	return reveals, kept, nil
}

// revealMethodFor maps a fired condition's kind onto the reveal method the
// record should carry, e.g. an elimination-triggered reveal surfaces as a
// death reveal.
func revealMethodFor(kind models.ConditionKind) models.RevealMethod {
	switch kind {
	case models.ConditionPlayerEliminated:
		return models.RevealByDeath
	case models.ConditionVotePattern:
		return models.RevealByVotePattern
	case models.ConditionAbilityUsed:
		return models.RevealBySpecialAbility
	}
	return models.RevealAutomatic
}

// atmosphericPassLocked adds at most one probability-gated narrative reveal
// when game tension runs high.
func (m *Manager) atmosphericPassLocked(ctx context.Context, g *gameSchedule, state *models.GameContext) *models.Reveal {
	tension := Tension(state)
	if tension <= m.cfg.TensionThreshold {
		return nil
	}
	if m.roller.Roll() >= m.cfg.AtmosphericProbability {
		return nil
	}

	candidate := m.atmosphericCandidateLocked(g)
	if candidate == nil {
		return nil
	}

	rev, err := m.finalizeLocked(ctx, g, candidate, state, models.RevealAutomatic, "", triggerAtmospheric)
	if err != nil {
		m.logger.LogAttrs(ctx, slog.LevelDebug, "atmospheric reveal lost the race", errors.SlogError(err))
		return nil
	}
	m.logger.LogAttrs(ctx, slog.LevelInfo, "atmospheric bonus reveal",
		slog.String("clue_id", candidate.ID), slog.Float64("tension", tension))
	return rev
}

// atmosphericCandidateLocked picks the unrevealed narrative clue with the
// highest narrative weight.
func (m *Manager) atmosphericCandidateLocked(g *gameSchedule) *models.Clue {
	var best *models.Clue
	for _, clue := range g.clues {
		if clue.Type != models.ClueNarrative || clue.State != models.ClueStateUnrevealed {
			continue
		}
		if best == nil || clue.NarrativeWeight > best.NarrativeWeight ||
			(clue.NarrativeWeight == best.NarrativeWeight && clue.ID < best.ID) {
			best = clue
		}
	}
	return best
}

// RevealClue reveals a clue by id. Without a triggering actor the clue's
// conditions must hold; an actor overrides them (player-initiated reveals
// have already paid their cost).
func (m *Manager) RevealClue(
	ctx context.Context,
	clueID, gameID string,
	triggeredBy string,
	state *models.GameContext,
) (*models.Reveal, error) {
	g, err := m.lookupGame(gameID)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	clue, ok := g.clues[clueID]
	if !ok {
		return nil, errors.Wrap(ErrClueNotFound, "reveal clue",
			slog.String("clue_id", clueID), slog.String("game_id", gameID))
	}

	if triggeredBy == "" && !CheckRevealConditions(clue, state, m.roller) {
		return nil, errors.Wrap(ErrConditionsNotMet, "reveal clue",
			slog.String("clue_id", clueID), slog.String("game_id", gameID))
	}

	method := models.RevealAutomatic
	trigger := triggerAutomatic
	if triggeredBy != "" {
		method = models.RevealByInvestigation
		trigger = triggerInvestigation
	}

	rev, err := m.finalizeLocked(ctx, g, clue, state, method, triggeredBy, trigger)
	if err != nil {
		return nil, err
	}
	if err := m.persistScheduleLocked(ctx, gameID, g); err != nil {
		return rev, err
	}
	return rev, nil
}

// finalizeLocked performs the reveal state transition and its consequences.
// The caller holds the game mutex. The clue-level check-and-set resolves
// races: the loser gets ErrAlreadyRevealed and must discard its attempt.
func (m *Manager) finalizeLocked(
	ctx context.Context,
	g *gameSchedule,
	clue *models.Clue,
	state *models.GameContext,
	method models.RevealMethod,
	triggeredBy string,
	trigger narrativeTrigger,
) (*models.Reveal, error) {
	if err := clue.MarkRevealed(triggeredBy, m.now()); err != nil {
		return nil, err
	}

	impact := computeImpact(clue, state)
	unlocked := m.propagateChainLocked(ctx, g, clue, state)
	impact.UnlocksClues = unlocked

	rev := &models.Reveal{
		ID:          uuid.NewString(),
		ClueID:      clue.ID,
		GameID:      state.GameID,
		Audience:    models.Everyone(),
		TriggeredBy: triggeredBy,
		Method:      method,
		Timestamp:   m.now(),
		Narrative:   m.revealNarrative(ctx, clue, state, trigger),
		Impact:      impact,
	}

	// A critical reveal earns a follow-up atmospheric beat next round.
	if impact.StrategicValue == models.StrategicCritical {
		m.scheduleFollowUpLocked(ctx, g, state)
	}

	if m.clueStore != nil {
		if err := m.clueStore.PutClue(ctx, clue); err != nil {
			m.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist revealed clue",
				errors.SlogError(err), slog.String("clue_id", clue.ID))
		}
	}

	m.logger.LogAttrs(ctx, slog.LevelInfo, "clue revealed",
		slog.String("clue_id", clue.ID),
		slog.String("game_id", state.GameID),
		slog.String("method", string(method)))

	return rev, nil
}

// propagateChainLocked walks the possibly-cyclic relation graph with a work
// queue and a visited set, scheduling every reachable unrevealed clue whose
// type complements its predecessor's.
func (m *Manager) propagateChainLocked(
	ctx context.Context,
	g *gameSchedule,
	origin *models.Clue,
	state *models.GameContext,
) []string {
	visited := map[string]bool{origin.ID: true}
	queue := []*models.Clue{origin}
	var unlocked []string

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, relatedID := range current.RelatedClues {
			if visited[relatedID] {
				continue
			}
			visited[relatedID] = true

			related, ok := g.clues[relatedID]
			if !ok || related.State != models.ClueStateUnrevealed {
				continue
			}
			if !m.cfg.complementary(current.Type, related.Type) {
				continue
			}

			related.RevealConditions = []models.RevealCondition{
				models.RoundCondition(state.Round, m.cfg.ChainProbability),
			}
			g.pending = append(g.pending, ScheduleEntry{
				ClueID:     related.ID,
				Priority:   schedulePriority(related),
				Conditions: related.RevealConditions,
			})
			unlocked = append(unlocked, related.ID)
			queue = append(queue, related)

			m.logger.DebugContext(ctx, "chain reveal scheduled",
				slog.String("origin", current.ID), slog.String("clue_id", related.ID))
		}
	}
	return unlocked
}

// scheduleFollowUpLocked mints a short atmospheric clue for the next round.
func (m *Manager) scheduleFollowUpLocked(ctx context.Context, g *gameSchedule, state *models.GameContext) {
	brief := ai.Brief{
		Theme:    state.Scenario.Theme,
		Setting:  state.Scenario.Setting,
		Tone:     state.Scenario.Tone,
		ClueType: models.ClueNarrative,
	}
	clue := models.NewClue(models.ClueNarrative, "Aftermath",
		ai.GenerateOrFallback(ctx, m.generator, brief), models.MinInformationValue)
	clue.NarrativeWeight = 1
	clue.RevealConditions = []models.RevealCondition{
		models.RoundCondition(state.Round+1, m.cfg.FollowUpProbability),
	}

	g.clues[clue.ID] = clue
	g.pending = append(g.pending, ScheduleEntry{
		ClueID:     clue.ID,
		Priority:   schedulePriority(clue),
		Conditions: clue.RevealConditions,
	})
}

// ExpireGame marks every unrevealed clue of a finished game as expired and
// clears its schedule.
func (m *Manager) ExpireGame(ctx context.Context, gameID string) error {
	g, err := m.lookupGame(gameID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	for _, clue := range g.clues {
		clue.Expire()
	}
	g.pending = nil
	g.mu.Unlock()

	m.mu.Lock()
	delete(m.games, gameID)
	m.mu.Unlock()

	if m.clueStore != nil {
		if err := m.clueStore.DeleteSchedule(ctx, gameID); err != nil {
			return errors.Wrap(err, "delete schedule", slog.String("game_id", gameID))
		}
	}
	return nil
}

// PendingCount reports how many reveals are scheduled for a game.
func (m *Manager) PendingCount(gameID string) int {
	g, err := m.lookupGame(gameID)
	if err != nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Clue returns a registered clue by id.
func (m *Manager) Clue(gameID, clueID string) (*models.Clue, error) {
	g, err := m.lookupGame(gameID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	clue, ok := g.clues[clueID]
	if !ok {
		return nil, errors.Wrap(ErrClueNotFound, "lookup clue",
			slog.String("clue_id", clueID), slog.String("game_id", gameID))
	}
	return clue, nil
}

func (m *Manager) persistSchedule(ctx context.Context, gameID string, g *gameSchedule) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return m.persistScheduleLocked(ctx, gameID, g)
}

func (m *Manager) persistScheduleLocked(ctx context.Context, gameID string, g *gameSchedule) error {
	if m.clueStore == nil {
		return nil
	}
	if err := m.clueStore.PutSchedule(ctx, gameID, g.pending); err != nil {
		return errors.Wrap(err, "persist schedule", slog.String("game_id", gameID))
	}
	return nil
}
