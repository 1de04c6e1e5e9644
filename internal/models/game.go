package models

// Alignment is a player's faction.
type Alignment string

const (
	AlignmentTown    Alignment = "town"
	AlignmentMafia   Alignment = "mafia"
	AlignmentNeutral Alignment = "neutral"
)

// RoleType categorizes what a role is built to do.
type RoleType string

const (
	RoleInvestigative RoleType = "investigative"
	RoleProtective    RoleType = "protective"
	RoleKilling       RoleType = "killing"
	RoleSupport       RoleType = "support"
	RoleVanilla       RoleType = "vanilla"
)

// AbilityType is the closed set of ability categories.
type AbilityType string

const (
	AbilityInvestigate AbilityType = "investigate"
	AbilityProtect     AbilityType = "protect"
	AbilityBlock       AbilityType = "block"
	AbilityKill        AbilityType = "kill"
	AbilitySupport     AbilityType = "support"
)

// Ability is a role ability with limited uses.
type Ability struct {
	Name          string      `json:"name" yaml:"name"`
	Type          AbilityType `json:"type" yaml:"type"`
	UsesLeft      int         `json:"uses_left" yaml:"uses_left"`
	LastUsedRound int         `json:"last_used_round" yaml:"last_used_round"`
}

// Role is a player's assigned role.
type Role struct {
	Name      string    `json:"name" yaml:"name"`
	Type      RoleType  `json:"type" yaml:"type"`
	Alignment Alignment `json:"alignment" yaml:"alignment"`
	Abilities []Ability `json:"abilities,omitempty" yaml:"abilities,omitempty"`
}

// HasAbilityType reports whether the role carries an ability of the given type.
func (r Role) HasAbilityType(t AbilityType) bool {
	for _, a := range r.Abilities {
		if a.Type == t {
			return true
		}
	}
	return false
}

// Player is a participant snapshot supplied by the game engine.
type Player struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Role  Role   `json:"role" yaml:"role"`
	Alive bool   `json:"alive" yaml:"alive"`

	// Activity counters feed the dynamic balancer's performance signal.
	Actions        int `json:"actions" yaml:"actions"`
	Communications int `json:"communications" yaml:"communications"`
}

// Phase is the current game phase.
type Phase string

const (
	PhaseDay    Phase = "day"
	PhaseNight  Phase = "night"
	PhaseVoting Phase = "voting"
)

// EventKind classifies entries in the game event log.
type EventKind string

const (
	EventElimination EventKind = "elimination"
	EventAbilityUsed EventKind = "ability_used"
	EventPhaseChange EventKind = "phase_change"
	EventVote        EventKind = "vote"
)

// GameEvent is one entry in the event log.
type GameEvent struct {
	Kind        EventKind `json:"kind"`
	Round       int       `json:"round"`
	ActorID     string    `json:"actor_id,omitempty"`
	TargetID    string    `json:"target_id,omitempty"`
	Description string    `json:"description,omitempty"`
}

// VoteRecord is the outcome of one voting round.
type VoteRecord struct {
	Round      int               `json:"round"`
	Votes      map[string]string `json:"votes"` // voter id -> suspect id
	Eliminated string            `json:"eliminated,omitempty"`
	NoLynch    bool              `json:"no_lynch"`
}

// Unanimous reports whether every cast vote named the same suspect.
func (v VoteRecord) Unanimous() bool {
	if len(v.Votes) == 0 {
		return false
	}
	var first string
	for _, suspect := range v.Votes {
		if first == "" {
			first = suspect
		} else if suspect != first {
			return false
		}
	}
	return true
}

// Tie reports whether the top vote count is shared by more than one suspect.
func (v VoteRecord) Tie() bool {
	counts := make(map[string]int)
	for _, suspect := range v.Votes {
		counts[suspect]++
	}
	max, withMax := 0, 0
	for _, count := range counts {
		if count > max {
			max = count
			withMax = 1
		} else if count == max {
			withMax++
		}
	}
	return withMax > 1
}

// Scenario is the narrative frame the clue content is generated against.
type Scenario struct {
	Theme      string   `json:"theme" yaml:"theme"`
	Setting    string   `json:"setting" yaml:"setting"`
	Tone       string   `json:"tone" yaml:"tone"`
	Vocabulary []string `json:"vocabulary,omitempty" yaml:"vocabulary,omitempty"`
}

// GameContext is a read-only snapshot of the game supplied on every call.
type GameContext struct {
	GameID            string       `json:"game_id"`
	Round             int          `json:"round"`
	ExpectedLength    int          `json:"expected_length"` // planned number of rounds
	Phase             Phase        `json:"phase"`
	Players           []*Player    `json:"players"`
	AlivePlayers      []string     `json:"alive_players"`
	EliminatedPlayers []string     `json:"eliminated_players"`
	VotingHistory     []VoteRecord `json:"voting_history,omitempty"`
	Communications    []string     `json:"communications,omitempty"`
	EventLog          []GameEvent  `json:"event_log,omitempty"`
	Scenario          Scenario     `json:"scenario"`
}

// Player returns the player with the given id, or nil.
func (g *GameContext) Player(id string) *Player {
	for _, p := range g.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// TotalPlayers is the number of participants, alive or not.
func (g *GameContext) TotalPlayers() int {
	return len(g.Players)
}

// LatestVote returns the most recent voting record, or a zero record.
func (g *GameContext) LatestVote() (VoteRecord, bool) {
	if len(g.VotingHistory) == 0 {
		return VoteRecord{}, false
	}
	return g.VotingHistory[len(g.VotingHistory)-1], true
}

// IsEliminated reports whether the player id appears in the eliminated list.
func (g *GameContext) IsEliminated(playerID string) bool {
	for _, id := range g.EliminatedPlayers {
		if id == playerID {
			return true
		}
	}
	return false
}
