package match

import "time"

// PlayerStats is the trusted per-player tally. Every increment happens on
// the match goroutine after the authority engine accepted the action, so a
// client can never inflate its own numbers.
type PlayerStats struct {
	PlayerID       string    `json:"player_id"`
	Name           string    `json:"name"`
	JoinedAt       time.Time `json:"joined_at"`
	Kills          int       `json:"kills"`
	Deaths         int       `json:"deaths"`
	DamageDealt    int       `json:"damage_dealt"`
	DamageTaken    int       `json:"damage_taken"`
	ItemsCollected int       `json:"items_collected"`
	RoomsExplored  int       `json:"rooms_explored"`
	DiedAt         time.Time `json:"died_at,omitempty"`
}

func newPlayerStats(playerID, name string, now time.Time) *PlayerStats {
	return &PlayerStats{PlayerID: playerID, Name: name, JoinedAt: now}
}

func (m *Match) recordPlayerDamage(attackerID, targetID string, dmg int, now time.Time) {
	if s := m.stats[attackerID]; s != nil {
		s.DamageDealt += dmg
	}
	if s := m.stats[targetID]; s != nil {
		s.DamageTaken += dmg
	}
}

func (m *Match) recordPlayerKill(attackerID, targetID string, now time.Time) {
	if s := m.stats[attackerID]; s != nil {
		s.Kills++
	}
	if s := m.stats[targetID]; s != nil {
		s.Deaths++
		s.DiedAt = now
	}
}

func (m *Match) recordItemCollection(playerID string, now time.Time) {
	if s := m.stats[playerID]; s != nil {
		s.ItemsCollected++
	}
}

func (m *Match) recordRoomExplored(playerID string, now time.Time) {
	if s := m.stats[playerID]; s != nil {
		s.RoomsExplored++
	}
}

// Snapshot is an ops view of a live match, served via StatsSnapshot.
type Snapshot struct {
	MatchID    string         `json:"match_id"`
	Status     Status         `json:"status"`
	Round      uint64         `json:"round"`
	Seed       int64          `json:"seed"`
	Players    []PlayerStats  `json:"players"`
	Violations map[string]int `json:"violations,omitempty"`
	Items      int            `json:"world_items"`
	Rooms      int            `json:"rooms_materialized"`
}

func (m *Match) snapshot() Snapshot {
	snap := Snapshot{
		MatchID:    m.cfg.ID,
		Status:     m.status,
		Round:      m.round,
		Seed:       m.cfg.Seed,
		Violations: m.auth.ViolationCounts(),
		Items:      len(m.items),
		Rooms:      len(m.rooms),
	}
	for _, s := range m.stats {
		snap.Players = append(snap.Players, *s)
	}
	return snap
}
