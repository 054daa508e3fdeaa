package protocol

// Position is a point in continuous world units. The world cell a position
// falls in is derived by the sim, never supplied by the client.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// HELLO (client -> server). Identity is verified by the surrounding auth
// layer before the socket reaches us; we accept the pair as-is.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
	PlayerName      string `json:"player_name"`
	MatchID         string `json:"match_id,omitempty"`
	MaxQueue        int    `json:"max_queue,omitempty"`
}

// WELCOME (server -> client).
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	PlayerID        string         `json:"player_id"`
	MatchID         string         `json:"match_id"`
	Seed            int64          `json:"seed"`
	Round           uint64         `json:"round"`
	Players         []RosterEntry  `json:"players"`
	Landmarks       []LandmarkRef  `json:"landmarks"`
	ItemCatalog     DigestRef      `json:"item_catalog"`
	Tuning          WelcomeTuning  `json:"tuning"`
}

type RosterEntry struct {
	PlayerID string   `json:"player_id"`
	Name     string   `json:"name"`
	Pos      Position `json:"pos"`
	Health   int      `json:"health"`
	Alive    bool     `json:"alive"`
}

type LandmarkRef struct {
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type DigestRef struct {
	Digest string `json:"digest"`
	Count  int    `json:"count"`
}

// WelcomeTuning carries the slice of tuning a client needs to predict
// locally; everything here is advisory, the server revalidates.
type WelcomeTuning struct {
	AutoAttackTickMs int     `json:"auto_attack_tick_ms"`
	SkillTickMs      int     `json:"skill_tick_ms"`
	MaxSpeed         float64 `json:"max_speed"`
	AttackRange      float64 `json:"attack_range"`
	PickupRange      float64 `json:"pickup_range"`
	RoomSize         int     `json:"room_size"`
	CellSize         float64 `json:"cell_size"`
}

// PING (client -> server) / PONG (server -> client).
type PingMsg struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type PongMsg struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// MOVE_REQUEST (client -> server).
type MoveRequestMsg struct {
	Type      string   `json:"type"`
	Position  Position `json:"position"`
	Timestamp int64    `json:"timestamp"`
}

// PLAYER_MOVED (server -> match broadcast).
type PlayerMovedMsg struct {
	Type      string   `json:"type"`
	PlayerID  string   `json:"player_id"`
	Position  Position `json:"position"`
	Timestamp int64    `json:"timestamp"`
}

// POSITION_CORRECTION (server -> offending client only). Position is the
// last known valid position, never the client's claim.
type PositionCorrectionMsg struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
	Reason   string   `json:"reason"`
}

// ATTACK_REQUEST (client -> server).
type AttackRequestMsg struct {
	Type      string `json:"type"`
	TargetID  string `json:"target_id"`
	Timestamp int64  `json:"timestamp"`
}

// COMBAT_RESULT (server -> match broadcast).
type CombatResultMsg struct {
	Type         string `json:"type"`
	AttackerID   string `json:"attacker_id"`
	TargetID     string `json:"target_id"`
	Damage       int    `json:"damage"`
	TargetHealth int    `json:"target_health"`
	TargetDied   bool   `json:"target_died,omitempty"`
	Round        uint64 `json:"round"`
}

type AttackRejectedMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// ITEM_ACTION (client -> server). ActionType is one of pickup|use|equip|
// unequip|drop.
type ItemActionMsg struct {
	Type       string `json:"type"`
	ItemID     string `json:"item_id"`
	ActionType string `json:"action_type"`
	Timestamp  int64  `json:"timestamp"`
}

// ITEM_ACTION_RESULT (server -> match broadcast).
type ItemActionResultMsg struct {
	Type       string    `json:"type"`
	PlayerID   string    `json:"player_id"`
	ItemID     string    `json:"item_id"`
	TemplateID string    `json:"template_id"`
	ActionType string    `json:"action_type"`
	Quantity   int       `json:"quantity,omitempty"`
	Slot       int       `json:"slot,omitempty"`
	Health     int       `json:"health,omitempty"`
	Position   *Position `json:"position,omitempty"`
}

type ItemActionRejectedMsg struct {
	Type   string `json:"type"`
	ItemID string `json:"item_id"`
	Reason string `json:"reason"`
}

// POSITION_UPDATE (client -> server): a lightweight presence report used for
// exploration bookkeeping and room streaming, not subject to speed checks.
type PositionUpdateMsg struct {
	Type     string   `json:"type"`
	Position Position `json:"position"`
	ViewMode string   `json:"view_mode,omitempty"`
}

// ROOM_DATA (server -> one client) streams a freshly relevant room.
type RoomDataMsg struct {
	Type     string      `json:"type"`
	WorldPos [2]int      `json:"world_pos"`
	Room     RoomPayload `json:"room"`
}

type RoomPayload struct {
	Terrain   string    `json:"terrain"`
	Archetype string    `json:"archetype"`
	Size      int       `json:"size"`
	Tiles     [][]uint8 `json:"tiles"`
	Entities  [][]uint8 `json:"entities"`
}

// QUEUE_ACTION (client -> server): queue an action for the next tick.
// Kind is one of auto_attack|skill.
type QueueActionMsg struct {
	Type     string `json:"type"`
	Kind     string `json:"kind"`
	TargetID string `json:"target_id,omitempty"`
	SkillID  string `json:"skill_id,omitempty"`
}

type PlayerReadyMsg struct {
	Type  string `json:"type"`
	Ready bool   `json:"ready"`
}

type StatusUpdateMsg struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// ACK (server -> client): bookkeeping-only acknowledgement.
type AckMsg struct {
	Type     string `json:"type"`
	AckFor   string `json:"ack_for"`
	Accepted bool   `json:"accepted"`
	Code     string `json:"code,omitempty"`
}

// Periodic ticks (server -> match broadcast).
type AutoAttackTickMsg struct {
	Type    string            `json:"type"`
	Round   uint64            `json:"round"`
	Results []CombatResultMsg `json:"results,omitempty"`
}

type SkillTickMsg struct {
	Type    string            `json:"type"`
	Round   uint64            `json:"round"`
	Results []SkillResult     `json:"results,omitempty"`
}

type SkillResult struct {
	PlayerID string `json:"player_id"`
	SkillID  string `json:"skill_id"`
	Health   int    `json:"health,omitempty"`
}

type PlayerStatusUpdateMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Status   string `json:"status"`
	Health   int    `json:"health"`
	Alive    bool   `json:"alive"`
}

type PlayerJoinedMsg struct {
	Type     string   `json:"type"`
	PlayerID string   `json:"player_id"`
	Name     string   `json:"name"`
	Pos      Position `json:"pos"`
}

type PlayerLeftMsg struct {
	Type     string `json:"type"`
	PlayerID string `json:"player_id"`
	Reason   string `json:"reason,omitempty"`
}

type PlayerDiedMsg struct {
	Type         string `json:"type"`
	DeadPlayerID string `json:"dead_player_id"`
	KillerID     string `json:"killer_id,omitempty"`
	Round        uint64 `json:"round"`
}

// MATCH_ENDED (server -> match broadcast) carries the final scoreboard.
type MatchEndedMsg struct {
	Type     string        `json:"type"`
	MatchID  string        `json:"match_id"`
	Reason   string        `json:"reason"`
	WinnerID string        `json:"winner_id,omitempty"`
	Awards   []Award       `json:"awards,omitempty"`
	Players  []FinalStanding `json:"players"`
}

type Award struct {
	Name     string `json:"name"`
	PlayerID string `json:"player_id"`
}

type FinalStanding struct {
	PlayerID         string  `json:"player_id"`
	Name             string  `json:"name"`
	Rank             int     `json:"rank"`
	Kills            int     `json:"kills"`
	Deaths           int     `json:"deaths"`
	DamageDealt      int     `json:"damage_dealt"`
	DamageTaken      int     `json:"damage_taken"`
	ItemsCollected   int     `json:"items_collected"`
	RoomsExplored    int     `json:"rooms_explored"`
	Survived         bool    `json:"survived"`
	SurvivalSeconds  float64 `json:"survival_seconds"`
	CombatScore      float64 `json:"combat_score"`
	ExplorationScore float64 `json:"exploration_score"`
	SurvivalScore    float64 `json:"survival_score"`
	OverallScore     float64 `json:"overall_score"`
}
