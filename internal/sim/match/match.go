package match

import (
	"log"
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/authority"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/state"
	"dropzone.gg/internal/sim/tuning"
	"dropzone.gg/internal/sim/worldgen"
)

// Status is the match lifecycle phase.
type Status string

const (
	StatusStarting Status = "starting"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
)

// Session connection statuses.
const (
	SessionConnecting   = "connecting"
	SessionConnected    = "connected"
	SessionInGame       = "in_game"
	SessionDisconnected = "disconnected"
	SessionDead         = "dead"
)

// End reasons.
const (
	EndReasonTimeLimit    = "TIME_LIMIT"
	EndReasonLastStanding = "LAST_PLAYER_STANDING"
	EndReasonManual       = "MANUAL"
	EndReasonAbandoned    = "ABANDONED"
)

type Config struct {
	ID      string
	Seed    int64
	Tuning  tuning.Tuning
	Catalog *catalogs.ItemCatalog
	Logger  *log.Logger

	// Events receives advisory match events (may be nil).
	Events EventLogger
	// Report receives the final report once the match ends (may be nil).
	Report func(*FinalReport)
	// OnRelease is told whenever a player detaches, however it happened
	// (may be nil).
	OnRelease func(matchID, playerID string)
	// OnDone fires after the ended match is reaped or abandoned (may be
	// nil).
	OnDone func(matchID string)
}

// EventLogger mirrors the persistence sink. WriteEvent runs on the match
// goroutine, so implementations must stay cheap or buffer internally.
type EventLogger interface {
	WriteEvent(e Event) error
}

type Event struct {
	MatchID  string `json:"match_id"`
	Kind     string `json:"kind"`
	PlayerID string `json:"player_id,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Round    uint64 `json:"round"`
	Detail   string `json:"detail,omitempty"`
	At       time.Time `json:"at"`
}

type JoinRequest struct {
	PlayerID string
	Name     string
	Out      chan []byte
	Resp     chan JoinResponse
}

type JoinResponse struct {
	Welcome protocol.WelcomeMsg
	Err     error
}

// Envelope is one inbound client message, routed by Base.Type; Raw is
// decoded inside the match goroutine.
type Envelope struct {
	PlayerID string
	Base     protocol.BaseMessage
	Raw      []byte
}

type leaveRequest struct {
	PlayerID string
	Reason   string
	// Out identifies the transport asking to leave; a stale socket from
	// before a reconnect must not release the live session. Nil means
	// unconditional.
	Out chan []byte
}

type queuedAction struct {
	Kind     string
	TargetID string
	SkillID  string
}

// session is one connected player's transport handle plus authoritative
// player state. Accessed only from the match goroutine.
type session struct {
	playerID string
	name     string
	out      chan []byte
	status   string
	lastSeen time.Time
	ready    bool
	failed   bool

	player *state.PlayerState
	queued *queuedAction

	// sentRooms tracks which room payloads this session already has.
	sentRooms map[[2]int]bool
}

// Match is a single-goroutine authoritative simulation of one bounded
// multiplayer session. All state must be accessed only from the match loop
// goroutine.
type Match struct {
	cfg Config
	tun tuning.Tuning
	log *log.Logger

	status    Status
	round     uint64
	startedAt time.Time
	endsBy    time.Time
	endedAt   time.Time
	endReason string

	sessions map[string]*session
	stats    map[string]*PlayerStats
	rooms    map[[2]int]*worldgen.Room
	terrain  map[[2]int]worldgen.TerrainKind
	items    map[string]*state.ItemInstance
	auth     *authority.Engine

	// everJoined gates the last-player-standing check so a solo match
	// does not end the moment it starts.
	everJoined int

	final *FinalReport

	inbox    chan Envelope
	join     chan JoinRequest
	leave    chan leaveRequest
	endReq   chan string
	statsReq chan chan Snapshot
	stop     chan struct{}
}

func New(cfg Config) *Match {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	m := &Match{
		cfg:      cfg,
		tun:      cfg.Tuning,
		log:      cfg.Logger,
		status:   StatusStarting,
		sessions: map[string]*session{},
		stats:    map[string]*PlayerStats{},
		rooms:    map[[2]int]*worldgen.Room{},
		terrain:  map[[2]int]worldgen.TerrainKind{},
		items:    map[string]*state.ItemInstance{},
		inbox:    make(chan Envelope, 256),
		join:     make(chan JoinRequest, 8),
		leave:    make(chan leaveRequest, 8),
		endReq:   make(chan string, 1),
		statsReq: make(chan chan Snapshot, 4),
		stop:     make(chan struct{}),
	}
	m.auth = authority.New(cfg.Tuning, cfg.Catalog, cfg.Seed, m.traversable)
	return m
}

func (m *Match) ID() string   { return m.cfg.ID }
func (m *Match) Seed() int64  { return m.cfg.Seed }
func (m *Match) Inbox() chan<- Envelope        { return m.inbox }
func (m *Match) Join() chan<- JoinRequest      { return m.join }
func (m *Match) Stop()                         { close(m.stop) }

// Leave asks the match to release a player; safe from any goroutine. A
// non-nil out restricts the release to the session still using that
// transport handle.
func (m *Match) Leave(playerID string, out chan []byte, reason string) {
	select {
	case m.leave <- leaveRequest{PlayerID: playerID, Reason: reason, Out: out}:
	case <-m.stop:
	}
}

// End asks the match to finish early; safe from any goroutine.
func (m *Match) End(reason string) {
	select {
	case m.endReq <- reason:
	default:
	}
}

// terrainAt consults the append-only per-match terrain cache;
// re-derivation is pure so eviction would be harmless.
func (m *Match) terrainAt(cx, cy int) worldgen.TerrainKind {
	key := [2]int{cx, cy}
	if k, ok := m.terrain[key]; ok {
		return k
	}
	k := worldgen.TerrainAt(m.cfg.Seed, cx, cy)
	m.terrain[key] = k
	return k
}

func (m *Match) traversable(cx, cy int) bool {
	return worldgen.Accessible(m.terrainAt(cx, cy))
}

func (m *Match) event(kind, playerID, targetID, detail string, at time.Time) {
	if m.cfg.Events == nil {
		return
	}
	err := m.cfg.Events.WriteEvent(Event{
		MatchID:  m.cfg.ID,
		Kind:     kind,
		PlayerID: playerID,
		TargetID: targetID,
		Round:    m.round,
		Detail:   detail,
		At:       at,
	})
	if err != nil {
		m.log.Printf("match %s: write event %s: %v", m.cfg.ID, kind, err)
	}
}
