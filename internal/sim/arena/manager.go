// Package arena owns the set of live matches: creating them on demand,
// routing players into them, and reaping them once they finish.
package arena

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/match"
	"dropzone.gg/internal/sim/tuning"
)

const matchRequestTimeout = 3 * time.Second

// Session is the transport-facing handle for one admitted player.
type Session struct {
	PlayerID string
	MatchID  string
	Out      chan []byte
}

type runtime struct {
	match   *match.Match
	players int
}

type Config struct {
	Tuning  tuning.Tuning
	Catalog *catalogs.ItemCatalog
	Logger  *log.Logger

	// MaxPlayers caps how many players matchmaking packs into one match
	// before opening another. Explicit match ids bypass the cap so a
	// party can always regroup.
	MaxPlayers int

	// Seed overrides world seed selection, for tests.
	Seed func() int64

	Events match.EventLogger
	Report func(*match.FinalReport)
}

type Manager struct {
	mu  sync.RWMutex
	cfg Config
	log *log.Logger

	matches map[string]*runtime
	closed  bool

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.MaxPlayers <= 0 {
		cfg.MaxPlayers = 10
	}
	if cfg.Seed == nil {
		cfg.Seed = func() int64 { return time.Now().UnixNano() }
	}
	return &Manager{
		cfg:     cfg,
		log:     cfg.Logger,
		matches: map[string]*runtime{},
	}
}

// Admit places a player into a match and returns the session handle plus
// the welcome payload. An empty matchID means "matchmake me"; a concrete
// one targets that match (a reconnect or a party invite).
func (m *Manager) Admit(playerID, name, matchID string, out chan []byte) (Session, protocol.WelcomeMsg, error) {
	rt, id, err := m.pickMatch(matchID)
	if err != nil {
		return Session{}, protocol.WelcomeMsg{}, err
	}

	resp := make(chan match.JoinResponse, 1)
	req := match.JoinRequest{PlayerID: playerID, Name: name, Out: out, Resp: resp}
	ctx, cancel := context.WithTimeout(context.Background(), matchRequestTimeout)
	defer cancel()

	select {
	case rt.match.Join() <- req:
	case <-ctx.Done():
		return Session{}, protocol.WelcomeMsg{}, fmt.Errorf("match %s busy: %w", id, ctx.Err())
	}
	var r match.JoinResponse
	select {
	case r = <-resp:
	case <-ctx.Done():
		return Session{}, protocol.WelcomeMsg{}, fmt.Errorf("match %s join timed out: %w", id, ctx.Err())
	}
	if r.Err != nil {
		return Session{}, protocol.WelcomeMsg{}, r.Err
	}

	m.mu.Lock()
	if cur := m.matches[id]; cur != nil {
		cur.players++
	}
	m.mu.Unlock()

	return Session{PlayerID: playerID, MatchID: id, Out: out}, r.Welcome, nil
}

// pickMatch resolves the target match. An explicit id joins that match,
// creating it with the joining player as sole initial member if it does
// not exist yet; matchmaking otherwise fills the first open match, then
// creates one.
func (m *Manager) pickMatch(matchID string) (*runtime, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, "", errors.New("arena closed")
	}

	if matchID != "" {
		if rt := m.matches[matchID]; rt != nil {
			return rt, matchID, nil
		}
		return m.spawnLocked(matchID)
	}

	for id, rt := range m.matches {
		if rt.players < m.cfg.MaxPlayers {
			return rt, id, nil
		}
	}
	return m.spawnLocked("")
}

func (m *Manager) spawnLocked(id string) (*runtime, string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	mt := match.New(match.Config{
		ID:      id,
		Seed:    m.cfg.Seed(),
		Tuning:  m.cfg.Tuning,
		Catalog: m.cfg.Catalog,
		Logger:  m.log,
		Events:  m.cfg.Events,
		Report:  m.cfg.Report,
		OnRelease: func(matchID, playerID string) {
			m.mu.Lock()
			if rt := m.matches[matchID]; rt != nil && rt.players > 0 {
				rt.players--
			}
			m.mu.Unlock()
		},
		OnDone: func(matchID string) {
			m.mu.Lock()
			delete(m.matches, matchID)
			m.mu.Unlock()
			m.log.Printf("arena: match %s done", matchID)
		},
	})
	rt := &runtime{match: mt}
	m.matches[id] = rt

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := mt.Run(context.Background()); err != nil {
			m.log.Printf("arena: match %s run: %v", id, err)
		}
	}()
	m.log.Printf("arena: match %s spawned", id)
	return rt, id, nil
}

// Release detaches a player; the match handles the bookkeeping.
func (m *Manager) Release(s Session, reason string) {
	m.mu.RLock()
	rt := m.matches[s.MatchID]
	m.mu.RUnlock()
	if rt != nil {
		rt.match.Leave(s.PlayerID, s.Out, reason)
	}
}

// Forward hands an inbound envelope to the player's match without
// blocking; a full inbox drops the message, the client retries.
func (m *Manager) Forward(s Session, env match.Envelope) bool {
	m.mu.RLock()
	rt := m.matches[s.MatchID]
	m.mu.RUnlock()
	if rt == nil {
		return false
	}
	select {
	case rt.match.Inbox() <- env:
		return true
	default:
		return false
	}
}

// EndMatch asks a match to finish early, for admin tooling.
func (m *Manager) EndMatch(matchID, reason string) bool {
	m.mu.RLock()
	rt := m.matches[matchID]
	m.mu.RUnlock()
	if rt == nil {
		return false
	}
	rt.match.End(reason)
	return true
}

// Snapshot is the ops view served at /statusz.
type Snapshot struct {
	ActiveMatches int              `json:"active_matches"`
	Matches       []match.Snapshot `json:"matches"`
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	rts := make([]*runtime, 0, len(m.matches))
	for _, rt := range m.matches {
		rts = append(rts, rt)
	}
	m.mu.RUnlock()

	snap := Snapshot{ActiveMatches: len(rts)}
	for _, rt := range rts {
		if s, ok := rt.match.StatsSnapshot(); ok {
			snap.Matches = append(snap.Matches, s)
		}
	}
	return snap
}

// Close stops every live match and waits for their goroutines. Only the
// manager ever calls Stop on a match.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		rts := make([]*runtime, 0, len(m.matches))
		for _, rt := range m.matches {
			rts = append(rts, rt)
		}
		m.matches = map[string]*runtime{}
		m.mu.Unlock()

		for _, rt := range rts {
			rt.match.Stop()
		}
		m.wg.Wait()
	})
}
