package arena

import (
	"io"
	"log"
	"testing"
	"time"

	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/match"
	"dropzone.gg/internal/sim/tuning"
)

func newTestManager(maxPlayers int) *Manager {
	return NewManager(Config{
		Tuning:     tuning.Defaults(),
		Catalog:    catalogs.Defaults(),
		Logger:     log.New(io.Discard, "", 0),
		MaxPlayers: maxPlayers,
		Seed:       func() int64 { return 99 },
	})
}

func TestAdmitMatchmakesIntoSameMatch(t *testing.T) {
	m := newTestManager(4)
	defer m.Close()

	s1, w1, err := m.Admit("p1", "Ada", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p1: %v", err)
	}
	s2, w2, err := m.Admit("p2", "Bo", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p2: %v", err)
	}
	if s1.MatchID != s2.MatchID {
		t.Fatalf("matchmaking split the lobby: %s vs %s", s1.MatchID, s2.MatchID)
	}
	if w1.Seed != 99 || w2.Seed != 99 {
		t.Fatalf("seeds: %d %d", w1.Seed, w2.Seed)
	}
	if len(w2.Players) != 2 {
		t.Fatalf("second welcome roster = %d", len(w2.Players))
	}
}

func TestAdmitOverflowOpensNewMatch(t *testing.T) {
	m := newTestManager(1)
	defer m.Close()

	s1, _, err := m.Admit("p1", "Ada", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p1: %v", err)
	}
	s2, _, err := m.Admit("p2", "Bo", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p2: %v", err)
	}
	if s1.MatchID == s2.MatchID {
		t.Fatalf("cap ignored, both in %s", s1.MatchID)
	}
	if snap := m.Snapshot(); snap.ActiveMatches != 2 {
		t.Fatalf("active matches = %d", snap.ActiveMatches)
	}
}

func TestAdmitExplicitMatchID(t *testing.T) {
	m := newTestManager(1)
	defer m.Close()

	s1, _, err := m.Admit("p1", "Ada", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p1: %v", err)
	}
	// The cap does not apply to explicit ids.
	s2, _, err := m.Admit("p2", "Bo", s1.MatchID, make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit into %s: %v", s1.MatchID, err)
	}
	if s2.MatchID != s1.MatchID {
		t.Fatalf("joined %s, want %s", s2.MatchID, s1.MatchID)
	}
	// An unknown explicit id opens a fresh match with that id, the joiner
	// as its sole member.
	s3, w3, err := m.Admit("p3", "Cy", "party-7", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit into fresh party match: %v", err)
	}
	if s3.MatchID != "party-7" {
		t.Fatalf("joined %s, want party-7", s3.MatchID)
	}
	if len(w3.Players) != 1 {
		t.Fatalf("fresh party roster = %d", len(w3.Players))
	}
	s4, _, err := m.Admit("p4", "Dee", "party-7", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit into party-7: %v", err)
	}
	if s4.MatchID != "party-7" {
		t.Fatalf("party member landed in %s", s4.MatchID)
	}
}

func TestReleaseFreesSlot(t *testing.T) {
	m := newTestManager(2)
	defer m.Close()

	s1, _, err := m.Admit("p1", "Ada", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p1: %v", err)
	}
	s2, _, err := m.Admit("p2", "Bo", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p2: %v", err)
	}
	if s2.MatchID != s1.MatchID {
		t.Fatalf("lobby split before it filled")
	}
	m.Release(s2, "client_disconnect")

	// Release is asynchronous; wait for the match to report one player.
	freed := false
	for i := 0; i < 100 && !freed; i++ {
		snap := m.Snapshot()
		for _, ms := range snap.Matches {
			if ms.MatchID == s1.MatchID && len(ms.Players) == 1 {
				freed = true
			}
		}
		if !freed {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if !freed {
		t.Fatalf("released slot not reflected in snapshot")
	}

	s3, _, err := m.Admit("p3", "Cy", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit p3: %v", err)
	}
	if s3.MatchID != s1.MatchID {
		t.Fatalf("p3 landed in %s, want reuse of %s", s3.MatchID, s1.MatchID)
	}
}

func TestForwardAfterCloseFails(t *testing.T) {
	m := newTestManager(4)
	s, _, err := m.Admit("p1", "Ada", "", make(chan []byte, 64))
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	m.Close()

	if m.Forward(s, match.Envelope{PlayerID: "p1"}) {
		t.Fatalf("forward succeeded after close")
	}
	if _, _, err := m.Admit("p2", "Bo", "", make(chan []byte, 64)); err == nil {
		t.Fatalf("admit succeeded after close")
	}
}
