package indexdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/match"
	"dropzone.gg/internal/sim/tuning"
)

func testReport() *match.FinalReport {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &match.FinalReport{
		MatchID:   "m1",
		Seed:      7,
		Reason:    "LAST_PLAYER_STANDING",
		WinnerID:  "a",
		StartedAt: now.Add(-2 * time.Minute),
		EndedAt:   now,
		Rounds:    80,
		Players: []protocol.FinalStanding{
			{PlayerID: "a", Name: "Ada", Rank: 1, Kills: 3, Survived: true, SurvivalSeconds: 120, OverallScore: 50},
			{PlayerID: "b", Name: "Bo", Rank: 2, Kills: 1, Deaths: 1, SurvivalSeconds: 90, OverallScore: 20},
		},
		Violations: map[string]int{"b": 4},
	}
}

func TestRecordReportAndTopPlayers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	s.RecordReport(testReport())
	if err := s.WriteEvent(match.Event{MatchID: "m1", Kind: "match_started", At: time.Now()}); err != nil {
		t.Fatalf("write event: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	top, err := s.TopPlayers(context.Background(), 10)
	if err != nil {
		t.Fatalf("top players: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top players = %d, want 2", len(top))
	}
	if top[0].PlayerID != "a" || top[0].Wins != 1 || top[0].Kills != 3 {
		t.Fatalf("leader = %+v", top[0])
	}

	var total int
	if err := s.db.QueryRow(`SELECT total FROM violations WHERE match_id='m1' AND player_id='b'`).Scan(&total); err != nil {
		t.Fatalf("violations row: %v", err)
	}
	if total != 4 {
		t.Fatalf("violations total = %d", total)
	}
}

func TestUpsertCatalogs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.UpsertCatalogs("", catalogs.Defaults(), tuning.Defaults()); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM catalogs`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n < 2 {
		t.Fatalf("catalog rows = %d, want items_catalog and tuning", n)
	}
}
