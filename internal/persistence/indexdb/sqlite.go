// Package indexdb maintains a queryable sqlite index of finished matches.
// It is a secondary store: the JSONL event logs remain the source of truth,
// and writes are buffered so a stalled disk never stalls a match loop.
package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/match"
	"dropzone.gg/internal/sim/tuning"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqReport reqKind = iota + 1
	reqEvent
)

type req struct {
	kind   reqKind
	report *match.FinalReport
	event  match.Event
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// High buffer: a match ending dumps its full roster at once.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS matches (
			match_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			reason TEXT NOT NULL,
			winner_id TEXT,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL,
			rounds INTEGER NOT NULL,
			players INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_matches_ended_at ON matches(ended_at);`,
		`CREATE TABLE IF NOT EXISTS match_players (
			match_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			name TEXT NOT NULL,
			rank INTEGER NOT NULL,
			kills INTEGER NOT NULL,
			deaths INTEGER NOT NULL,
			damage_dealt INTEGER NOT NULL,
			damage_taken INTEGER NOT NULL,
			items_collected INTEGER NOT NULL,
			rooms_explored INTEGER NOT NULL,
			survived INTEGER NOT NULL,
			survival_seconds REAL NOT NULL,
			overall_score REAL NOT NULL,
			PRIMARY KEY (match_id, player_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_match_players_player ON match_players(player_id);`,
		`CREATE TABLE IF NOT EXISTS violations (
			match_id TEXT NOT NULL,
			player_id TEXT NOT NULL,
			total INTEGER NOT NULL,
			PRIMARY KEY (match_id, player_id)
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			match_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			kind TEXT NOT NULL,
			player_id TEXT,
			target_id TEXT,
			round INTEGER NOT NULL,
			detail TEXT,
			at TEXT NOT NULL,
			PRIMARY KEY (match_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind, match_id);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordReport indexes a finished match. Drops the write if the indexer
// falls behind; the JSONL report log remains the source of truth.
func (s *SQLiteIndex) RecordReport(r *match.FinalReport) {
	if s == nil || s.closed.Load() || r == nil {
		return
	}
	select {
	case s.ch <- req{kind: reqReport, report: r}:
	default:
	}
}

// WriteEvent satisfies match.EventLogger; events are indexed best-effort.
func (s *SQLiteIndex) WriteEvent(e match.Event) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqEvent, event: e}:
	default:
	}
	return nil
}

// UpsertCatalogs stores the applied item catalog and tuning so a recorded
// match can always be replayed against the exact config it ran with.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cat *catalogs.ItemCatalog, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "items.json")); err == nil && len(b) > 0 {
			rows = append(rows, kv{name: "items_defs", digest: cat.Digest, json: b})
		}
	}
	if b, _ := json.Marshal(cat.Templates); len(b) > 0 {
		rows = append(rows, kv{name: "items_catalog", digest: cat.Digest, json: b})
	}
	{
		b, _ := json.Marshal(tune)
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// TopPlayers aggregates lifetime standings across indexed matches, for the
// admin surface.
type TopPlayer struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name"`
	Matches  int     `json:"matches"`
	Wins     int     `json:"wins"`
	Kills    int     `json:"kills"`
	Score    float64 `json:"score"`
}

func (s *SQLiteIndex) TopPlayers(ctx context.Context, limit int) ([]TopPlayer, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT mp.player_id,
		       MAX(mp.name),
		       COUNT(*),
		       SUM(CASE WHEN mp.rank = 1 THEN 1 ELSE 0 END),
		       SUM(mp.kills),
		       SUM(mp.overall_score)
		FROM match_players mp
		GROUP BY mp.player_id
		ORDER BY SUM(mp.overall_score) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopPlayer
	for rows.Next() {
		var p TopPlayer
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Matches, &p.Wins, &p.Kills, &p.Score); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertMatch, _ := s.db.Prepare(`INSERT OR REPLACE INTO matches(match_id,seed,reason,winner_id,started_at,ended_at,rounds,players,raw_json) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertPlayer, _ := s.db.Prepare(`INSERT OR REPLACE INTO match_players(match_id,player_id,name,rank,kills,deaths,damage_dealt,damage_taken,items_collected,rooms_explored,survived,survival_seconds,overall_score) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertViolation, _ := s.db.Prepare(`INSERT OR REPLACE INTO violations(match_id,player_id,total) VALUES(?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(match_id,seq,kind,player_id,target_id,round,detail,at) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertMatch, insertPlayer, insertViolation, insertEvent} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second

		eventSeq = map[string]int{}
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqReport:
			rep := r.report
			raw, _ := json.Marshal(rep)
			if insertMatch != nil {
				if _, err := tx.Stmt(insertMatch).Exec(
					rep.MatchID,
					rep.Seed,
					rep.Reason,
					rep.WinnerID,
					rep.StartedAt.UTC().Format(time.RFC3339Nano),
					rep.EndedAt.UTC().Format(time.RFC3339Nano),
					int64(rep.Rounds),
					len(rep.Players),
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			ok := true
			for _, p := range rep.Players {
				if insertPlayer == nil {
					break
				}
				survived := 0
				if p.Survived {
					survived = 1
				}
				if _, err := tx.Stmt(insertPlayer).Exec(
					rep.MatchID, p.PlayerID, p.Name, p.Rank,
					p.Kills, p.Deaths, p.DamageDealt, p.DamageTaken,
					p.ItemsCollected, p.RoomsExplored,
					survived, p.SurvivalSeconds, p.OverallScore,
				); err != nil {
					rollback()
					ok = false
					break
				}
				opCount++
			}
			if !ok {
				continue
			}
			for id, total := range rep.Violations {
				if insertViolation == nil {
					break
				}
				if _, err := tx.Stmt(insertViolation).Exec(rep.MatchID, id, total); err != nil {
					rollback()
					break
				}
				opCount++
			}
			delete(eventSeq, rep.MatchID)

		case reqEvent:
			e := r.event
			seq := eventSeq[e.MatchID]
			eventSeq[e.MatchID] = seq + 1
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(
					e.MatchID, seq, e.Kind, e.PlayerID, e.TargetID,
					int64(e.Round), e.Detail,
					e.At.UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
