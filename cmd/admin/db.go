package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

func openDB(dataDir, dbPath string) *sql.DB {
	path := dbPath
	if path == "" {
		path = filepath.Join(dataDir, "index.db")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "index db:", err)
		os.Exit(1)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	return db
}

func matchesCmd(args []string) {
	fs := flag.NewFlagSet("matches", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	db := openDB(*dataDir, *dbPath)
	defer db.Close()

	rows, err := db.Query(`
		SELECT match_id, seed, reason, COALESCE(winner_id, ''), ended_at, rounds, players
		FROM matches ORDER BY ended_at DESC LIMIT ?`, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()

	fmt.Printf("%-38s %-22s %-24s %-12s %6s %7s\n", "MATCH", "REASON", "ENDED", "WINNER", "ROUNDS", "PLAYERS")
	for rows.Next() {
		var id, reason, winner, ended string
		var seed int64
		var rounds, players int
		if err := rows.Scan(&id, &seed, &reason, &winner, &ended, &rounds, &players); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		fmt.Printf("%-38s %-22s %-24s %-12s %6d %7d\n", id, reason, ended, winner, rounds, players)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func playersCmd(args []string) {
	fs := flag.NewFlagSet("players", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	playerID := fs.String("player", "", "player id (required)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	if *playerID == "" {
		fmt.Fprintln(os.Stderr, "missing -player")
		os.Exit(2)
	}

	db := openDB(*dataDir, *dbPath)
	defer db.Close()

	rows, err := db.Query(`
		SELECT p.match_id, p.rank, p.kills, p.deaths, p.damage_dealt, p.items_collected,
		       p.rooms_explored, p.survived, p.overall_score, m.reason, m.ended_at
		FROM match_players p JOIN matches m ON m.match_id = p.match_id
		WHERE p.player_id = ? ORDER BY m.ended_at DESC LIMIT ?`, *playerID, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()

	fmt.Printf("%-38s %4s %5s %6s %6s %5s %5s %5s %7s  %s\n",
		"MATCH", "RANK", "KILLS", "DEATHS", "DMG", "ITEMS", "ROOMS", "ALIVE", "SCORE", "REASON")
	for rows.Next() {
		var id, reason, ended string
		var rank, kills, deaths, dmg, items, roomCount, survived int
		var score float64
		if err := rows.Scan(&id, &rank, &kills, &deaths, &dmg, &items, &roomCount, &survived, &score, &reason, &ended); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		fmt.Printf("%-38s %4d %5d %6d %6d %5d %5d %5d %7.1f  %s\n",
			id, rank, kills, deaths, dmg, items, roomCount, survived, score, reason)
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}

func standingsCmd(args []string) {
	fs := flag.NewFlagSet("standings", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	matchID := fs.String("match", "", "match id (required)")
	_ = fs.Parse(args)

	if *matchID == "" {
		fmt.Fprintln(os.Stderr, "missing -match")
		os.Exit(2)
	}

	db := openDB(*dataDir, *dbPath)
	defer db.Close()

	rows, err := db.Query(`
		SELECT p.rank, p.player_id, p.name, p.kills, p.deaths, p.damage_dealt, p.damage_taken,
		       p.items_collected, p.rooms_explored, p.survived, p.survival_seconds, p.overall_score,
		       COALESCE(v.total, 0)
		FROM match_players p
		LEFT JOIN violations v ON v.match_id = p.match_id AND v.player_id = p.player_id
		WHERE p.match_id = ? ORDER BY p.rank`, *matchID)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()

	fmt.Printf("%4s %-16s %-16s %5s %6s %6s %6s %5s %5s %5s %8s %7s %5s\n",
		"RANK", "PLAYER", "NAME", "KILLS", "DEATHS", "DEALT", "TAKEN", "ITEMS", "ROOMS", "ALIVE", "SECONDS", "SCORE", "VIOL")
	var n int
	for rows.Next() {
		var playerID, name string
		var rank, kills, deaths, dealt, taken, items, roomCount, survived, viol int
		var seconds, score float64
		if err := rows.Scan(&rank, &playerID, &name, &kills, &deaths, &dealt, &taken,
			&items, &roomCount, &survived, &seconds, &score, &viol); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		fmt.Printf("%4d %-16s %-16s %5d %6d %6d %6d %5d %5d %5d %8.1f %7.1f %5d\n",
			rank, playerID, name, kills, deaths, dealt, taken, items, roomCount, survived, seconds, score, viol)
		n++
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
	if n == 0 {
		fmt.Fprintln(os.Stderr, "no standings for", *matchID)
		os.Exit(2)
	}
}
