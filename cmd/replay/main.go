// Command replay reads the append-only match event logs and prints a
// per-match timeline. The JSONL logs are the source of truth; this tool
// is how we audit a disputed match after the fact.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"dropzone.gg/internal/sim/match"
)

func main() {
	var (
		dataDir = flag.String("data", "./data", "runtime data directory")
		matchID = flag.String("match", "", "match id filter (optional)")
		kind    = flag.String("kind", "", "event kind filter, e.g. player_died (optional)")
		player  = flag.String("player", "", "player id filter, matches actor or target (optional)")
		summary = flag.Bool("summary", false, "print per-match event counts instead of the timeline")
	)
	flag.Parse()

	files, err := listEventFiles(filepath.Join(*dataDir, "events"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "list events:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no event files found under", *dataDir)
		os.Exit(1)
	}

	counts := map[string]map[string]int{}
	var printed int
	for _, path := range files {
		err := scanFile(path, func(e match.Event) {
			if *matchID != "" && e.MatchID != *matchID {
				return
			}
			if *kind != "" && e.Kind != *kind {
				return
			}
			if *player != "" && e.PlayerID != *player && e.TargetID != *player {
				return
			}
			if *summary {
				m := counts[e.MatchID]
				if m == nil {
					m = map[string]int{}
					counts[e.MatchID] = m
				}
				m[e.Kind]++
				return
			}
			printEvent(e)
			printed++
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "replay:", err)
			os.Exit(1)
		}
	}

	if *summary {
		printSummary(counts)
		return
	}
	fmt.Printf("%d events\n", printed)
}

func listEventFiles(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "events-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	// Hour-keyed names sort chronologically.
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

func scanFile(path string, fn func(match.Event)) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		var e match.Event
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		fn(e)
	}
	return sc.Err()
}

func printEvent(e match.Event) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-10s r%-4d %-16s", e.At.Format("15:04:05.000"), e.MatchID, e.Round, e.Kind)
	if e.PlayerID != "" {
		fmt.Fprintf(&b, " %s", e.PlayerID)
	}
	if e.TargetID != "" {
		fmt.Fprintf(&b, " -> %s", e.TargetID)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, " (%s)", e.Detail)
	}
	fmt.Println(b.String())
}

func printSummary(counts map[string]map[string]int) {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		kinds := make([]string, 0, len(counts[id]))
		for k := range counts[id] {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		fmt.Println(id)
		for _, k := range kinds {
			fmt.Printf("  %-16s %d\n", k, counts[id][k])
		}
	}
}
