package match

import (
	"sort"
	"time"

	"dropzone.gg/internal/protocol"
)

// FinalReport is the durable outcome of one match, handed to the report
// sink (index database) after MATCH_ENDED goes out.
type FinalReport struct {
	MatchID    string                   `json:"match_id"`
	Seed       int64                    `json:"seed"`
	Reason     string                   `json:"reason"`
	WinnerID   string                   `json:"winner_id,omitempty"`
	StartedAt  time.Time                `json:"started_at"`
	EndedAt    time.Time                `json:"ended_at"`
	Rounds     uint64                   `json:"rounds"`
	Awards     []protocol.Award         `json:"awards,omitempty"`
	Players    []protocol.FinalStanding `json:"players"`
	Violations map[string]int           `json:"violations,omitempty"`
}

// endMatch computes the final scoreboard, broadcasts MATCH_ENDED, and
// parks the match in its ended state. The run loop arms the reap timer
// when it observes the status change.
func (m *Match) endMatch(reason string, now time.Time) {
	if m.status == StatusEnded {
		return
	}
	m.status = StatusEnded
	m.endedAt = now
	m.endReason = reason

	standings := m.finalStandings(now)
	winnerID := ""
	if len(standings) > 0 && reason != EndReasonAbandoned {
		winnerID = standings[0].PlayerID
	}
	awards := m.computeAwards(standings)

	m.final = &FinalReport{
		MatchID:    m.cfg.ID,
		Seed:       m.cfg.Seed,
		Reason:     reason,
		WinnerID:   winnerID,
		StartedAt:  m.startedAt,
		EndedAt:    now,
		Rounds:     m.round,
		Awards:     awards,
		Players:    standings,
		Violations: m.auth.ViolationCounts(),
	}

	m.broadcast(protocol.MatchEndedMsg{
		Type:     protocol.TypeMatchEnded,
		MatchID:  m.cfg.ID,
		Reason:   reason,
		WinnerID: winnerID,
		Awards:   awards,
		Players:  standings,
	})
	m.event("match_ended", winnerID, "", reason, now)
	m.log.Printf("match %s: ended (%s), winner=%q, players=%d, rounds=%d",
		m.cfg.ID, reason, winnerID, len(standings), m.round)

	if m.cfg.Report != nil {
		m.cfg.Report(m.final)
	}
}

// finalStandings scores everyone who is still tracked, ranked by kills
// with survival breaking ties.
func (m *Match) finalStandings(now time.Time) []protocol.FinalStanding {
	sc := m.tun.Scoring
	matchSeconds := now.Sub(m.startedAt).Seconds()
	if matchSeconds <= 0 {
		matchSeconds = 1
	}

	out := make([]protocol.FinalStanding, 0, len(m.stats))
	for id, s := range m.stats {
		sess := m.sessions[id]
		alive := sess != nil && sess.player.Alive

		survived := now.Sub(s.JoinedAt).Seconds()
		if !s.DiedAt.IsZero() {
			survived = s.DiedAt.Sub(s.JoinedAt).Seconds()
		}
		if survived < 0 {
			survived = 0
		}

		kd := float64(s.Kills)
		if s.Deaths > 0 {
			kd = float64(s.Kills) / float64(s.Deaths)
		}
		combat := clampScore(float64(s.Kills)*sc.KillPoints + kd*sc.KDRatioPoints +
			float64(s.DamageDealt)*sc.DamagePointsPer)
		explore := clampScore(float64(s.RoomsExplored)*sc.RoomPoints +
			float64(s.ItemsCollected)*sc.ItemPoints)
		survival := survived / matchSeconds * 100
		if alive {
			survival += sc.AliveFinishBonus
		}
		survival = clampScore(survival)
		overall := clampScore(combat*sc.CombatWeight + explore*sc.ExplorationWeight +
			survival*sc.SurvivalWeight)

		out = append(out, protocol.FinalStanding{
			PlayerID:         id,
			Name:             s.Name,
			Kills:            s.Kills,
			Deaths:           s.Deaths,
			DamageDealt:      s.DamageDealt,
			DamageTaken:      s.DamageTaken,
			ItemsCollected:   s.ItemsCollected,
			RoomsExplored:    s.RoomsExplored,
			Survived:         alive,
			SurvivalSeconds:  survived,
			CombatScore:      combat,
			ExplorationScore: explore,
			SurvivalScore:    survival,
			OverallScore:     overall,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Kills != b.Kills {
			return a.Kills > b.Kills
		}
		if a.Survived != b.Survived {
			return a.Survived
		}
		if a.OverallScore != b.OverallScore {
			return a.OverallScore > b.OverallScore
		}
		return a.PlayerID < b.PlayerID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// Every score component is a 0..100 figure; the weighted blend stays in
// the same range.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (m *Match) computeAwards(standings []protocol.FinalStanding) []protocol.Award {
	if len(standings) == 0 {
		return nil
	}
	pick := func(better func(a, b protocol.FinalStanding) bool, nonzero func(a protocol.FinalStanding) bool) string {
		best := standings[0]
		for _, s := range standings[1:] {
			if better(s, best) {
				best = s
			}
		}
		if !nonzero(best) {
			return ""
		}
		return best.PlayerID
	}

	var awards []protocol.Award
	if id := pick(
		func(a, b protocol.FinalStanding) bool { return a.Kills > b.Kills },
		func(a protocol.FinalStanding) bool { return a.Kills > 0 },
	); id != "" {
		awards = append(awards, protocol.Award{Name: "most_kills", PlayerID: id})
	}
	if id := pick(
		func(a, b protocol.FinalStanding) bool { return a.RoomsExplored > b.RoomsExplored },
		func(a protocol.FinalStanding) bool { return a.RoomsExplored > 0 },
	); id != "" {
		awards = append(awards, protocol.Award{Name: "most_explorative", PlayerID: id})
	}
	if id := pick(
		func(a, b protocol.FinalStanding) bool { return a.ItemsCollected > b.ItemsCollected },
		func(a protocol.FinalStanding) bool { return a.ItemsCollected > 0 },
	); id != "" {
		awards = append(awards, protocol.Award{Name: "most_collected", PlayerID: id})
	}
	if id := pick(
		func(a, b protocol.FinalStanding) bool { return a.SurvivalSeconds > b.SurvivalSeconds },
		func(a protocol.FinalStanding) bool { return a.SurvivalSeconds > 0 },
	); id != "" {
		awards = append(awards, protocol.Award{Name: "longest_survivor", PlayerID: id})
	}
	return awards
}
