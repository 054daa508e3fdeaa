package authority

import "time"

// ViolationKind classifies a recorded suspicious action.
type ViolationKind string

const (
	ViolationActionRate ViolationKind = "action_rate"
	ViolationSpeed      ViolationKind = "speed"
)

// Violation is one advisory record; it never mutates game state.
type Violation struct {
	Kind    ViolationKind
	At      time.Time
	Details string
}

type violationLog struct {
	recent []Violation
	total  int
}

// Signal tells the orchestrator how to react to a player's conduct.
type Signal int

const (
	SignalNone Signal = iota
	SignalSuspicious
	SignalKick
)

// RecordAction appends to the player's rolling action window and returns
// the escalation signal plus whether this action itself breached the rate
// limit. Called for every attempted action, accepted or not.
func (e *Engine) RecordAction(playerID string, now time.Time) (Signal, bool) {
	cutoff := now.Add(-e.tun.ActionWindow())
	win := e.actions[playerID]
	kept := win[:0]
	for _, t := range win {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	e.actions[playerID] = kept

	if len(kept) > e.tun.AntiCheat.MaxActionsPerSecond {
		return e.recordViolation(playerID, ViolationActionRate, now, ""), true
	}
	return e.signalFor(playerID), false
}

func (e *Engine) recordViolation(playerID string, kind ViolationKind, now time.Time, details string) Signal {
	vl := e.violations[playerID]
	if vl == nil {
		vl = &violationLog{}
		e.violations[playerID] = vl
	}
	vl.recent = append(vl.recent, Violation{Kind: kind, At: now, Details: details})
	vl.total++
	return e.signalFor(playerID)
}

func (e *Engine) signalFor(playerID string) Signal {
	vl := e.violations[playerID]
	if vl == nil {
		return SignalNone
	}
	switch {
	case vl.total >= e.tun.AntiCheat.AutoKickThreshold:
		return SignalKick
	case vl.total >= e.tun.AntiCheat.SuspiciousThreshold:
		return SignalSuspicious
	default:
		return SignalNone
	}
}

// ViolationCount returns the cumulative counter for a player.
func (e *Engine) ViolationCount(playerID string) int {
	if vl := e.violations[playerID]; vl != nil {
		return vl.total
	}
	return 0
}

// ViolationCounts snapshots all cumulative counters, for ops tooling.
func (e *Engine) ViolationCounts() map[string]int {
	out := make(map[string]int, len(e.violations))
	for id, vl := range e.violations {
		out[id] = vl.total
	}
	return out
}

// PruneHistory drops action-window entries and violation records that have
// aged out. Cumulative counters are kept for the life of the match.
func (e *Engine) PruneHistory(now time.Time) {
	actionCutoff := now.Add(-e.tun.ActionWindow())
	for id, win := range e.actions {
		kept := win[:0]
		for _, t := range win {
			if t.After(actionCutoff) {
				kept = append(kept, t)
			}
		}
		if len(kept) == 0 {
			delete(e.actions, id)
			continue
		}
		e.actions[id] = kept
	}

	violationCutoff := now.Add(-5 * time.Minute)
	for _, vl := range e.violations {
		kept := vl.recent[:0]
		for _, v := range vl.recent {
			if v.At.After(violationCutoff) {
				kept = append(kept, v)
			}
		}
		vl.recent = kept
	}
}
