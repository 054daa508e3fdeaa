package match

import (
	"context"
	"time"
)

// Run drives the match until it is reaped, abandoned, or cancelled. It is
// the only goroutine allowed to touch match state; everything else talks
// to it through channels.
func (m *Match) Run(ctx context.Context) error {
	attack := time.NewTicker(m.tun.AutoAttackPeriod())
	defer attack.Stop()
	skill := time.NewTicker(m.tun.SkillPeriod())
	defer skill.Stop()
	housekeeping := time.NewTicker(m.tun.HousekeepingPeriod())
	defer housekeeping.Stop()

	// Armed when the match starts; nil defuses it.
	var deadlineC <-chan time.Time
	// Armed when the match ends so late stat reads stay possible.
	var reapC <-chan time.Time

	for {
		if m.status == StatusEnded && reapC == nil {
			deadlineC = nil
			reapC = time.After(m.tun.MatchReapDelay())
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.stop:
			return nil
		case req := <-m.join:
			if m.handleJoin(req, time.Now()) {
				deadlineC = time.After(m.tun.MatchDuration())
			}
		case lr := <-m.leave:
			m.handleTransportLeave(lr, time.Now())
			if len(m.sessions) == 0 {
				if m.status != StatusEnded {
					m.log.Printf("match %s: abandoned, discarding", m.cfg.ID)
					m.event("match_abandoned", "", "", "", time.Now())
				}
				if m.cfg.OnDone != nil {
					m.cfg.OnDone(m.cfg.ID)
				}
				return nil
			}
		case env := <-m.inbox:
			m.dispatch(env, time.Now())
		case reason := <-m.endReq:
			m.endMatch(reason, time.Now())
		case <-deadlineC:
			m.endMatch(EndReasonTimeLimit, time.Now())
		case <-attack.C:
			m.autoAttackTick(time.Now())
		case <-skill.C:
			m.skillTick(time.Now())
		case <-housekeeping.C:
			m.housekeeping(time.Now())
		case ch := <-m.statsReq:
			ch <- m.snapshot()
		case <-reapC:
			m.log.Printf("match %s: reaped", m.cfg.ID)
			if m.cfg.OnDone != nil {
				m.cfg.OnDone(m.cfg.ID)
			}
			return nil
		}
	}
}

// StatsSnapshot answers the ops accessor; safe from any goroutine.
func (m *Match) StatsSnapshot() (Snapshot, bool) {
	ch := make(chan Snapshot, 1)
	select {
	case m.statsReq <- ch:
	case <-m.stop:
		return Snapshot{}, false
	}
	select {
	case s := <-ch:
		return s, true
	case <-time.After(3 * time.Second):
		return Snapshot{}, false
	}
}
