package match

import (
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/authority"
	"dropzone.gg/internal/sim/state"
)

func (m *Match) handleMove(sess *session, msg protocol.MoveRequestMsg, now time.Time) {
	if m.status != StatusActive {
		return
	}
	if !m.recordAndMaybeKick(sess, protocol.TypeMoveRequest, now) {
		return
	}

	res := m.auth.ValidateMovement(sess.player, state.Vec2{X: msg.Position.X, Y: msg.Position.Y}, now)
	if !res.Accepted {
		m.send(sess, protocol.PositionCorrectionMsg{
			Type:     protocol.TypePositionCorrection,
			Position: protocol.Position{X: res.Pos.X, Y: res.Pos.Y},
			Reason:   res.Reason,
		})
		return
	}

	m.broadcast(protocol.PlayerMovedMsg{
		Type:      protocol.TypePlayerMoved,
		PlayerID:  sess.playerID,
		Position:  protocol.Position{X: res.Pos.X, Y: res.Pos.Y},
		Timestamp: msg.Timestamp,
	})
	m.markExplored(sess, now)
}

func (m *Match) handleAttack(sess *session, msg protocol.AttackRequestMsg, now time.Time) {
	if m.status != StatusActive {
		return
	}
	if !m.recordAndMaybeKick(sess, protocol.TypeAttackRequest, now) {
		return
	}

	target := m.sessions[msg.TargetID]
	var targetState *state.PlayerState
	if target != nil {
		targetState = target.player
	}

	out := m.auth.ValidateCombat(sess.player, targetState, now)
	if !out.Accepted {
		m.send(sess, protocol.AttackRejectedMsg{Type: protocol.TypeAttackRejected, Reason: out.Reason})
		return
	}
	m.broadcast(protocol.CombatResultMsg{
		Type:         protocol.TypeCombatResult,
		AttackerID:   out.AttackerID,
		TargetID:     out.TargetID,
		Damage:       out.Damage,
		TargetHealth: out.TargetHealth,
		TargetDied:   out.TargetDied,
		Round:        m.round,
	})
	m.settleCombat(out, now)
}

// settleCombat runs the trusted bookkeeping for an accepted attack;
// validation already happened in the authority engine.
func (m *Match) settleCombat(out authority.CombatOutcome, now time.Time) {
	m.recordPlayerDamage(out.AttackerID, out.TargetID, out.Damage, now)

	if out.TargetDied {
		m.recordPlayerKill(out.AttackerID, out.TargetID, now)
		if target := m.sessions[out.TargetID]; target != nil {
			target.status = SessionDead
		}
		m.broadcast(protocol.PlayerDiedMsg{
			Type:         protocol.TypePlayerDied,
			DeadPlayerID: out.TargetID,
			KillerID:     out.AttackerID,
			Round:        m.round,
		})
		m.event("player_died", out.TargetID, out.AttackerID, "", now)
		m.checkLastStanding(now)
	}
}

func (m *Match) handleItemAction(sess *session, msg protocol.ItemActionMsg, now time.Time) {
	if m.status != StatusActive {
		return
	}
	if !m.recordAndMaybeKick(sess, protocol.TypeItemAction, now) {
		return
	}

	out := m.auth.ValidateItemAction(sess.player, msg.ItemID, msg.ActionType, m.items, now)
	if !out.Accepted {
		m.send(sess, protocol.ItemActionRejectedMsg{
			Type:   protocol.TypeItemActionRejected,
			ItemID: msg.ItemID,
			Reason: out.Reason,
		})
		return
	}

	if out.ActionType == authority.ItemActionPickup {
		m.recordItemCollection(sess.playerID, now)
	}

	result := protocol.ItemActionResultMsg{
		Type:       protocol.TypeItemActionResult,
		PlayerID:   sess.playerID,
		ItemID:     out.ItemID,
		TemplateID: out.TemplateID,
		ActionType: out.ActionType,
		Quantity:   out.Quantity,
		Slot:       out.Slot,
		Health:     out.Health,
	}
	if out.Dropped != nil {
		result.Position = &protocol.Position{X: out.Dropped.Pos.X, Y: out.Dropped.Pos.Y}
	}
	m.broadcast(result)
}

// handlePositionUpdate is presence bookkeeping: it never moves the player,
// but it may stream a room that just became relevant to this session.
// Peeked neighbors earn no exploration credit; only occupied cells count.
func (m *Match) handlePositionUpdate(sess *session, msg protocol.PositionUpdateMsg, now time.Time) {
	if m.status != StatusActive {
		return
	}
	cell := state.CellFor(state.Vec2{X: msg.Position.X, Y: msg.Position.Y}, m.tun.World.CellSize)
	own := sess.player.Cell
	if abs(cell[0]-own[0]) > 1 || abs(cell[1]-own[1]) > 1 {
		// Only the player's own neighborhood is relevant; anything else
		// would leak unexplored map state.
		return
	}
	m.streamRoom(sess, cell[0], cell[1])
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// autoAttackTick advances the round, resolves queued auto-attacks, and
// fans the results out to every session.
func (m *Match) autoAttackTick(now time.Time) {
	if m.status != StatusActive {
		return
	}
	m.round++

	var results []protocol.CombatResultMsg
	for _, sess := range m.sessions {
		q := sess.queued
		if q == nil || q.Kind != "auto_attack" {
			continue
		}
		target := m.sessions[q.TargetID]
		var targetState *state.PlayerState
		if target != nil {
			targetState = target.player
		}
		out := m.auth.ValidateCombat(sess.player, targetState, now)
		if !out.Accepted {
			if out.Reason != protocol.ErrCooldown {
				sess.queued = nil
			}
			continue
		}
		m.settleCombat(out, now)
		results = append(results, protocol.CombatResultMsg{
			Type:         protocol.TypeCombatResult,
			AttackerID:   out.AttackerID,
			TargetID:     out.TargetID,
			Damage:       out.Damage,
			TargetHealth: out.TargetHealth,
			TargetDied:   out.TargetDied,
			Round:        m.round,
		})
	}

	m.broadcast(protocol.AutoAttackTickMsg{
		Type:    protocol.TypeAutoAttackTick,
		Round:   m.round,
		Results: results,
	})
	m.flushFailed(now)
}

// skillTick resolves queued skills. The only built-in skill is a small
// self-heal; anything richer belongs to the surrounding game mode.
func (m *Match) skillTick(now time.Time) {
	if m.status != StatusActive {
		return
	}

	var results []protocol.SkillResult
	for _, sess := range m.sessions {
		q := sess.queued
		if q == nil || q.Kind != "skill" {
			continue
		}
		sess.queued = nil
		if !sess.player.Alive {
			continue
		}
		health := sess.player.ApplyHealthDelta(5)
		results = append(results, protocol.SkillResult{
			PlayerID: sess.playerID,
			SkillID:  q.SkillID,
			Health:   health,
		})
	}

	m.broadcast(protocol.SkillTickMsg{
		Type:    protocol.TypeSkillTick,
		Round:   m.round,
		Results: results,
	})
	m.flushFailed(now)
}

// housekeeping prunes advisory history and drops sessions whose heartbeat
// went stale.
func (m *Match) housekeeping(now time.Time) {
	m.auth.PruneHistory(now)

	timeout := m.tun.HeartbeatTimeout()
	var stale []string
	for id, sess := range m.sessions {
		if now.Sub(sess.lastSeen) > timeout {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		m.log.Printf("match %s: heartbeat timeout for %s", m.cfg.ID, id)
		m.handleLeave(id, "heartbeat_timeout", now)
	}
	m.flushFailed(now)
}

// checkLastStanding ends the match when a real contest is down to at most
// one living player.
func (m *Match) checkLastStanding(now time.Time) {
	if m.status != StatusActive || m.everJoined < 2 {
		return
	}
	alive := 0
	for _, sess := range m.sessions {
		if sess.player.Alive {
			alive++
		}
	}
	if alive <= 1 {
		m.endMatch(EndReasonLastStanding, now)
	}
}
