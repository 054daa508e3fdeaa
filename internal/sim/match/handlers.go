package match

import (
	"encoding/json"
	"fmt"
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/authority"
	"dropzone.gg/internal/sim/state"
	"dropzone.gg/internal/sim/worldgen"
)

// handleJoin admits a player. Returns true when this join started the
// match (first member of a freshly created match).
func (m *Match) handleJoin(req JoinRequest, now time.Time) bool {
	respond := func(resp JoinResponse) {
		select {
		case req.Resp <- resp:
		default:
		}
	}

	if m.status == StatusEnded {
		respond(JoinResponse{Err: fmt.Errorf("match %s already ended", m.cfg.ID)})
		return false
	}
	if old := m.sessions[req.PlayerID]; old != nil {
		// Reconnect: swap the transport handle, keep authoritative state.
		// Closing the old out channel tells the stale socket's writer to
		// hang up.
		if old.out != req.Out {
			close(old.out)
		}
		old.out = req.Out
		old.failed = false
		old.status = SessionConnected
		old.lastSeen = now
		respond(JoinResponse{Welcome: m.buildWelcome(req.PlayerID)})
		return false
	}

	p := state.NewPlayerState(req.PlayerID, req.Name, m.tun.Combat.MaxHealth, m.tun.Items.InventorySlots)
	p.SetPos(state.Vec2{}, m.tun.World.CellSize)

	sess := &session{
		playerID:  req.PlayerID,
		name:      req.Name,
		out:       req.Out,
		status:    SessionConnected,
		lastSeen:  now,
		player:    p,
		sentRooms: map[[2]int]bool{},
	}
	m.sessions[req.PlayerID] = sess
	m.stats[req.PlayerID] = newPlayerStats(req.PlayerID, req.Name, now)
	m.everJoined++

	started := false
	if m.status == StatusStarting {
		m.start(now)
		started = true
	}
	sess.status = SessionInGame

	m.broadcastExcept(req.PlayerID, protocol.PlayerJoinedMsg{
		Type:     protocol.TypePlayerJoined,
		PlayerID: req.PlayerID,
		Name:     req.Name,
		Pos:      protocol.Position{X: p.Pos.X, Y: p.Pos.Y},
	})
	m.event("player_joined", req.PlayerID, "", req.Name, now)

	respond(JoinResponse{Welcome: m.buildWelcome(req.PlayerID)})
	m.markExplored(sess, now)
	return started
}

func (m *Match) start(now time.Time) {
	m.status = StatusActive
	m.startedAt = now
	m.endsBy = now.Add(m.tun.MatchDuration())
	m.log.Printf("match %s: started, seed=%d ends_by=%s", m.cfg.ID, m.cfg.Seed, m.endsBy.Format(time.RFC3339))
	m.event("match_started", "", "", "", now)
}

func (m *Match) buildWelcome(playerID string) protocol.WelcomeMsg {
	roster := make([]protocol.RosterEntry, 0, len(m.sessions))
	for _, s := range m.sessions {
		roster = append(roster, protocol.RosterEntry{
			PlayerID: s.playerID,
			Name:     s.name,
			Pos:      protocol.Position{X: s.player.Pos.X, Y: s.player.Pos.Y},
			Health:   s.player.Health,
			Alive:    s.player.Alive,
		})
	}

	lms := worldgen.Landmarks()
	landmarks := make([]protocol.LandmarkRef, 0, len(lms))
	for _, l := range lms {
		landmarks = append(landmarks, protocol.LandmarkRef{
			X: l.X, Y: l.Y, Name: l.Name, Kind: l.Terrain.String(),
		})
	}

	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		PlayerID:        playerID,
		MatchID:         m.cfg.ID,
		Seed:            m.cfg.Seed,
		Round:           m.round,
		Players:         roster,
		Landmarks:       landmarks,
		ItemCatalog: protocol.DigestRef{
			Digest: m.cfg.Catalog.Digest,
			Count:  len(m.cfg.Catalog.Templates),
		},
		Tuning: protocol.WelcomeTuning{
			AutoAttackTickMs: m.tun.AutoAttackTickMs,
			SkillTickMs:      m.tun.SkillTickMs,
			MaxSpeed:         m.tun.Movement.MaxSpeed,
			AttackRange:      m.tun.Combat.Range,
			PickupRange:      m.tun.Items.PickupRange,
			RoomSize:         m.tun.World.RoomSize,
			CellSize:         m.tun.World.CellSize,
		},
	}
}

// handleTransportLeave filters socket-initiated leaves: a request carrying
// an out channel that is no longer the session's active handle came from a
// socket the player already replaced.
func (m *Match) handleTransportLeave(lr leaveRequest, now time.Time) {
	sess := m.sessions[lr.PlayerID]
	if sess == nil {
		return
	}
	if lr.Out != nil && sess.out != lr.Out {
		return
	}
	m.handleLeave(lr.PlayerID, lr.Reason, now)
}

// handleLeave releases a session and scrubs the player from match
// bookkeeping; the caller decides what happens when the match empties.
func (m *Match) handleLeave(playerID, reason string, now time.Time) {
	sess := m.sessions[playerID]
	if sess == nil {
		return
	}
	sess.status = SessionDisconnected
	delete(m.sessions, playerID)
	delete(m.stats, playerID)
	m.auth.RemovePlayer(playerID)
	// Only the match writes to out; closing it is the disconnect signal
	// the transport's writer goroutine acts on.
	close(sess.out)

	m.broadcast(protocol.PlayerLeftMsg{
		Type:     protocol.TypePlayerLeft,
		PlayerID: playerID,
		Reason:   reason,
	})
	m.event("player_left", playerID, "", reason, now)
	if m.cfg.OnRelease != nil {
		m.cfg.OnRelease(m.cfg.ID, playerID)
	}
	m.checkLastStanding(now)
}

// dispatch routes one inbound message. Unknown kinds are logged and
// dropped, never fatal.
func (m *Match) dispatch(env Envelope, now time.Time) {
	sess := m.sessions[env.PlayerID]
	if sess == nil {
		return
	}
	sess.lastSeen = now

	switch env.Base.Type {
	case protocol.TypePing:
		var msg protocol.PingMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		m.send(sess, protocol.PongMsg{Type: protocol.TypePong, Timestamp: now.UnixMilli()})

	case protocol.TypeMoveRequest:
		var msg protocol.MoveRequestMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		m.handleMove(sess, msg, now)

	case protocol.TypeAttackRequest:
		var msg protocol.AttackRequestMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		m.handleAttack(sess, msg, now)

	case protocol.TypeItemAction:
		var msg protocol.ItemActionMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		m.handleItemAction(sess, msg, now)

	case protocol.TypePositionUpdate:
		var msg protocol.PositionUpdateMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		m.handlePositionUpdate(sess, msg, now)

	case protocol.TypeQueueAction:
		var msg protocol.QueueActionMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		m.handleQueueAction(sess, msg)

	case protocol.TypePlayerReady:
		var msg protocol.PlayerReadyMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		sess.ready = msg.Ready
		m.send(sess, protocol.AckMsg{Type: protocol.TypeAck, AckFor: protocol.TypePlayerReady, Accepted: true})

	case protocol.TypeStatusUpdate:
		var msg protocol.StatusUpdateMsg
		if json.Unmarshal(env.Raw, &msg) != nil {
			return
		}
		m.handleStatusUpdate(sess, msg)

	default:
		m.log.Printf("match %s: unknown message kind %q from %s", m.cfg.ID, env.Base.Type, env.PlayerID)
	}

	m.flushFailed(now)
}

func (m *Match) handleQueueAction(sess *session, msg protocol.QueueActionMsg) {
	switch msg.Kind {
	case "auto_attack", "skill":
		sess.queued = &queuedAction{Kind: msg.Kind, TargetID: msg.TargetID, SkillID: msg.SkillID}
		m.send(sess, protocol.AckMsg{Type: protocol.TypeAck, AckFor: protocol.TypeQueueAction, Accepted: true})
	default:
		m.send(sess, protocol.AckMsg{
			Type: protocol.TypeAck, AckFor: protocol.TypeQueueAction,
			Accepted: false, Code: protocol.ErrProtoBadRequest,
		})
	}
}

func (m *Match) handleStatusUpdate(sess *session, msg protocol.StatusUpdateMsg) {
	switch msg.Status {
	case SessionConnected, SessionInGame:
		sess.status = msg.Status
	default:
		m.send(sess, protocol.AckMsg{
			Type: protocol.TypeAck, AckFor: protocol.TypeStatusUpdate,
			Accepted: false, Code: protocol.ErrProtoBadRequest,
		})
		return
	}
	m.broadcast(protocol.PlayerStatusUpdateMsg{
		Type:     protocol.TypePlayerStatusUpdate,
		PlayerID: sess.playerID,
		Status:   sess.status,
		Health:   sess.player.Health,
		Alive:    sess.player.Alive,
	})
}

// recordAndMaybeKick runs the anti-cheat bookkeeping shared by every
// player-initiated action. Returns false when the action must not be
// processed: the player was kicked, or this action breached the rate
// limit and got an E_RATE_LIMIT rejection instead.
func (m *Match) recordAndMaybeKick(sess *session, ackFor string, now time.Time) bool {
	sig, breached := m.auth.RecordAction(sess.playerID, now)
	switch sig {
	case authority.SignalKick:
		m.log.Printf("match %s: auto-kick %s (violations=%d)", m.cfg.ID, sess.playerID, m.auth.ViolationCount(sess.playerID))
		m.event("violation_kick", sess.playerID, "", "", now)
		m.handleLeave(sess.playerID, "anti_cheat", now)
		return false
	case authority.SignalSuspicious:
		m.event("violation_suspicious", sess.playerID, "", "", now)
	}
	if breached {
		m.send(sess, protocol.AckMsg{
			Type: protocol.TypeAck, AckFor: ackFor,
			Accepted: false, Code: protocol.ErrRateLimit,
		})
		return false
	}
	return true
}
