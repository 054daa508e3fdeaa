package match

import (
	"encoding/json"
	"io"
	"log"
	"testing"
	"time"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/catalogs"
	"dropzone.gg/internal/sim/state"
	"dropzone.gg/internal/sim/tuning"
	"dropzone.gg/internal/sim/worldgen"
)

func newTestMatch(t *testing.T) *Match {
	t.Helper()
	return New(Config{
		ID:      "m-test",
		Seed:    4242,
		Tuning:  tuning.Defaults(),
		Catalog: catalogs.Defaults(),
		Logger:  log.New(io.Discard, "", 0),
	})
}

func joinPlayer(t *testing.T, m *Match, id, name string, now time.Time) (*session, chan []byte) {
	t.Helper()
	out := make(chan []byte, 128)
	resp := make(chan JoinResponse, 1)
	m.handleJoin(JoinRequest{PlayerID: id, Name: name, Out: out, Resp: resp}, now)
	r := <-resp
	if r.Err != nil {
		t.Fatalf("join %s: %v", id, r.Err)
	}
	sess := m.sessions[id]
	if sess == nil {
		t.Fatalf("join %s: no session", id)
	}
	return sess, out
}

func envelope(t *testing.T, playerID string, msg any) Envelope {
	t.Helper()
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	base, err := protocol.DecodeBase(raw)
	if err != nil {
		t.Fatalf("decode base: %v", err)
	}
	return Envelope{PlayerID: playerID, Base: base, Raw: raw}
}

// drain decodes everything buffered on a session's out channel.
func drain(t *testing.T, out chan []byte) []protocol.BaseMessage {
	t.Helper()
	var msgs []protocol.BaseMessage
	for {
		select {
		case raw := <-out:
			base, err := protocol.DecodeBase(raw)
			if err != nil {
				t.Fatalf("decode outbound: %v", err)
			}
			msgs = append(msgs, base)
		default:
			return msgs
		}
	}
}

func countKind(msgs []protocol.BaseMessage, kind string) int {
	n := 0
	for _, m := range msgs {
		if m.Type == kind {
			n++
		}
	}
	return n
}

func TestJoinStartsMatchAndWelcome(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)

	resp := make(chan JoinResponse, 1)
	started := m.handleJoin(JoinRequest{PlayerID: "p1", Name: "Ada", Out: make(chan []byte, 16), Resp: resp}, now)
	if !started {
		t.Fatalf("first join should start the match")
	}
	if m.status != StatusActive {
		t.Fatalf("status = %s, want active", m.status)
	}
	w := (<-resp).Welcome
	if w.Seed != 4242 || w.MatchID != "m-test" || w.PlayerID != "p1" {
		t.Fatalf("welcome = %+v", w)
	}
	if len(w.Players) != 1 || len(w.Landmarks) == 0 || w.ItemCatalog.Digest == "" {
		t.Fatalf("welcome missing roster/landmarks/catalog: %+v", w)
	}

	if m.handleJoin(JoinRequest{PlayerID: "p2", Name: "Bo", Out: make(chan []byte, 16), Resp: make(chan JoinResponse, 1)}, now) {
		t.Fatalf("second join must not restart the match")
	}
}

func TestReconnectKeepsPlayerState(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	sess, _ := joinPlayer(t, m, "p1", "Ada", now)
	sess.player.Health = 61

	out2 := make(chan []byte, 16)
	resp := make(chan JoinResponse, 1)
	m.handleJoin(JoinRequest{PlayerID: "p1", Name: "Ada", Out: out2, Resp: resp}, now.Add(5*time.Second))
	if r := <-resp; r.Err != nil {
		t.Fatalf("reconnect: %v", r.Err)
	}
	if m.everJoined != 1 {
		t.Fatalf("everJoined = %d after reconnect", m.everJoined)
	}
	if got := m.sessions["p1"]; got.player.Health != 61 || got.out == nil {
		t.Fatalf("reconnect lost state: health=%d", got.player.Health)
	}
}

func TestMoveAcceptedThenCorrected(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	_, out := joinPlayer(t, m, "p1", "Ada", now)
	drain(t, out)

	// First move: one second of speed budget is granted.
	m.dispatch(envelope(t, "p1", protocol.MoveRequestMsg{
		Type: protocol.TypeMoveRequest, Position: protocol.Position{X: 30, Y: 0},
	}), now)
	msgs := drain(t, out)
	if countKind(msgs, protocol.TypePlayerMoved) != 1 {
		t.Fatalf("want PLAYER_MOVED, got %+v", msgs)
	}

	// 50ms later a 500-unit jump is far past the budget.
	m.dispatch(envelope(t, "p1", protocol.MoveRequestMsg{
		Type: protocol.TypeMoveRequest, Position: protocol.Position{X: 530, Y: 0},
	}), now.Add(50*time.Millisecond))
	found := false
	for {
		select {
		case raw := <-out:
			var msg protocol.PositionCorrectionMsg
			if json.Unmarshal(raw, &msg) == nil && msg.Type == protocol.TypePositionCorrection {
				found = true
				if msg.Position.X != 30 || msg.Reason != protocol.ErrTooFast {
					t.Fatalf("correction = %+v, want last valid pos 30", msg)
				}
			}
		default:
			if !found {
				t.Fatalf("no POSITION_CORRECTION received")
			}
			return
		}
	}
}

func TestAttackKillAndLastStanding(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	_, outA := joinPlayer(t, m, "a", "Ada", now)
	_, outB := joinPlayer(t, m, "b", "Bo", now)
	drain(t, outA)
	drain(t, outB)

	// Attack at cooldown intervals until the target drops. Base damage 10,
	// jitter at most 4 either way, so 100 health falls inside 20 swings.
	died := false
	for i := 0; i < 25 && !died; i++ {
		at := now.Add(time.Duration(i+1) * 2 * time.Second)
		m.dispatch(envelope(t, "a", protocol.AttackRequestMsg{
			Type: protocol.TypeAttackRequest, TargetID: "b",
		}), at)
		for _, raw := range drainRaw(outA) {
			var res protocol.CombatResultMsg
			if json.Unmarshal(raw, &res) == nil && res.Type == protocol.TypeCombatResult {
				if res.Damage < 1 || res.Damage > 25 {
					t.Fatalf("damage %d outside clamp", res.Damage)
				}
				if res.TargetDied {
					died = true
				}
			}
		}
	}
	if !died {
		t.Fatalf("target never died")
	}
	if m.sessions["b"].player.Alive {
		t.Fatalf("target still alive")
	}
	if m.stats["a"].Kills != 1 || m.stats["b"].Deaths != 1 {
		t.Fatalf("kill not credited: a=%+v b=%+v", m.stats["a"], m.stats["b"])
	}
	if m.status != StatusEnded || m.endReason != EndReasonLastStanding {
		t.Fatalf("match status=%s reason=%s, want ended/last-standing", m.status, m.endReason)
	}
	if m.final == nil || m.final.WinnerID != "a" {
		t.Fatalf("final report: %+v", m.final)
	}
	for _, s := range m.final.Players {
		if s.PlayerID == "b" && s.Survived {
			t.Fatalf("dead player marked survived")
		}
	}
}

func drainRaw(out chan []byte) [][]byte {
	var msgs [][]byte
	for {
		select {
		case raw := <-out:
			msgs = append(msgs, raw)
		default:
			return msgs
		}
	}
}

func TestAttackCooldownRejected(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	_, outA := joinPlayer(t, m, "a", "Ada", now)
	joinPlayer(t, m, "b", "Bo", now)
	drain(t, outA)

	m.dispatch(envelope(t, "a", protocol.AttackRequestMsg{Type: protocol.TypeAttackRequest, TargetID: "b"}), now.Add(time.Second))
	m.dispatch(envelope(t, "a", protocol.AttackRequestMsg{Type: protocol.TypeAttackRequest, TargetID: "b"}), now.Add(time.Second+200*time.Millisecond))

	msgs := drain(t, outA)
	if countKind(msgs, protocol.TypeCombatResult) != 1 {
		t.Fatalf("want exactly one accepted attack, got %+v", msgs)
	}
	if countKind(msgs, protocol.TypeAttackRejected) != 1 {
		t.Fatalf("want one rejection, got %+v", msgs)
	}
}

func TestRapidActionsAutoKick(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	joinPlayer(t, m, "p1", "Ada", now)
	joinPlayer(t, m, "p2", "Bo", now)

	// Twenty requests inside one second: ten violations, which meets the
	// auto-kick threshold on the last one.
	for i := 0; i < 20; i++ {
		m.dispatch(envelope(t, "p1", protocol.MoveRequestMsg{
			Type: protocol.TypeMoveRequest, Position: protocol.Position{X: 1, Y: 1},
		}), now.Add(time.Duration(i)*50*time.Millisecond))
	}
	if m.sessions["p1"] != nil {
		t.Fatalf("player should have been kicked, violations=%d", m.auth.ViolationCount("p1"))
	}
}

func TestItemPickupUpdatesStats(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	sess, out := joinPlayer(t, m, "p1", "Ada", now)
	joinPlayer(t, m, "p2", "Bo", now)
	drain(t, out)

	// Plant a bandage next to the player; authority validates range against
	// the live world item table.
	m.items["itm_x"] = &state.ItemInstance{
		ID:         "itm_x",
		TemplateID: "bandage",
		Pos:        state.Vec2{X: sess.player.Pos.X + 5, Y: sess.player.Pos.Y},
		Quantity:   2,
	}

	m.dispatch(envelope(t, "p1", protocol.ItemActionMsg{
		Type: protocol.TypeItemAction, ItemID: "itm_x", ActionType: "pickup",
	}), now.Add(time.Second))

	if _, ok := m.items["itm_x"]; ok {
		t.Fatalf("picked-up item still on the ground")
	}
	if m.stats["p1"].ItemsCollected != 1 {
		t.Fatalf("items collected = %d", m.stats["p1"].ItemsCollected)
	}
	if countKind(drain(t, out), protocol.TypeItemActionResult) != 1 {
		t.Fatalf("no ITEM_ACTION_RESULT broadcast")
	}
}

func TestRoomDataStreamedOncePerSession(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	sess, out := joinPlayer(t, m, "p1", "Ada", now)
	joined := countKind(drain(t, out), protocol.TypeRoomData)
	if joined != 1 {
		t.Fatalf("join should stream the spawn room once, got %d", joined)
	}
	if m.stats["p1"].RoomsExplored != 1 {
		t.Fatalf("rooms explored = %d", m.stats["p1"].RoomsExplored)
	}

	m.markExplored(sess, now.Add(time.Second))
	if n := countKind(drain(t, out), protocol.TypeRoomData); n != 0 {
		t.Fatalf("spawn room streamed again: %d", n)
	}
	if m.stats["p1"].RoomsExplored != 1 {
		t.Fatalf("re-visit inflated exploration: %d", m.stats["p1"].RoomsExplored)
	}
}

func TestHeartbeatTimeoutReleasesSession(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	joinPlayer(t, m, "p1", "Ada", now)
	joinPlayer(t, m, "p2", "Bo", now)

	m.dispatch(envelope(t, "p2", protocol.PingMsg{Type: protocol.TypePing}), now.Add(70*time.Second))
	m.housekeeping(now.Add(70 * time.Second))

	if m.sessions["p1"] != nil {
		t.Fatalf("stale session p1 not released")
	}
	if m.sessions["p2"] == nil {
		t.Fatalf("fresh session p2 released")
	}
}

func TestTimeLimitEndProducesReport(t *testing.T) {
	var report *FinalReport
	m := New(Config{
		ID:      "m-test",
		Seed:    7,
		Tuning:  tuning.Defaults(),
		Catalog: catalogs.Defaults(),
		Logger:  log.New(io.Discard, "", 0),
		Report:  func(r *FinalReport) { report = r },
	})
	now := time.Unix(1000, 0)
	_, out := joinPlayer(t, m, "p1", "Ada", now)
	joinPlayer(t, m, "p2", "Bo", now)
	drain(t, out)

	m.endMatch(EndReasonTimeLimit, now.Add(300*time.Second))

	if report == nil || report.Reason != EndReasonTimeLimit || len(report.Players) != 2 {
		t.Fatalf("report = %+v", report)
	}
	msgs := drain(t, out)
	if countKind(msgs, protocol.TypeMatchEnded) != 1 {
		t.Fatalf("no MATCH_ENDED broadcast: %+v", msgs)
	}
	for _, s := range report.Players {
		if !s.Survived {
			t.Fatalf("everyone alive at the whistle should be marked survived: %+v", s)
		}
		if s.Rank < 1 || s.Rank > 2 {
			t.Fatalf("bad rank %d", s.Rank)
		}
	}
	// Idempotent: a second end must not rewrite the outcome.
	m.endMatch(EndReasonManual, now.Add(301*time.Second))
	if m.endReason != EndReasonTimeLimit {
		t.Fatalf("end reason rewritten to %s", m.endReason)
	}
}

func TestQueuedAutoAttackResolvesOnTick(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	_, outA := joinPlayer(t, m, "a", "Ada", now)
	joinPlayer(t, m, "b", "Bo", now)
	drain(t, outA)

	m.dispatch(envelope(t, "a", protocol.QueueActionMsg{
		Type: protocol.TypeQueueAction, Kind: "auto_attack", TargetID: "b",
	}), now)
	drain(t, outA)

	m.autoAttackTick(now.Add(2 * time.Second))

	hit := false
	for _, raw := range drainRaw(outA) {
		var tick protocol.AutoAttackTickMsg
		if json.Unmarshal(raw, &tick) == nil && tick.Type == protocol.TypeAutoAttackTick {
			if len(tick.Results) == 1 && tick.Results[0].TargetID == "b" {
				hit = true
			}
		}
	}
	if !hit {
		t.Fatalf("queued auto-attack did not resolve")
	}
	if m.stats["b"].DamageTaken == 0 {
		t.Fatalf("damage not tallied")
	}
}

func TestFinalScoresBounded(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	joinPlayer(t, m, "a", "Ada", now)
	joinPlayer(t, m, "b", "Bo", now)

	// Stats far past anything the point tables can absorb; every score
	// component stays a 0..100 figure regardless.
	s := m.stats["a"]
	s.Kills = 12
	s.DamageDealt = 900
	s.ItemsCollected = 40
	s.RoomsExplored = 40

	standings := m.finalStandings(now.Add(100 * time.Second))
	for _, st := range standings {
		scores := map[string]float64{
			"combat":      st.CombatScore,
			"exploration": st.ExplorationScore,
			"survival":    st.SurvivalScore,
			"overall":     st.OverallScore,
		}
		for name, v := range scores {
			if v < 0 || v > 100 {
				t.Fatalf("%s score for %s = %v, outside 0..100", name, st.PlayerID, v)
			}
		}
	}
}

func TestInaccessibleCellNotCachedOrCounted(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	sess, out := joinPlayer(t, m, "p1", "Ada", now)
	drain(t, out)

	// Find an inaccessible cell for this seed; the terrain bands guarantee
	// plenty near the origin.
	var cx, cy int
	found := false
	for y := -12; y <= 12 && !found; y++ {
		for x := -12; x <= 12; x++ {
			if !worldgen.Accessible(worldgen.TerrainAt(m.cfg.Seed, x, y)) {
				cx, cy = x, y
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatalf("no inaccessible cell near origin for seed %d", m.cfg.Seed)
	}

	roomsBefore := len(m.rooms)
	exploredBefore := m.stats["p1"].RoomsExplored
	if m.streamRoom(sess, cx, cy) {
		t.Fatalf("inaccessible cell (%d,%d) streamed a room", cx, cy)
	}
	if _, ok := m.rooms[[2]int{cx, cy}]; ok {
		t.Fatalf("inaccessible cell cached")
	}
	if len(m.rooms) != roomsBefore {
		t.Fatalf("room cache grew %d -> %d", roomsBefore, len(m.rooms))
	}
	if m.stats["p1"].RoomsExplored != exploredBefore {
		t.Fatalf("exploration counted for a cell the player never entered")
	}
	if n := countKind(drain(t, out), protocol.TypeRoomData); n != 0 {
		t.Fatalf("ROOM_DATA sent for inaccessible cell: %d", n)
	}
}

func TestPeekedNeighborNotCountedExplored(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	sess, out := joinPlayer(t, m, "p1", "Ada", now)
	drain(t, out)
	exploredBefore := m.stats["p1"].RoomsExplored

	// Peek the neighboring cell without moving into it: the room may
	// stream, but exploration credit requires standing there.
	m.handlePositionUpdate(sess, protocol.PositionUpdateMsg{
		Type:     protocol.TypePositionUpdate,
		Position: protocol.Position{X: (float64(sess.player.Cell[0]) + 1.5) * m.tun.World.CellSize, Y: 0},
	}, now.Add(time.Second))

	if m.stats["p1"].RoomsExplored != exploredBefore {
		t.Fatalf("peeked neighbor inflated exploration: %d", m.stats["p1"].RoomsExplored)
	}
}

func TestRateLimitRejectionNotice(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	_, out := joinPlayer(t, m, "p1", "Ada", now)
	joinPlayer(t, m, "p2", "Bo", now)
	drain(t, out)

	// Eleven requests inside the window: the eleventh breaches the rate
	// limit and is answered with a rejection instead of being applied.
	for i := 0; i < 11; i++ {
		m.dispatch(envelope(t, "p1", protocol.MoveRequestMsg{
			Type: protocol.TypeMoveRequest, Position: protocol.Position{X: 1, Y: 1},
		}), now.Add(time.Duration(i)*50*time.Millisecond))
	}

	found := false
	for _, raw := range drainRaw(out) {
		var ack protocol.AckMsg
		if json.Unmarshal(raw, &ack) == nil && ack.Type == protocol.TypeAck &&
			ack.AckFor == protocol.TypeMoveRequest && !ack.Accepted && ack.Code == protocol.ErrRateLimit {
			found = true
		}
	}
	if !found {
		t.Fatalf("no %s rejection sent", protocol.ErrRateLimit)
	}
	if m.sessions["p1"] == nil {
		t.Fatalf("one violation must not kick")
	}
}

func TestReleaseClosesOutbound(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	joinPlayer(t, m, "p1", "Ada", now)
	_, out := joinPlayer(t, m, "p2", "Bo", now)

	m.handleLeave("p2", "anti_cheat", now.Add(time.Second))

	// The closed channel is the disconnect signal the transport's writer
	// acts on; buffered messages drain first.
	closed := false
loop:
	for {
		select {
		case _, ok := <-out:
			if !ok {
				closed = true
				break loop
			}
		default:
			break loop
		}
	}
	if !closed {
		t.Fatalf("out channel left open after release")
	}
}

func TestStaleSocketLeaveIgnoredAfterReconnect(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	_, oldOut := joinPlayer(t, m, "p1", "Ada", now)

	out2 := make(chan []byte, 16)
	resp := make(chan JoinResponse, 1)
	m.handleJoin(JoinRequest{PlayerID: "p1", Name: "Ada", Out: out2, Resp: resp}, now.Add(time.Second))
	if r := <-resp; r.Err != nil {
		t.Fatalf("reconnect: %v", r.Err)
	}

	// The replaced socket notices its closed channel and hangs up; its
	// leave must not take the live session with it.
	m.handleTransportLeave(leaveRequest{PlayerID: "p1", Reason: "socket_closed", Out: oldOut}, now.Add(2*time.Second))
	if m.sessions["p1"] == nil {
		t.Fatalf("stale socket released the reconnected session")
	}

	m.handleTransportLeave(leaveRequest{PlayerID: "p1", Reason: "socket_closed", Out: out2}, now.Add(3*time.Second))
	if m.sessions["p1"] != nil {
		t.Fatalf("live socket leave ignored")
	}
}

func TestSlowConsumerReleasedNotBlocked(t *testing.T) {
	m := newTestMatch(t)
	now := time.Unix(1000, 0)
	joinPlayer(t, m, "a", "Ada", now)

	// A one-slot channel that nobody reads fills immediately.
	out := make(chan []byte, 1)
	resp := make(chan JoinResponse, 1)
	m.handleJoin(JoinRequest{PlayerID: "slow", Name: "Slow", Out: out, Resp: resp}, now)
	<-resp

	for i := 0; i < 5; i++ {
		m.broadcast(protocol.PongMsg{Type: protocol.TypePong})
	}
	m.flushFailed(now)

	if m.sessions["slow"] != nil {
		t.Fatalf("slow consumer not released")
	}
	if m.sessions["a"] == nil {
		t.Fatalf("healthy session collateral damage")
	}
}
