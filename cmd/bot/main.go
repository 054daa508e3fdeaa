package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/websocket"

	"dropzone.gg/internal/protocol"
)

// A tiny load-driving client: joins a match, wanders within its speed
// budget, pings, and swings at whoever it last saw move nearby.
func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		id      = flag.String("id", "", "player id (default: random)")
		name    = flag.String("name", "bot", "player name")
		matchID = flag.String("match", "", "match id to join (default: matchmake)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	playerID := *id
	if playerID == "" {
		playerID = fmt.Sprintf("bot-%d", time.Now().UnixNano()%1_000_000)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		PlayerID:        playerID,
		PlayerName:      *name,
		MatchID:         *matchID,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	b := &bot{
		conn:   conn,
		log:    logger,
		id:     playerID,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		others: map[string]protocol.Position{},
	}

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	inbound := make(chan []byte, 64)
	go func() {
		defer close(inbound)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			inbound <- msg
		}
	}()

	for {
		select {
		case <-stop:
			return
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			b.handle(msg)
		case <-ticker.C:
			b.act()
		}
	}
}

type bot struct {
	conn *websocket.Conn
	log  *log.Logger
	id   string
	rng  *rand.Rand

	welcomed     bool
	maxSpeed     float64
	attackRange  float64
	pos          protocol.Position
	others       map[string]protocol.Position
	lastAttackAt time.Time
	steps        int
}

func (b *bot) handle(msg []byte) {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return
	}
	switch base.Type {
	case protocol.TypeWelcome:
		var w protocol.WelcomeMsg
		if err := json.Unmarshal(msg, &w); err != nil {
			return
		}
		b.welcomed = true
		b.maxSpeed = w.Tuning.MaxSpeed
		b.attackRange = w.Tuning.AttackRange
		b.log.Printf("WELCOME match=%s seed=%d players=%d", w.MatchID, w.Seed, len(w.Players))

	case protocol.TypePlayerMoved:
		var m protocol.PlayerMovedMsg
		if err := json.Unmarshal(msg, &m); err != nil {
			return
		}
		if m.PlayerID == b.id {
			b.pos = m.Position
		} else {
			b.others[m.PlayerID] = m.Position
		}

	case protocol.TypePositionCorrection:
		var c protocol.PositionCorrectionMsg
		if err := json.Unmarshal(msg, &c); err != nil {
			return
		}
		b.pos = c.Position

	case protocol.TypePlayerLeft:
		var l protocol.PlayerLeftMsg
		if err := json.Unmarshal(msg, &l); err != nil {
			return
		}
		delete(b.others, l.PlayerID)

	case protocol.TypePlayerDied:
		var d protocol.PlayerDiedMsg
		if err := json.Unmarshal(msg, &d); err != nil {
			return
		}
		delete(b.others, d.DeadPlayerID)
		if d.DeadPlayerID == b.id {
			b.log.Printf("died (killer=%s)", d.KillerID)
		}

	case protocol.TypeMatchEnded:
		var e protocol.MatchEndedMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return
		}
		b.log.Printf("MATCH_ENDED reason=%s winner=%s", e.Reason, e.WinnerID)
	}
}

func (b *bot) act() {
	if !b.welcomed {
		return
	}
	b.steps++

	// Heartbeat every few seconds.
	if b.steps%8 == 0 {
		_ = b.conn.WriteJSON(protocol.PingMsg{Type: protocol.TypePing, Timestamp: time.Now().UnixMilli()})
	}

	// Wander: stay under half the per-tick speed budget so jitter in our
	// own timer never trips the speed check.
	budget := b.maxSpeed * 0.5 * 0.5
	next := protocol.Position{
		X: b.pos.X + (b.rng.Float64()*2-1)*budget,
		Y: b.pos.Y + (b.rng.Float64()*2-1)*budget,
	}
	_ = b.conn.WriteJSON(protocol.MoveRequestMsg{
		Type:      protocol.TypeMoveRequest,
		Position:  next,
		Timestamp: time.Now().UnixMilli(),
	})

	// Swing at the nearest known target when off cooldown.
	if time.Since(b.lastAttackAt) < 2*time.Second {
		return
	}
	for id, pos := range b.others {
		dx, dy := pos.X-b.pos.X, pos.Y-b.pos.Y
		if dx*dx+dy*dy <= b.attackRange*b.attackRange {
			_ = b.conn.WriteJSON(protocol.AttackRequestMsg{
				Type:      protocol.TypeAttackRequest,
				TargetID:  id,
				Timestamp: time.Now().UnixMilli(),
			})
			b.lastAttackAt = time.Now()
			break
		}
	}
}
