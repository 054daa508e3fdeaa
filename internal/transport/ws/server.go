package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"dropzone.gg/internal/protocol"
	"dropzone.gg/internal/sim/arena"
	"dropzone.gg/internal/sim/match"
)

type Server struct {
	arena *arena.Manager
	log   *log.Logger

	readTimeout time.Duration
	upgrader    websocket.Upgrader
}

func NewServer(a *arena.Manager, readTimeout time.Duration, logger *log.Logger) *Server {
	if readTimeout <= 0 {
		readTimeout = 60 * time.Second
	}
	s := &Server{
		arena:       a,
		log:         logger,
		readTimeout: readTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sess, ok := s.handshake(conn)
		if !ok {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Writer goroutine. A closed out channel is the match telling us
		// the player was released (kick, timeout, slow consumer): hang up
		// so the blocked reader unwinds too.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-sess.Out:
					if !ok {
						_ = conn.WriteControl(websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, "released"),
							time.Now().Add(time.Second))
						_ = conn.Close()
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. The deadline doubles as the transport-level
		// heartbeat; the match applies its own session timeout on top.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if !protocol.IsClientKind(base.Type) {
				continue
			}
			s.arena.Forward(sess, match.Envelope{PlayerID: sess.PlayerID, Base: base, Raw: msg})
		}

		// Cleanup.
		s.arena.Release(sess, "socket_closed")
	}
}

func (s *Server) handshake(conn *websocket.Conn) (arena.Session, bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return arena.Session{}, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return arena.Session{}, false
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return arena.Session{}, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return arena.Session{}, false
	}
	playerID := strings.TrimSpace(hello.PlayerID)
	if playerID == "" {
		closeWith(conn, "missing player_id")
		return arena.Session{}, false
	}
	name := strings.TrimSpace(hello.PlayerName)
	if name == "" {
		name = playerID
	}

	maxQ := hello.MaxQueue
	if maxQ <= 0 {
		maxQ = 64
	}
	if maxQ > 256 {
		maxQ = 256
	}
	out := make(chan []byte, maxQ)

	sess, welcome, err := s.arena.Admit(playerID, name, strings.TrimSpace(hello.MatchID), out)
	if err != nil {
		s.log.Printf("ws: admit %s: %v", playerID, err)
		closeWith(conn, protocol.ErrInternal)
		return arena.Session{}, false
	}

	// The welcome goes out inline, before the writer goroutine exists, so
	// the client always sees it first.
	if err := writeJSON(conn, welcome); err != nil {
		s.arena.Release(sess, "handshake_write_failed")
		return arena.Session{}, false
	}
	return sess, true
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
