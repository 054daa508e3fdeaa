package match

import (
	"encoding/json"
	"time"
)

// send marshals and hands one message to a session's writer. The out
// channel is bounded; a full channel marks the session failed so the
// dispatch pass can release it without blocking the match loop.
func (m *Match) send(sess *session, msg any) {
	if sess.failed {
		return
	}
	buf, err := json.Marshal(msg)
	if err != nil {
		m.log.Printf("match %s: marshal for %s: %v", m.cfg.ID, sess.playerID, err)
		return
	}
	select {
	case sess.out <- buf:
	default:
		sess.failed = true
	}
}

func (m *Match) broadcast(msg any) {
	m.broadcastExcept("", msg)
}

func (m *Match) broadcastExcept(skipID string, msg any) {
	buf, err := json.Marshal(msg)
	if err != nil {
		m.log.Printf("match %s: marshal broadcast: %v", m.cfg.ID, err)
		return
	}
	for id, sess := range m.sessions {
		if id == skipID || sess.failed {
			continue
		}
		select {
		case sess.out <- buf:
		default:
			sess.failed = true
		}
	}
}

// flushFailed releases every session whose writer fell behind. Runs after
// each dispatch and tick so a slow client only ever costs itself.
func (m *Match) flushFailed(now time.Time) {
	var gone []string
	for id, sess := range m.sessions {
		if sess.failed {
			gone = append(gone, id)
		}
	}
	for _, id := range gone {
		m.log.Printf("match %s: dropping %s, send buffer full", m.cfg.ID, id)
		m.handleLeave(id, "send_buffer_full", now)
	}
}
