package protocol

import "encoding/json"

const Version = "1.0"

// Message kinds (client -> server).
const (
	TypeHello          = "HELLO"
	TypePing           = "PING"
	TypeMoveRequest    = "MOVE_REQUEST"
	TypeAttackRequest  = "ATTACK_REQUEST"
	TypeItemAction     = "ITEM_ACTION"
	TypePositionUpdate = "POSITION_UPDATE"
	TypeQueueAction    = "QUEUE_ACTION"
	TypePlayerReady    = "PLAYER_READY"
	TypeStatusUpdate   = "STATUS_UPDATE"
)

// Message kinds (server -> client).
const (
	TypeWelcome            = "WELCOME"
	TypePong               = "PONG"
	TypeAck                = "ACK"
	TypePlayerMoved        = "PLAYER_MOVED"
	TypePositionCorrection = "POSITION_CORRECTION"
	TypeCombatResult       = "COMBAT_RESULT"
	TypeAttackRejected     = "ATTACK_REJECTED"
	TypeItemActionResult   = "ITEM_ACTION_RESULT"
	TypeItemActionRejected = "ITEM_ACTION_REJECTED"
	TypeRoomData           = "ROOM_DATA"
	TypeAutoAttackTick     = "AUTOATTACK_TICK"
	TypeSkillTick          = "SKILL_TICK"
	TypePlayerStatusUpdate = "PLAYER_STATUS_UPDATE"
	TypePlayerJoined       = "PLAYER_JOINED"
	TypePlayerLeft         = "PLAYER_LEFT"
	TypePlayerDied         = "PLAYER_DIED"
	TypeMatchEnded         = "MATCH_ENDED"
)

var clientKinds = map[string]bool{
	TypePing:           true,
	TypeMoveRequest:    true,
	TypeAttackRequest:  true,
	TypeItemAction:     true,
	TypePositionUpdate: true,
	TypeQueueAction:    true,
	TypePlayerReady:    true,
	TypeStatusUpdate:   true,
}

// IsClientKind reports whether a message kind may be forwarded from a
// connected client into a match (HELLO is handshake-only).
func IsClientKind(kind string) bool {
	return clientKinds[kind]
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
