package presence

import (
	"encoding/json"
	"time"

	"canvas-sync-server/internal/domain"
)

type MessageType string

const (
	// TypeCursor carries one user's pointer position.
	TypeCursor MessageType = "cursor"
	// TypeJoin / TypeLeave announce presence changes.
	TypeJoin  MessageType = "join"
	TypeLeave MessageType = "leave"
	// TypeState is the full ephemeral state sent to a freshly connected
	// client: who is online and where every cursor is.
	TypeState MessageType = "state"
	TypePing  MessageType = "ping"
	TypePong  MessageType = "pong"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type CursorPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type JoinPayload struct {
	Entry domain.PresenceEntry `json:"entry"`
}

type LeavePayload struct {
	UserID string `json:"user_id"`
}

type StatePayload struct {
	Online  []domain.PresenceEntry  `json:"online"`
	Cursors []domain.CursorPosition `json:"cursors"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		bytes, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		payloadBytes = bytes
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

func (m *Message) UnmarshalPayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}
