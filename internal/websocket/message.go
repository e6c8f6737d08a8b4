package websocket

import (
	"encoding/json"
	"time"
)

type MessageType string

const (
	// Client to Server
	MessageTypeSyncState MessageType = "SYNC_STATE"
	MessageTypePing      MessageType = "PING"

	// Server to Client
	MessageTypeStateSync       MessageType = "STATE_SYNC"
	MessageTypePong            MessageType = "PONG"
	MessageTypeBullpenUpdated  MessageType = "BULLPEN_UPDATED"
	MessageTypeBattleResolved  MessageType = "BATTLE_RESOLVED"
	MessageTypeBattleStatus    MessageType = "BATTLE_STATUS"
	MessageTypeTournamentReset MessageType = "TOURNAMENT_RESET"
	MessageTypeError           MessageType = "ERROR"
)

type Message struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	Seq       uint64          `json:"seq,omitempty"`
}

func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      msgType,
		Payload:   payloadBytes,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
