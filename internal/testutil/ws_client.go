package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/dom/hero-arena/internal/service"
	"github.com/dom/hero-arena/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
)

// WSClient is a test WebSocket client
type WSClient struct {
	t        *testing.T
	conn     *gorillaWS.Conn
	messages chan *websocket.Message
	errors   chan error
	done     chan struct{}
	mu       sync.Mutex
}

// NewWSClient creates a new WebSocket test client
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:        t,
		conn:     conn,
		messages: make(chan *websocket.Message, 100),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads messages from the WebSocket connection
func (c *WSClient) readPump() {
	defer close(c.messages)
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.done:
					return
				case c.errors <- err:
				}
				return
			}

			var msg websocket.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				c.errors <- err
				continue
			}

			select {
			case c.messages <- &msg:
			case <-c.done:
				return
			}
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

func (c *WSClient) send(msgType websocket.MessageType) {
	c.t.Helper()

	msg, err := websocket.NewMessage(msgType, struct{}{})
	if err != nil {
		c.t.Fatalf("failed to build %s: %v", msgType, err)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		c.t.Fatalf("failed to marshal message: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send %s: %v", msgType, err)
	}
}

// SyncState asks the server for the caller's bullpen state
func (c *WSClient) SyncState() {
	c.send(websocket.MessageTypeSyncState)
}

// Ping sends a PING
func (c *WSClient) Ping() {
	c.send(websocket.MessageTypePing)
}

// ExpectMessage waits for a message of the specified type, skipping others
func (c *WSClient) ExpectMessage(msgType websocket.MessageType, timeout time.Duration) *websocket.Message {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				c.t.Fatalf("connection closed while waiting for %s", msgType)
			}
			if msg.Type == msgType {
				return msg
			}
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", msgType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for message type %s", msgType)
		}
	}
}

func (c *WSClient) expectPayload(msgType websocket.MessageType, timeout time.Duration, v interface{}) {
	c.t.Helper()

	msg := c.ExpectMessage(msgType, timeout)
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		c.t.Fatalf("failed to decode %s payload: %v", msgType, err)
	}
}

// ExpectStateSync waits for and decodes a STATE_SYNC message
func (c *WSClient) ExpectStateSync(timeout time.Duration) *service.BullpenView {
	c.t.Helper()

	var payload service.BullpenView
	c.expectPayload(websocket.MessageTypeStateSync, timeout, &payload)
	return &payload
}

// ExpectBullpenUpdated waits for and decodes a BULLPEN_UPDATED message
func (c *WSClient) ExpectBullpenUpdated(timeout time.Duration) *service.BullpenEvent {
	c.t.Helper()

	var payload service.BullpenEvent
	c.expectPayload(websocket.MessageTypeBullpenUpdated, timeout, &payload)
	return &payload
}

// ExpectBattleResolved waits for and decodes a BATTLE_RESOLVED message
func (c *WSClient) ExpectBattleResolved(timeout time.Duration) *service.BattleEvent {
	c.t.Helper()

	var payload service.BattleEvent
	c.expectPayload(websocket.MessageTypeBattleResolved, timeout, &payload)
	return &payload
}

// ExpectBattleStatus waits for and decodes a BATTLE_STATUS message
func (c *WSClient) ExpectBattleStatus(timeout time.Duration) *service.BattleStatusEvent {
	c.t.Helper()

	var payload service.BattleStatusEvent
	c.expectPayload(websocket.MessageTypeBattleStatus, timeout, &payload)
	return &payload
}

// ExpectError waits for and decodes an ERROR message
func (c *WSClient) ExpectError(timeout time.Duration) *websocket.ErrorPayload {
	c.t.Helper()

	var payload websocket.ErrorPayload
	c.expectPayload(websocket.MessageTypeError, timeout, &payload)
	return &payload
}

// ExpectNoMessage verifies no messages are received within timeout
func (c *WSClient) ExpectNoMessage(timeout time.Duration) {
	c.t.Helper()

	select {
	case msg := <-c.messages:
		if msg != nil {
			c.t.Fatalf("unexpected message received: %s", msg.Type)
		}
	case <-time.After(timeout):
	}
}

// DrainMessages drains everything currently buffered once the channel has
// been quiet for a short while.
func (c *WSClient) DrainMessages() {
	deadline := time.After(100 * time.Millisecond)
	for {
		select {
		case msg := <-c.messages:
			if msg == nil {
				return
			}
			deadline = time.After(50 * time.Millisecond)
		case <-deadline:
			return
		case <-c.done:
			return
		}
	}
}
