package websocket_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dom/hero-arena/internal/websocket"
	gorillaWS "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTimeout = 5 * time.Second

var upgrader = gorillaWS.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newHubServer(t *testing.T, sync websocket.SyncFunc) (*websocket.Hub, *httptest.Server) {
	t.Helper()

	hub := websocket.NewHub(sync)
	go hub.Run()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := websocket.NewClient(hub, conn, r.URL.Query().Get("player"))
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))

	t.Cleanup(func() {
		server.Close()
		hub.Stop()
	})
	return hub, server
}

func dial(t *testing.T, server *httptest.Server, player string) *gorillaWS.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?player=" + player
	conn, _, err := gorillaWS.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *gorillaWS.Conn) *websocket.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(defaultTimeout))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg websocket.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return &msg
}

func send(t *testing.T, conn *gorillaWS.Conn, msgType websocket.MessageType) {
	t.Helper()
	msg, err := websocket.NewMessage(msgType, struct{}{})
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(msg))
}

func waitForClients(t *testing.T, hub *websocket.Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, defaultTimeout, 10*time.Millisecond)
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, server := newHubServer(t, nil)

	alice := dial(t, server, "alice")
	bob := dial(t, server, "bob")
	waitForClients(t, hub, 2)

	hub.Broadcast("BULLPEN_UPDATED", map[string]int{"heroesWaiting": 2})
	hub.Broadcast("BATTLE_RESOLVED", map[string]int{"battleNumber": 0})

	for _, conn := range []*gorillaWS.Conn{alice, bob} {
		first := readMessage(t, conn)
		assert.Equal(t, websocket.MessageTypeBullpenUpdated, first.Type)
		assert.JSONEq(t, `{"heroesWaiting":2}`, string(first.Payload))

		second := readMessage(t, conn)
		assert.Equal(t, websocket.MessageTypeBattleResolved, second.Type)
		assert.Greater(t, second.Seq, first.Seq)
	}
}

func TestHub_SyncState(t *testing.T) {
	tests := []struct {
		name     string
		sync     websocket.SyncFunc
		wantType websocket.MessageType
		wantBody string
	}{
		{
			name: "returns state for the connected player",
			sync: func(_ context.Context, player string) (interface{}, error) {
				return map[string]string{"player": player}, nil
			},
			wantType: websocket.MessageTypeStateSync,
			wantBody: `{"player":"alice"}`,
		},
		{
			name: "reports failures",
			sync: func(context.Context, string) (interface{}, error) {
				return nil, errors.New("database down")
			},
			wantType: websocket.MessageTypeError,
			wantBody: `{"code":"SYNC_FAILED","message":"Failed to load arena state"}`,
		},
		{
			name:     "unavailable without a sync function",
			wantType: websocket.MessageTypeError,
			wantBody: `{"code":"SYNC_UNAVAILABLE","message":"State sync is not available"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, server := newHubServer(t, tt.sync)
			conn := dial(t, server, "alice")

			send(t, conn, websocket.MessageTypeSyncState)

			msg := readMessage(t, conn)
			assert.Equal(t, tt.wantType, msg.Type)
			assert.JSONEq(t, tt.wantBody, string(msg.Payload))
		})
	}
}

func TestHub_PingAndUnknownMessages(t *testing.T) {
	_, server := newHubServer(t, nil)
	conn := dial(t, server, "alice")

	send(t, conn, websocket.MessageTypePing)
	assert.Equal(t, websocket.MessageTypePong, readMessage(t, conn).Type)

	send(t, conn, "FIGHT")
	msg := readMessage(t, conn)
	assert.Equal(t, websocket.MessageTypeError, msg.Type)
	assert.Contains(t, string(msg.Payload), "UNKNOWN_MESSAGE")
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, server := newHubServer(t, nil)

	conn := dial(t, server, "alice")
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_StopClosesClientsAndDropsBroadcasts(t *testing.T) {
	hub, server := newHubServer(t, nil)
	conn := dial(t, server, "alice")
	waitForClients(t, hub, 1)

	hub.Stop()
	assert.Equal(t, 0, hub.ClientCount())

	// Must not block once stopped
	hub.Broadcast("BULLPEN_UPDATED", nil)

	conn.SetReadDeadline(time.Now().Add(defaultTimeout))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}
