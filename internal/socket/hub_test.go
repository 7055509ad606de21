package socket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wte-api-server/internal/models"
)

func newHubServer(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(1, conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestPublishBroadcastsToEveryClient(t *testing.T) {
	hub := NewHub()
	url := newHubServer(t, hub)

	first := dial(t, url)
	second := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 10*time.Millisecond)

	report := &models.WasteReport{ID: 3, SiteID: 1, Status: models.StatusEnRoute}
	hub.Publish("report.status_changed", report)

	for _, conn := range []*websocket.Conn{first, second} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var msg struct {
			Event  string             `json:"event"`
			Report models.WasteReport `json:"report"`
		}
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "report.status_changed", msg.Event)
		assert.Equal(t, int64(3), msg.Report.ID)
		assert.Equal(t, models.StatusEnRoute, msg.Report.Status)
	}
}

func TestPublishWithoutClients(t *testing.T) {
	hub := NewHub()
	assert.NotPanics(t, func() {
		hub.Publish("report.created", &models.WasteReport{ID: 1})
	})
	assert.Zero(t, hub.Count())
}

func TestUnregister(t *testing.T) {
	hub := NewHub()
	url := newHubServer(t, hub)
	dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	hub.mu.Lock()
	var conn *websocket.Conn
	for c := range hub.clients {
		conn = c
	}
	hub.mu.Unlock()

	hub.Unregister(conn)
	assert.Zero(t, hub.Count())

	// Unknown connections are ignored.
	hub.Unregister(conn)
	assert.Zero(t, hub.Count())
}

func TestUnregisterSendsCloseFrame(t *testing.T) {
	hub := NewHub()
	url := newHubServer(t, hub)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	hub.mu.Lock()
	var server *websocket.Conn
	for c := range hub.clients {
		server = c
	}
	hub.mu.Unlock()
	hub.Unregister(server)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestPublishDropsSlowClientWithoutBlocking(t *testing.T) {
	hub := NewHub()

	// No writer drains this queue, as if the dashboard stopped reading.
	stuck := &client{userID: 9, conn: new(websocket.Conn), send: make(chan []byte, 1)}
	hub.clients[stuck.conn] = stuck

	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Publish("report.created", &models.WasteReport{ID: 1})
		hub.Publish("report.created", &models.WasteReport{ID: 2})
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full client queue")
	}
	assert.Zero(t, hub.Count())

	// The queued event is still delivered before the queue reports closed.
	payload, ok := <-stuck.send
	require.True(t, ok)
	assert.Contains(t, string(payload), `"id":1`)
	_, ok = <-stuck.send
	assert.False(t, ok)
}

func TestPublishKeepsClientsIndependent(t *testing.T) {
	hub := NewHub()
	url := newHubServer(t, hub)
	healthy := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	stuck := &client{userID: 9, conn: new(websocket.Conn), send: make(chan []byte)}
	hub.mu.Lock()
	hub.clients[stuck.conn] = stuck
	hub.mu.Unlock()

	hub.Publish("report.created", &models.WasteReport{ID: 5})

	healthy.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := healthy.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":5`)
	assert.Equal(t, 1, hub.Count())
}
