package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnkhanh/e-cert-backend/testutil"
)

func dialHub(t *testing.T, hub *Hub, key string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(key, conn, []byte(`{"type":"connected"}`))
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(msg)
}

func TestHub_PublishReachesKey(t *testing.T) {
	hub := NewHub(testutil.MakeNoopLogger())
	conn := dialHub(t, hub, "uni@x.com")

	assert.JSONEq(t, `{"type":"connected"}`, readText(t, conn))

	hub.Publish("someone-else@x.com", map[string]string{"type": "ignored"})
	hub.Publish("uni@x.com", map[string]any{"type": "row_processed", "row": 1})
	assert.JSONEq(t, `{"type":"row_processed","row":1}`, readText(t, conn))

	assert.Equal(t, map[string]int{"channels": 1, "clients": 1}, hub.GetStats())
}

func TestHub_UnregisterOnClose(t *testing.T) {
	hub := NewHub(testutil.MakeNoopLogger())
	conn := dialHub(t, hub, "uni@x.com")
	readText(t, conn)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		return hub.GetStats()["clients"] == 0
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.GetStats()["channels"])
}

func TestHub_PublishUnknownKeyIsNoop(t *testing.T) {
	hub := NewHub(testutil.MakeNoopLogger())
	hub.Publish("nobody", map[string]string{"a": "b"})
	hub.Publish("nobody", func() {})
	assert.Equal(t, 0, hub.GetStats()["clients"])
}
