package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/kanban-services/internal/comm"
	"github.com/avvvet/kanban-services/internal/socketsvc/ws"
)

func newServer(t *testing.T, hub *ws.Ws) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	SetRoutes(r, hub, "socket")
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws" + query
}

func waitForClients(t *testing.T, hub *ws.Ws, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastReachesEverySubscriber(t *testing.T) {
	InitAuth("")
	hub := ws.NewWs(8)
	srv := newServer(t, hub)

	var conns []*websocket.Conn
	for i := 0; i < 3; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		conns = append(conns, conn)
	}
	waitForClients(t, hub, 3)

	hub.Notify(comm.NewEvent(comm.ColumnDeletedPayload{ColumnID: "col-9"}))

	for _, conn := range conns {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var e comm.Event
		require.NoError(t, conn.ReadJSON(&e))
		assert.Equal(t, comm.ColumnDeleted, e.Type)
		assert.Equal(t, comm.ColumnDeletedPayload{ColumnID: "col-9"}, e.Data)
	}

	// a departing subscriber is unregistered
	require.NoError(t, conns[0].Close())
	waitForClients(t, hub, 2)
}

func TestHealthReportsMetrics(t *testing.T) {
	InitAuth("")
	hub := ws.NewWs(8)
	srv := newServer(t, hub)

	resp, err := http.Get(srv.URL + "/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Code int                `json:"code"`
		Data ws.MetricsSnapshot `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, http.StatusOK, body.Code)
	assert.EqualValues(t, 0, body.Data.ConnectedClients)
}

func TestWebSocketRequiresTokenWhenAuthEnabled(t *testing.T) {
	InitAuth("socket-secret")
	t.Cleanup(func() { InitAuth("") })
	hub := ws.NewWs(8)
	srv := newServer(t, hub)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, token, err := tokenAuth.Encode(map[string]interface{}{"sub": "watcher"})
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, "?jwt="+token), nil)
	require.NoError(t, err)
	defer conn.Close()
	waitForClients(t, hub, 1)
}
