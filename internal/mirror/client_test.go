package mirror

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/comm"
)

// fakeBoard serves a fixed snapshot and pushes whatever is sent on events
// to the single websocket subscriber.
type fakeBoard struct {
	snapshot models.Board
	events   chan comm.Event
	auth     chan string
}

func (f *fakeBoard) routes() http.Handler {
	upgrader := websocket.Upgrader{}
	r := chi.NewRouter()
	r.Get("/columns/board-state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"message": "board state",
			"code":    http.StatusOK,
			"data":    f.snapshot,
		})
	})
	r.Get("/v1/ws", func(w http.ResponseWriter, r *http.Request) {
		f.auth <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for e := range f.events {
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	})
	return r
}

func TestClientSyncsAndAppliesEvents(t *testing.T) {
	fb := &fakeBoard{
		snapshot: models.Board{Columns: []models.Column{
			{ID: "A", Title: "A", Order: 1, Cards: []models.Card{card("a1", "A", 1)}},
			{ID: "B", Title: "B", Order: 2, Cards: []models.Card{}},
		}},
		events: make(chan comm.Event, 4),
		auth:   make(chan string, 1),
	}
	srv := httptest.NewServer(fb.routes())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(fb.events) })

	m := New()
	c := NewClient(srv.URL, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/ws", "token-1", m)

	var mu sync.Mutex
	var seen []comm.EventType
	c.OnEvent = func(e comm.Event) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, e.Type)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	fb.events <- comm.NewEvent(comm.CardMovedPayload{Card: card("a1", "B", 1)})
	fb.events <- comm.NewEvent(comm.CardCreatedPayload{Card: card("a2", "A", 1)})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"a2"}, cards(t, m, "A"))
	assert.Equal(t, []string{"a1"}, cards(t, m, "B"))
	assert.Equal(t, "Bearer token-1", <-fb.auth)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestFetchReportsServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"failed","code":500,"data":null,"error":"transaction failure"}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, "", "", New())
	_, err := c.Fetch(context.Background())
	assert.ErrorContains(t, err, "transaction failure")
}
