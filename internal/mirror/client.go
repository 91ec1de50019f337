package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/comm"
)

// Client feeds a Mirror from the board API: a full snapshot on every
// (re)connect, then the push stream.
type Client struct {
	apiURL string
	wsURL  string
	token  string

	HTTP   *http.Client
	Dialer *websocket.Dialer
	Mirror *Mirror

	// OnSync and OnEvent, when set, run after a snapshot or an event has
	// been applied.
	OnSync  func(models.Board)
	OnEvent func(comm.Event)
}

func NewClient(apiURL, wsURL, token string, m *Mirror) *Client {
	return &Client{
		apiURL: apiURL,
		wsURL:  wsURL,
		token:  token,
		HTTP:   &http.Client{Timeout: 10 * time.Second},
		Dialer: websocket.DefaultDialer,
		Mirror: m,
	}
}

type envelope struct {
	Code  int          `json:"code"`
	Data  models.Board `json:"data"`
	Error string       `json:"error"`
}

// Fetch reads the full board.
func (c *Client) Fetch(ctx context.Context) (*models.Board, error) {
	u, err := url.JoinPath(c.apiURL, "columns", "board-state")
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get board state: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("failed to decode board state: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, env.Error)
	}
	return &env.Data, nil
}

// Run dials the push channel, syncs the mirror and applies events until the
// connection drops or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	// subscribe before the snapshot so nothing committed in between is missed
	conn, _, err := c.Dialer.DialContext(ctx, c.wsURL, header)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	board, err := c.Fetch(ctx)
	if err != nil {
		return err
	}
	c.Mirror.Sync(*board)
	log.Infof("mirror synced with %d columns", len(board.Columns))
	if c.OnSync != nil {
		c.OnSync(c.Mirror.Board())
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("push channel closed: %w", err)
		}

		var e comm.Event
		if err := json.Unmarshal(data, &e); err != nil {
			log.Warnf("skipping undecodable event: %v", err)
			continue
		}
		c.Mirror.Apply(e)
		if c.OnEvent != nil {
			c.OnEvent(e)
		}
	}
}

// Watch keeps Run going, reconnecting after retry, until ctx is done.
func (c *Client) Watch(ctx context.Context, retry time.Duration) {
	for {
		if err := c.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("mirror session ended: %v", err)
		}

		t := time.NewTimer(retry)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			log.Info("stopping mirror")
			return
		}
	}
}
