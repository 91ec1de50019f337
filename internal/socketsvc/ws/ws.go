// Package ws keeps the registry of websocket subscribers and fans board
// events out to them.
package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/comm"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// PongWait is how long a subscriber may stay silent before it is dropped.
	PongWait = 60 * time.Second

	// PingPeriod must be shorter than PongWait.
	PingPeriod = 25 * time.Second

	DefaultClientBuffer = 64
)

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex // guards closed and sends on send
	closed bool
}

// trySend queues payload without blocking. It reports false when the queue
// is full or the client is gone.
func (c *client) trySend(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type Ws struct {
	connMap    sync.Map // socketId -> *client
	bufferSize int
	metrics    *Metrics
}

func NewWs(bufferSize int) *Ws {
	if bufferSize <= 0 {
		bufferSize = DefaultClientBuffer
	}
	return &Ws{bufferSize: bufferSize, metrics: NewMetrics()}
}

// StoreConnection registers conn under socketId and starts its writer.
func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	c := &client{
		id:   socketId,
		conn: conn,
		send: make(chan []byte, s.bufferSize),
	}
	s.connMap.Store(socketId, c)
	s.metrics.ConnectedClients.Add(1)

	go s.writer(c)
}

// HandleDisconnect removes the subscriber and stops its writer.
func (s *Ws) HandleDisconnect(socketId string) {
	c, ok := s.connMap.LoadAndDelete(socketId)
	if !ok {
		return
	}
	s.metrics.ConnectedClients.Add(-1)
	c.(*client).close()
}

// Broadcast queues payload for every subscriber. A subscriber whose queue is
// full misses this payload; the others are not held up.
func (s *Ws) Broadcast(payload []byte) {
	s.metrics.EventsReceived.Add(1)
	s.connMap.Range(func(key, value any) bool {
		c := value.(*client)
		if !c.trySend(payload) {
			s.metrics.EventsDropped.Add(1)
			log.Warnf("send queue full, dropping event for socket %s", c.id)
		}
		return true
	})
}

// Notify encodes e and broadcasts it.
func (s *Ws) Notify(e comm.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Errorf("unable to marshal %s event: %v", e.Type, err)
		return
	}
	s.Broadcast(payload)
}

func (s *Ws) ClientCount() int {
	return int(s.metrics.ConnectedClients.Load())
}

func (s *Ws) Metrics() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// CloseAll sends a close frame to every subscriber and unregisters them.
func (s *Ws) CloseAll() {
	s.connMap.Range(func(key, value any) bool {
		c := value.(*client)
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		s.HandleDisconnect(c.id)
		return true
	})
}

// writer is the only goroutine writing data frames to the connection.
func (s *Ws) writer(c *client) {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Infof("write to socket %s failed: %v", c.id, err)
				s.HandleDisconnect(c.id)
				return
			}
			s.metrics.EventsSent.Add(1)
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.HandleDisconnect(c.id)
				return
			}
		}
	}
}
