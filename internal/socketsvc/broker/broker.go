package broker

import (
	"encoding/json"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/comm"
)

// Broadcaster delivers a raw event to every subscriber.
type Broadcaster interface {
	Broadcast(payload []byte)
}

type Broker struct {
	Conn *nats.Conn
	hub  Broadcaster
}

func NewBroker(conn *nats.Conn, hub Broadcaster) *Broker {
	return &Broker{Conn: conn, hub: hub}
}

// Subscribe relays every board event published on topic to the hub.
func (b *Broker) Subscribe(topic string) (*nats.Subscription, error) {
	sub, err := b.Conn.Subscribe(topic, b.handleMessages)
	if err != nil {
		return nil, err
	}

	return sub, nil
}

func (b *Broker) handleMessages(msgNats *nats.Msg) {
	b.relay(msgNats.Data)
}

// relay forwards well-formed envelopes unchanged and drops the rest.
func (b *Broker) relay(data []byte) {
	var e comm.Event
	if err := json.Unmarshal(data, &e); err != nil {
		log.Errorf("dropping malformed board event: %v", err)
		return
	}

	log.Debugf("relaying %s event", e.Type)
	b.hub.Broadcast(data)
}
