package broker

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/comm"
)

// Publisher is the part of *nats.Conn the broker needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Broker publishes committed board events to the message bus for the push
// channel to fan out.
type Broker struct {
	Conn  Publisher
	topic string
}

func NewBroker(conn Publisher, topic string) *Broker {
	return &Broker{Conn: conn, topic: topic}
}

// Notify publishes e. Failures are logged; callers never wait on delivery.
func (b *Broker) Notify(e comm.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Errorf("unable to marshal %s event: %v", e.Type, err)
		return
	}

	if err := b.Publish(b.topic, payload); err != nil {
		return
	}
	log.Debugf("published %s event to %s", e.Type, b.topic)
}

func (b *Broker) Publish(topic string, payload []byte) error {
	err := b.Conn.Publish(topic, payload)
	if err != nil {
		log.Errorf("Error publishing to topic %s: %s", topic, err)
		return err
	}

	return nil
}
