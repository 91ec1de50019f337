// Package comm holds the change notifications pushed to board subscribers.
// The same JSON envelope travels over NATS between services and over the
// websocket to clients.
package comm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
)

type EventType string

const (
	CardCreated    EventType = "cardCreated"
	CardMoved      EventType = "cardMoved"
	CardUpdated    EventType = "cardUpdated"
	CardDeleted    EventType = "cardDeleted"
	ColumnCreated  EventType = "columnCreated"
	ColumnUpdated  EventType = "columnUpdated"
	ColumnDeleted  EventType = "columnDeleted"
	BoardStateSync EventType = "boardStateSync"
)

// Payload is implemented only by the payload types of this package.
type Payload interface {
	EventType() EventType
	payload()
}

type CardCreatedPayload struct{ models.Card }

type CardMovedPayload struct{ models.Card }

type CardUpdatedPayload struct{ models.Card }

type CardDeletedPayload struct {
	CardID string `json:"cardId"`
}

type ColumnCreatedPayload struct{ models.Column }

type ColumnUpdatedPayload struct{ models.Column }

type ColumnDeletedPayload struct {
	ColumnID string `json:"columnId"`
}

// BoardStatePayload carries the full ordered board.
type BoardStatePayload struct {
	Columns []models.Column `json:"columns"`
}

func (CardCreatedPayload) EventType() EventType   { return CardCreated }
func (CardMovedPayload) EventType() EventType     { return CardMoved }
func (CardUpdatedPayload) EventType() EventType   { return CardUpdated }
func (CardDeletedPayload) EventType() EventType   { return CardDeleted }
func (ColumnCreatedPayload) EventType() EventType { return ColumnCreated }
func (ColumnUpdatedPayload) EventType() EventType { return ColumnUpdated }
func (ColumnDeletedPayload) EventType() EventType { return ColumnDeleted }
func (BoardStatePayload) EventType() EventType    { return BoardStateSync }

func (CardCreatedPayload) payload()   {}
func (CardMovedPayload) payload()     {}
func (CardUpdatedPayload) payload()   {}
func (CardDeletedPayload) payload()   {}
func (ColumnCreatedPayload) payload() {}
func (ColumnUpdatedPayload) payload() {}
func (ColumnDeletedPayload) payload() {}
func (BoardStatePayload) payload()    {}

// Event is the wire envelope {type, data, timestamp}.
type Event struct {
	Type      EventType
	Data      Payload
	Timestamp time.Time
}

// NewEvent wraps p with its type and the current time.
func NewEvent(p Payload) Event {
	return Event{Type: p.EventType(), Data: p, Timestamp: time.Now().UTC()}
}

type wireEvent struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Data == nil {
		return nil, fmt.Errorf("event %q has no payload", e.Type)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireEvent{Type: e.Data.EventType(), Data: data, Timestamp: e.Timestamp})
}

func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	var p Payload
	switch w.Type {
	case CardCreated:
		p = &CardCreatedPayload{}
	case CardMoved:
		p = &CardMovedPayload{}
	case CardUpdated:
		p = &CardUpdatedPayload{}
	case CardDeleted:
		p = &CardDeletedPayload{}
	case ColumnCreated:
		p = &ColumnCreatedPayload{}
	case ColumnUpdated:
		p = &ColumnUpdatedPayload{}
	case ColumnDeleted:
		p = &ColumnDeletedPayload{}
	case BoardStateSync:
		p = &BoardStatePayload{}
	default:
		return fmt.Errorf("unknown event type %q", w.Type)
	}

	if err := json.Unmarshal(w.Data, p); err != nil {
		return fmt.Errorf("decode %s payload: %w", w.Type, err)
	}

	e.Type = w.Type
	e.Timestamp = w.Timestamp
	e.Data = deref(p)
	return nil
}

// deref stores payloads by value so type switches match the same types
// NewEvent produces.
func deref(p Payload) Payload {
	switch v := p.(type) {
	case *CardCreatedPayload:
		return *v
	case *CardMovedPayload:
		return *v
	case *CardUpdatedPayload:
		return *v
	case *CardDeletedPayload:
		return *v
	case *ColumnCreatedPayload:
		return *v
	case *ColumnUpdatedPayload:
		return *v
	case *ColumnDeletedPayload:
		return *v
	case *BoardStatePayload:
		return *v
	}
	return p
}
