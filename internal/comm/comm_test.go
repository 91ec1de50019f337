package comm

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
)

func TestEventWireShape(t *testing.T) {
	ts := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	e := Event{
		Type:      CardDeleted,
		Data:      CardDeletedPayload{CardID: "c1"},
		Timestamp: ts,
	}

	b, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"cardDeleted","data":{"cardId":"c1"},"timestamp":"2024-05-01T09:30:00Z"}`, string(b))
}

func TestCardPayloadIsFlat(t *testing.T) {
	e := NewEvent(CardMovedPayload{models.Card{ID: "c1", Title: "t", ColumnID: "col", Order: 3}})

	b, err := json.Marshal(e)
	require.NoError(t, err)

	var raw struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "cardMoved", raw.Type)
	assert.Equal(t, "c1", raw.Data["id"])
	assert.Equal(t, "col", raw.Data["columnId"])
	assert.EqualValues(t, 3, raw.Data["order"])
}

func TestEventDecodesEveryType(t *testing.T) {
	payloads := []Payload{
		CardCreatedPayload{models.Card{ID: "a"}},
		CardMovedPayload{models.Card{ID: "a", Order: 2}},
		CardUpdatedPayload{models.Card{ID: "a", Title: "x"}},
		CardDeletedPayload{CardID: "a"},
		ColumnCreatedPayload{models.Column{ID: "col", Cards: []models.Card{}}},
		ColumnUpdatedPayload{models.Column{ID: "col", Title: "y", Cards: []models.Card{}}},
		ColumnDeletedPayload{ColumnID: "col"},
		BoardStatePayload{Columns: []models.Column{{ID: "col", Cards: []models.Card{{ID: "a"}}}}},
	}

	for _, p := range payloads {
		t.Run(string(p.EventType()), func(t *testing.T) {
			b, err := json.Marshal(NewEvent(p))
			require.NoError(t, err)

			var got Event
			require.NoError(t, json.Unmarshal(b, &got))
			assert.Equal(t, p.EventType(), got.Type)
			assert.Equal(t, p, got.Data)
		})
	}
}

func TestUnknownEventType(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"type":"boardExploded","data":{}}`), &e)
	assert.Error(t, err)
}

func TestMarshalWithoutPayload(t *testing.T) {
	_, err := json.Marshal(Event{Type: CardCreated})
	assert.Error(t, err)
}
