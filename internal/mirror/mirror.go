// Package mirror keeps a client-side copy of the board. Local edits are
// applied optimistically with the same position arithmetic the server uses;
// authoritative events and full syncs overwrite whatever the mirror guessed.
// The mirror is never consulted to validate a write.
package mirror

import (
	"sort"
	"sync"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
	"github.com/avvvet/kanban-services/internal/comm"
)

type Mirror struct {
	mu      sync.RWMutex
	columns []models.Column
}

func New() *Mirror {
	return &Mirror{}
}

// Sync replaces the mirrored board.
func (m *Mirror) Sync(b models.Board) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.columns = copyColumns(b.Columns)
	m.sortAll()
}

// Board returns a copy of the mirrored board.
func (m *Mirror) Board() models.Board {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.Board{Columns: copyColumns(m.columns)}
}

// MoveCard moves a card to newOrder within toColumnID. It reports false when
// the card or column is unknown or the move changes nothing.
func (m *Mirror) MoveCard(cardID, toColumnID string, newOrder int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ci, ki := m.findCard(cardID)
	di := m.findColumn(toColumnID)
	if ci < 0 || di < 0 {
		return false
	}
	card := m.columns[ci].Cards[ki]

	if ci == di {
		cards := m.columns[ci].Cards
		target := position.Clamp(newOrder, len(cards))
		s, ok := position.Reorder(card.Order, target)
		if !ok {
			return false
		}
		for i := range cards {
			if i != ki {
				cards[i].Order = s.Apply(cards[i].Order)
			}
		}
		cards[ki].Order = target
		sortCards(cards)
		return true
	}

	target := position.Clamp(newOrder, len(m.columns[di].Cards)+1)
	m.takeCard(ci, ki)
	card.ColumnID = toColumnID
	card.Order = target
	m.putCard(di, card)
	return true
}

// AddCard inserts c at c.Order in its column, or at the tail when c.Order is
// unset or past the end.
func (m *Mirror) AddCard(c models.Card) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	di := m.findColumn(c.ColumnID)
	if di < 0 {
		return false
	}
	if ci, ki := m.findCard(c.ID); ci >= 0 {
		m.takeCard(ci, ki)
	}
	tail := position.Append(len(m.columns[di].Cards))
	if c.Order < 1 || c.Order > tail {
		c.Order = tail
	}
	m.putCard(di, c)
	return true
}

func (m *Mirror) RemoveCard(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ci, ki := m.findCard(id)
	if ci < 0 {
		return false
	}
	m.takeCard(ci, ki)
	return true
}

// MoveColumn moves a column to newOrder, clamped to the board.
func (m *Mirror) MoveColumn(id string, newOrder int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.findColumn(id)
	if i < 0 {
		return false
	}
	target := position.Clamp(newOrder, len(m.columns))
	s, ok := position.Reorder(m.columns[i].Order, target)
	if !ok {
		return false
	}
	for j := range m.columns {
		if j != i {
			m.columns[j].Order = s.Apply(m.columns[j].Order)
		}
	}
	m.columns[i].Order = target
	sortColumns(m.columns)
	return true
}

// Apply reconciles the mirror with an authoritative event.
func (m *Mirror) Apply(e comm.Event) {
	if p, ok := e.Data.(comm.BoardStatePayload); ok {
		m.Sync(models.Board{Columns: p.Columns})
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch p := e.Data.(type) {
	case comm.CardCreatedPayload:
		m.placeCard(p.Card)
	case comm.CardUpdatedPayload:
		m.placeCard(p.Card)
	case comm.CardMovedPayload:
		m.placeCard(p.Card)
	case comm.CardDeletedPayload:
		if ci, ki := m.findCard(p.CardID); ci >= 0 {
			m.takeCard(ci, ki)
		}
	case comm.ColumnCreatedPayload:
		m.placeColumn(p.Column)
	case comm.ColumnUpdatedPayload:
		m.placeColumn(p.Column)
	case comm.ColumnDeletedPayload:
		if i := m.findColumn(p.ColumnID); i >= 0 {
			m.takeColumn(i)
		}
	}
}

// placeCard removes any mirrored copy of c and inserts c at its
// authoritative position.
func (m *Mirror) placeCard(c models.Card) {
	if ci, ki := m.findCard(c.ID); ci >= 0 {
		m.takeCard(ci, ki)
	}
	di := m.findColumn(c.ColumnID)
	if di < 0 {
		return
	}
	m.putCard(di, c)
}

func (m *Mirror) placeColumn(c models.Column) {
	var cards []models.Card
	if i := m.findColumn(c.ID); i >= 0 {
		cards = m.columns[i].Cards
		m.takeColumn(i)
	}
	if c.Cards != nil {
		cards = append([]models.Card(nil), c.Cards...)
		sortCards(cards)
	}
	c.Cards = cards
	c.Order = position.Clamp(c.Order, len(m.columns)+1)

	s := position.Insert(c.Order)
	for j := range m.columns {
		m.columns[j].Order = s.Apply(m.columns[j].Order)
	}
	m.columns = append(m.columns, c)
	sortColumns(m.columns)
}

func (m *Mirror) takeColumn(i int) {
	s := position.Remove(m.columns[i].Order)
	m.columns = append(m.columns[:i], m.columns[i+1:]...)
	for j := range m.columns {
		m.columns[j].Order = s.Apply(m.columns[j].Order)
	}
}

// takeCard removes the card and closes its gap.
func (m *Mirror) takeCard(ci, ki int) {
	col := &m.columns[ci]
	s := position.Remove(col.Cards[ki].Order)
	col.Cards = append(col.Cards[:ki], col.Cards[ki+1:]...)
	for i := range col.Cards {
		col.Cards[i].Order = s.Apply(col.Cards[i].Order)
	}
}

// putCard opens a slot at c.Order, clamped to the column, and inserts c
// there.
func (m *Mirror) putCard(di int, c models.Card) {
	col := &m.columns[di]
	c.Order = position.Clamp(c.Order, len(col.Cards)+1)
	s := position.Insert(c.Order)
	for i := range col.Cards {
		col.Cards[i].Order = s.Apply(col.Cards[i].Order)
	}
	col.Cards = append(col.Cards, c)
	sortCards(col.Cards)
}

func (m *Mirror) findColumn(id string) int {
	for i := range m.columns {
		if m.columns[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Mirror) findCard(id string) (int, int) {
	for i := range m.columns {
		for j := range m.columns[i].Cards {
			if m.columns[i].Cards[j].ID == id {
				return i, j
			}
		}
	}
	return -1, -1
}

func (m *Mirror) sortAll() {
	sortColumns(m.columns)
	for i := range m.columns {
		sortCards(m.columns[i].Cards)
	}
}

func sortColumns(columns []models.Column) {
	sort.SliceStable(columns, func(i, j int) bool { return columns[i].Order < columns[j].Order })
}

func sortCards(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].Order < cards[j].Order })
}

func copyColumns(columns []models.Column) []models.Column {
	out := make([]models.Column, len(columns))
	for i, c := range columns {
		c.Cards = append([]models.Card{}, c.Cards...)
		out[i] = c
	}
	return out
}
