package models

import (
	"fmt"
	"time"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

func ParsePriority(s string) (Priority, error) {
	p := Priority(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

type Card struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   *string    `json:"content"`
	DueDate   *time.Time `json:"dueDate"`
	Priority  *Priority  `json:"priority"`
	ColumnID  string     `json:"columnId"` // owning column
	Order     int        `json:"order"`    // 1-based, dense within the owning column
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// CardPatch never touches ColumnID or Order; moves go through the ordering service.
type CardPatch struct {
	Title    *string
	Content  *string
	DueDate  *time.Time
	Priority *Priority
}

// Apply copies the set fields of the patch onto c.
func (p CardPatch) Apply(c *Card) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Content != nil {
		c.Content = p.Content
	}
	if p.DueDate != nil {
		c.DueDate = p.DueDate
	}
	if p.Priority != nil {
		c.Priority = p.Priority
	}
}
