package models

import "time"

type Column struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`           // unique across the board
	Order     int       `json:"order"`           // 1-based, dense across all columns
	Color     *string   `json:"color,omitempty"` // hex color, optional
	Cards     []Card    `json:"cards"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ColumnPatch carries the mutable column fields. Nil means unchanged.
type ColumnPatch struct {
	Title *string
	Color *string
}

// Board is the read-only composite used for full sync.
type Board struct {
	Columns []Column `json:"columns"`
}
