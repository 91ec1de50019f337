package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/service"
)

type createColumnRequest struct {
	Title string  `json:"title" validate:"required"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

type updateColumnRequest struct {
	Title *string `json:"title" validate:"omitempty,min=1"`
	Color *string `json:"color" validate:"omitempty,hexcolor"`
}

func (r updateColumnRequest) patch() models.ColumnPatch {
	return models.ColumnPatch{Title: r.Title, Color: r.Color}
}

type moveColumnRequest struct {
	NewOrder *int `json:"newOrder" validate:"required"`
}

type createCardRequest struct {
	Title    string  `json:"title" validate:"required"`
	Content  *string `json:"content"`
	ColumnID string  `json:"columnId" validate:"required"`
}

// dueDate accepts an RFC 3339 timestamp or a bare calendar date, read as
// midnight UTC.
type dueDate time.Time

const dateOnly = "2006-01-02"

func (d *dueDate) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("dueDate must be a string: %w", err)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		if t, err = time.Parse(dateOnly, s); err != nil {
			return fmt.Errorf("dueDate %q is neither RFC 3339 nor %s", s, dateOnly)
		}
	}
	*d = dueDate(t)
	return nil
}

type updateCardRequest struct {
	Title    *string  `json:"title" validate:"omitempty,min=1"`
	Content  *string  `json:"content"`
	DueDate  *dueDate `json:"dueDate"`
	Priority *string  `json:"priority"`
}

func (r updateCardRequest) patch() (models.CardPatch, error) {
	p := models.CardPatch{Title: r.Title, Content: r.Content}
	if r.DueDate != nil {
		t := time.Time(*r.DueDate)
		p.DueDate = &t
	}
	if r.Priority != nil {
		priority, err := models.ParsePriority(*r.Priority)
		if err != nil {
			return p, fmt.Errorf("%w: %v", service.ErrValidation, err)
		}
		p.Priority = &priority
	}
	return p, nil
}

type moveCardRequest struct {
	NewColumnID string `json:"newColumnId" validate:"required"`
	NewOrder    *int   `json:"newOrder" validate:"required"`
}

// decode reads a JSON body into dst and validates it. Failures carry
// service.ErrValidation.
func (h *Handler) decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", service.ErrValidation, err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", service.ErrValidation, describe(err))
	}
	return nil
}

func describe(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
