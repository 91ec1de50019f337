package handlers

import (
	"net/http"

	"github.com/go-chi/chi"

	"github.com/avvvet/kanban-services/internal/boardsvc/service"
)

func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req createCardRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	card, err := h.cards.Create(r.Context(), service.NewCard{
		Title:    req.Title,
		Content:  req.Content,
		ColumnID: req.ColumnID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "card created", card)
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "cards", cards)
}

func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	card, err := h.cards.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "card", card)
}

func (h *Handler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	var req updateCardRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	patch, err := req.patch()
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	card, err := h.cards.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "card updated", card)
}

func (h *Handler) MoveCard(w http.ResponseWriter, r *http.Request) {
	var req moveCardRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	card, err := h.cards.Move(r.Context(), chi.URLParam(r, "id"), req.NewColumnID, *req.NewOrder)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "card moved", card)
}

func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
