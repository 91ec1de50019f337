package handlers

import (
	"net/http"

	"github.com/go-chi/chi"
)

func (h *Handler) CreateColumn(w http.ResponseWriter, r *http.Request) {
	var req createColumnRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	col, err := h.columns.Create(r.Context(), req.Title, req.Color)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, "column created", col)
}

func (h *Handler) ListColumns(w http.ResponseWriter, r *http.Request) {
	columns, err := h.columns.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "columns", columns)
}

func (h *Handler) GetColumn(w http.ResponseWriter, r *http.Request) {
	col, err := h.columns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "column", col)
}

func (h *Handler) BoardState(w http.ResponseWriter, r *http.Request) {
	board, err := h.board.State(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "board state", board)
}

func (h *Handler) SyncBoardState(w http.ResponseWriter, r *http.Request) {
	board, err := h.board.Resync(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "board state broadcast", board)
}

func (h *Handler) UpdateColumn(w http.ResponseWriter, r *http.Request) {
	var req updateColumnRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	col, err := h.columns.Update(r.Context(), chi.URLParam(r, "id"), req.patch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "column updated", col)
}

func (h *Handler) MoveColumn(w http.ResponseWriter, r *http.Request) {
	var req moveColumnRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	col, err := h.columns.Reorder(r.Context(), chi.URLParam(r, "id"), *req.NewOrder)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, "column moved", col)
}

func (h *Handler) DeleteColumn(w http.ResponseWriter, r *http.Request) {
	if err := h.columns.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
