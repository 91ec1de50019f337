package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/boardsvc/service"
)

// writeError maps service errors onto HTTP statuses. Unknown errors are
// logged and reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	rsp := Response{Error: err.Error()}

	var nonEmpty *service.NonEmptyColumnError
	switch {
	case errors.As(err, &nonEmpty):
		rsp.Code = http.StatusConflict
		rsp.Message = "column is not empty"
		rsp.Data = map[string]int{"cardCount": nonEmpty.Count}
	case errors.Is(err, service.ErrNotFound):
		rsp.Code = http.StatusNotFound
		rsp.Message = "not found"
	case errors.Is(err, service.ErrDuplicateTitle):
		rsp.Code = http.StatusConflict
		rsp.Message = "duplicate title"
	case errors.Is(err, service.ErrInvalidOrder):
		rsp.Code = http.StatusBadRequest
		rsp.Message = "invalid order"
	case errors.Is(err, service.ErrValidation):
		rsp.Code = http.StatusBadRequest
		rsp.Message = "invalid request"
	default:
		log.WithFields(log.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).Errorf("request failed: %v", err)
		rsp.Code = http.StatusInternalServerError
		rsp.Message = "request failed, please retry"
		rsp.Error = service.ErrTransactionFailure.Error()
	}

	h.CreateResponse(w, rsp)
}
