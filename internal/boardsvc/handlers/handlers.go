package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/boardsvc/service"
)

type Handler struct {
	tokenAuth *jwtauth.JWTAuth
	validate  *validator.Validate

	columns *service.ColumnService
	cards   *service.CardService
	board   *service.BoardService
}

func NewHandler(columns *service.ColumnService, cards *service.CardService, board *service.BoardService) *Handler {
	return &Handler{
		validate: validator.New(),
		columns:  columns,
		cards:    cards,
		board:    board,
	}
}

type Response struct {
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data"`
	Error   string      `json:"error"`
}

func (h *Handler) CreateResponse(w http.ResponseWriter, rsp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rsp.Code)

	if err := json.NewEncoder(w).Encode(rsp); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func (h *Handler) ok(w http.ResponseWriter, code int, message string, data interface{}) {
	h.CreateResponse(w, Response{Message: message, Code: code, Data: data})
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.ok(w, http.StatusOK, "board service is running", nil)
}
