package handlers

import (
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/health", h.HealthHandler)

	// public reads
	r.Get("/columns", h.ListColumns)
	r.Get("/columns/board-state", h.BoardState)
	r.Get("/columns/{id}", h.GetColumn)
	r.Get("/cards", h.ListCards)
	r.Get("/cards/{id}", h.GetCard)

	// mutations, behind a bearer token when auth is enabled
	r.Group(func(r chi.Router) {
		if h.tokenAuth != nil {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)
		}

		r.Post("/columns", h.CreateColumn)
		r.Post("/columns/board-state/sync", h.SyncBoardState)
		r.Patch("/columns/{id}", h.UpdateColumn)
		r.Patch("/columns/{id}/move", h.MoveColumn)
		r.Delete("/columns/{id}", h.DeleteColumn)

		r.Post("/cards", h.CreateCard)
		r.Patch("/cards/{id}", h.UpdateCard)
		r.Patch("/cards/{id}/move", h.MoveCard)
		r.Delete("/cards/{id}", h.DeleteCard)
	})
}

// InitAuth enables bearer auth on mutating routes. An empty key leaves
// them open.
func (h *Handler) InitAuth(jwtKey string) {
	if jwtKey == "" {
		log.Warn("JWT_SECRET_KEY is empty, board mutations are unauthenticated")
		return
	}
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()
	_, tokenString, err := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": "boardsvc",
		"exp":        expirationTime,
	})
	if err != nil {
		log.Errorf("unable to issue debug token: %v", err)
		return
	}
	log.Debugf("debug token for board mutations: %s", tokenString)
}

// TokenAuth exposes the configured signer, nil when auth is disabled.
func (h *Handler) TokenAuth() *jwtauth.JWTAuth {
	return h.tokenAuth
}
