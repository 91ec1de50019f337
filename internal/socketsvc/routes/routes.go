package routes

import (
	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/kanban-services/internal/socketsvc/handlers"
	"github.com/avvvet/kanban-services/internal/socketsvc/ws"
)

var tokenAuth *jwtauth.JWTAuth

// SetRoutes mounts the push channel under /v1. When auth is enabled the
// websocket accepts a bearer header or a ?jwt= query parameter, since
// browsers cannot set headers on the upgrade request.
func SetRoutes(r chi.Router, s *ws.Ws, service string) {
	h := handlers.NewHandler(s, service)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)

		r.Group(func(r chi.Router) {
			if tokenAuth != nil {
				r.Use(jwtauth.Verify(tokenAuth, jwtauth.TokenFromHeader, jwtauth.TokenFromQuery))
				r.Use(jwtauth.Authenticator)
			}
			r.Get("/ws", h.HandleWebSocket)
		})
	})
}

// InitAuth enables token checks on /v1/ws. An empty key leaves it open.
func InitAuth(jwtKey string) {
	if jwtKey == "" {
		tokenAuth = nil
		log.Warn("JWT_SECRET_KEY is empty, push channel is unauthenticated")
		return
	}
	tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)
}
