package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/httprate"
	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/kanban-services/configs"
	boardcfg "github.com/avvvet/kanban-services/internal/boardsvc/config"
	"github.com/avvvet/kanban-services/internal/nats"
	"github.com/avvvet/kanban-services/internal/socketsvc/broker"
	"github.com/avvvet/kanban-services/internal/socketsvc/routes"
	"github.com/avvvet/kanban-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "socket"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
}

func main() {
	cfg, err := boardcfg.LoadSocket()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to NATS
	n, err := nats.Connect(cfg.NATSURL, cfg.NATSToken, SERVICE_NAME+"_service_"+instanceId)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Conn.Close()
	log.Infof("NATS connection established successfully %s", n.Url)

	// Setup router
	r := chi.NewRouter()
	c := config.CORS(cfg.Origins())

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(config.CustomLoggerMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(c.Handler)

	// to protect the service api from any over requests
	r.Use(httprate.LimitByIP(cfg.RateLimit, 1*time.Minute))

	// Initialize websocket hub and routes
	s := ws.NewWs(cfg.WSClientBuffer)
	routes.InitAuth(cfg.JWTSecretKey)
	routes.SetRoutes(r, s, SERVICE_NAME)

	// relay board events to every subscriber
	b := broker.NewBroker(n.Conn, s)
	sub, err := b.Subscribe(cfg.EventsSubject)
	if err != nil {
		log.Fatalf("Error: unable to subscribe to %s %v", cfg.EventsSubject, err)
	}

	// Create server with timeout settings
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe(): %v", err)
		}
	}()
	log.Infof("%s service running at port %s", SERVICE_NAME, server.Addr)

	// Wait for interrupt signal to gracefully shutdown the server
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	if err := sub.Unsubscribe(); err != nil {
		log.Warnf("failed to unsubscribe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	s.CloseAll()
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
