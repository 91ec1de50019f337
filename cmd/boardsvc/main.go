package main

import (
	"context"
	"fmt"
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
	"github.com/avvvet/kanban-services/internal/boardsvc/broker"
	boardcfg "github.com/avvvet/kanban-services/internal/boardsvc/config"
	boarddb "github.com/avvvet/kanban-services/internal/boardsvc/db"
	"github.com/avvvet/kanban-services/internal/boardsvc/handlers"
	"github.com/avvvet/kanban-services/internal/boardsvc/seed"
	"github.com/avvvet/kanban-services/internal/boardsvc/service"
	"github.com/avvvet/kanban-services/internal/boardsvc/store"
	mongodb "github.com/avvvet/kanban-services/internal/db"
	"github.com/avvvet/kanban-services/internal/nats"
	"github.com/avvvet/kanban-services/internal/socketsvc/routes"
	"github.com/avvvet/kanban-services/internal/socketsvc/ws"
)

const SERVICE_NAME = "board"

var instanceId string

func init() {
	config.LoadEnv(SERVICE_NAME)
	instanceId = config.CreateUniqueInstance(SERVICE_NAME)
	config.Logging(SERVICE_NAME + "_service_" + instanceId)
}

func openStore(ctx context.Context, cfg *boardcfg.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "postgres":
		pool, err := boarddb.ConnectPostgres(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, err
		}
		return store.NewPostgresStore(pool), nil
	case "mongo":
		client, database, err := mongodb.ConnectToDB(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		return store.NewMongoStore(client, database), nil
	case "sqlite":
		sqlDB, err := boarddb.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store.NewSQLiteStore(sqlDB), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func main() {
	cfg, err := boardcfg.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	s, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer s.Close()
	log.Infof("%s store ready", cfg.StoreDriver)

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

	// events go to socketsvc over NATS, or straight to local subscribers
	var notifier service.Notifier
	var hub *ws.Ws
	if cfg.NATSURL != "" {
		n, err := nats.Connect(cfg.NATSURL, cfg.NATSToken, SERVICE_NAME+"_service_"+instanceId)
		if err != nil {
			log.Fatalf("Error: unable to connect to NATS server %v", err)
		}
		defer n.Conn.Close()
		log.Infof("NATS connection established successfully %s", n.Url)

		notifier = broker.NewBroker(n.Conn, cfg.EventsSubject)
	} else {
		hub = ws.NewWs(cfg.WSClientBuffer)
		notifier = hub

		routes.InitAuth(cfg.JWTSecretKey)
		routes.SetRoutes(r, hub, SERVICE_NAME)
		log.Info("NATS_URL is empty, serving the push channel in process at /v1/ws")
	}

	columnService := service.NewColumnService(s, notifier)
	cardService := service.NewCardService(s, notifier)
	boardService := service.NewBoardService(s, notifier)

	if cfg.SeedFile != "" {
		f, err := seed.Load(cfg.SeedFile)
		if err != nil {
			log.Fatalf("Failed to load seed: %v", err)
		}
		if _, err := seed.Apply(ctx, columnService, f); err != nil {
			log.Fatalf("Failed to seed board: %v", err)
		}
	}

	// Init handlers and routes
	h := handlers.NewHandler(columnService, cardService, boardService)
	h.InitAuth(cfg.JWTSecretKey)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		h.SetRoutes(r)
	})

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

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("%s service shutdown Failed:%+v", SERVICE_NAME, err)
	}
	if hub != nil {
		hub.CloseAll()
	}
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
