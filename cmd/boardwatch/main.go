package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/kanban-services/configs"
	boardcfg "github.com/avvvet/kanban-services/internal/boardsvc/config"
	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/comm"
	"github.com/avvvet/kanban-services/internal/mirror"
)

const SERVICE_NAME = "boardwatch"

func init() {
	config.LoadEnv(SERVICE_NAME)
	config.Logging(SERVICE_NAME)
}

func main() {
	cfg, err := boardcfg.LoadWatch()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	m := mirror.New()
	c := mirror.NewClient(cfg.APIURL, cfg.WSURL, cfg.Token, m)
	c.OnSync = func(b models.Board) {
		fmt.Println(mirror.Render(b))
	}
	c.OnEvent = func(e comm.Event) {
		log.WithField("type", e.Type).Info("board event")
		fmt.Println(mirror.Render(m.Board()))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Infof("watching %s", cfg.APIURL)
	c.Watch(ctx, 2*time.Second)
}
