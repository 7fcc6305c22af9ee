package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gatekeepbot/gatekeep/internal/config"
	"github.com/gatekeepbot/gatekeep/internal/gateway"
	"github.com/gatekeepbot/gatekeep/internal/jobstore"
	"github.com/gatekeepbot/gatekeep/internal/moderation"
	"github.com/gatekeepbot/gatekeep/internal/sched"
	"github.com/gatekeepbot/gatekeep/modules/telegram"
)

// stopTimeout bounds the graceful shutdown of each component.
const stopTimeout = 15 * time.Second

// application bundles the wired components in their start order.
type application struct {
	logger    *slog.Logger
	store     *jobstore.SQLiteStore
	scheduler *sched.Scheduler
	server    *gateway.Server
	bot       *telegram.Bot
}

// wire constructs every component from a validated config. Nothing is
// started yet; kick handlers are registered so a later scheduler start
// can restore persisted jobs.
func wire(cfg *config.Config, logger *slog.Logger) (*application, error) {
	store, err := jobstore.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	scheduler := sched.New(store, logger)

	client := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.APIURL)
	workflow := moderation.New(scheduler, telegram.NewGateway(client), cfg.Moderation, logger)
	if err := workflow.Register(); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("app: register workflow: %w", err)
	}

	router := telegram.NewRouter(client, workflow, cfg.Telegram, cfg.Moderation.Templates, logger)

	return &application{
		logger:    logger,
		store:     store,
		scheduler: scheduler,
		server:    gateway.NewServer(cfg.Gateway, scheduler, logger),
		bot:       telegram.NewBot(cfg.Telegram, client, router, logger),
	}, nil
}

// start brings the components up: scheduler first so persisted kick jobs
// are re-armed before any new update arrives, then the HTTP gateway, then
// the Telegram transport.
func (a *application) start(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return err
	}
	if err := a.server.Start(ctx); err != nil {
		return err
	}
	if err := a.bot.Start(ctx, a.server.Dispatcher()); err != nil {
		return err
	}
	return nil
}

// stop shuts down in reverse order: inbound transports first so no new
// events race the scheduler teardown, then the scheduler (persisted rows
// survive), then the store.
func (a *application) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	if err := a.bot.Stop(ctx); err != nil {
		a.logger.Warn("telegram stop failed", "error", err)
	}
	if err := a.server.Stop(ctx); err != nil {
		a.logger.Warn("gateway stop failed", "error", err)
	}
	a.scheduler.Shutdown()
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close failed", "error", err)
	}
}
