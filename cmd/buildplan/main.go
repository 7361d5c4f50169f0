package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/buildplan/internal/api"
	"github.com/aristath/buildplan/internal/capacity"
	"github.com/aristath/buildplan/internal/commit"
	"github.com/aristath/buildplan/internal/config"
	"github.com/aristath/buildplan/internal/events"
	"github.com/aristath/buildplan/internal/notify"
	"github.com/aristath/buildplan/internal/persistence"
)

func main() {
	// Signal-aware context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadDefault()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log.Level)

	store, err := persistence.NewSQLiteStore(ctx, cfg.Store.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("failed to open store")
	}
	defer store.Close()

	bus := events.NewEventBus()
	defer bus.Close()

	guard := capacity.NewGuard(store, cfg.Scheduling.DefaultTeamCapacity)
	svc := commit.NewService(store, guard, bus, log, cfg.Scheduling.FrozenDays)
	server := api.NewServer(cfg.Server, store, svc, log)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return server.Run(gCtx)
	})

	if cfg.Notify.WebhookURL != "" {
		sink := notify.NewWebhookSink(cfg.Notify.WebhookURL, nil)
		notifier := notify.NewService(bus, sink, notify.DefaultRetryConfig(), log)
		g.Go(func() error {
			err := notifier.Run(gCtx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	log.Info().
		Str("addr", cfg.Server.Addr).
		Str("store", cfg.Store.Path).
		Int("frozen_days", cfg.Scheduling.FrozenDays).
		Msg("buildplan started")

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Fatal().Err(err).Msg("shutdown with error")
	}
	log.Info().Msg("buildplan stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
