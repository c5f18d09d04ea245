package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Chat/internal/adapters/blob"
	router "github.com/dkeye/Chat/internal/adapters/http"
	wsignal "github.com/dkeye/Chat/internal/adapters/signal"
	"github.com/dkeye/Chat/internal/adapters/storage"
	"github.com/dkeye/Chat/internal/app"
	"github.com/dkeye/Chat/internal/app/orch"
	"github.com/dkeye/Chat/internal/config"
	"github.com/dkeye/Chat/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Str("tz", cfg.DisplayTimezone).Msg("display timezone")
	}

	db, err := storage.Open(cfg.BadgerPath, cfg.BadgerInMemory)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	msgs, err := storage.NewMessageRepository(db)
	if err != nil {
		log.Fatal().Err(err).Msg("message repository")
	}
	users := storage.NewUserRepository(db)
	audio := blob.NewOsAudioStore(cfg.MediaRoot, cfg.MediaURL)

	policy, err := app.PolicyByName(cfg.SlowMember)
	if err != nil {
		log.Fatal().Err(err).Msg("slow member policy")
	}

	rooms := core.NewRoomManager()
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Rooms:    rooms,
		Policy:   policy,
		Relay: &app.Relay{
			Messages:    msgs,
			Attachments: audio,
			Rooms:       rooms,
			Timeout:     cfg.StoreTimeout,
		},
		Users: users,
	}
	if cfg.RateLimit > 0 {
		o.Limiter = app.NewRateLimiter(cfg.RateLimit, cfg.RateInterval)
	}

	sigOpts := wsignal.Options{
		ReadLimit:  cfg.ReadLimit,
		SendQueue:  cfg.SendQueue,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
	}
	r := router.SetupRouter(ctx, cfg, router.Deps{
		Orch:     o,
		History:  &app.History{Messages: msgs, Users: users},
		Users:    users,
		Audio:    audio,
		Location: loc,
		Signal:   sigOpts,
	})
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Chat server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	o.Shutdown()
	if err := msgs.Close(); err != nil {
		log.Error().Err(err).Msg("release message sequence")
	}
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("close store")
	}
	log.Info().Msg("Server exited gracefully")
}
