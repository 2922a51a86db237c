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

	router "github.com/dkeye/chatter/internal/adapters/http"
	"github.com/dkeye/chatter/internal/adapters/ws"
	"github.com/dkeye/chatter/internal/auth"
	"github.com/dkeye/chatter/internal/chat"
	"github.com/dkeye/chatter/internal/config"
	"github.com/dkeye/chatter/internal/presence"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	directory := auth.NewDirectoryFromConfig(cfg.Users)
	authSvc := auth.NewService(directory, auth.NewTokenCodec(cfg.Secret, cfg.TokenTTL))

	store := presence.NewStore()
	gate := chat.NewGate(authSvc, store)
	engine := chat.NewEngine(store)
	hub := ws.NewHub(store)
	ctrl := ws.NewController(cfg, gate, engine, hub)

	r := router.SetupRouter(ctx, cfg, authSvc, ctrl)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("chatter server started")
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
	log.Info().Msg("Server exited gracefully")
}
