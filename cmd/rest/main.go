package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/app/resthttp"
	"github.com/sir_venger/audiostore/internal/app/storagehttp"
	"github.com/sir_venger/audiostore/internal/config"
	"github.com/sir_venger/audiostore/internal/logger"
)

// main инициализирует REST HTTP-сервис и обеспечивает корректное завершение по сигналу.
func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("init logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := resthttp.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.Warn().Err(err).Msg("close resources")
		}
	}()

	if rt.FS != nil {
		stopGC := storagehttp.StartGC(rt.FS, cfg.GC.TTL, cfg.GC.Interval, log.With().Str("component", "gc").Logger())
		defer stopGC()
	}

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           resthttp.NewServer(rt.Deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Сценарий graceful shutdown при получении SIGTERM/SIGINT.
	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("REST shutdown error")
		}
	}()

	log.Info().
		Str("addr", cfg.ListenAddr).
		Str("blob_driver", cfg.Blob.Driver).
		Bool("cache", cfg.Cache.RedisAddr != "").
		Msg("REST listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("listen")
		stop()
	}
	<-idle
}
