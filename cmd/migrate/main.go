package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/config"
	"github.com/sir_venger/audiostore/internal/logger"
	"github.com/sir_venger/audiostore/internal/repo"
)

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	targets := []struct{ name, dsn string }{{"meta", cfg.MetaDSN}}
	if cfg.Blob.Driver == config.DriverPostgres && cfg.BlobDSN() != cfg.MetaDSN {
		targets = append(targets, struct{ name, dsn string }{"blob", cfg.BlobDSN()})
	}

	for _, t := range targets {
		if !repo.NeedsMigrations(t.dsn) {
			log.Info().Str("target", t.name).Msg("not a postgres dsn, skipping migrations")
			continue
		}
		if err := repo.ApplyMigrations(ctx, t.dsn); err != nil {
			log.Fatal().Err(err).Str("target", t.name).Msg("apply migrations")
		}
		log.Info().Str("target", t.name).Msg("migrations applied")
	}
}
