package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/sir_venger/audiostore/internal/app/storagehttp"
	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/blobstore/fsstore"
	"github.com/sir_venger/audiostore/internal/logger"
)

const (
	defaultStorageAddr = ":8081"
	defaultDataDir     = "/data"
	defaultGCTTL       = 24 * time.Hour
	defaultGCInterval  = 30 * time.Minute
)

func main() {
	addr := flag.String("addr", defaultStorageAddr, "listen address")
	dataDir := flag.String("data-dir", envOr("DATA_DIR", defaultDataDir), "root directory for blobs")
	chunkSize := flag.Int("chunk-size", blobstore.DefaultChunkSize, "chunk file size in bytes")
	gcTTL := flag.Duration("gc-ttl", envDuration("GC_TTL", defaultGCTTL), "age after which unfinished uploads are removed")
	gcEvery := flag.Duration("gc-interval", envDuration("GC_INTERVAL", defaultGCInterval), "how often to sweep unfinished uploads")
	logLevel := flag.String("log-level", envOr("LOG_LEVEL", "info"), "log level")
	logFormat := flag.String("log-format", envOr("LOG_FORMAT", "json"), "log format: json or console")
	flag.Parse()

	log, err := logger.New(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	store, err := fsstore.New(*dataDir,
		fsstore.WithChunkSize(*chunkSize),
		fsstore.WithLogger(log.With().Str("component", "fsstore").Logger()),
	)
	if err != nil {
		log.Fatal().Err(err).Str("data_dir", *dataDir).Msg("open store")
	}

	// Настраиваем фоновый GC по удалению незавершённых загрузок.
	stopGC := storagehttp.StartGC(store, *gcTTL, *gcEvery, log.With().Str("component", "gc").Logger())
	defer stopGC()

	server := &http.Server{
		Addr:              *addr,
		Handler:           storagehttp.New(store, log.With().Str("component", "storagehttp").Logger()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	idle := make(chan struct{})
	go func() {
		defer close(idle)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("STORAGE shutdown error")
		}
	}()

	log.Info().
		Str("addr", *addr).
		Str("data_dir", *dataDir).
		Dur("gc_ttl", *gcTTL).
		Dur("gc_interval", *gcEvery).
		Msg("STORAGE listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("listen")
		stop()
	}
	<-idle
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envDuration возвращает длительность из переменной окружения либо дефолт.
func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
