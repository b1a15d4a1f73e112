package resthttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/blobstore/fsstore"
	"github.com/sir_venger/audiostore/internal/blobstore/pgstore"
	"github.com/sir_venger/audiostore/internal/blobstore/remote"
	"github.com/sir_venger/audiostore/internal/blobstore/s3store"
	"github.com/sir_venger/audiostore/internal/cache/redisx"
	"github.com/sir_venger/audiostore/internal/config"
	"github.com/sir_venger/audiostore/internal/repo"
	"github.com/sir_venger/audiostore/internal/usecase/audiosvc"
	"github.com/sir_venger/audiostore/pkg/storageclient"
)

// Runtime — собранные по конфигу зависимости REST-сервиса.
type Runtime struct {
	Deps Deps
	// FS не nil для драйвера fs: по нему запускается GC брошенных загрузок.
	FS *fsstore.Store

	closers []func() error
}

// Close освобождает ресурсы в обратном порядке создания.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil

	return errors.Join(errs...)
}

// Build собирает хранилища, кэш, каталог и сервис загрузки.
func Build(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Runtime, error) {
	rt := &Runtime{}

	docs, err := repo.Open(ctx, cfg.MetaDSN)
	if err != nil {
		return nil, fmt.Errorf("open meta store: %w", err)
	}
	rt.closers = append(rt.closers, docs.Close)
	rt.Deps.Checks = append(rt.Deps.Checks, Check{Name: "meta", Pinger: docs})

	store, err := rt.openBlobStore(ctx, cfg, log)
	if err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	if p, ok := store.(blobstore.Pinger); ok {
		rt.Deps.Checks = append(rt.Deps.Checks, Check{Name: "blob", Pinger: p})
	}

	if cfg.Cache.RedisAddr != "" {
		cache := redisx.New(redisx.Config{
			Addr:     cfg.Cache.RedisAddr,
			DB:       cfg.Cache.RedisDB,
			Password: cfg.Cache.RedisPassword,
		}, log)
		rt.closers = append(rt.closers, cache.Close)
		rt.Deps.Checks = append(rt.Deps.Checks, Check{Name: "cache", Pinger: cache})
		store = blobstore.WithStatCache(store, cache, cfg.Cache.TTL, log)
	}

	rt.Deps.Audio = audiosvc.New(audiosvc.Deps{
		Store: store,
		Limits: audiosvc.Limits{
			MaxFileSize:   cfg.Upload.MaxFileSizeBytes,
			AllowedTypes:  cfg.Upload.AllowedMimeTypes,
			MaxFields:     cfg.Upload.MaxFields,
			MaxFieldBytes: cfg.Upload.MaxFieldBytes,
		},
		Log: log.With().Str("component", "audiosvc").Logger(),
	})
	rt.Deps.Docs = docs
	rt.Deps.Log = log.With().Str("component", "http").Logger()

	return rt, nil
}

func (rt *Runtime) openBlobStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (blobstore.Store, error) {
	chunk := cfg.Blob.ChunkSize

	switch cfg.Blob.Driver {
	case config.DriverFS:
		st, err := fsstore.New(cfg.Blob.FSRoot,
			fsstore.WithChunkSize(chunk),
			fsstore.WithLogger(log.With().Str("component", "fsstore").Logger()),
		)
		if err != nil {
			return nil, err
		}
		rt.FS = st
		return st, nil
	case config.DriverPostgres:
		st, err := pgstore.Open(ctx, cfg.BlobDSN(), chunk)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, st.Close)
		return st, nil
	case config.DriverS3:
		st, err := s3store.New(cfg.Blob.S3)
		if err != nil {
			return nil, err
		}
		return st, nil
	case config.DriverRemote:
		// без таймаута: тела загрузок и выдач идут потоком
		return remote.New(storageclient.New(cfg.Blob.RemoteURL, &http.Client{})), nil
	case config.DriverMemory:
		return blobstore.NewMemory(chunk), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Blob.Driver)
	}
}
