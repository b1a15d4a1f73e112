// Package remote — blobstore.Store поверх storage-узла, доступного по HTTP (storageclient).
package remote

import (
	"context"
	"io"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
	"github.com/sir_venger/audiostore/pkg/storageclient"
)

type Store struct {
	cli storageclient.Client
}

func New(cli storageclient.Client) *Store {
	return &Store{cli: cli}
}

var _ blobstore.Store = (*Store)(nil)

// OpenWrite сразу начинает PUT на узел; идентификатор выбирает клиент.
func (s *Store) OpenWrite(ctx context.Context, name string, opts blobstore.WriteOptions) (blobstore.Sink, error) {
	return newSink(ctx, s.cli, models.NewBlobID(), name, opts), nil
}

func (s *Store) OpenRead(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error) {
	return s.cli.GetBlob(ctx, id, w)
}

func (s *Store) Stat(ctx context.Context, id models.BlobID) (models.BlobInfo, error) {
	return s.cli.StatBlob(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id models.BlobID) error {
	return s.cli.DeleteBlob(ctx, id)
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.cli.Health(ctx)
	return err
}
