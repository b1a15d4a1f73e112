// Package fsstore — чанковое хранилище блобов на локальном диске.
//
// Раскладка каталога:
//
//	<root>/.tmp/<id>/chunk-000000 ...   незавершённая загрузка
//	<root>/blobs/<id[:2]>/<id>/manifest.json + chunk-*   закоммиченный блоб
//
// Коммит — атомарный rename каталога из .tmp в blobs, поэтому читатель видит либо весь блоб, либо ничего.
package fsstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

const (
	tmpDirName        = ".tmp"
	blobsDirName      = "blobs"
	manifestFileName  = "manifest.json"
	chunkFilenameForm = "chunk-%06d"
)

// Store serves blobs from a directory tree.
type Store struct {
	root      string
	chunkSize int
	log       zerolog.Logger
}

// Option настраивает Store.
type Option func(*Store)

func WithChunkSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// New создаёт хранилище и служебные каталоги.
func New(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:      root,
		chunkSize: blobstore.DefaultChunkSize,
		log:       zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}

	for _, dir := range []string{s.tmpRoot(), filepath.Join(root, blobsDirName)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	return s, nil
}

var _ blobstore.Store = (*Store)(nil)

func (s *Store) OpenWrite(ctx context.Context, name string, opts blobstore.WriteOptions) (blobstore.Sink, error) {
	sink, err := s.OpenWriteID(ctx, models.NewBlobID(), name, opts)
	if err != nil {
		return nil, err
	}

	return sink, nil
}

// OpenWriteID открывает синк с заранее выбранным идентификатором (его присылает удалённый клиент).
func (s *Store) OpenWriteID(ctx context.Context, id models.BlobID, name string, opts blobstore.WriteOptions) (*blobstore.ChunkedSink, error) {
	final := s.blobDir(id)
	if _, err := os.Stat(final); err == nil {
		return nil, fmt.Errorf("%w: %s", models.ErrConflict, id)
	}

	tmp := filepath.Join(s.tmpRoot(), id.String())
	if err := os.Mkdir(tmp, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("%w: %s", models.ErrConflict, id)
		}
		return nil, err
	}

	return blobstore.NewChunkedSink(ctx, id, name, opts, s.chunkSize, &target{dir: tmp, final: final}), nil
}

func (s *Store) OpenRead(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error) {
	info, err := s.Stat(ctx, id)
	if err != nil {
		return nil, err
	}

	dir := s.blobDir(id)
	return blobstore.NewChunkReader(ctx, info, w, func(_ context.Context, n int) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, chunkName(n)))
	})
}

func (s *Store) Stat(_ context.Context, id models.BlobID) (models.BlobInfo, error) {
	return readManifest(filepath.Join(s.blobDir(id), manifestFileName))
}

// Delete сначала уводит каталог блоба из blobs (после этого блоб не виден), потом удаляет его.
func (s *Store) Delete(_ context.Context, id models.BlobID) error {
	trash := filepath.Join(s.tmpRoot(), fmt.Sprintf("%s.deleted-%d", id, time.Now().UnixNano()))
	if err := os.Rename(s.blobDir(id), trash); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.ErrNotFound
		}
		return err
	}

	return os.RemoveAll(trash)
}

// Ping проверяет, что корень хранилища доступен.
func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(s.tmpRoot())
	return err
}

// Root — корневой каталог хранилища.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) tmpRoot() string {
	return filepath.Join(s.root, tmpDirName)
}

func (s *Store) blobDir(id models.BlobID) string {
	key := id.String()
	return filepath.Join(s.root, blobsDirName, key[:2], key)
}

func chunkName(n int) string {
	return fmt.Sprintf(chunkFilenameForm, n)
}

// target пишет чанки в каталог незавершённой загрузки.
type target struct {
	dir   string
	final string
}

func (t *target) PutChunk(_ context.Context, n int, p []byte) error {
	return os.WriteFile(filepath.Join(t.dir, chunkName(n)), p, 0o644)
}

func (t *target) Commit(_ context.Context, info models.BlobInfo) error {
	if err := writeManifest(filepath.Join(t.dir, manifestFileName), info); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(t.final), 0o755); err != nil {
		return err
	}

	return os.Rename(t.dir, t.final)
}

func (t *target) Discard(context.Context) error {
	return os.RemoveAll(t.dir)
}
