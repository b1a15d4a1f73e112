// Package blobstore описывает чанковое хранилище блобов, которым пользуется ядро загрузки и выдачи.
//
// Блоб становится видимым для Stat и OpenRead только после успешного Close синка;
// синк, закрытый через Abort, не оставляет следов.
package blobstore

import (
	"context"
	"errors"
	"io"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

// DefaultChunkSize — 255 KiB, как у GridFS.
const DefaultChunkSize = 255 * 1024

var (
	ErrSinkAborted   = errors.New("blob sink aborted")
	ErrSinkCommitted = errors.New("blob sink already committed")
)

// WriteOptions передаются при открытии синка.
type WriteOptions struct {
	ContentType string
	Metadata    models.BlobMetadata
}

// Sink — потоковая запись одного блоба. ID доступен сразу после открытия.
// Abort можно вызывать конкурентно с Write.
type Sink interface {
	io.Writer
	ID() models.BlobID
	// SetMetadata заменяет метаданные, которые будут записаны при Close.
	SetMetadata(md models.BlobMetadata)
	// Close фиксирует блоб; после успешного Close он виден читателям.
	Close() error
	// Abort отбрасывает всё записанное.
	Abort() error
}

// Store — адаптер хранилища, который потребляет ядро.
type Store interface {
	OpenWrite(ctx context.Context, name string, opts WriteOptions) (Sink, error)
	// OpenRead отдаёт весь блоб (w == nil) либо окно [w.Start, w.End].
	OpenRead(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error)
	Stat(ctx context.Context, id models.BlobID) (models.BlobInfo, error)
	Delete(ctx context.Context, id models.BlobID) error
}

// Pinger проверяет доступность бэкенда для readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Bounds проверяет окно относительно длины блоба и возвращает включительные границы.
// Для пустого блоба без окна end = -1.
func Bounds(info models.BlobInfo, w *byterange.Window) (start, end int64, err error) {
	if w == nil {
		return 0, info.Length - 1, nil
	}
	if w.Start < 0 || w.End < w.Start || w.End >= info.Length {
		return 0, 0, &byterange.Error{Total: info.Length, Err: models.ErrRangeNotSatisfiable}
	}

	return w.Start, w.End, nil
}
