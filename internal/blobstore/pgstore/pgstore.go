// Package pgstore хранит блобы в Postgres по схеме GridFS: строки blob_chunks пишутся
// по мере загрузки, строка blobs вставляется при коммите и открывает блоб читателям.
package pgstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

const (
	blobsTable  = "blobs"
	chunksTable = "blob_chunks"
)

// Store — чанковое хранилище поверх пула pgx.
type Store struct {
	pool      *pgxpool.Pool
	chunkSize int
	sb        sq.StatementBuilderType
}

// Open создаёт пул подключений к Postgres.
func Open(ctx context.Context, dsn string, chunkSize int) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("blob dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return New(pool, chunkSize), nil
}

// New использует готовый пул.
func New(pool *pgxpool.Pool, chunkSize int) *Store {
	if chunkSize <= 0 {
		chunkSize = blobstore.DefaultChunkSize
	}

	return &Store{
		pool:      pool,
		chunkSize: chunkSize,
		sb:        sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

var _ blobstore.Store = (*Store)(nil)

func (s *Store) OpenWrite(ctx context.Context, name string, opts blobstore.WriteOptions) (blobstore.Sink, error) {
	id := models.NewBlobID()
	return blobstore.NewChunkedSink(ctx, id, name, opts, s.chunkSize, &target{s: s, id: id}), nil
}

func (s *Store) OpenRead(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error) {
	info, err := s.Stat(ctx, id)
	if err != nil {
		return nil, err
	}

	return blobstore.NewChunkReader(ctx, info, w, func(ctx context.Context, n int) (io.ReadCloser, error) {
		data, err := s.chunk(ctx, id, n)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

func (s *Store) Stat(ctx context.Context, id models.BlobID) (models.BlobInfo, error) {
	sqlStr, args, err := s.sb.
		Select("filename", "length", "chunk_size", "chunks", "content_type", "metadata", "sha256", "uploaded_at").
		From(blobsTable).
		Where(sq.Eq{"id": id.UUID()}).
		Limit(1).
		ToSql()
	if err != nil {
		return models.BlobInfo{}, fmt.Errorf("build select: %w", err)
	}

	info := models.BlobInfo{ID: id}
	var mdRaw []byte
	err = s.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&info.Filename, &info.Length, &info.ChunkSize, &info.Chunks,
		&info.ContentType, &mdRaw, &info.SHA256, &info.UploadedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.BlobInfo{}, models.ErrNotFound
		}
		return models.BlobInfo{}, fmt.Errorf("scan blob row: %w", err)
	}
	if len(mdRaw) > 0 {
		if err := json.Unmarshal(mdRaw, &info.Metadata); err != nil {
			return models.BlobInfo{}, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	info.UploadedAt = info.UploadedAt.UTC()

	return info, nil
}

// Delete удаляет строку blobs и все чанки в одной транзакции.
func (s *Store) Delete(ctx context.Context, id models.BlobID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sqlStr, args, err := s.sb.Delete(blobsTable).Where(sq.Eq{"id": id.UUID()}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	tag, err := tx.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete blob row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	if err := deleteChunks(ctx, tx, s.sb, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Sweep удаляет чанки загрузок, которые так и не закоммитились за ttl.
func (s *Store) Sweep(ctx context.Context, ttl time.Duration) (int64, error) {
	sqlStr, args, err := s.sb.
		Delete(chunksTable+" c").
		Where(sq.Lt{"c.created_at": time.Now().Add(-ttl)}).
		Where("NOT EXISTS (SELECT 1 FROM " + blobsTable + " b WHERE b.id = c.blob_id)").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sweep: %w", err)
	}

	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep chunks: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close освобождает подключения пула.
func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Store) chunk(ctx context.Context, id models.BlobID, n int) ([]byte, error) {
	sqlStr, args, err := s.sb.
		Select("data").
		From(chunksTable).
		Where(sq.Eq{"blob_id": id.UUID(), "n": n}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build chunk select: %w", err)
	}

	var data []byte
	if err := s.pool.QueryRow(ctx, sqlStr, args...).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return data, nil
}
