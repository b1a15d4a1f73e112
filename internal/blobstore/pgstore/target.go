package pgstore

import (
	"context"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sir_venger/audiostore/internal/models"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// target пишет чанки одной загрузки.
type target struct {
	s  *Store
	id models.BlobID
}

func (t *target) PutChunk(ctx context.Context, n int, p []byte) error {
	sqlStr, args, err := t.s.sb.
		Insert(chunksTable).
		Columns("blob_id", "n", "data").
		Values(t.id.UUID(), n, p).
		ToSql()
	if err != nil {
		return fmt.Errorf("build chunk insert: %w", err)
	}

	if _, err := t.s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert chunk: %w", err)
	}

	return nil
}

func (t *target) Commit(ctx context.Context, info models.BlobInfo) error {
	md, err := json.Marshal(info.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	sqlStr, args, err := t.s.sb.
		Insert(blobsTable).
		Columns("id", "filename", "length", "chunk_size", "chunks", "content_type", "metadata", "sha256", "uploaded_at").
		Values(t.id.UUID(), info.Filename, info.Length, info.ChunkSize, info.Chunks, info.ContentType, md, info.SHA256, info.UploadedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build blob insert: %w", err)
	}

	if _, err := t.s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("insert blob row: %w", err)
	}

	return nil
}

func (t *target) Discard(ctx context.Context) error {
	return deleteChunks(ctx, t.s.pool, t.s.sb, t.id)
}

func deleteChunks(ctx context.Context, db execer, sb sq.StatementBuilderType, id models.BlobID) error {
	sqlStr, args, err := sb.Delete(chunksTable).Where(sq.Eq{"blob_id": id.UUID()}).ToSql()
	if err != nil {
		return fmt.Errorf("build chunk delete: %w", err)
	}

	if _, err := db.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	return nil
}
