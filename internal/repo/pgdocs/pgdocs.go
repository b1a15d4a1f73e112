// Package pgdocs — каталог документов в Postgres (таблица documents, миграции goose).
package pgdocs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sir_venger/audiostore/internal/models"
)

const (
	documentsTable  = "documents"
	uniqueViolation = "23505"
)

var columns = []string{"id", "filename", "content_type", "length", "original_name", "title", "description", "uploaded_at"}

// Store сохраняет документы в Postgres.
type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// Open создаёт подключение к Postgres. Таблицу создают миграции.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("meta dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (s *Store) Create(ctx context.Context, d models.Document) error {
	sqlStr, args, err := s.sb.
		Insert(documentsTable).
		Columns(columns...).
		Values(d.ID.UUID(), d.Filename, d.ContentType, d.Length,
			d.Metadata.OriginalName, d.Metadata.Title, d.Metadata.Description, d.UploadedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: document %s", models.ErrConflict, d.ID)
		}
		return fmt.Errorf("insert document: %w", err)
	}

	return nil
}

// Get возвращает документ по его идентификатору.
func (s *Store) Get(ctx context.Context, id models.BlobID) (models.Document, error) {
	sqlStr, args, err := s.sb.
		Select(columns...).
		From(documentsTable).
		Where(sq.Eq{"id": id.UUID()}).
		Limit(1).
		ToSql()
	if err != nil {
		return models.Document{}, fmt.Errorf("build select: %w", err)
	}

	return scanDocument(s.pool.QueryRow(ctx, sqlStr, args...))
}

func (s *Store) List(ctx context.Context, q models.ListQuery) ([]models.Document, error) {
	q = q.Normalize()

	b := s.sb.
		Select(columns...).
		From(documentsTable).
		OrderBy("uploaded_at DESC", "id").
		Limit(uint64(q.Limit))
	if q.Q != "" {
		pat := q.LikePattern()
		b = b.Where(sq.Or{
			sq.ILike{"filename": pat},
			sq.ILike{"title": pat},
			sq.ILike{"description": pat},
		})
	}

	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]models.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	return out, rows.Err()
}

// Update меняет только переданные поля и возвращает итоговый документ.
func (s *Store) Update(ctx context.Context, id models.BlobID, patch models.DocumentPatch) (models.Document, error) {
	if patch.Empty() {
		return models.Document{}, models.ErrNoFieldsToUpdate
	}

	b := s.sb.Update(documentsTable).Where(sq.Eq{"id": id.UUID()})
	if patch.Title != nil {
		b = b.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}

	sqlStr, args, err := b.Suffix("RETURNING " + strings.Join(columns, ", ")).ToSql()
	if err != nil {
		return models.Document{}, fmt.Errorf("build update: %w", err)
	}

	return scanDocument(s.pool.QueryRow(ctx, sqlStr, args...))
}

func (s *Store) Delete(ctx context.Context, id models.BlobID) error {
	sqlStr, args, err := s.sb.Delete(documentsTable).Where(sq.Eq{"id": id.UUID()}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	tag, err := s.pool.Exec(ctx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
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

func scanDocument(row pgx.Row) (models.Document, error) {
	var (
		d  models.Document
		id uuid.UUID
	)
	err := row.Scan(&id, &d.Filename, &d.ContentType, &d.Length,
		&d.Metadata.OriginalName, &d.Metadata.Title, &d.Metadata.Description, &d.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Document{}, models.ErrNotFound
		}
		return models.Document{}, fmt.Errorf("scan document: %w", err)
	}
	d.ID = models.BlobIDFromUUID(id)
	d.UploadedAt = d.UploadedAt.UTC()

	return d, nil
}

// Pool — пул подключений; нужен тестам и миграциям.
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}
