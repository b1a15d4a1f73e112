// Package sqlitedocs — каталог документов в SQLite (modernc.org/sqlite, без cgo).
// Схема создаётся при открытии; время хранится в миллисекундах Unix.
package sqlitedocs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"

	"github.com/sir_venger/audiostore/internal/models"
)

const (
	documentsTable = "documents"
	driverName     = "sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    id            TEXT PRIMARY KEY,
    filename      TEXT    NOT NULL,
    content_type  TEXT    NOT NULL,
    length        INTEGER NOT NULL,
    original_name TEXT    NOT NULL DEFAULT '',
    title         TEXT    NOT NULL DEFAULT '',
    description   TEXT    NOT NULL DEFAULT '',
    uploaded_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_uploaded_at_idx ON documents (uploaded_at DESC);
`

var columns = []string{"id", "filename", "content_type", "length", "original_name", "title", "description", "uploaded_at"}

type Store struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

// Open открывает (или создаёт) файл базы. path ":memory:" — база в памяти.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}

	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	// Одно соединение: писатель у SQLite всё равно один, а :memory: живёт в рамках соединения.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question).RunWith(db),
	}, nil
}

func (s *Store) Create(ctx context.Context, d models.Document) error {
	_, err := s.sb.
		Insert(documentsTable).
		Columns(columns...).
		Values(d.ID.String(), d.Filename, d.ContentType, d.Length,
			d.Metadata.OriginalName, d.Metadata.Title, d.Metadata.Description, d.UploadedAt.UnixMilli()).
		ExecContext(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: document %s", models.ErrConflict, d.ID)
		}
		return fmt.Errorf("insert document: %w", err)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id models.BlobID) (models.Document, error) {
	row := s.sb.
		Select(columns...).
		From(documentsTable).
		Where(sq.Eq{"id": id.String()}).
		Limit(1).
		QueryRowContext(ctx)

	return scanDocument(row)
}

// List: LIKE в SQLite регистронезависим только для ASCII.
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
			sq.Expr(`filename LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`title LIKE ? ESCAPE '\'`, pat),
			sq.Expr(`description LIKE ? ESCAPE '\'`, pat),
		})
	}

	rows, err := b.QueryContext(ctx)
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

func (s *Store) Update(ctx context.Context, id models.BlobID, patch models.DocumentPatch) (models.Document, error) {
	if patch.Empty() {
		return models.Document{}, models.ErrNoFieldsToUpdate
	}

	b := s.sb.Update(documentsTable).Where(sq.Eq{"id": id.String()})
	if patch.Title != nil {
		b = b.Set("title", *patch.Title)
	}
	if patch.Description != nil {
		b = b.Set("description", *patch.Description)
	}

	res, err := b.ExecContext(ctx)
	if err != nil {
		return models.Document{}, fmt.Errorf("update document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Document{}, models.ErrNotFound
	}

	return s.Get(ctx, id)
}

func (s *Store) Delete(ctx context.Context, id models.BlobID) error {
	res, err := s.sb.Delete(documentsTable).Where(sq.Eq{"id": id.String()}).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func scanDocument(row sq.RowScanner) (models.Document, error) {
	var (
		d        models.Document
		id       string
		uploaded int64
	)
	err := row.Scan(&id, &d.Filename, &d.ContentType, &d.Length,
		&d.Metadata.OriginalName, &d.Metadata.Title, &d.Metadata.Description, &uploaded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Document{}, models.ErrNotFound
		}
		return models.Document{}, fmt.Errorf("scan document: %w", err)
	}

	if d.ID, err = models.ParseBlobID(id); err != nil {
		return models.Document{}, fmt.Errorf("stored id %q: %w", id, err)
	}
	d.UploadedAt = time.UnixMilli(uploaded).UTC()

	return d, nil
}
