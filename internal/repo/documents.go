// Package repo — каталог документов: запись о каждом загруженном блобе с его метаданными.
package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/internal/repo/pgdocs"
	"github.com/sir_venger/audiostore/internal/repo/sqlitedocs"
)

// Documents — хранилище документов.
type Documents interface {
	// Create добавляет документ; повторный id даёт models.ErrConflict.
	Create(ctx context.Context, d models.Document) error
	Get(ctx context.Context, id models.BlobID) (models.Document, error)
	// List ищет подстроку в имени, заголовке и описании; новые документы первыми.
	List(ctx context.Context, q models.ListQuery) ([]models.Document, error)
	Update(ctx context.Context, id models.BlobID, patch models.DocumentPatch) (models.Document, error)
	Delete(ctx context.Context, id models.BlobID) error
	Ping(ctx context.Context) error
	Close() error
}

// Open выбирает реализацию по схеме DSN: memory://, sqlite://<path>, postgres://.
func Open(ctx context.Context, dsn string) (Documents, error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "" || strings.HasPrefix(dsn, "memory://"):
		return NewMemory(), nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return sqlitedocs.Open(ctx, strings.TrimPrefix(dsn, "sqlite://"))
	case NeedsMigrations(dsn):
		return pgdocs.Open(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported meta dsn %q", dsn)
	}
}
