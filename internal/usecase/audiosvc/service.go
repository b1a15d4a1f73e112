package audiosvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

type (
	// Service объединяет загрузку аудио и выдачу блобов (целиком или окном).
	Service interface {
		Upload(ctx context.Context, contentType string, body io.Reader) (models.UploadResult, error)
		Open(ctx context.Context, id models.BlobID, rangeHeader string) (*Content, error)
		OpenAttachment(ctx context.Context, id models.BlobID) (*Content, error)
		Delete(ctx context.Context, id models.BlobID) error
	}
)

// Limits — ограничения на входящую загрузку.
type Limits struct {
	MaxFileSize   int64
	AllowedTypes  []string
	MaxFields     int
	MaxFieldBytes int64
}

const (
	defaultMaxFileSize   = 200 * 1024 * 1024
	defaultMaxFields     = 10
	defaultMaxFieldBytes = 1 << 20
)

type Deps struct {
	Store  blobstore.Store
	Limits Limits
	Log    zerolog.Logger
	Now    func() time.Time
}

type Audio struct {
	Deps
	allowed []string
}

// New конструирует сервис с заданными зависимостями; пустые лимиты заменяются значениями по умолчанию.
func New(deps Deps) *Audio {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Limits.MaxFileSize <= 0 {
		deps.Limits.MaxFileSize = defaultMaxFileSize
	}
	if deps.Limits.MaxFields <= 0 {
		deps.Limits.MaxFields = defaultMaxFields
	}
	if deps.Limits.MaxFieldBytes <= 0 {
		deps.Limits.MaxFieldBytes = defaultMaxFieldBytes
	}

	allowed := make([]string, 0, len(deps.Limits.AllowedTypes))
	for _, t := range deps.Limits.AllowedTypes {
		if t = normalizeType(t); t != "" {
			allowed = append(allowed, t)
		}
	}

	return &Audio{Deps: deps, allowed: allowed}
}

var _ Service = (*Audio)(nil)

func (s *Audio) isAllowed(t string) bool {
	for _, a := range s.allowed {
		if a == t {
			return true
		}
	}
	return false
}

// storeErr оставляет ожидаемые ошибки как есть, прочие считает сбоем хранилища.
func storeErr(op string, err error) error {
	var rerr *byterange.Error
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrStoreIO), errors.As(err, &rerr):
		return err
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %s: %v", models.ErrStoreIO, op, err)
	}
}

func normalizeType(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
