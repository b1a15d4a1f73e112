package models

import (
	"fmt"

	"github.com/google/uuid"
)

// BlobID — идентификатор блоба. Внутри 16 байт UUIDv7, снаружи каноническая строка из 36 символов.
type BlobID struct {
	u uuid.UUID
}

// NewBlobID выдаёт новый идентификатор; v7 сортируется по времени создания.
func NewBlobID() BlobID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}

	return BlobID{u: u}
}

// ParseBlobID разбирает внешнее представление идентификатора.
func ParseBlobID(s string) (BlobID, error) {
	if len(s) != 36 {
		return BlobID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	u, err := uuid.Parse(s)
	if err != nil || u == uuid.Nil {
		return BlobID{}, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}

	return BlobID{u: u}, nil
}

// BlobIDFromUUID оборачивает значение, прочитанное из БД.
func BlobIDFromUUID(u uuid.UUID) BlobID {
	return BlobID{u: u}
}

func (id BlobID) String() string {
	return id.u.String()
}

// UUID отдаёт внутреннее представление для драйверов БД.
func (id BlobID) UUID() uuid.UUID {
	return id.u
}

func (id BlobID) IsZero() bool {
	return id.u == uuid.Nil
}

func (id BlobID) MarshalText() ([]byte, error) {
	return []byte(id.u.String()), nil
}

func (id *BlobID) UnmarshalText(b []byte) error {
	parsed, err := ParseBlobID(string(b))
	if err != nil {
		return err
	}
	*id = parsed

	return nil
}
