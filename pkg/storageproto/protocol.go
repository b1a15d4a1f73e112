// Package storageproto описывает протокол HTTP-взаимодействия REST-сервиса со storage-узлом.
package storageproto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/sir_venger/audiostore/internal/models"
)

// Параметры REST-протокола взаимодействия со стораджами.
const (
	BlobPathFormat        = "%s/blobs/%s"
	HealthPathFormat      = "%s/health"
	HeaderChecksum        = "X-Checksum-Sha256"
	HeaderBlobName        = "X-Blob-Name"
	HeaderBlobContentType = "X-Blob-Content-Type"
	// HeaderBlobMetadata приходит и заголовком, и трейлером; трейлер побеждает.
	HeaderBlobMetadata = "X-Blob-Metadata"
	HeaderBlobInfo     = "X-Blob-Info"
)

// Health — ответ GET /health storage-узла.
type Health struct {
	OK         bool  `json:"ok"`
	Blobs      int   `json:"blobs"`
	TotalBytes int64 `json:"total_bytes"`
}

// EncodeMetadata упаковывает метаданные в значение заголовка (base64url от JSON).
func EncodeMetadata(md models.BlobMetadata) string {
	return encode(md)
}

// DecodeMetadata — обратная операция; пустая строка даёт пустые метаданные.
func DecodeMetadata(v string) (models.BlobMetadata, error) {
	var md models.BlobMetadata
	if v == "" {
		return md, nil
	}

	return md, decode(v, &md)
}

func EncodeInfo(info models.BlobInfo) string {
	return encode(info)
}

func DecodeInfo(v string) (models.BlobInfo, error) {
	var info models.BlobInfo
	if v == "" {
		return info, fmt.Errorf("empty %s header", HeaderBlobInfo)
	}

	return info, decode(v, &info)
}

func encode(v any) string {
	b, _ := json.Marshal(v)
	return base64.RawURLEncoding.EncodeToString(b)
}

func decode(v string, out any) error {
	b, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return fmt.Errorf("decode header: %w", err)
	}

	return json.Unmarshal(b, out)
}
