package models

import "time"

// DefaultContentType отдаётся клиенту, если тип блоба неизвестен.
const DefaultContentType = "application/octet-stream"

// BlobMetadata — произвольные описательные поля, которые пишутся вместе с блобом.
type BlobMetadata struct {
	OriginalName string `json:"originalName,omitempty"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
}

// BlobInfo описывает закоммиченный блоб. Length и ID не меняются после закрытия синка.
type BlobInfo struct {
	ID          BlobID       `json:"id"`
	Filename    string       `json:"filename"`
	Length      int64        `json:"length"`
	ChunkSize   int          `json:"chunkSize,omitempty"`
	Chunks      int          `json:"chunks,omitempty"`
	ContentType string       `json:"contentType"`
	Metadata    BlobMetadata `json:"metadata"`
	UploadedAt  time.Time    `json:"uploadDate"`
	SHA256      string       `json:"sha256,omitempty"`
}

// ContentTypeOrDefault возвращает тип для заголовка Content-Type.
func (b BlobInfo) ContentTypeOrDefault() string {
	if b.ContentType == "" {
		return DefaultContentType
	}

	return b.ContentType
}
