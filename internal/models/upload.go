package models

import "time"

// UploadResult возвращается после успешной загрузки и содержит ключевые метаданные.
type UploadResult struct {
	ID          BlobID
	Filename    string
	ContentType string
	Length      int64
	Metadata    BlobMetadata
	UploadedAt  time.Time
}

// Document строит запись каталога по результату загрузки.
func (r UploadResult) Document() Document {
	return Document{
		ID:          r.ID,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Length:      r.Length,
		UploadedAt:  r.UploadedAt,
		Metadata:    r.Metadata,
	}
}
