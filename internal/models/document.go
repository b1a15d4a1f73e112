package models

import (
	"strings"
	"time"
)

// Document — запись каталога, связанная с блобом по идентификатору.
type Document struct {
	ID          BlobID       `json:"id"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"contentType"`
	Length      int64        `json:"length"`
	UploadedAt  time.Time    `json:"uploadDate"`
	Metadata    BlobMetadata `json:"metadata"`
}

// DocumentPatch — частичное обновление; nil означает «не трогать».
type DocumentPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

func (p DocumentPatch) Empty() bool {
	return p.Title == nil && p.Description == nil
}

// Apply применяет изменения к копии записи.
func (p DocumentPatch) Apply(d Document) Document {
	if p.Title != nil {
		d.Metadata.Title = *p.Title
	}
	if p.Description != nil {
		d.Metadata.Description = *p.Description
	}

	return d
}

// ListQuery — параметры поиска по каталогу.
type ListQuery struct {
	Q     string
	Limit int
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Normalize приводит лимит к допустимым границам.
func (q ListQuery) Normalize() ListQuery {
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultListLimit
	case q.Limit > MaxListLimit:
		q.Limit = MaxListLimit
	}

	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// LikePattern — шаблон поиска подстроки для LIKE/ILIKE с экранированием '\'.
func (q ListQuery) LikePattern() string {
	return "%" + likeEscaper.Replace(strings.ToLower(q.Q)) + "%"
}

// Matches — та же проверка, что и LikePattern, для хранилищ без SQL.
func (q ListQuery) Matches(d Document) bool {
	if q.Q == "" {
		return true
	}
	needle := strings.ToLower(q.Q)
	for _, s := range []string{d.Filename, d.Metadata.Title, d.Metadata.Description} {
		if strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}

	return false
}
