package audiosvc

import (
	"context"
	"io"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

// Content — открытый для чтения блоб или его окно. Body обязательно закрыть.
type Content struct {
	Info models.BlobInfo
	// Window == nil — отдаётся весь блоб.
	Window *byterange.Window
	Body   io.ReadCloser
}

// Length — число байт, которое будет прочитано из Body.
func (c *Content) Length() int64 {
	if c.Window != nil {
		return c.Window.Length()
	}
	return c.Info.Length
}

// AttachmentName — имя для Content-Disposition.
func (c *Content) AttachmentName() string {
	if c.Info.Filename != "" {
		return c.Info.Filename
	}
	return c.Info.ID.String() + ".audio"
}

func (c *Content) Close() error {
	return c.Body.Close()
}

// Open читает описание блоба один раз и открывает окно по заголовку Range (пустой — весь блоб).
// Ошибки диапазона — *byterange.Error с полной длиной блоба.
func (s *Audio) Open(ctx context.Context, id models.BlobID, rangeHeader string) (*Content, error) {
	info, err := s.Store.Stat(ctx, id)
	if err != nil {
		return nil, storeErr("stat", err)
	}

	var win *byterange.Window
	if rangeHeader != "" {
		w, err := byterange.Parse(rangeHeader, info.Length)
		if err != nil {
			return nil, err
		}
		win = &w
	}

	return s.open(ctx, id, info, win)
}

// OpenAttachment всегда отдаёт блоб целиком.
func (s *Audio) OpenAttachment(ctx context.Context, id models.BlobID) (*Content, error) {
	info, err := s.Store.Stat(ctx, id)
	if err != nil {
		return nil, storeErr("stat", err)
	}

	return s.open(ctx, id, info, nil)
}

func (s *Audio) open(ctx context.Context, id models.BlobID, info models.BlobInfo, win *byterange.Window) (*Content, error) {
	info.ID = id
	body, err := s.Store.OpenRead(ctx, id, win)
	if err != nil {
		return nil, storeErr("open read", err)
	}

	return &Content{Info: info, Window: win, Body: body}, nil
}

func (s *Audio) Delete(ctx context.Context, id models.BlobID) error {
	if err := s.Store.Delete(ctx, id); err != nil {
		return storeErr("delete", err)
	}

	s.Log.Info().Stringer("id", id).Msg("audio deleted")
	return nil
}
