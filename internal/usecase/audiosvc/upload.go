package audiosvc

import (
	"context"
	"io"
	"mime"
	"mime/multipart"

	"github.com/dustin/go-humanize"

	"github.com/sir_venger/audiostore/internal/models"
)

const (
	audioField       = "audio"
	titleField       = "title"
	descriptionField = "description"
	copyBufferSize   = 32 * 1024
)

// Upload принимает multipart-тело потоком и пишет файл из поля audio в хранилище.
// ctx должен отменяться при обрыве соединения клиента: тогда загрузка прерывается с ErrClientAborted,
// а уже записанные байты удаляются.
func (s *Audio) Upload(ctx context.Context, contentType string, body io.Reader) (models.UploadResult, error) {
	boundary, err := multipartBoundary(contentType)
	if err != nil {
		return models.UploadResult{}, err
	}

	sess := newSession(ctx, s, multipart.NewReader(body, boundary))
	stop := context.AfterFunc(ctx, sess.onDisconnect)
	defer stop()

	res, err := sess.run()
	if err != nil {
		return models.UploadResult{}, err
	}

	s.Log.Info().
		Stringer("id", res.ID).
		Str("filename", res.Filename).
		Str("content_type", res.ContentType).
		Str("size", humanize.IBytes(uint64(res.Length))).
		Msg("audio uploaded")

	return res, nil
}

func multipartBoundary(contentType string) (string, error) {
	mt, params, err := mime.ParseMediaType(contentType)
	if err != nil || mt != "multipart/form-data" || params["boundary"] == "" {
		return "", models.ErrUnsupportedMediaType
	}

	return params["boundary"], nil
}
