package audiosvc_test

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/usecase/audiosvc"
)

var (
	fixedNow = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	allowed  = []string{"audio/mpeg", "audio/mp4", "audio/wav", "audio/flac", "audio/ogg"}
)

type formPart struct {
	field       string
	filename    string
	contentType string
	data        []byte
}

func field(name, value string) formPart {
	return formPart{field: name, data: []byte(value)}
}

func file(field, filename, contentType string, data []byte) formPart {
	return formPart{field: field, filename: filename, contentType: contentType, data: data}
}

// form собирает multipart-тело и возвращает его Content-Type.
func form(t *testing.T, parts ...formPart) (string, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		h := textproto.MIMEHeader{}
		if p.filename != "" {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		} else {
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, p.field))
		}
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}

		w, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	return mw.FormDataContentType(), buf.Bytes()
}

func newService(maxSize int64) (*audiosvc.Audio, *blobstore.Memory) {
	mem := blobstore.NewMemory(64)
	svc := audiosvc.New(audiosvc.Deps{
		Store: mem,
		Limits: audiosvc.Limits{
			MaxFileSize:   maxSize,
			AllowedTypes:  allowed,
			MaxFields:     4,
			MaxFieldBytes: 16,
		},
		Log: zerolog.Nop(),
		Now: func() time.Time { return fixedNow },
	})

	return svc, mem
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
