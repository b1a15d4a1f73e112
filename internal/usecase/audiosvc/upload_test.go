package audiosvc_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/blobstore/blobstoretest"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/internal/usecase/audiosvc"
)

func TestUpload_Success(t *testing.T) {
	svc, mem := newService(1 << 20)
	data := blobstoretest.Payload(5000, 1)

	ct, body := form(t,
		field("title", "Morning take"),
		file("audio", "My Song (live).mp3", "audio/mpeg", data),
		field("description", "recorded after the file"),
	)

	res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
	require.NoError(t, err)

	assert.False(t, res.ID.IsZero())
	assert.Equal(t, "audio/mpeg", res.ContentType)
	assert.EqualValues(t, len(data), res.Length)
	assert.Regexp(t, `^\d+-[0-9a-f]{6}-My_Song_live_.mp3$`, res.Filename)
	assert.True(t, strings.HasPrefix(res.Filename, fmt.Sprint(fixedNow.UnixMilli())))
	assert.Equal(t, fixedNow, res.UploadedAt)

	want := models.BlobMetadata{
		OriginalName: "My Song (live).mp3",
		Title:        "Morning take",
		Description:  "recorded after the file",
	}
	assert.Equal(t, want, res.Metadata)

	info, err := mem.Stat(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, want, info.Metadata)
	assert.Equal(t, res.Filename, info.Filename)
	assert.Equal(t, data, blobstoretest.Read(t, mem, res.ID, nil))
}

func TestUpload_EmptyFile(t *testing.T) {
	svc, mem := newService(1 << 20)

	ct, body := form(t, file("audio", "silence.wav", "audio/wav", nil))
	res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Zero(t, res.Length)
	assert.Empty(t, blobstoretest.Read(t, mem, res.ID, nil))
}

func TestUpload_NotMultipart(t *testing.T) {
	svc, mem := newService(1 << 20)

	for _, ct := range []string{"", "application/json", "multipart/form-data", "multipart/mixed; boundary=x"} {
		_, err := svc.Upload(context.Background(), ct, strings.NewReader("{}"))
		assert.ErrorIs(t, err, models.ErrUnsupportedMediaType, ct)
	}
	assert.Zero(t, mem.Len())
}

func TestUpload_NoFile(t *testing.T) {
	svc, mem := newService(1 << 20)

	ct, body := form(t, field("title", "t"), field("description", "d"))
	_, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
	require.ErrorIs(t, err, models.ErrNoFileProvided)
	assert.Zero(t, mem.Len())
	assert.Zero(t, mem.Pending())
}

func TestUpload_TypeResolution(t *testing.T) {
	id3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), blobstoretest.Payload(200, 9)...)

	tests := []struct {
		name     string
		filename string
		declared string
		data     []byte
		want     string
		wantErr  error
	}{
		{name: "declared", filename: "a.bin", declared: "audio/flac", data: []byte("fLaC"), want: "audio/flac"},
		{name: "declared with params", filename: "a", declared: "Audio/MPEG; foo=bar", data: []byte("x"), want: "audio/mpeg"},
		{name: "generic falls back to extension", filename: "a.M4A", declared: "application/octet-stream", data: []byte("x"), want: "audio/mp4"},
		{name: "missing falls back to extension", filename: "take.ogg", data: []byte("x"), want: "audio/ogg"},
		{name: "disallowed declared, allowed extension", filename: "clip.wav", declared: "video/mp4", data: []byte("x"), want: "audio/wav"},
		{name: "signature alone is not enough", filename: "recording", declared: "application/octet-stream", data: id3, wantErr: models.ErrUnsupportedAudioType},
		{name: "text with audio signature", filename: "notes.txt", declared: "text/plain", data: id3, wantErr: models.ErrUnsupportedAudioType},
		{name: "rejected", filename: "notes.txt", declared: "text/plain", data: []byte("just some text"), wantErr: models.ErrUnsupportedAudioType},
		{name: "rejected empty", filename: "nothing", data: nil, wantErr: models.ErrUnsupportedAudioType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mem := newService(1 << 20)

			ct, body := form(t, file("audio", tt.filename, tt.declared, tt.data))
			res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Zero(t, mem.Len())
				assert.Zero(t, mem.Pending())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, res.ContentType)
			assert.Equal(t, tt.data, blobstoretest.Read(t, mem, res.ID, nil))
		})
	}
}

func TestUpload_SizeLimit(t *testing.T) {
	const limit = 1000

	t.Run("at limit", func(t *testing.T) {
		svc, mem := newService(limit)
		ct, body := form(t, file("audio", "a.mp3", "audio/mpeg", blobstoretest.Payload(limit, 2)))

		res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
		require.NoError(t, err)
		assert.EqualValues(t, limit, res.Length)
		assert.Equal(t, 1, mem.Len())
	})

	t.Run("over limit", func(t *testing.T) {
		svc, mem := newService(limit)
		ct, body := form(t, file("audio", "a.mp3", "audio/mpeg", blobstoretest.Payload(limit+1, 2)))

		_, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
		require.ErrorIs(t, err, models.ErrPayloadTooLarge)
		assert.Zero(t, mem.Len())
		assert.Zero(t, mem.Pending())
	})

	t.Run("far over limit", func(t *testing.T) {
		svc, mem := newService(limit)
		ct, body := form(t, file("audio", "a.mp3", "audio/mpeg", blobstoretest.Payload(200*limit, 2)))

		_, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
		require.ErrorIs(t, err, models.ErrPayloadTooLarge)
		assert.Zero(t, mem.Len())
		assert.Zero(t, mem.Pending())
	})
}

func TestUpload_ExtraParts(t *testing.T) {
	svc, mem := newService(1 << 20)
	first := blobstoretest.Payload(300, 3)

	ct, body := form(t,
		file("cover", "cover.jpg", "image/jpeg", blobstoretest.Payload(500, 4)),
		file("audio", "first.mp3", "audio/mpeg", first),
		field("title", "first title"),
		file("audio", "second.mp3", "audio/mpeg", blobstoretest.Payload(400, 5)),
		field("title", "second title"),
	)

	res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, 1, mem.Len())
	assert.Equal(t, "first.mp3", res.Metadata.OriginalName)
	assert.Equal(t, "first title", res.Metadata.Title)
	assert.Equal(t, first, blobstoretest.Read(t, mem, res.ID, nil))
}

func TestUpload_FieldLimits(t *testing.T) {
	svc, _ := newService(1 << 20)

	ct, body := form(t,
		field("a", "1"), field("b", "2"), field("c", "3"), field("d", "4"),
		field("title", "beyond the field count"),
		field("description", "this value is longer than sixteen bytes"),
		file("audio", "a.mp3", "audio/mpeg", []byte("abc")),
	)

	res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Empty(t, res.Metadata.Title)
	assert.Empty(t, res.Metadata.Description)

	ct, body = form(t,
		field("description", "this value is longer than sixteen bytes"),
		file("audio", "a.mp3", "audio/mpeg", []byte("abc")),
	)
	res, err = svc.Upload(context.Background(), ct, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "this value is lo", res.Metadata.Description)
}

func TestUpload_MalformedBody(t *testing.T) {
	svc, mem := newService(1 << 20)

	_, err := svc.Upload(context.Background(), "multipart/form-data; boundary=xyz", strings.NewReader("definitely not multipart"))
	require.ErrorIs(t, err, models.ErrMalformedBody)
	assert.Zero(t, mem.Len())
}

func TestUpload_TruncatedBody(t *testing.T) {
	svc, mem := newService(1 << 20)
	ct, body := form(t, file("audio", "a.mp3", "audio/mpeg", blobstoretest.Payload(4000, 6)))

	pr, pw := io.Pipe()
	go func() {
		_, _ = pw.Write(body[:len(body)/2])
		_ = pw.CloseWithError(io.ErrUnexpectedEOF)
	}()

	_, err := svc.Upload(context.Background(), ct, pr)
	require.ErrorIs(t, err, models.ErrClientAborted)
	assert.Zero(t, mem.Len())
	assert.Zero(t, mem.Pending())
}

func TestUpload_ContextCancelled(t *testing.T) {
	svc, mem := newService(1 << 20)
	ct, body := form(t, file("audio", "a.mp3", "audio/mpeg", blobstoretest.Payload(4000, 7)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		_, err := svc.Upload(ctx, ct, pr)
		done <- err
	}()

	_, err := pw.Write(body[:len(body)/2])
	require.NoError(t, err)

	cancel()
	_ = pw.CloseWithError(errors.New("connection reset by peer"))

	require.ErrorIs(t, <-done, models.ErrClientAborted)
	assert.Zero(t, mem.Len())
	assert.Zero(t, mem.Pending())
}

func TestUpload_Concurrent(t *testing.T) {
	svc, mem := newService(1 << 20)
	const n = 16

	ids := make([]models.BlobID, n)
	payloads := make([][]byte, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		payloads[i] = blobstoretest.Payload(1000+i*37, byte(i))
		ct, body := form(t, file("audio", fmt.Sprintf("track-%02d.flac", i), "audio/flac", payloads[i]))

		eg.Go(func() error {
			res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
			if err != nil {
				return err
			}
			ids[i] = res.ID
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	seen := map[models.BlobID]bool{}
	for i, id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
		assert.Equal(t, payloads[i], blobstoretest.Read(t, mem, id, nil))
	}
	assert.Equal(t, n, mem.Len())
}

func TestUpload_SignatureMismatchIsLogged(t *testing.T) {
	var logs bytes.Buffer
	mem := blobstore.NewMemory(64)
	svc := audiosvc.New(audiosvc.Deps{
		Store:  mem,
		Limits: audiosvc.Limits{MaxFileSize: 1 << 20, AllowedTypes: allowed},
		Log:    zerolog.New(&logs),
	})

	png := append([]byte("\x89PNG\r\n\x1a\n"), blobstoretest.Payload(100, 3)...)
	ct, body := form(t, file("audio", "cover.mp3", "audio/mpeg", png))

	res, err := svc.Upload(context.Background(), ct, bytes.NewReader(body))
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", res.ContentType)
	assert.Equal(t, 1, mem.Len())
	assert.Contains(t, logs.String(), `"detected":"image/png"`)
	assert.Contains(t, logs.String(), "file signature does not match its type")
}
