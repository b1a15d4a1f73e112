package audioclient_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/app/resthttp"
	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/internal/repo"
	"github.com/sir_venger/audiostore/internal/usecase/audiosvc"
	"github.com/sir_venger/audiostore/pkg/audioclient"
)

func newClient(t *testing.T, maxSize int64) *audioclient.Client {
	t.Helper()

	svc := audiosvc.New(audiosvc.Deps{
		Store:  blobstore.NewMemory(128),
		Limits: audiosvc.Limits{MaxFileSize: maxSize, AllowedTypes: []string{"audio/mpeg", "audio/ogg"}},
		Log:    zerolog.Nop(),
	})
	srv := httptest.NewServer(resthttp.NewServer(resthttp.Deps{
		Audio: svc,
		Docs:  repo.NewMemory(),
		Log:   zerolog.Nop(),
	}))
	t.Cleanup(srv.Close)

	return audioclient.New(srv.URL, srv.Client())
}

func TestClient_RoundTrip(t *testing.T) {
	ctx := context.Background()
	cli := newClient(t, 1<<20)
	data := bytes.Repeat([]byte("0123456789"), 100)

	up, err := cli.Upload(ctx, audioclient.UploadRequest{
		Filename:    "song.mp3",
		ContentType: "audio/mpeg",
		Title:       "Song",
		Body:        bytes.NewReader(data),
	})
	require.NoError(t, err)
	require.NotEmpty(t, up.ID)

	c, err := cli.Stream(ctx, up.ID, "bytes=100-199")
	require.NoError(t, err)
	got, err := io.ReadAll(c.Body)
	require.NoError(t, c.Body.Close())
	require.NoError(t, err)
	assert.True(t, c.Partial)
	assert.Equal(t, "bytes 100-199/1000", c.ContentRange)
	assert.Equal(t, data[100:200], got)

	c, err = cli.Download(ctx, up.ID)
	require.NoError(t, err)
	got, err = io.ReadAll(c.Body)
	require.NoError(t, c.Body.Close())
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, up.Filename, c.Filename)

	docs, err := cli.List(ctx, "song", 0)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Song", docs[0].Metadata.Title)

	desc := "live"
	doc, err := cli.Patch(ctx, up.ID, models.DocumentPatch{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "live", doc.Metadata.Description)

	require.NoError(t, cli.Delete(ctx, up.ID))

	var apiErr *audioclient.APIError
	err = cli.Delete(ctx, up.ID)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "File not found", apiErr.Message)
}

func TestClient_Errors(t *testing.T) {
	ctx := context.Background()
	cli := newClient(t, 64)

	var apiErr *audioclient.APIError
	_, err := cli.Upload(ctx, audioclient.UploadRequest{
		Filename:    "big.mp3",
		ContentType: "audio/mpeg",
		Body:        bytes.NewReader(make([]byte, 4096)),
	})
	require.True(t, errors.As(err, &apiErr), err)
	assert.Equal(t, http.StatusRequestEntityTooLarge, apiErr.Status)

	_, err = cli.Stream(ctx, models.NewBlobID().String(), "")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestProgress(t *testing.T) {
	var out bytes.Buffer
	p := audioclient.NewProgress(&out, "upload", 2048)

	n, err := io.Copy(io.Discard, p.Reader(bytes.NewReader(make([]byte, 2048))))
	require.NoError(t, err)
	assert.EqualValues(t, 2048, n)

	line := out.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "100% 2.0 KiB/2.0 KiB ok")

	out.Reset()
	p = audioclient.NewProgress(&out, "get", 0)
	p.Add(1536)
	p.Finish(errors.New("reset"))
	assert.Contains(t, out.String(), "1.5 KiB transferred failed: reset")
}
