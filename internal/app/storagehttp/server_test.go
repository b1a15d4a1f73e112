package storagehttp_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/app/storagehttp"
	"github.com/sir_venger/audiostore/internal/blobstore/fsstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/storageproto"
)

func newNode(t *testing.T) http.Handler {
	t.Helper()

	st, err := fsstore.New(t.TempDir(), fsstore.WithChunkSize(16))
	require.NoError(t, err)
	return storagehttp.New(st, zerolog.Nop())
}

func do(h http.Handler, method, target string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBlobLifecycle(t *testing.T) {
	h := newNode(t)
	id := models.NewBlobID().String()
	data := []byte("0123456789abcdefghijklmnopqrstuvwxyz")

	rec := do(h, http.MethodPut, "/blobs/"+id, bytes.NewReader(data), map[string]string{
		storageproto.HeaderBlobName:        "a.mp3",
		storageproto.HeaderBlobContentType: "audio/mpeg",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var info models.BlobInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, int64(len(data)), info.Length)
	assert.Equal(t, "audio/mpeg", info.ContentType)

	rec = do(h, http.MethodPut, "/blobs/"+id, bytes.NewReader(data), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodGet, "/blobs/"+id, nil, map[string]string{"Range": "bytes=10-19"})
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "bytes 10-19/36", rec.Header().Get("Content-Range"))
	assert.Equal(t, data[10:20], rec.Body.Bytes())

	rec = do(h, http.MethodGet, "/blobs/"+id, nil, map[string]string{"Range": "bytes=36-"})
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Equal(t, "bytes */36", rec.Header().Get("Content-Range"))

	rec = do(h, http.MethodHead, "/blobs/"+id, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := storageproto.DecodeInfo(rec.Header().Get(storageproto.HeaderBlobInfo))
	require.NoError(t, err)
	assert.Equal(t, "a.mp3", got.Filename)

	rec = do(h, http.MethodGet, "/health", nil, nil)
	var health storageproto.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, 1, health.Blobs)
	assert.GreaterOrEqual(t, health.TotalBytes, int64(len(data)))

	assert.Equal(t, http.StatusNoContent, do(h, http.MethodDelete, "/blobs/"+id, nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodDelete, "/blobs/"+id, nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/blobs/"+id, nil, nil).Code)
}

func TestBadID(t *testing.T) {
	h := newNode(t)

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/blobs/xyz", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodPut, "/blobs/xyz", bytes.NewReader(nil), nil).Code)
}
