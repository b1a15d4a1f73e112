package remote_test

import (
	"context"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/app/storagehttp"
	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/blobstore/blobstoretest"
	"github.com/sir_venger/audiostore/internal/blobstore/fsstore"
	"github.com/sir_venger/audiostore/internal/blobstore/remote"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/storageclient"
)

func newNode(t *testing.T, chunkSize int) (*remote.Store, *fsstore.Store) {
	t.Helper()

	fs, err := fsstore.New(t.TempDir(), fsstore.WithChunkSize(chunkSize))
	require.NoError(t, err)

	srv := httptest.NewServer(storagehttp.New(fs, zerolog.Nop()))
	t.Cleanup(srv.Close)

	return remote.New(storageclient.New(srv.URL, srv.Client())), fs
}

func TestRemote(t *testing.T) {
	blobstoretest.Run(t, 32, func(t *testing.T) blobstore.Store {
		st, _ := newNode(t, 32)
		return st
	})
}

func TestRemote_AbortLeavesNoUpload(t *testing.T) {
	st, fs := newNode(t, 16)
	ctx := context.Background()

	sink, err := st.OpenWrite(ctx, "cut.mp3", blobstore.WriteOptions{})
	require.NoError(t, err)
	_, err = sink.Write(blobstoretest.Payload(100, 1))
	require.NoError(t, err)
	require.NoError(t, sink.Abort())

	// Узел отбрасывает загрузку асинхронно, когда видит оборванное тело.
	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(filepath.Join(fs.Root(), ".tmp"))
		return err == nil && len(entries) == 0
	}, 2*time.Second, 20*time.Millisecond)

	_, err = st.Stat(ctx, sink.ID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRemote_PingAndEmptyBlob(t *testing.T) {
	st, _ := newNode(t, 16)
	ctx := context.Background()

	require.NoError(t, st.Ping(ctx))

	id := blobstoretest.Put(t, st, "empty.wav", nil, blobstore.WriteOptions{ContentType: "audio/wav"})
	info, err := st.Stat(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, info.Length)

	rc, err := st.OpenRead(ctx, id, nil)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, got)
}
