package integration

import (
	"context"
	"io"
	"math/rand"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/app/resthttp"
	"github.com/sir_venger/audiostore/internal/app/storagehttp"
	"github.com/sir_venger/audiostore/internal/blobstore/fsstore"
	"github.com/sir_venger/audiostore/internal/config"
	"github.com/sir_venger/audiostore/pkg/audioclient"
	"github.com/sir_venger/audiostore/pkg/storageclient"
)

// stack — REST-сервис поверх удалённого storage-узла с дисковым хранилищем и каталогом в SQLite.
type stack struct {
	node    *fsstore.Store
	nodeCli storageclient.Client
	api     *audioclient.Client
	nodeURL string
}

func newStack(t *testing.T, maxSize int64) *stack {
	t.Helper()

	node, err := fsstore.New(t.TempDir(), fsstore.WithChunkSize(64<<10))
	require.NoError(t, err)
	nodeSrv := httptest.NewServer(storagehttp.New(node, zerolog.Nop()))
	t.Cleanup(nodeSrv.Close)

	cfg := config.Default()
	cfg.MetaDSN = "sqlite://" + filepath.Join(t.TempDir(), "meta.db")
	cfg.Blob.Driver = config.DriverRemote
	cfg.Blob.RemoteURL = nodeSrv.URL
	cfg.Upload.MaxFileSizeBytes = maxSize
	require.NoError(t, cfg.Validate())

	rt, err := resthttp.Build(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	restSrv := httptest.NewServer(resthttp.NewServer(rt.Deps))
	t.Cleanup(restSrv.Close)

	return &stack{
		node:    node,
		nodeCli: storageclient.New(nodeSrv.URL, nodeSrv.Client()),
		api:     audioclient.New(restSrv.URL, restSrv.Client()),
		nodeURL: nodeSrv.URL,
	}
}

func payload(n int) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(42)).Read(b)
	return b
}

func pendingUploads(t *testing.T, node *fsstore.Store) int {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(node.Root(), ".tmp"))
	require.NoError(t, err)
	return len(entries)
}

func readAll(t *testing.T, c *audioclient.Content) []byte {
	t.Helper()

	defer c.Body.Close()
	b, err := io.ReadAll(c.Body)
	require.NoError(t, err)
	return b
}
