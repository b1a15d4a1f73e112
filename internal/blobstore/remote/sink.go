package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/storageclient"
	"github.com/sir_venger/audiostore/pkg/storageproto"
)

// sink пишет в тело PUT-запроса через pipe. Метаданные, известные только к Close,
// уходят HTTP-трейлером, поэтому узел коммитит блоб уже с ними.
type sink struct {
	id      models.BlobID
	pw      *io.PipeWriter
	eg      *errgroup.Group
	trailer http.Header

	mu     sync.Mutex
	md     models.BlobMetadata
	done   bool
	err    error
}

func newSink(ctx context.Context, cli storageclient.Client, id models.BlobID, name string, opts blobstore.WriteOptions) *sink {
	pr, pw := io.Pipe()
	k := &sink{
		id:      id,
		pw:      pw,
		eg:      &errgroup.Group{},
		trailer: http.Header{storageproto.HeaderBlobMetadata: nil},
		md:      opts.Metadata,
	}

	k.eg.Go(func() error {
		_, err := cli.PutBlob(ctx, storageclient.PutBlobRequest{
			ID:          id,
			Name:        name,
			ContentType: opts.ContentType,
			Metadata:    opts.Metadata,
			Body:        pr,
			Trailer:     k.trailer,
		})
		_ = pr.CloseWithError(err)
		return err
	})

	return k
}

func (k *sink) ID() models.BlobID {
	return k.id
}

func (k *sink) SetMetadata(md models.BlobMetadata) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.md = md
}

func (k *sink) Write(p []byte) (int, error) {
	k.mu.Lock()
	if k.done {
		err := k.closedErr()
		k.mu.Unlock()
		return 0, err
	}
	k.mu.Unlock()

	n, err := k.pw.Write(p)
	if err != nil {
		k.mu.Lock()
		if k.err != nil && errors.Is(k.err, blobstore.ErrSinkAborted) {
			err = blobstore.ErrSinkAborted
		} else {
			err = fmt.Errorf("%w: %v", models.ErrStoreIO, err)
		}
		k.mu.Unlock()
	}

	return n, err
}

func (k *sink) Close() error {
	k.mu.Lock()
	if k.done {
		err := k.err
		k.mu.Unlock()
		if err == nil {
			return nil
		}
		return blobstore.ErrSinkAborted
	}
	k.done = true
	md := k.md
	k.mu.Unlock()

	// Трейлер читается транспортом после EOF тела, т.е. после pw.Close.
	k.trailer.Set(storageproto.HeaderBlobMetadata, storageproto.EncodeMetadata(md))
	_ = k.pw.Close()

	if err := k.eg.Wait(); err != nil {
		k.mu.Lock()
		k.err = err
		k.mu.Unlock()
		if errors.Is(err, models.ErrStoreIO) {
			return err
		}
		return fmt.Errorf("%w: %v", models.ErrStoreIO, err)
	}

	return nil
}

// Abort обрывает тело запроса; узел сам отбрасывает незавершённую загрузку.
func (k *sink) Abort() error {
	k.mu.Lock()
	if k.done {
		err := k.err
		k.mu.Unlock()
		if err == nil {
			return blobstore.ErrSinkCommitted
		}
		return nil
	}
	k.done = true
	k.err = blobstore.ErrSinkAborted
	k.mu.Unlock()

	_ = k.pw.CloseWithError(blobstore.ErrSinkAborted)
	_ = k.eg.Wait()

	return nil
}

// closedErr вызывается под мьютексом.
func (k *sink) closedErr() error {
	if k.err != nil {
		return blobstore.ErrSinkAborted
	}
	return blobstore.ErrSinkCommitted
}
