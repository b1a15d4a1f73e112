package s3store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
)

// sink стримит данные в PutObject через pipe; PutObject крутится в фоновой горутине.
type sink struct {
	ctx context.Context
	s   *Store
	pw  *io.PipeWriter
	eg  *errgroup.Group

	mu     sync.Mutex
	info   models.BlobInfo
	hasher hash.Hash
	done   bool
	err    error
}

func newSink(ctx context.Context, s *Store, id models.BlobID, name string, opts blobstore.WriteOptions) *sink {
	pr, pw := io.Pipe()
	k := &sink{
		ctx: ctx,
		s:   s,
		pw:  pw,
		eg:  &errgroup.Group{},
		info: models.BlobInfo{
			ID:          id,
			Filename:    name,
			ContentType: opts.ContentType,
			Metadata:    opts.Metadata,
		},
		hasher: sha256.New(),
	}

	k.eg.Go(func() error {
		_, err := s.cl.PutObject(ctx, s.bucket, dataKey(id), pr, -1, minio.PutObjectOptions{
			ContentType: opts.ContentType,
			PartSize:    partSize,
		})
		_ = pr.CloseWithError(err)
		return err
	})

	return k
}

func (k *sink) ID() models.BlobID {
	return k.info.ID
}

func (k *sink) SetMetadata(md models.BlobMetadata) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.info.Metadata = md
}

// Write не держит мьютекс во время записи в pipe, чтобы Abort мог её прервать.
func (k *sink) Write(p []byte) (int, error) {
	k.mu.Lock()
	if k.done {
		err := k.closedErr()
		k.mu.Unlock()
		return 0, err
	}
	k.mu.Unlock()

	n, err := k.pw.Write(p)

	k.mu.Lock()
	k.hasher.Write(p[:n])
	k.info.Length += int64(n)
	if err != nil {
		if errors.Is(k.err, blobstore.ErrSinkAborted) {
			err = blobstore.ErrSinkAborted
		} else {
			err = fmt.Errorf("%w: %v", models.ErrStoreIO, err)
		}
	}
	k.mu.Unlock()

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
	k.mu.Unlock()

	_ = k.pw.Close()
	if err := k.eg.Wait(); err != nil {
		k.fail(err)
		return mapErr(err)
	}

	k.mu.Lock()
	k.info.SHA256 = hex.EncodeToString(k.hasher.Sum(nil))
	k.info.UploadedAt = time.Now().UTC()
	info := k.info
	k.mu.Unlock()

	if err := k.s.putManifest(k.ctx, info); err != nil {
		k.fail(err)
		return mapErr(err)
	}

	return nil
}

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
	k.s.removeData(context.WithoutCancel(k.ctx), k.info.ID)

	return nil
}

func (k *sink) fail(err error) {
	k.mu.Lock()
	k.err = err
	k.mu.Unlock()
	k.s.removeData(context.WithoutCancel(k.ctx), k.info.ID)
}

// closedErr вызывается под мьютексом.
func (k *sink) closedErr() error {
	if k.err != nil {
		return blobstore.ErrSinkAborted
	}
	return blobstore.ErrSinkCommitted
}
