package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"
	"time"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

// ChunkTarget — бэкенд-часть чанкового синка.
type ChunkTarget interface {
	// PutChunk сохраняет чанк n; p после возврата переиспользуется.
	PutChunk(ctx context.Context, n int, p []byte) error
	// Commit делает блоб видимым.
	Commit(ctx context.Context, info models.BlobInfo) error
	// Discard удаляет всё, что успели записать.
	Discard(ctx context.Context) error
}

type sinkState int

const (
	sinkOpen sinkState = iota
	sinkCommitted
	sinkAborted
)

// ChunkedSink режет поток на чанки фиксированного размера, считает sha256 и длину
// и передаёт чанки в ChunkTarget. В памяти держится не больше одного чанка.
type ChunkedSink struct {
	ctx    context.Context
	target ChunkTarget
	now    func() time.Time

	mu     sync.Mutex
	state  sinkState
	info   models.BlobInfo
	buf    []byte
	chunks int
	hasher hash.Hash
	err    error
}

// NewChunkedSink открывает синк поверх target.
func NewChunkedSink(ctx context.Context, id models.BlobID, name string, opts WriteOptions, chunkSize int, target ChunkTarget) *ChunkedSink {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &ChunkedSink{
		ctx:    ctx,
		target: target,
		now:    time.Now,
		info: models.BlobInfo{
			ID:          id,
			Filename:    name,
			ChunkSize:   chunkSize,
			ContentType: opts.ContentType,
			Metadata:    opts.Metadata,
		},
		buf:    make([]byte, 0, chunkSize),
		hasher: sha256.New(),
	}
}

func (s *ChunkedSink) ID() models.BlobID {
	return s.info.ID
}

func (s *ChunkedSink) SetMetadata(md models.BlobMetadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == sinkOpen {
		s.info.Metadata = md
	}
}

func (s *ChunkedSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writableLocked(); err != nil {
		return 0, err
	}

	total := len(p)
	for len(p) > 0 {
		k := min(cap(s.buf)-len(s.buf), len(p))
		s.buf = append(s.buf, p[:k]...)
		s.hasher.Write(p[:k])
		s.info.Length += int64(k)
		p = p[k:]

		if len(s.buf) == cap(s.buf) {
			if err := s.flushLocked(); err != nil {
				return total - len(p), err
			}
		}
	}

	return total, nil
}

func (s *ChunkedSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case sinkCommitted:
		return nil
	case sinkAborted:
		return ErrSinkAborted
	}

	if s.err == nil && len(s.buf) > 0 {
		_ = s.flushLocked()
	}
	if s.err != nil {
		s.discardLocked()
		return s.err
	}

	s.info.Chunks = s.chunks
	s.info.SHA256 = hex.EncodeToString(s.hasher.Sum(nil))
	s.info.UploadedAt = s.now().UTC()

	if err := s.target.Commit(s.ctx, s.info); err != nil {
		s.discardLocked()
		return fmt.Errorf("commit blob %s: %w", s.info.ID, err)
	}
	s.state = sinkCommitted

	return nil
}

func (s *ChunkedSink) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case sinkCommitted:
		return ErrSinkCommitted
	case sinkAborted:
		return nil
	}

	return s.discardLocked()
}

// Info возвращает описание блоба; осмысленно после успешного Close.
func (s *ChunkedSink) Info() models.BlobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info
}

func (s *ChunkedSink) writableLocked() error {
	switch s.state {
	case sinkCommitted:
		return ErrSinkCommitted
	case sinkAborted:
		return ErrSinkAborted
	}

	return s.err
}

func (s *ChunkedSink) flushLocked() error {
	if err := s.target.PutChunk(s.ctx, s.chunks, s.buf); err != nil {
		s.err = fmt.Errorf("put chunk %d of %s: %w", s.chunks, s.info.ID, err)
		return s.err
	}
	s.chunks++
	s.buf = s.buf[:0]

	return nil
}

func (s *ChunkedSink) discardLocked() error {
	s.state = sinkAborted
	s.buf = nil
	// отмена запроса не должна мешать уборке
	return s.target.Discard(context.WithoutCancel(s.ctx))
}

// ChunkOpener открывает чанк n закоммиченного блоба.
type ChunkOpener func(ctx context.Context, n int) (io.ReadCloser, error)

// NewChunkReader читает окно блоба, открывая только покрывающие его чанки и по одному за раз.
func NewChunkReader(ctx context.Context, info models.BlobInfo, w *byterange.Window, open ChunkOpener) (io.ReadCloser, error) {
	start, end, err := Bounds(info, w)
	if err != nil {
		return nil, err
	}
	if info.ChunkSize <= 0 && info.Length > 0 {
		return nil, fmt.Errorf("blob %s: invalid chunk size %d", info.ID, info.ChunkSize)
	}

	r := &chunkReader{
		ctx:       ctx,
		open:      open,
		remaining: end - start + 1,
	}
	if r.remaining > 0 {
		size := int64(info.ChunkSize)
		r.next = int(start / size)
		r.skip = start % size
	}

	return r, nil
}

type chunkReader struct {
	ctx       context.Context
	open      ChunkOpener
	cur       io.ReadCloser
	next      int
	skip      int64
	remaining int64
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if r.remaining <= 0 {
		return 0, io.EOF
	}

	for {
		if r.cur == nil {
			if err := r.ctx.Err(); err != nil {
				return 0, err
			}
			rc, err := r.open(r.ctx, r.next)
			if err != nil {
				return 0, fmt.Errorf("open chunk %d: %w", r.next, err)
			}
			r.cur = rc
			r.next++
			if r.skip > 0 {
				if _, err := io.CopyN(io.Discard, rc, r.skip); err != nil {
					return 0, fmt.Errorf("seek in chunk %d: %w", r.next-1, unexpected(err))
				}
				r.skip = 0
			}
		}

		if int64(len(p)) > r.remaining {
			p = p[:r.remaining]
		}
		n, err := r.cur.Read(p)
		r.remaining -= int64(n)
		if err == io.EOF {
			_ = r.cur.Close()
			r.cur = nil
			err = nil
		}
		if err != nil {
			return n, err
		}
		if n > 0 {
			return n, nil
		}
	}
}

func (r *chunkReader) Close() error {
	if r.cur == nil {
		return nil
	}
	err := r.cur.Close()
	r.cur = nil

	return err
}

func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}

	return err
}
