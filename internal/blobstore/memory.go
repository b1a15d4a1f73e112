package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

// Memory хранит блобы только в оперативной памяти; удобно для тестов и локального запуска.
type Memory struct {
	chunkSize int

	mu      sync.RWMutex
	blobs   map[models.BlobID]*memBlob
	pending map[models.BlobID]*memBlob
}

type memBlob struct {
	info   models.BlobInfo
	chunks [][]byte
}

// NewMemory создаёт пустое хранилище; chunkSize <= 0 означает DefaultChunkSize.
func NewMemory(chunkSize int) *Memory {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	return &Memory{
		chunkSize: chunkSize,
		blobs:     map[models.BlobID]*memBlob{},
		pending:   map[models.BlobID]*memBlob{},
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) OpenWrite(ctx context.Context, name string, opts WriteOptions) (Sink, error) {
	id := models.NewBlobID()

	m.mu.Lock()
	m.pending[id] = &memBlob{}
	m.mu.Unlock()

	return NewChunkedSink(ctx, id, name, opts, m.chunkSize, &memTarget{m: m, id: id}), nil
}

func (m *Memory) OpenRead(ctx context.Context, id models.BlobID, w *byterange.Window) (io.ReadCloser, error) {
	m.mu.RLock()
	b, ok := m.blobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, models.ErrNotFound
	}

	return NewChunkReader(ctx, b.info, w, func(_ context.Context, n int) (io.ReadCloser, error) {
		if n >= len(b.chunks) {
			return nil, io.ErrUnexpectedEOF
		}
		return io.NopCloser(bytes.NewReader(b.chunks[n])), nil
	})
}

func (m *Memory) Stat(_ context.Context, id models.BlobID) (models.BlobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.blobs[id]
	if !ok {
		return models.BlobInfo{}, models.ErrNotFound
	}

	return b.info, nil
}

func (m *Memory) Delete(_ context.Context, id models.BlobID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.blobs, id)

	return nil
}

func (m *Memory) Ping(context.Context) error {
	return nil
}

// Len — число закоммиченных блобов.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}

// Pending — число открытых синков.
func (m *Memory) Pending() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}

type memTarget struct {
	m  *Memory
	id models.BlobID
}

func (t *memTarget) PutChunk(_ context.Context, _ int, p []byte) error {
	chunk := append([]byte(nil), p...)

	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	b, ok := t.m.pending[t.id]
	if !ok {
		return ErrSinkAborted
	}
	b.chunks = append(b.chunks, chunk)

	return nil
}

func (t *memTarget) Commit(_ context.Context, info models.BlobInfo) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	b, ok := t.m.pending[t.id]
	if !ok {
		return ErrSinkAborted
	}
	delete(t.m.pending, t.id)
	b.info = info
	t.m.blobs[t.id] = b

	return nil
}

func (t *memTarget) Discard(context.Context) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	delete(t.m.pending, t.id)

	return nil
}
