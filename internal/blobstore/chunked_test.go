package blobstore

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

type recordingTarget struct {
	chunks    [][]byte
	committed *models.BlobInfo
	discarded int
	failAt    int
}

func (r *recordingTarget) PutChunk(_ context.Context, n int, p []byte) error {
	if r.failAt > 0 && n == r.failAt {
		return errors.New("disk full")
	}
	r.chunks = append(r.chunks, append([]byte(nil), p...))
	return nil
}

func (r *recordingTarget) Commit(_ context.Context, info models.BlobInfo) error {
	r.committed = &info
	return nil
}

func (r *recordingTarget) Discard(context.Context) error {
	r.discarded++
	return nil
}

func TestChunkedSink_SplitsIntoChunks(t *testing.T) {
	target := &recordingTarget{}
	sink := NewChunkedSink(context.Background(), models.NewBlobID(), "x", WriteOptions{ContentType: "audio/ogg"}, 4, target)

	for _, part := range []string{"ab", "cdefg", "hijklmnop", "q"} {
		_, err := sink.Write([]byte(part))
		require.NoError(t, err)
	}
	require.NoError(t, sink.Close())

	require.Len(t, target.chunks, 5)
	assert.Equal(t, "abcd", string(target.chunks[0]))
	assert.Equal(t, "q", string(target.chunks[4]))
	require.NotNil(t, target.committed)
	assert.Equal(t, int64(17), target.committed.Length)
	assert.Equal(t, 5, target.committed.Chunks)
	assert.Equal(t, 4, target.committed.ChunkSize)
	assert.Len(t, target.committed.SHA256, 64)
	assert.Zero(t, target.discarded)
}

func TestChunkedSink_TargetFailureDiscards(t *testing.T) {
	target := &recordingTarget{failAt: 1}
	sink := NewChunkedSink(context.Background(), models.NewBlobID(), "x", WriteOptions{}, 4, target)

	_, err := sink.Write([]byte("0123456789"))
	require.Error(t, err)

	_, err = sink.Write([]byte("more"))
	require.Error(t, err)

	require.Error(t, sink.Close())
	assert.Nil(t, target.committed)
	assert.Equal(t, 1, target.discarded)
}

func TestChunkReader_SkipsIntoFirstChunk(t *testing.T) {
	chunks := [][]byte{[]byte("0123"), []byte("4567"), []byte("89")}
	info := models.BlobInfo{Length: 10, ChunkSize: 4}
	var opened []int

	rc, err := NewChunkReader(context.Background(), info, &byterange.Window{Start: 5, End: 8, Total: 10},
		func(_ context.Context, n int) (io.ReadCloser, error) {
			opened = append(opened, n)
			return io.NopCloser(bytes.NewReader(chunks[n])), nil
		})
	require.NoError(t, err)

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, "5678", string(got))
	assert.Equal(t, []int{1, 2}, opened)
}

func TestChunkReader_TruncatedChunk(t *testing.T) {
	info := models.BlobInfo{Length: 8, ChunkSize: 4}
	rc, err := NewChunkReader(context.Background(), info, nil, func(_ context.Context, n int) (io.ReadCloser, error) {
		if n == 0 {
			return io.NopCloser(bytes.NewReader([]byte("01"))), nil
		}
		return nil, models.ErrNotFound
	})
	require.NoError(t, err)

	_, err = io.ReadAll(rc)
	require.Error(t, err)
}

func TestChunkReader_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rc, err := NewChunkReader(ctx, models.BlobInfo{Length: 4, ChunkSize: 4}, nil, func(context.Context, int) (io.ReadCloser, error) {
		t.Fatal("chunk opened after cancel")
		return nil, nil
	})
	require.NoError(t, err)

	_, err = io.ReadAll(rc)
	require.ErrorIs(t, err, context.Canceled)
}
