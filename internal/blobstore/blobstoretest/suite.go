// Package blobstoretest — общий набор проверок для реализаций blobstore.Store.
package blobstoretest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

// Factory создаёт чистое хранилище для одного подтеста.
type Factory func(t *testing.T) blobstore.Store

// Run прогоняет проверки. chunkSize — размер чанка, с которым factory создаёт хранилище.
func Run(t *testing.T, chunkSize int, newStore Factory) {
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, chunkSize, newStore(t)) })
	t.Run("Windows", func(t *testing.T) { testWindows(t, chunkSize, newStore(t)) })
	t.Run("WindowOutOfBounds", func(t *testing.T) { testWindowOutOfBounds(t, newStore(t)) })
	t.Run("InvisibleUntilClose", func(t *testing.T) { testInvisibleUntilClose(t, newStore(t)) })
	t.Run("AbortDiscards", func(t *testing.T) { testAbortDiscards(t, chunkSize, newStore(t)) })
	t.Run("LateMetadata", func(t *testing.T) { testLateMetadata(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("Concurrent", func(t *testing.T) { testConcurrent(t, chunkSize, newStore(t)) })
}

// Payload — детерминированные байты, разные для разных seed.
func Payload(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7) ^ seed
	}

	return b
}

// Put записывает блоб целиком и возвращает его id.
func Put(t *testing.T, st blobstore.Store, name string, data []byte, opts blobstore.WriteOptions) models.BlobID {
	t.Helper()

	sink, err := st.OpenWrite(context.Background(), name, opts)
	require.NoError(t, err)
	_, err = io.Copy(sink, bytes.NewReader(data))
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	return sink.ID()
}

// Read читает окно блоба (nil — весь блоб).
func Read(t *testing.T, st blobstore.Store, id models.BlobID, w *byterange.Window) []byte {
	t.Helper()

	rc, err := st.OpenRead(context.Background(), id, w)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)

	return got
}

func testRoundTrip(t *testing.T, chunkSize int, st blobstore.Store) {
	for _, n := range []int{0, 1, chunkSize - 1, chunkSize, chunkSize + 1, 3*chunkSize + 17} {
		data := Payload(n, byte(n))
		id := Put(t, st, fmt.Sprintf("blob-%d.mp3", n), data, blobstore.WriteOptions{ContentType: "audio/mpeg"})

		info, err := st.Stat(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, int64(n), info.Length, "size %d", n)
		assert.Equal(t, id, info.ID)
		assert.Equal(t, "audio/mpeg", info.ContentType)
		assert.Equal(t, fmt.Sprintf("blob-%d.mp3", n), info.Filename)

		assert.Equal(t, data, nonNil(Read(t, st, id, nil)), "size %d", n)
	}
}

func testWindows(t *testing.T, chunkSize int, st blobstore.Store) {
	total := 3*chunkSize + 17
	data := Payload(total, 0x5a)
	id := Put(t, st, "windows.wav", data, blobstore.WriteOptions{ContentType: "audio/wav"})

	last := int64(total - 1)
	cs := int64(chunkSize)
	windows := []byterange.Window{
		{Start: 0, End: 0},
		{Start: last, End: last},
		{Start: 0, End: last},
		{Start: 1, End: cs - 2},
		{Start: cs - 1, End: cs},
		{Start: cs - 3, End: 2*cs + 5},
		{Start: cs, End: 2*cs - 1},
		{Start: 2*cs + 1, End: last},
	}
	for _, w := range windows {
		w.Total = int64(total)
		got := Read(t, st, id, &w)
		assert.Equal(t, int(w.Length()), len(got), "window %+v", w)
		assert.Equal(t, data[w.Start:w.End+1], got, "window %+v", w)
	}
}

func testWindowOutOfBounds(t *testing.T, st blobstore.Store) {
	id := Put(t, st, "short.ogg", Payload(10, 1), blobstore.WriteOptions{ContentType: "audio/ogg"})

	_, err := st.OpenRead(context.Background(), id, &byterange.Window{Start: 5, End: 10, Total: 10})
	require.ErrorIs(t, err, models.ErrRangeNotSatisfiable)
}

func testInvisibleUntilClose(t *testing.T, st blobstore.Store) {
	ctx := context.Background()
	md := models.BlobMetadata{OriginalName: "talk.mp3", Title: "Talk"}

	sink, err := st.OpenWrite(ctx, "123-abcdef-talk.mp3", blobstore.WriteOptions{ContentType: "audio/mpeg", Metadata: md})
	require.NoError(t, err)
	require.False(t, sink.ID().IsZero())

	_, err = sink.Write(Payload(100, 2))
	require.NoError(t, err)

	_, err = st.Stat(ctx, sink.ID())
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = st.OpenRead(ctx, sink.ID(), nil)
	require.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, sink.Close())

	info, err := st.Stat(ctx, sink.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(100), info.Length)
	assert.Equal(t, "123-abcdef-talk.mp3", info.Filename)
	assert.Equal(t, md, info.Metadata)
	assert.False(t, info.UploadedAt.IsZero())
}

func testAbortDiscards(t *testing.T, chunkSize int, st blobstore.Store) {
	ctx := context.Background()

	sink, err := st.OpenWrite(ctx, "aborted.flac", blobstore.WriteOptions{ContentType: "audio/flac"})
	require.NoError(t, err)
	_, err = sink.Write(Payload(2*chunkSize+3, 3))
	require.NoError(t, err)

	require.NoError(t, sink.Abort())
	require.NoError(t, sink.Abort())

	_, err = st.Stat(ctx, sink.ID())
	require.ErrorIs(t, err, models.ErrNotFound)

	_, err = sink.Write([]byte("late"))
	require.Error(t, err)
	require.ErrorIs(t, sink.Close(), blobstore.ErrSinkAborted)

	_, err = st.Stat(ctx, sink.ID())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func testLateMetadata(t *testing.T, st blobstore.Store) {
	ctx := context.Background()

	sink, err := st.OpenWrite(ctx, "late.m4a", blobstore.WriteOptions{
		ContentType: "audio/mp4",
		Metadata:    models.BlobMetadata{OriginalName: "late.m4a"},
	})
	require.NoError(t, err)
	_, err = sink.Write(Payload(64, 4))
	require.NoError(t, err)

	want := models.BlobMetadata{OriginalName: "late.m4a", Title: "After file", Description: "arrived late"}
	sink.SetMetadata(want)
	require.NoError(t, sink.Close())

	info, err := st.Stat(ctx, sink.ID())
	require.NoError(t, err)
	assert.Equal(t, want, info.Metadata)
}

func testDelete(t *testing.T, st blobstore.Store) {
	ctx := context.Background()
	id := Put(t, st, "gone.mp3", Payload(300, 5), blobstore.WriteOptions{ContentType: "audio/mpeg"})

	require.NoError(t, st.Delete(ctx, id))

	_, err := st.Stat(ctx, id)
	require.ErrorIs(t, err, models.ErrNotFound)
	_, err = st.OpenRead(ctx, id, nil)
	require.ErrorIs(t, err, models.ErrNotFound)
	require.ErrorIs(t, st.Delete(ctx, id), models.ErrNotFound)

	_, err = st.Stat(ctx, models.NewBlobID())
	require.ErrorIs(t, err, models.ErrNotFound)
}

func testConcurrent(t *testing.T, chunkSize int, st blobstore.Store) {
	const n = 8
	ids := make([]models.BlobID, n)
	payloads := make([][]byte, n)

	var eg errgroup.Group
	for i := 0; i < n; i++ {
		i := i
		payloads[i] = Payload(chunkSize+i*13, byte(100+i))
		eg.Go(func() error {
			sink, err := st.OpenWrite(context.Background(), fmt.Sprintf("c-%d.mp3", i), blobstore.WriteOptions{ContentType: "audio/mpeg"})
			if err != nil {
				return err
			}
			if _, err := io.Copy(sink, bytes.NewReader(payloads[i])); err != nil {
				_ = sink.Abort()
				return err
			}
			if err := sink.Close(); err != nil {
				return err
			}
			ids[i] = sink.ID()
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	seen := map[models.BlobID]struct{}{}
	for i, id := range ids {
		seen[id] = struct{}{}
		assert.Equal(t, payloads[i], Read(t, st, id, nil))
	}
	assert.Len(t, seen, n)
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
