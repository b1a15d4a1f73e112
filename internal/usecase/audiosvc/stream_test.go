package audiosvc_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/blobstore/blobstoretest"
	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/internal/usecase/audiosvc"
	"github.com/sir_venger/audiostore/pkg/byterange"
)

func readContent(t *testing.T, c *audiosvc.Content) []byte {
	t.Helper()
	defer c.Close()
	b, err := io.ReadAll(c.Body)
	require.NoError(t, err)
	return b
}

func TestOpen_Ranges(t *testing.T) {
	svc, mem := newService(1 << 20)
	data := blobstoretest.Payload(1000, 11)
	id := blobstoretest.Put(t, mem, "1-abcdef-a.mp3", data, blobstore.WriteOptions{ContentType: "audio/mpeg"})
	ctx := context.Background()

	t.Run("full", func(t *testing.T) {
		c, err := svc.Open(ctx, id, "")
		require.NoError(t, err)
		assert.Nil(t, c.Window)
		assert.EqualValues(t, 1000, c.Length())
		assert.Equal(t, "audio/mpeg", c.Info.ContentType)
		assert.Equal(t, data, readContent(t, c))
	})

	windows := []struct {
		header     string
		start, end int64
	}{
		{"bytes=100-199", 100, 199},
		{"bytes=0-0", 0, 0},
		{"bytes=-", 0, 999},
		{"bytes=990-", 990, 999},
		{"bytes=-10", 0, 10},
		{"bytes=900-5000", 900, 999},
		{"bytes=999-999", 999, 999},
	}
	for _, w := range windows {
		t.Run(w.header, func(t *testing.T) {
			c, err := svc.Open(ctx, id, w.header)
			require.NoError(t, err)
			require.NotNil(t, c.Window)
			assert.Equal(t, byterange.Window{Start: w.start, End: w.end, Total: 1000}, *c.Window)
			assert.EqualValues(t, w.end-w.start+1, c.Length())
			assert.Equal(t, data[w.start:w.end+1], readContent(t, c))
		})
	}

	errs := []struct {
		header string
		want   error
	}{
		{"bytes=2000-3000", models.ErrRangeNotSatisfiable},
		{"bytes=1000-", models.ErrRangeNotSatisfiable},
		{"bytes=0-10,20-30", models.ErrRangeNotParseable},
		{"bytes=200-100", models.ErrRangeNotParseable},
		{"items=0-10", models.ErrRangeNotParseable},
	}
	for _, e := range errs {
		t.Run(e.header, func(t *testing.T) {
			_, err := svc.Open(ctx, id, e.header)
			require.ErrorIs(t, err, e.want)

			var rerr *byterange.Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, "bytes */1000", rerr.Unsatisfied())
		})
	}
}

func TestOpen_NotFound(t *testing.T) {
	svc, _ := newService(1 << 20)

	_, err := svc.Open(context.Background(), models.NewBlobID(), "bytes=0-1")
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = svc.OpenAttachment(context.Background(), models.NewBlobID())
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(context.Background(), models.NewBlobID()), models.ErrNotFound)
}

func TestOpenAttachment(t *testing.T) {
	svc, mem := newService(1 << 20)
	data := blobstoretest.Payload(300, 12)
	id := blobstoretest.Put(t, mem, "1-abcdef-take.wav", data, blobstore.WriteOptions{ContentType: "audio/wav"})

	c, err := svc.OpenAttachment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "1-abcdef-take.wav", c.AttachmentName())
	assert.Equal(t, data, readContent(t, c))

	unnamed := blobstoretest.Put(t, mem, "", data, blobstore.WriteOptions{})
	c, err = svc.OpenAttachment(context.Background(), unnamed)
	require.NoError(t, err)
	assert.Equal(t, unnamed.String()+".audio", c.AttachmentName())
	_ = c.Close()
}

func TestUploadThenRangeRoundTrip(t *testing.T) {
	svc, _ := newService(1 << 20)
	for _, n := range []int{0, 1, 63, 64, 65, 1000} {
		data := blobstoretest.Payload(n, byte(n))
		ct, body := form(t, file("audio", "a.mp3", "audio/mpeg", data))

		res, err := svc.Upload(context.Background(), ct, bytesReader(body))
		require.NoError(t, err)

		c, err := svc.Open(context.Background(), res.ID, "")
		require.NoError(t, err)
		assert.Equal(t, data, readContent(t, c), "n=%d", n)
	}
}

func TestDelete(t *testing.T) {
	svc, mem := newService(1 << 20)
	id := blobstoretest.Put(t, mem, "a.mp3", []byte("abc"), blobstore.WriteOptions{})

	require.NoError(t, svc.Delete(context.Background(), id))
	_, err := mem.Stat(context.Background(), id)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

// brokenStore — хранилище, все операции которого отказывают.
type brokenStore struct {
	mock.Mock
}

func (m *brokenStore) OpenWrite(_ context.Context, name string, _ blobstore.WriteOptions) (blobstore.Sink, error) {
	args := m.Called(name)
	return nil, args.Error(1)
}

func (m *brokenStore) OpenRead(_ context.Context, id models.BlobID, _ *byterange.Window) (io.ReadCloser, error) {
	args := m.Called(id)
	return nil, args.Error(1)
}

func (m *brokenStore) Stat(_ context.Context, id models.BlobID) (models.BlobInfo, error) {
	args := m.Called(id)
	return models.BlobInfo{}, args.Error(1)
}

func (m *brokenStore) Delete(_ context.Context, id models.BlobID) error {
	return m.Called(id).Error(0)
}

func TestStoreFailures(t *testing.T) {
	diskFull := errors.New("disk full")
	st := &brokenStore{}
	st.On("OpenWrite", mock.Anything).Return(nil, diskFull)
	st.On("Stat", mock.Anything).Return(models.BlobInfo{}, diskFull)
	st.On("Delete", mock.Anything).Return(diskFull)

	svc := audiosvc.New(audiosvc.Deps{
		Store:  st,
		Limits: audiosvc.Limits{AllowedTypes: allowed},
		Log:    zerolog.Nop(),
	})
	ctx := context.Background()

	ct, body := form(t, file("audio", "a.mp3", "audio/mpeg", []byte("abc")))
	_, err := svc.Upload(ctx, ct, bytesReader(body))
	assert.ErrorIs(t, err, models.ErrStoreIO)

	_, err = svc.Open(ctx, models.NewBlobID(), "")
	assert.ErrorIs(t, err, models.ErrStoreIO)

	assert.ErrorIs(t, svc.Delete(ctx, models.NewBlobID()), models.ErrStoreIO)

	st.AssertNumberOfCalls(t, "OpenWrite", 1)
	st.AssertNotCalled(t, "OpenRead", mock.Anything)
}
