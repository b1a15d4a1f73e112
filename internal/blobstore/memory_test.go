package blobstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/blobstore/blobstoretest"
)

func TestMemory(t *testing.T) {
	blobstoretest.Run(t, 64, func(t *testing.T) blobstore.Store {
		return blobstore.NewMemory(64)
	})
}

func TestMemory_PendingReleased(t *testing.T) {
	m := blobstore.NewMemory(16)
	ctx := context.Background()

	committed, err := m.OpenWrite(ctx, "a", blobstore.WriteOptions{})
	require.NoError(t, err)
	aborted, err := m.OpenWrite(ctx, "b", blobstore.WriteOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Pending())

	_, err = committed.Write([]byte("0123456789abcdefXYZ"))
	require.NoError(t, err)
	require.NoError(t, committed.Close())
	require.NoError(t, aborted.Abort())

	assert.Equal(t, 0, m.Pending())
	assert.Equal(t, 1, m.Len())
	assert.ErrorIs(t, committed.Abort(), blobstore.ErrSinkCommitted)
}
