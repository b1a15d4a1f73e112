package storageproto

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/models"
)

func TestMetadataHeader(t *testing.T) {
	md := models.BlobMetadata{OriginalName: "Песня №1.mp3", Title: "Заголовок", Description: "line1\nline2"}

	v := EncodeMetadata(md)
	assert.NotContains(t, v, "\n")

	got, err := DecodeMetadata(v)
	require.NoError(t, err)
	assert.Equal(t, md, got)

	empty, err := DecodeMetadata("")
	require.NoError(t, err)
	assert.Equal(t, models.BlobMetadata{}, empty)

	_, err = DecodeMetadata("%%%")
	assert.Error(t, err)
}

func TestInfoHeader(t *testing.T) {
	info := models.BlobInfo{
		ID:          models.NewBlobID(),
		Filename:    "1-abcdef-x.mp3",
		Length:      42,
		ChunkSize:   16,
		Chunks:      3,
		ContentType: "audio/mpeg",
		UploadedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		SHA256:      "ab",
	}

	got, err := DecodeInfo(EncodeInfo(info))
	require.NoError(t, err)
	assert.Equal(t, info, got)

	_, err = DecodeInfo("")
	assert.Error(t, err)
}
