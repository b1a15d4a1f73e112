// Package repotest — общие проверки для реализаций repo.Documents.
package repotest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/internal/repo"
)

// Factory возвращает пустое хранилище.
type Factory func(t *testing.T) repo.Documents

func Run(t *testing.T, newStore Factory) {
	t.Run("CreateGet", func(t *testing.T) { testCreateGet(t, newStore(t)) })
	t.Run("List", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Doc собирает документ с uploadedAt = base + minutes.
func Doc(filename, title, description string, minutes int) models.Document {
	return models.Document{
		ID:          models.NewBlobID(),
		Filename:    filename,
		ContentType: "audio/mpeg",
		Length:      int64(len(filename)) * 100,
		UploadedAt:  base.Add(time.Duration(minutes) * time.Minute),
		Metadata: models.BlobMetadata{
			OriginalName: filename,
			Title:        title,
			Description:  description,
		},
	}
}

func testCreateGet(t *testing.T, st repo.Documents) {
	ctx := context.Background()
	d := Doc("1-aabbcc-song.mp3", "Song", "first", 0)

	require.NoError(t, st.Create(ctx, d))
	require.ErrorIs(t, st.Create(ctx, d), models.ErrConflict)

	got, err := st.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d, got)

	_, err = st.Get(ctx, models.NewBlobID())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testList(t *testing.T, st repo.Documents) {
	ctx := context.Background()
	old := Doc("old-take.wav", "Demo", "garage recording", 0)
	mid := Doc("mid.flac", "Live 100%", "", 5)
	newest := Doc("new_mix.mp3", "", "final DEMO mix", 10)
	for _, d := range []models.Document{old, mid, newest} {
		require.NoError(t, st.Create(ctx, d))
	}

	all, err := st.List(ctx, models.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []models.BlobID{newest.ID, mid.ID, old.ID}, ids(all))

	demo, err := st.List(ctx, models.ListQuery{Q: "demo"})
	require.NoError(t, err)
	assert.Equal(t, []models.BlobID{newest.ID, old.ID}, ids(demo))

	// Спецсимволы LIKE ищутся буквально.
	pct, err := st.List(ctx, models.ListQuery{Q: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []models.BlobID{mid.ID}, ids(pct))

	under, err := st.List(ctx, models.ListQuery{Q: "_"})
	require.NoError(t, err)
	assert.Equal(t, []models.BlobID{newest.ID}, ids(under))

	limited, err := st.List(ctx, models.ListQuery{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := st.List(ctx, models.ListQuery{Q: "nothing like this"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testUpdate(t *testing.T, st repo.Documents) {
	ctx := context.Background()
	d := Doc("a.mp3", "Old title", "Old description", 0)
	require.NoError(t, st.Create(ctx, d))

	title := "New title"
	got, err := st.Update(ctx, d.ID, models.DocumentPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Metadata.Title)
	assert.Equal(t, "Old description", got.Metadata.Description)

	empty := ""
	got, err = st.Update(ctx, d.ID, models.DocumentPatch{Description: &empty})
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Metadata.Title)
	assert.Empty(t, got.Metadata.Description)

	stored, err := st.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)

	_, err = st.Update(ctx, models.NewBlobID(), models.DocumentPatch{Title: &title})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func testDelete(t *testing.T, st repo.Documents) {
	ctx := context.Background()
	d := Doc("gone.ogg", "", "", 0)
	require.NoError(t, st.Create(ctx, d))

	require.NoError(t, st.Delete(ctx, d.ID))
	_, err := st.Get(ctx, d.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, st.Delete(ctx, d.ID), models.ErrNotFound)
}

func ids(docs []models.Document) []models.BlobID {
	out := make([]models.BlobID, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.ID)
	}
	return out
}
