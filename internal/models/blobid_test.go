package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobID_RoundTrip(t *testing.T) {
	id := NewBlobID()
	require.False(t, id.IsZero())

	parsed, err := ParseBlobID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
}

func TestBlobID_RejectsMalformed(t *testing.T) {
	for _, in := range []string{
		"",
		"not-an-id",
		"00000000-0000-0000-0000-000000000000",
		"{0190c8f2-7b7e-7c3a-9f1e-1b2c3d4e5f60}",
		"urn:uuid:0190c8f2-7b7e-7c3a-9f1e-1b2c3d4e5f60",
	} {
		_, err := ParseBlobID(in)
		assert.ErrorIs(t, err, ErrInvalidID, in)
	}
}

func TestBlobID_JSON(t *testing.T) {
	id := NewBlobID()
	b, err := json.Marshal(struct {
		ID BlobID `json:"id"`
	}{ID: id})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+id.String()+`"}`, string(b))

	var out struct {
		ID BlobID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, id, out.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":"nope"}`), &out))
}

func TestBlobID_Ordered(t *testing.T) {
	a := NewBlobID()
	b := NewBlobID()
	assert.Less(t, a.String(), b.String())
}

func TestDocumentPatch(t *testing.T) {
	assert.True(t, DocumentPatch{}.Empty())

	title := "Episode 1"
	doc := Document{Metadata: BlobMetadata{Title: "old", Description: "keep"}}
	got := DocumentPatch{Title: &title}.Apply(doc)
	assert.Equal(t, "Episode 1", got.Metadata.Title)
	assert.Equal(t, "keep", got.Metadata.Description)
	assert.Equal(t, "old", doc.Metadata.Title)
}

func TestListQuery_Normalize(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ListQuery{}.Normalize().Limit)
	assert.Equal(t, MaxListLimit, ListQuery{Limit: 10_000}.Normalize().Limit)
	assert.Equal(t, 7, ListQuery{Limit: 7}.Normalize().Limit)
}
