package catalog

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsEviction(t *testing.T) {
	repo, store := newTestRepo(t, 1000)

	needs, err := repo.NeedsEviction()
	require.NoError(t, err)
	assert.False(t, needs)

	require.NoError(t, store.Set("filler", make([]byte, 900)))
	needs, err = repo.NeedsEviction()
	require.NoError(t, err)
	assert.True(t, needs)
}

func TestEvictCapImages(t *testing.T) {
	repo, _ := newTestRepo(t, 10<<20)

	heavy, _, err := repo.AddItem(testDraft(), [][]byte{
		flatPNG(t, 100, 50),
		flatPNG(t, 110, 50),
		flatPNG(t, 120, 50),
		flatPNG(t, 130, 50),
		flatPNG(t, 140, 50),
	})
	require.NoError(t, err)

	d := testDraft()
	d.Model = "MT-07"
	light, _, err := repo.AddItem(d, [][]byte{
		flatPNG(t, 150, 50),
		flatPNG(t, 160, 50),
	})
	require.NoError(t, err)

	removed, err := repo.EvictCapImages(3)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// Trimming drops from the tail and leaves untouched items alone.
	assert.Equal(t, []int{100, 110, 120}, imageWidths(t, repo, heavy.ID))
	assert.Equal(t, []int{150, 160}, imageWidths(t, repo, light.ID))

	// Nothing left over the cap, so a second pass is a no-op.
	removed, err = repo.EvictCapImages(3)
	require.NoError(t, err)
	assert.Zero(t, removed)

	_, err = repo.EvictCapImages(-1)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestEvictInvalidImages(t *testing.T) {
	repo, store := newTestRepo(t, 10<<20)

	valid := base64.StdEncoding.EncodeToString([]byte("jpeg bytes"))
	repo.items = []Item{{
		ID:    "mixed",
		Brand: "Honda",
		Model: "CB500F",
		Images: []ImageRef{
			{Data: valid, MimeType: "image/jpeg"},
			{Data: ""},
			{Data: "!!!not base64!!!"},
			{URL: "https://example.com/bike.jpg"},
		},
	}}
	require.NoError(t, repo.persistItems(repo.items))

	removed, err := repo.EvictInvalidImages()
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	it, err := repo.Item("mixed")
	require.NoError(t, err)
	require.Len(t, it.Images, 2)
	assert.Equal(t, valid, it.Images[0].Data)
	assert.True(t, it.Images[1].External())

	// The trimmed catalog is what got persisted.
	reloaded, err := NewRepository(store, 10<<20, testLogger())
	require.NoError(t, err)
	reloadedItem, err := reloaded.Item("mixed")
	require.NoError(t, err)
	assert.Len(t, reloadedItem.Images, 2)
}
