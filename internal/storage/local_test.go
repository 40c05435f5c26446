package storage

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir(), "/static/")
	require.NoError(t, err)

	key := AssetKey("images", "user-1", "out.png")
	url, err := store.Save(context.Background(), key, []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/static/"+key, url)

	data, err := os.ReadFile(store.Path(key))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, store.Delete(context.Background(), key))
	_, err = os.Stat(store.Path(key))
	assert.True(t, os.IsNotExist(err))

	// Deleting again is a no-op rather than an error.
	assert.NoError(t, store.Delete(context.Background(), key))
}

func TestAssetKeyShape(t *testing.T) {
	key := AssetKey("videos", "user-9", "clip.mp4")
	parts := strings.Split(key, "/")
	require.Len(t, parts, 5)
	assert.Equal(t, "videos", parts[0])
	assert.Equal(t, "user-9", parts[3])
	assert.True(t, strings.HasSuffix(key, ".mp4"))

	assert.True(t, strings.HasSuffix(AssetKey("uploads", "u", "noext"), ".bin"))
}

func TestExtForMIME(t *testing.T) {
	assert.Equal(t, ".png", ExtForMIME("image/png"))
	assert.Equal(t, ".jpg", ExtForMIME("image/jpeg"))
	assert.Equal(t, ".mp4", ExtForMIME("video/mp4"))
	assert.Equal(t, ".wav", ExtForMIME("audio/wav"))
	assert.Equal(t, ".bin", ExtForMIME("application/x-unknown"))
}

func TestValidateImageUpload(t *testing.T) {
	// Real PNG magic bytes so content sniffing passes.
	png := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, make([]byte, 64)...)

	assert.NoError(t, ValidateImageUpload("logo.png", png, 1<<20))
	assert.Error(t, ValidateImageUpload("doc.pdf", png, 1<<20), "extension not allowed")
	assert.Error(t, ValidateImageUpload("logo.png", png, 8), "over size cap")
	assert.Error(t, ValidateImageUpload("fake.png", []byte("plain text content here"), 1<<20), "content is not an image")
}
