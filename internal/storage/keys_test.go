package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgminio "github.com/framehaus/gallery-backend/internal/pkg/minio"
)

func TestObjectKeys(t *testing.T) {
	assert.Equal(t, "g1/photo.jpg", ObjectKey("g1", "photo.jpg"))
	assert.Equal(t, "g1/thumbnails/photo.jpg", ThumbnailKey("g1", "photo.jpg"))
	assert.Equal(t, "g1/", GalleryPrefix("g1"))
	assert.Equal(t, "g1/thumbnails/photo.jpg", ThumbnailKeyFor("g1/photo.jpg"))
}

func TestChunkKeys(t *testing.T) {
	keys := make([]string, 1500)
	for i := range keys {
		keys[i] = "k"
	}

	chunks := chunkKeys(keys, 1000)
	assert.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 500)

	assert.Nil(t, chunkKeys(nil, 1000))

	chunks = chunkKeys(keys[:1000], 1000)
	assert.Len(t, chunks, 1)
	assert.Len(t, chunks[0], 1000)
}

func TestDeletedKeys(t *testing.T) {
	chunk := []string{"g1/a.jpg", "g1/b.jpg", "g1/c.jpg"}

	// no failures means every key was deleted
	assert.Equal(t, chunk, deletedKeys(chunk, nil))

	// failed keys keep their cached URLs
	failures := []pkgminio.RemoveResult{
		{ObjectName: "g1/b.jpg", Err: errors.New("locked")},
	}
	assert.Equal(t, []string{"g1/a.jpg", "g1/c.jpg"}, deletedKeys(chunk, failures))
}
