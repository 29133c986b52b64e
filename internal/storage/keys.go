package storage

import (
	"fmt"
	"strings"
)

// Object keys follow a fixed layout inside the bucket:
//
//	<gallery_id>/<filename>            original upload
//	<gallery_id>/thumbnails/<filename> generated thumbnail
//
// The gallery id prefix makes gallery-wide listing and deletion a
// single prefix scan.

// ObjectKey returns the storage key for an original photo
func ObjectKey(galleryID, filename string) string {
	return fmt.Sprintf("%s/%s", galleryID, filename)
}

// ThumbnailKey returns the storage key for a photo's thumbnail
func ThumbnailKey(galleryID, filename string) string {
	return fmt.Sprintf("%s/thumbnails/%s", galleryID, filename)
}

// GalleryPrefix returns the listing prefix covering every object that
// belongs to a gallery, thumbnails included
func GalleryPrefix(galleryID string) string {
	return galleryID + "/"
}

// ThumbnailKeyFor derives the thumbnail key from an original object
// key by inserting the thumbnails segment after the gallery id
func ThumbnailKeyFor(objectKey string) string {
	i := strings.Index(objectKey, "/")
	if i < 0 {
		return "thumbnails/" + objectKey
	}
	return objectKey[:i] + "/thumbnails/" + objectKey[i+1:]
}
