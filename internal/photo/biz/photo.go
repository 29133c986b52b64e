package biz

import (
	"context"
	"time"
)

// Status is the photo lifecycle state
type Status string

const (
	// StatusPending marks a photo row created at admission time whose
	// bytes may not yet exist in object storage
	StatusPending Status = "PENDING"
	// StatusSuccessful marks a confirmed upload eligible for
	// thumbnail derivation
	StatusSuccessful Status = "SUCCESSFUL"
	// StatusFailed marks an explicitly failed upload. Terminal; a
	// re-upload creates a new photo.
	StatusFailed Status = "FAILED"
)

// Photo represents the domain model. ThumbnailObjectKey equals
// ObjectKey until a thumbnail has been derived; the equality is the
// "not yet processed" signal the reconciliation sweep keys on.
type Photo struct {
	ID                 string
	GalleryID          string
	OwnerID            string
	Filename           string
	ObjectKey          string
	ThumbnailObjectKey string
	FileSize           int64
	Width              *int
	Height             *int
	Status             Status
	UploadedAt         time.Time
}

// Thumbnailed reports whether a derived thumbnail exists
func (p *Photo) Thumbnailed() bool {
	return p.ThumbnailObjectKey != p.ObjectKey
}

// ThumbnailUpdate carries the metadata persisted after a successful
// thumbnail derivation
type ThumbnailUpdate struct {
	PhotoID            string
	ThumbnailObjectKey string
	Width              int
	Height             int
}

// PhotoRepo defines the interface for photo data operations
type PhotoRepo interface {
	Create(ctx context.Context, photo *Photo) error
	GetByID(ctx context.Context, id string) (*Photo, error)
	ListByGallery(ctx context.Context, galleryID string) ([]*Photo, error)
	Delete(ctx context.Context, id string) error

	// TransitionStatus atomically moves a photo from one status to
	// another. It reports false when the photo is absent or no
	// longer in the expected status.
	TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error)
	// DeleteIfStatus deletes a photo only while it still has the
	// given status, reporting whether a row was removed.
	DeleteIfStatus(ctx context.Context, id string, status Status) (bool, error)

	// ExistingIDs filters the given ids down to those with a row
	ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	// BulkUpdateThumbnails persists a batch of thumbnail results in
	// one multi-row update
	BulkUpdateThumbnails(ctx context.Context, updates []ThumbnailUpdate) error

	// FindUnprocessed returns SUCCESSFUL photos uploaded before the
	// cutoff, in non-deleted galleries, that still lack a thumbnail
	// or dimensions, up to limit rows
	FindUnprocessed(ctx context.Context, before time.Time, limit int) ([]*Photo, error)
	// FindExpired returns PENDING and FAILED photos uploaded before
	// the cutoff
	FindExpired(ctx context.Context, before time.Time) ([]*Photo, error)
}

// ObjectStore is the slice of the storage gateway the photo pipeline
// consumes
type ObjectStore interface {
	PresignUpload(ctx context.Context, objectKey string) (string, error)
	PresignDownload(ctx context.Context, objectKey string) (string, error)
	Get(ctx context.Context, objectKey string) ([]byte, error)
	Put(ctx context.Context, objectKey string, data []byte, contentType string) error
	Delete(ctx context.Context, objectKey string) error
}

// Accounting is the quota interface the pipeline calls around the
// photo status transitions
type Accounting interface {
	Reserve(ctx context.Context, userID string, n int64) error
	Commit(ctx context.Context, userID string, n int64) error
	Release(ctx context.Context, userID string, n int64) error
}

// GalleryRef identifies an existing, non-deleted gallery and its owner
type GalleryRef struct {
	ID      string
	OwnerID string
}

// GalleryReader resolves galleries for admission checks
type GalleryReader interface {
	// ActiveGallery returns the gallery when it exists and is not
	// soft-deleted, ErrGalleryNotFound otherwise
	ActiveGallery(ctx context.Context, galleryID string) (*GalleryRef, error)
}

// ThumbnailItem is the typed payload of one thumbnail batch entry
type ThumbnailItem struct {
	PhotoID   string `json:"photo_id"`
	ObjectKey string `json:"object_key"`
}

// TaskEnqueuer schedules background work
type TaskEnqueuer interface {
	EnqueueThumbnailBatch(ctx context.Context, items []ThumbnailItem) error
}
