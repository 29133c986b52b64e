package biz

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
	"github.com/framehaus/gallery-backend/internal/storage"
)

// Gallery represents the domain model. IsDeleted soft-deletes the
// gallery while physical cleanup of its objects and rows is pending.
type Gallery struct {
	ID        string
	OwnerID   string
	Title     string
	IsDeleted bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GalleryRepo defines the interface for gallery data operations
type GalleryRepo interface {
	Create(ctx context.Context, gallery *Gallery) error
	GetByID(ctx context.Context, id string) (*Gallery, error)
	// GetActiveByID returns the gallery only when it exists and is
	// not soft-deleted
	GetActiveByID(ctx context.Context, id string) (*Gallery, error)
	// MarkDeleted sets the soft-delete flag, reporting whether the
	// gallery was still active
	MarkDeleted(ctx context.Context, id string) (bool, error)
	// DeleteCascade removes share links, photos and the gallery row
	// in that order inside one transaction
	DeleteCascade(ctx context.Context, galleryID string) error
}

// ObjectStore is the slice of the storage gateway gallery deletion
// consumes
type ObjectStore interface {
	ListByPrefix(ctx context.Context, prefix string) ([]string, error)
	DeleteBatch(ctx context.Context, keys []string) (int, error)
	InvalidateCachedURLs(ctx context.Context, prefix string)
}

// DeletionEnqueuer schedules the physical deletion job
type DeletionEnqueuer interface {
	EnqueueGalleryDeletion(ctx context.Context, galleryID string) error
}

// GalleryUseCase contains business logic for gallery operations
type GalleryUseCase struct {
	repo     GalleryRepo
	enqueuer DeletionEnqueuer
	logger   *zap.Logger
}

func NewGalleryUseCase(repo GalleryRepo, enqueuer DeletionEnqueuer, logger *zap.Logger) *GalleryUseCase {
	return &GalleryUseCase{repo: repo, enqueuer: enqueuer, logger: logger}
}

func (uc *GalleryUseCase) CreateGallery(ctx context.Context, ownerID, title string) (*Gallery, error) {
	if ownerID == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "owner id is required")
	}
	if title == "" {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "title is required")
	}

	gallery := &Gallery{
		OwnerID:   ownerID,
		Title:     title,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := uc.repo.Create(ctx, gallery); err != nil {
		return nil, err
	}

	return gallery, nil
}

func (uc *GalleryUseCase) GetGallery(ctx context.Context, requesterID, id string) (*Gallery, error) {
	gallery, err := uc.repo.GetActiveByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if requesterID != "" && gallery.OwnerID != requesterID {
		return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
	}
	return gallery, nil
}

// GetActiveGallery resolves an active gallery without an ownership
// check, for internal callers
func (uc *GalleryUseCase) GetActiveGallery(ctx context.Context, id string) (*Gallery, error) {
	return uc.repo.GetActiveByID(ctx, id)
}

// DeleteGallery soft-deletes the gallery and schedules the physical
// cleanup job. The soft-delete excludes the gallery's photos from
// reconciliation while objects are being removed.
func (uc *GalleryUseCase) DeleteGallery(ctx context.Context, requesterID, id string) error {
	gallery, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if requesterID != "" && gallery.OwnerID != requesterID {
		return apperrors.New(apperrors.ErrGalleryNotFound, "")
	}
	if gallery.IsDeleted {
		// already being deleted
		return nil
	}

	marked, err := uc.repo.MarkDeleted(ctx, id)
	if err != nil {
		return err
	}
	if !marked {
		// lost the race against a concurrent delete
		return nil
	}

	if err := uc.enqueuer.EnqueueGalleryDeletion(ctx, id); err != nil {
		uc.logger.Error("failed to enqueue gallery deletion",
			zap.String("gallery_id", id),
			zap.Error(err))
		return apperrors.Wrap(err, apperrors.ErrInternalServer, "failed to schedule deletion")
	}

	return nil
}

// DeletionUseCase is the physical gallery deletion pipeline, executed
// as a background job. Every step is safe to repeat: re-listing an
// emptied prefix yields nothing and re-deleting absent rows is a no-op,
// so the task queue may retry the whole job on failure.
type DeletionUseCase struct {
	repo   GalleryRepo
	store  ObjectStore
	logger *zap.Logger
}

func NewDeletionUseCase(repo GalleryRepo, store ObjectStore, logger *zap.Logger) *DeletionUseCase {
	return &DeletionUseCase{repo: repo, store: store, logger: logger}
}

// DeleteGalleryData removes every storage object under the gallery's
// prefix in bounded batches, then deletes the dependent rows and the
// gallery itself in one transaction. It returns the number of objects
// actually deleted. Storage errors propagate so the job is retried.
func (uc *DeletionUseCase) DeleteGalleryData(ctx context.Context, galleryID string) (int, error) {
	prefix := storage.GalleryPrefix(galleryID)

	keys, err := uc.store.ListByPrefix(ctx, prefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	if len(keys) > 0 {
		deleted, err = uc.store.DeleteBatch(ctx, keys)
		if err != nil {
			return deleted, err
		}
	}

	if err := uc.repo.DeleteCascade(ctx, galleryID); err != nil {
		return deleted, err
	}

	uc.store.InvalidateCachedURLs(ctx, prefix)

	uc.logger.Info("gallery deleted",
		zap.String("gallery_id", galleryID),
		zap.Int("objects_deleted", deleted))
	return deleted, nil
}
