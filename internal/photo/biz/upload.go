package biz

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
	"github.com/framehaus/gallery-backend/internal/storage"
)

// FileDescriptor describes one file in an upload admission request
type FileDescriptor struct {
	Filename string
	FileSize int64
}

// UploadGrant is the per-file admission result. Files are admitted
// independently; a rejected file never blocks its siblings.
type UploadGrant struct {
	Filename  string
	PhotoID   string
	UploadURL string
	Reason    string
}

// Granted reports whether the file was admitted
func (g UploadGrant) Granted() bool {
	return g.Reason == ""
}

// ConfirmItem is one entry of an upload confirmation request
type ConfirmItem struct {
	PhotoID string
	Success bool
}

// ConfirmAck is the per-item confirmation result
type ConfirmAck struct {
	PhotoID string
	Status  Status
	Reason  string
}

// UploadUseCase drives upload admission and confirmation. Quota is
// reserved before a presigned URL is handed out and either committed
// or released exactly once, gated by the photo status transition.
type UploadUseCase struct {
	repo        PhotoRepo
	store       ObjectStore
	galleries   GalleryReader
	accounting  Accounting
	enqueuer    TaskEnqueuer
	maxFileSize int64
	logger      *zap.Logger
}

func NewUploadUseCase(
	repo PhotoRepo,
	store ObjectStore,
	galleries GalleryReader,
	accounting Accounting,
	enqueuer TaskEnqueuer,
	maxFileSize int64,
	logger *zap.Logger,
) *UploadUseCase {
	return &UploadUseCase{
		repo:        repo,
		store:       store,
		galleries:   galleries,
		accounting:  accounting,
		enqueuer:    enqueuer,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// RequestUploads admits a batch of files into a gallery. Each file is
// evaluated independently: quota reserved, PENDING row created,
// presigned PUT URL minted. Any step failing rolls that file back and
// reports a per-file reason.
func (uc *UploadUseCase) RequestUploads(ctx context.Context, galleryID, requesterID string, files []FileDescriptor) ([]UploadGrant, error) {
	gallery, err := uc.galleries.ActiveGallery(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	// a foreign gallery is indistinguishable from a missing one
	if requesterID != "" && gallery.OwnerID != requesterID {
		return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
	}

	grants := make([]UploadGrant, 0, len(files))
	for _, file := range files {
		grants = append(grants, uc.admitFile(ctx, gallery, file))
	}

	return grants, nil
}

func (uc *UploadUseCase) admitFile(ctx context.Context, gallery *GalleryRef, file FileDescriptor) UploadGrant {
	if file.Filename == "" {
		return UploadGrant{Filename: file.Filename, Reason: "filename is required"}
	}
	if file.FileSize <= 0 {
		return UploadGrant{Filename: file.Filename, Reason: "file size must be positive"}
	}
	if file.FileSize > uc.maxFileSize {
		return UploadGrant{Filename: file.Filename, Reason: apperrors.GetMessage(apperrors.ErrFileTooLarge)}
	}

	if err := uc.accounting.Reserve(ctx, gallery.OwnerID, file.FileSize); err != nil {
		if apperrors.Is(err, apperrors.ErrQuotaExceeded) {
			return UploadGrant{Filename: file.Filename, Reason: apperrors.GetMessage(apperrors.ErrQuotaExceeded)}
		}
		uc.logger.Error("quota reservation failed",
			zap.String("gallery_id", gallery.ID),
			zap.String("filename", file.Filename),
			zap.Error(err))
		return UploadGrant{Filename: file.Filename, Reason: "reservation failed"}
	}

	objectKey := storage.ObjectKey(gallery.ID, file.Filename)
	photo := &Photo{
		GalleryID:          gallery.ID,
		OwnerID:            gallery.OwnerID,
		Filename:           file.Filename,
		ObjectKey:          objectKey,
		ThumbnailObjectKey: objectKey,
		FileSize:           file.FileSize,
		Status:             StatusPending,
		UploadedAt:         time.Now(),
	}

	if err := uc.repo.Create(ctx, photo); err != nil {
		uc.rollbackReservation(ctx, gallery.OwnerID, file.FileSize)
		uc.logger.Error("failed to create photo row",
			zap.String("gallery_id", gallery.ID),
			zap.String("filename", file.Filename),
			zap.Error(err))
		return UploadGrant{Filename: file.Filename, Reason: "admission failed"}
	}

	uploadURL, err := uc.store.PresignUpload(ctx, objectKey)
	if err != nil {
		if delErr := uc.repo.Delete(ctx, photo.ID); delErr != nil {
			uc.logger.Error("failed to roll back photo row after presign failure",
				zap.String("photo_id", photo.ID),
				zap.Error(delErr))
		}
		uc.rollbackReservation(ctx, gallery.OwnerID, file.FileSize)
		uc.logger.Error("failed to presign upload",
			zap.String("object_key", objectKey),
			zap.Error(err))
		return UploadGrant{Filename: file.Filename, Reason: "could not generate upload url"}
	}

	return UploadGrant{
		Filename:  file.Filename,
		PhotoID:   photo.ID,
		UploadURL: uploadURL,
	}
}

func (uc *UploadUseCase) rollbackReservation(ctx context.Context, ownerID string, n int64) {
	if err := uc.accounting.Release(ctx, ownerID, n); err != nil {
		uc.logger.Error("failed to release reservation during rollback",
			zap.String("owner_id", ownerID),
			zap.Int64("bytes", n),
			zap.Error(err))
	}
}

// ConfirmUploads settles a batch of in-flight uploads. The conditional
// PENDING transition gates the accounting call so a duplicate confirm
// can never commit or release twice. Confirmed successes are enqueued
// as a single thumbnail batch.
func (uc *UploadUseCase) ConfirmUploads(ctx context.Context, requesterID string, items []ConfirmItem) ([]ConfirmAck, error) {
	acks := make([]ConfirmAck, 0, len(items))
	var batch []ThumbnailItem

	for _, item := range items {
		ack, thumb := uc.confirmOne(ctx, requesterID, item)
		acks = append(acks, ack)
		if thumb != nil {
			batch = append(batch, *thumb)
		}
	}

	if len(batch) > 0 {
		if err := uc.enqueuer.EnqueueThumbnailBatch(ctx, batch); err != nil {
			// the photos stay SUCCESSFUL without thumbnails; the
			// reconciliation sweep re-enqueues them
			uc.logger.Error("failed to enqueue thumbnail batch",
				zap.Int("photos", len(batch)),
				zap.Error(err))
		}
	}

	return acks, nil
}

func (uc *UploadUseCase) confirmOne(ctx context.Context, requesterID string, item ConfirmItem) (ConfirmAck, *ThumbnailItem) {
	photo, err := uc.repo.GetByID(ctx, item.PhotoID)
	if err != nil {
		return ConfirmAck{PhotoID: item.PhotoID, Reason: apperrors.GetMessage(apperrors.ErrPhotoNotFound)}, nil
	}
	if requesterID != "" && photo.OwnerID != requesterID {
		return ConfirmAck{PhotoID: item.PhotoID, Reason: apperrors.GetMessage(apperrors.ErrPhotoNotFound)}, nil
	}

	if item.Success {
		return uc.confirmSuccess(ctx, photo)
	}
	return uc.confirmFailure(ctx, photo), nil
}

func (uc *UploadUseCase) confirmSuccess(ctx context.Context, photo *Photo) (ConfirmAck, *ThumbnailItem) {
	ok, err := uc.repo.TransitionStatus(ctx, photo.ID, StatusPending, StatusSuccessful)
	if err != nil {
		uc.logger.Error("status transition failed",
			zap.String("photo_id", photo.ID),
			zap.Error(err))
		return ConfirmAck{PhotoID: photo.ID, Reason: "confirmation failed"}, nil
	}
	if !ok {
		return ConfirmAck{PhotoID: photo.ID, Reason: apperrors.GetMessage(apperrors.ErrAlreadyProcessed)}, nil
	}

	if err := uc.accounting.Commit(ctx, photo.OwnerID, photo.FileSize); err != nil {
		// the transition already happened; surface the accounting
		// problem loudly instead of hiding it in a generic reason
		uc.logger.Error("quota commit failed after successful transition",
			zap.String("photo_id", photo.ID),
			zap.String("owner_id", photo.OwnerID),
			zap.Int64("bytes", photo.FileSize),
			zap.Error(err))
		return ConfirmAck{PhotoID: photo.ID, Status: StatusSuccessful, Reason: apperrors.GetMessage(apperrors.ErrConsistency)}, nil
	}

	return ConfirmAck{PhotoID: photo.ID, Status: StatusSuccessful},
		&ThumbnailItem{PhotoID: photo.ID, ObjectKey: photo.ObjectKey}
}

func (uc *UploadUseCase) confirmFailure(ctx context.Context, photo *Photo) ConfirmAck {
	ok, err := uc.repo.TransitionStatus(ctx, photo.ID, StatusPending, StatusFailed)
	if err != nil {
		uc.logger.Error("status transition failed",
			zap.String("photo_id", photo.ID),
			zap.Error(err))
		return ConfirmAck{PhotoID: photo.ID, Reason: "confirmation failed"}
	}
	if !ok {
		return ConfirmAck{PhotoID: photo.ID, Reason: apperrors.GetMessage(apperrors.ErrAlreadyProcessed)}
	}

	if err := uc.accounting.Release(ctx, photo.OwnerID, photo.FileSize); err != nil {
		uc.logger.Error("quota release failed",
			zap.String("photo_id", photo.ID),
			zap.Error(err))
	}

	// the client may have uploaded some or all bytes before failing
	if err := uc.store.Delete(ctx, photo.ObjectKey); err != nil {
		uc.logger.Warn("best-effort object delete failed",
			zap.String("object_key", photo.ObjectKey),
			zap.Error(err))
	}

	return ConfirmAck{PhotoID: photo.ID, Status: StatusFailed}
}

// PhotoURLs are the presigned download URLs for a photo
type PhotoURLs struct {
	Original  string
	Thumbnail string
}

// GetPhotoURLs returns presigned GET URLs for a photo's original and,
// when one exists, its thumbnail
func (uc *UploadUseCase) GetPhotoURLs(ctx context.Context, requesterID, photoID string) (*PhotoURLs, error) {
	photo, err := uc.repo.GetByID(ctx, photoID)
	if err != nil {
		return nil, err
	}
	if requesterID != "" && photo.OwnerID != requesterID {
		return nil, apperrors.New(apperrors.ErrPhotoNotFound, "")
	}

	original, err := uc.store.PresignDownload(ctx, photo.ObjectKey)
	if err != nil {
		return nil, err
	}

	urls := &PhotoURLs{Original: original}
	if photo.Thumbnailed() {
		thumbnail, err := uc.store.PresignDownload(ctx, photo.ThumbnailObjectKey)
		if err != nil {
			return nil, err
		}
		urls.Thumbnail = thumbnail
	}

	return urls, nil
}
