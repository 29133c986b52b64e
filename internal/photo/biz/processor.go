package biz

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
	pkgimaging "github.com/framehaus/gallery-backend/internal/pkg/imaging"
	"github.com/framehaus/gallery-backend/internal/pkg/workerpool"
	"github.com/framehaus/gallery-backend/internal/storage"
)

// Skip reasons reported by the thumbnail worker. These strings are
// part of the job result contract.
const (
	SkipPhotoDeleted           = "Photo deleted"
	SkipPhotoDeletedProcessing = "Photo deleted during processing"
	SkipFileNotFound           = "File not found in S3"
)

// ItemStatus classifies one batch item's outcome
type ItemStatus string

const (
	ItemSuccess ItemStatus = "success"
	ItemSkipped ItemStatus = "skipped"
	ItemError   ItemStatus = "error"
)

// ItemResult is the per-photo outcome of a thumbnail batch
type ItemResult struct {
	PhotoID string     `json:"photo_id"`
	Status  ItemStatus `json:"status"`
	Reason  string     `json:"reason,omitempty"`
}

// BatchSummary aggregates a thumbnail batch run
type BatchSummary struct {
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Skipped    int          `json:"skipped"`
	Failed     int          `json:"failed"`
	Items      []ItemResult `json:"items"`
}

// ProcessorConfig holds the background processing knobs
type ProcessorConfig struct {
	Thumbnail pkgimaging.Options
	// ReconcileGrace excludes recently uploaded photos from the sweep
	// so it never races the normal confirmation pipeline
	ReconcileGrace time.Duration
	// ReconcileBatchCap bounds photos re-enqueued per sweep run
	ReconcileBatchCap int
	// OrphanTimeout is the age after which unconfirmed uploads are
	// reclaimed
	OrphanTimeout time.Duration
}

// ProcessorUseCase runs the background side of the pipeline: thumbnail
// derivation, the reconciliation sweep, and orphan cleanup.
type ProcessorUseCase struct {
	repo       PhotoRepo
	store      ObjectStore
	accounting Accounting
	enqueuer   TaskEnqueuer
	pool       *workerpool.Pool
	config     ProcessorConfig
	logger     *zap.Logger
}

// NewProcessorUseCase creates the processor. The pool is optional;
// without one, batch items are processed serially.
func NewProcessorUseCase(
	repo PhotoRepo,
	store ObjectStore,
	accounting Accounting,
	enqueuer TaskEnqueuer,
	pool *workerpool.Pool,
	config ProcessorConfig,
	logger *zap.Logger,
) *ProcessorUseCase {
	return &ProcessorUseCase{
		repo:       repo,
		store:      store,
		accounting: accounting,
		enqueuer:   enqueuer,
		pool:       pool,
		config:     config,
		logger:     logger,
	}
}

// ProcessThumbnailBatch derives thumbnails for a batch of photos.
// Items are processed independently; one failure never aborts its
// siblings. All successful items are persisted in a single multi-row
// update at the end, and a failing bulk update flips every success in
// the report back to error so the caller never believes unpersisted
// work happened.
func (uc *ProcessorUseCase) ProcessThumbnailBatch(ctx context.Context, items []ThumbnailItem) (*BatchSummary, error) {
	summary := &BatchSummary{Total: len(items)}
	if len(items) == 0 {
		return summary, nil
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.PhotoID
	}
	existing, err := uc.repo.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]ItemResult, len(items))
	updates := make([]*ThumbnailUpdate, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		i, item := i, item
		run := func() {
			defer wg.Done()
			results[i], updates[i] = uc.processItem(ctx, item, existing)
		}

		wg.Add(1)
		if uc.pool != nil {
			if err := uc.pool.Submit(run); err != nil {
				wg.Done()
				results[i] = ItemResult{PhotoID: item.PhotoID, Status: ItemError, Reason: "worker pool rejected task"}
			}
		} else {
			run()
		}
	}
	wg.Wait()

	var pending []ThumbnailUpdate
	for _, u := range updates {
		if u != nil {
			pending = append(pending, *u)
		}
	}

	if len(pending) > 0 {
		if err := uc.repo.BulkUpdateThumbnails(ctx, pending); err != nil {
			uc.logger.Error("bulk thumbnail update failed",
				zap.Int("photos", len(pending)),
				zap.Error(err))
			for i := range results {
				if results[i].Status == ItemSuccess {
					results[i] = ItemResult{PhotoID: results[i].PhotoID, Status: ItemError, Reason: "failed to persist thumbnail metadata"}
				}
			}
		}
	}

	for _, r := range results {
		switch r.Status {
		case ItemSuccess:
			summary.Successful++
		case ItemSkipped:
			summary.Skipped++
		default:
			summary.Failed++
		}
	}
	summary.Items = results

	uc.logger.Info("thumbnail batch processed",
		zap.Int("total", summary.Total),
		zap.Int("successful", summary.Successful),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

func (uc *ProcessorUseCase) processItem(ctx context.Context, item ThumbnailItem, existing map[string]struct{}) (ItemResult, *ThumbnailUpdate) {
	if _, ok := existing[item.PhotoID]; !ok {
		return ItemResult{PhotoID: item.PhotoID, Status: ItemSkipped, Reason: SkipPhotoDeleted}, nil
	}

	data, err := uc.store.Get(ctx, item.ObjectKey)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrObjectNotFound) {
			return ItemResult{PhotoID: item.PhotoID, Status: ItemSkipped, Reason: SkipFileNotFound}, nil
		}
		return ItemResult{PhotoID: item.PhotoID, Status: ItemError, Reason: "failed to fetch original"}, nil
	}

	thumb, width, height, err := pkgimaging.Thumbnail(data, uc.config.Thumbnail)
	if err != nil {
		if errors.Is(err, pkgimaging.ErrInvalidImage) {
			// a corrupt upload never succeeds on retry; remove it
			uc.cleanupInvalid(ctx, item)
			return ItemResult{PhotoID: item.PhotoID, Status: ItemError, Reason: "invalid image"}, nil
		}
		return ItemResult{PhotoID: item.PhotoID, Status: ItemError, Reason: "thumbnail derivation failed"}, nil
	}

	thumbKey := storage.ThumbnailKeyFor(item.ObjectKey)
	if err := uc.store.Put(ctx, thumbKey, thumb, "image/jpeg"); err != nil {
		return ItemResult{PhotoID: item.PhotoID, Status: ItemError, Reason: "failed to upload thumbnail"}, nil
	}

	// the row may have been deleted while we were decoding
	if _, err := uc.repo.GetByID(ctx, item.PhotoID); err != nil {
		if delErr := uc.store.Delete(ctx, thumbKey); delErr != nil {
			uc.logger.Warn("failed to remove orphaned thumbnail",
				zap.String("object_key", thumbKey),
				zap.Error(delErr))
		}
		return ItemResult{PhotoID: item.PhotoID, Status: ItemSkipped, Reason: SkipPhotoDeletedProcessing}, nil
	}

	return ItemResult{PhotoID: item.PhotoID, Status: ItemSuccess},
		&ThumbnailUpdate{
			PhotoID:            item.PhotoID,
			ThumbnailObjectKey: thumbKey,
			Width:              width,
			Height:             height,
		}
}

func (uc *ProcessorUseCase) cleanupInvalid(ctx context.Context, item ThumbnailItem) {
	if err := uc.repo.Delete(ctx, item.PhotoID); err != nil {
		uc.logger.Error("failed to delete photo row for invalid image",
			zap.String("photo_id", item.PhotoID),
			zap.Error(err))
	}
	if err := uc.store.Delete(ctx, item.ObjectKey); err != nil {
		uc.logger.Warn("failed to delete object for invalid image",
			zap.String("object_key", item.ObjectKey),
			zap.Error(err))
	}
}

// ReconcileSweep finds confirmed photos that still lack a thumbnail or
// dimensions past the grace window and re-enqueues them as one batch,
// capped per run. Zero requeued is the expected steady state.
func (uc *ProcessorUseCase) ReconcileSweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-uc.config.ReconcileGrace)

	photos, err := uc.repo.FindUnprocessed(ctx, cutoff, uc.config.ReconcileBatchCap)
	if err != nil {
		return 0, err
	}
	if len(photos) == 0 {
		return 0, nil
	}

	items := make([]ThumbnailItem, len(photos))
	for i, p := range photos {
		items[i] = ThumbnailItem{PhotoID: p.ID, ObjectKey: p.ObjectKey}
	}

	if err := uc.enqueuer.EnqueueThumbnailBatch(ctx, items); err != nil {
		return 0, err
	}

	uc.logger.Info("reconciliation sweep requeued photos",
		zap.Int("count", len(items)))
	return len(items), nil
}

// OrphanCleanup reclaims PENDING and FAILED photos older than the
// timeout: objects are deleted best-effort, the row is removed with a
// status-conditional delete, and the reservation is released only for
// rows that were still PENDING. FAILED rows released at confirmation
// time must not release twice.
func (uc *ProcessorUseCase) OrphanCleanup(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-uc.config.OrphanTimeout)

	photos, err := uc.repo.FindExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, photo := range photos {
		if err := uc.store.Delete(ctx, photo.ObjectKey); err != nil {
			uc.logger.Warn("best-effort object delete failed",
				zap.String("object_key", photo.ObjectKey),
				zap.Error(err))
		}
		if photo.Thumbnailed() {
			if err := uc.store.Delete(ctx, photo.ThumbnailObjectKey); err != nil {
				uc.logger.Warn("best-effort thumbnail delete failed",
					zap.String("object_key", photo.ThumbnailObjectKey),
					zap.Error(err))
			}
		}

		removed, err := uc.repo.DeleteIfStatus(ctx, photo.ID, photo.Status)
		if err != nil {
			uc.logger.Error("failed to delete orphaned photo",
				zap.String("photo_id", photo.ID),
				zap.Error(err))
			continue
		}
		if !removed {
			// the photo moved on since we selected it
			continue
		}

		deleted++
		if photo.Status == StatusPending {
			if err := uc.accounting.Release(ctx, photo.OwnerID, photo.FileSize); err != nil {
				uc.logger.Error("failed to release reservation for orphan",
					zap.String("photo_id", photo.ID),
					zap.Error(err))
			}
		}
	}

	if deleted > 0 {
		uc.logger.Info("orphan cleanup removed photos",
			zap.Int("count", deleted))
	}
	return deleted, nil
}
