package data

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framehaus/gallery-backend/internal/photo/biz"
	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

// PhotoPO represents the database model
type PhotoPO struct {
	ID                 string `gorm:"type:uuid;primarykey"`
	GalleryID          string `gorm:"type:uuid;not null;index"`
	OwnerID            string `gorm:"type:uuid;not null;index"`
	Filename           string `gorm:"size:255;not null"`
	ObjectKey          string `gorm:"size:512;not null"`
	ThumbnailObjectKey string `gorm:"size:512;not null"`
	FileSize           int64  `gorm:"not null"`
	Width              *int
	Height             *int
	Status             string    `gorm:"size:16;not null;index"`
	UploadedAt         time.Time `gorm:"not null;index"`
}

func (PhotoPO) TableName() string {
	return "photos"
}

// PhotoRepo implements biz.PhotoRepo interface
type PhotoRepo struct {
	db *gorm.DB
}

func NewPhotoRepo(db *gorm.DB) biz.PhotoRepo {
	return &PhotoRepo{db: db}
}

func (r *PhotoRepo) Create(ctx context.Context, photo *biz.Photo) error {
	po := &PhotoPO{
		ID:                 uuid.New().String(),
		GalleryID:          photo.GalleryID,
		OwnerID:            photo.OwnerID,
		Filename:           photo.Filename,
		ObjectKey:          photo.ObjectKey,
		ThumbnailObjectKey: photo.ThumbnailObjectKey,
		FileSize:           photo.FileSize,
		Width:              photo.Width,
		Height:             photo.Height,
		Status:             string(photo.Status),
		UploadedAt:         photo.UploadedAt,
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return err
	}

	photo.ID = po.ID
	return nil
}

func (r *PhotoRepo) GetByID(ctx context.Context, id string) (*biz.Photo, error) {
	var po PhotoPO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrPhotoNotFound, "")
		}
		return nil, err
	}
	return r.toPhoto(&po), nil
}

func (r *PhotoRepo) ListByGallery(ctx context.Context, galleryID string) ([]*biz.Photo, error) {
	var pos []PhotoPO
	if err := r.db.WithContext(ctx).
		Where("gallery_id = ?", galleryID).
		Order("uploaded_at").
		Find(&pos).Error; err != nil {
		return nil, err
	}

	photos := make([]*biz.Photo, len(pos))
	for i := range pos {
		photos[i] = r.toPhoto(&pos[i])
	}
	return photos, nil
}

func (r *PhotoRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&PhotoPO{}).Error
}

// TransitionStatus performs the status move as one conditional UPDATE.
// Zero rows affected means the photo is gone or already past the
// expected state, which callers treat as "do not touch accounting".
func (r *PhotoRepo) TransitionStatus(ctx context.Context, id string, from, to biz.Status) (bool, error) {
	result := r.db.WithContext(ctx).Model(&PhotoPO{}).
		Where("id = ? AND status = ?", id, string(from)).
		UpdateColumn("status", string(to))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteIfStatus removes the row only while it still has the given
// status, so cleanup never races a concurrent confirmation.
func (r *PhotoRepo) DeleteIfStatus(ctx context.Context, id string, status biz.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status = ?", id, string(status)).
		Delete(&PhotoPO{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *PhotoRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	if len(ids) == 0 {
		return map[string]struct{}{}, nil
	}

	var found []string
	if err := r.db.WithContext(ctx).Model(&PhotoPO{}).
		Where("id IN ?", ids).
		Pluck("id", &found).Error; err != nil {
		return nil, err
	}

	existing := make(map[string]struct{}, len(found))
	for _, id := range found {
		existing[id] = struct{}{}
	}
	return existing, nil
}

// BulkUpdateThumbnails persists every batch result in one multi-row
// CASE update instead of a round-trip per photo.
func (r *PhotoRepo) BulkUpdateThumbnails(ctx context.Context, updates []biz.ThumbnailUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	var (
		sb   strings.Builder
		args []interface{}
		ids  []interface{}
	)

	sb.WriteString("UPDATE photos SET thumbnail_object_key = CASE id")
	for _, u := range updates {
		sb.WriteString(" WHEN ? THEN ?")
		args = append(args, u.PhotoID, u.ThumbnailObjectKey)
	}
	sb.WriteString(" END, width = CASE id")
	for _, u := range updates {
		sb.WriteString(" WHEN ? THEN ?")
		args = append(args, u.PhotoID, u.Width)
	}
	sb.WriteString(" END, height = CASE id")
	for _, u := range updates {
		sb.WriteString(" WHEN ? THEN ?")
		args = append(args, u.PhotoID, u.Height)
	}
	sb.WriteString(" END WHERE id IN (")
	for i, u := range updates {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString("?")
		ids = append(ids, u.PhotoID)
	}
	sb.WriteString(")")
	args = append(args, ids...)

	return r.db.WithContext(ctx).Exec(sb.String(), args...).Error
}

func (r *PhotoRepo) FindUnprocessed(ctx context.Context, before time.Time, limit int) ([]*biz.Photo, error) {
	var pos []PhotoPO
	err := r.db.WithContext(ctx).Model(&PhotoPO{}).
		Joins("JOIN galleries ON galleries.id = photos.gallery_id").
		Where("photos.status = ?", string(biz.StatusSuccessful)).
		Where("photos.uploaded_at < ?", before).
		Where("galleries.is_deleted = ?", false).
		Where("photos.width IS NULL OR photos.height IS NULL OR photos.thumbnail_object_key = photos.object_key").
		Order("photos.uploaded_at").
		Limit(limit).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	photos := make([]*biz.Photo, len(pos))
	for i := range pos {
		photos[i] = r.toPhoto(&pos[i])
	}
	return photos, nil
}

func (r *PhotoRepo) FindExpired(ctx context.Context, before time.Time) ([]*biz.Photo, error) {
	var pos []PhotoPO
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{string(biz.StatusPending), string(biz.StatusFailed)}).
		Where("uploaded_at < ?", before).
		Find(&pos).Error
	if err != nil {
		return nil, err
	}

	photos := make([]*biz.Photo, len(pos))
	for i := range pos {
		photos[i] = r.toPhoto(&pos[i])
	}
	return photos, nil
}

func (r *PhotoRepo) toPhoto(po *PhotoPO) *biz.Photo {
	return &biz.Photo{
		ID:                 po.ID,
		GalleryID:          po.GalleryID,
		OwnerID:            po.OwnerID,
		Filename:           po.Filename,
		ObjectKey:          po.ObjectKey,
		ThumbnailObjectKey: po.ThumbnailObjectKey,
		FileSize:           po.FileSize,
		Width:              po.Width,
		Height:             po.Height,
		Status:             biz.Status(po.Status),
		UploadedAt:         po.UploadedAt,
	}
}
