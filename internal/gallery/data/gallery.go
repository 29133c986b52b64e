package data

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framehaus/gallery-backend/internal/gallery/biz"
	photodata "github.com/framehaus/gallery-backend/internal/photo/data"
	"github.com/framehaus/gallery-backend/internal/pkg/database"
	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

// GalleryPO represents the database model
type GalleryPO struct {
	ID        string    `gorm:"type:uuid;primarykey"`
	OwnerID   string    `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:"size:255;not null"`
	IsDeleted bool      `gorm:"not null;default:false;index"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (GalleryPO) TableName() string {
	return "galleries"
}

// GalleryRepo implements biz.GalleryRepo interface
type GalleryRepo struct {
	db *database.DB
}

func NewGalleryRepo(db *database.DB) biz.GalleryRepo {
	return &GalleryRepo{db: db}
}

func (r *GalleryRepo) Create(ctx context.Context, gallery *biz.Gallery) error {
	po := &GalleryPO{
		ID:        uuid.New().String(),
		OwnerID:   gallery.OwnerID,
		Title:     gallery.Title,
		CreatedAt: gallery.CreatedAt,
		UpdatedAt: gallery.UpdatedAt,
	}

	if err := r.db.DB.WithContext(ctx).Create(po).Error; err != nil {
		return err
	}

	gallery.ID = po.ID
	return nil
}

func (r *GalleryRepo) GetByID(ctx context.Context, id string) (*biz.Gallery, error) {
	var po GalleryPO
	if err := r.db.DB.WithContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
		}
		return nil, err
	}
	return r.toGallery(&po), nil
}

func (r *GalleryRepo) GetActiveByID(ctx context.Context, id string) (*biz.Gallery, error) {
	var po GalleryPO
	err := r.db.DB.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&po).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
		}
		return nil, err
	}
	return r.toGallery(&po), nil
}

// MarkDeleted flips the soft-delete flag with a conditional update so
// concurrent delete requests schedule the cleanup job only once.
func (r *GalleryRepo) MarkDeleted(ctx context.Context, id string) (bool, error) {
	result := r.db.DB.WithContext(ctx).Model(&GalleryPO{}).
		Where("id = ? AND is_deleted = ?", id, false).
		UpdateColumn("is_deleted", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// DeleteCascade removes dependents before the parent, all inside one
// transaction: share links, then photos, then the gallery row.
func (r *GalleryRepo) DeleteCascade(ctx context.Context, galleryID string) error {
	return r.db.Transaction(ctx, func(ctx context.Context, tx *gorm.DB) error {
		if err := tx.Where("gallery_id = ?", galleryID).Delete(&ShareLinkPO{}).Error; err != nil {
			return err
		}
		if err := tx.Where("gallery_id = ?", galleryID).Delete(&photodata.PhotoPO{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", galleryID).Delete(&GalleryPO{}).Error
	})
}

func (r *GalleryRepo) toGallery(po *GalleryPO) *biz.Gallery {
	return &biz.Gallery{
		ID:        po.ID,
		OwnerID:   po.OwnerID,
		Title:     po.Title,
		IsDeleted: po.IsDeleted,
		CreatedAt: po.CreatedAt,
		UpdatedAt: po.UpdatedAt,
	}
}
