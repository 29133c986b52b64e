package data

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/framehaus/gallery-backend/internal/gallery/biz"
	"github.com/framehaus/gallery-backend/internal/pkg/database"
	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

// ShareLinkPO represents the database model
type ShareLinkPO struct {
	ID              string    `gorm:"type:uuid;primarykey"`
	GalleryID       string    `gorm:"type:uuid;not null;index"`
	Token           string    `gorm:"size:64;not null;uniqueIndex"`
	Views           int64     `gorm:"not null;default:0"`
	ZipDownloads    int64     `gorm:"not null;default:0"`
	SingleDownloads int64     `gorm:"not null;default:0"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (ShareLinkPO) TableName() string {
	return "share_links"
}

// ShareLinkRepo implements biz.ShareLinkRepo interface
type ShareLinkRepo struct {
	db *database.DB
}

func NewShareLinkRepo(db *database.DB) biz.ShareLinkRepo {
	return &ShareLinkRepo{db: db}
}

func (r *ShareLinkRepo) Create(ctx context.Context, link *biz.ShareLink) error {
	po := &ShareLinkPO{
		ID:        uuid.New().String(),
		GalleryID: link.GalleryID,
		Token:     link.Token,
		CreatedAt: link.CreatedAt,
	}

	if err := r.db.DB.WithContext(ctx).Create(po).Error; err != nil {
		return err
	}

	link.ID = po.ID
	return nil
}

func (r *ShareLinkRepo) GetByToken(ctx context.Context, token string) (*biz.ShareLink, error) {
	var po ShareLinkPO
	if err := r.db.DB.WithContext(ctx).Where("token = ?", token).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrShareLinkNotFound, "")
		}
		return nil, err
	}

	return &biz.ShareLink{
		ID:              po.ID,
		GalleryID:       po.GalleryID,
		Token:           po.Token,
		Views:           po.Views,
		ZipDownloads:    po.ZipDownloads,
		SingleDownloads: po.SingleDownloads,
		CreatedAt:       po.CreatedAt,
	}, nil
}

func (r *ShareLinkRepo) IncrementViews(ctx context.Context, token string) error {
	return r.db.DB.WithContext(ctx).Model(&ShareLinkPO{}).
		Where("token = ?", token).
		UpdateColumn("views", gorm.Expr("views + 1")).Error
}

func (r *ShareLinkRepo) IncrementDownloads(ctx context.Context, token string, kind biz.DownloadKind) error {
	column := "single_downloads"
	if kind == biz.DownloadZip {
		column = "zip_downloads"
	}
	return r.db.DB.WithContext(ctx).Model(&ShareLinkPO{}).
		Where("token = ?", token).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}
