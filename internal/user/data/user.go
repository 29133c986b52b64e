package data

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
	"github.com/framehaus/gallery-backend/internal/user/biz"
)

// UserPO represents the database model
type UserPO struct {
	ID    string `gorm:"type:uuid;primarykey"`
	Name  string `gorm:"size:100;not null"`
	Email string `gorm:"size:255;not null;uniqueIndex:idx_users_email,where:deleted_at IS NULL"`

	// Quota accounting. The invariant used + reserved <= quota is
	// enforced by conditional updates, never by read-modify-write.
	QuotaBytes    int64 `gorm:"not null;default:0"`
	UsedBytes     int64 `gorm:"not null;default:0"`
	ReservedBytes int64 `gorm:"not null;default:0"`

	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (UserPO) TableName() string {
	return "users"
}

// UserRepo implements biz.UserRepo interface
type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(db *gorm.DB) biz.UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *biz.User) error {
	po := &UserPO{
		ID:         uuid.New().String(),
		Name:       user.Name,
		Email:      user.Email,
		QuotaBytes: user.QuotaBytes,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}

	if err := r.db.WithContext(ctx).Create(po).Error; err != nil {
		return err
	}

	user.ID = po.ID
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*biz.User, error) {
	var po UserPO
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&po).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrUserNotFound, "user not found")
		}
		return nil, err
	}

	return r.toUser(&po), nil
}

func (r *UserRepo) Update(ctx context.Context, user *biz.User) error {
	updates := map[string]interface{}{
		"name":       user.Name,
		"email":      user.Email,
		"updated_at": time.Now(),
	}
	return r.db.WithContext(ctx).Model(&UserPO{}).Where("id = ?", user.ID).Updates(updates).Error
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserPO{}).Error
}

// Reserve claims n bytes with a single guarded UPDATE so concurrent
// reservations can never push used + reserved past the quota.
func (r *UserRepo) Reserve(ctx context.Context, userID string, n int64) error {
	result := r.db.WithContext(ctx).Model(&UserPO{}).
		Where("id = ? AND used_bytes + reserved_bytes + ? <= quota_bytes", userID, n).
		UpdateColumn("reserved_bytes", gorm.Expr("reserved_bytes + ?", n))
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return apperrors.New(apperrors.ErrQuotaExceeded, "")
	}

	return nil
}

// Commit moves n bytes from reserved to used. The guard on the current
// reservation makes the commit exactly-once even under retried confirms.
func (r *UserRepo) Commit(ctx context.Context, userID string, n int64) error {
	result := r.db.WithContext(ctx).Model(&UserPO{}).
		Where("id = ? AND reserved_bytes >= ?", userID, n).
		UpdateColumns(map[string]interface{}{
			"used_bytes":     gorm.Expr("used_bytes + ?", n),
			"reserved_bytes": gorm.Expr("reserved_bytes - ?", n),
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
		return apperrors.New(apperrors.ErrConsistency, "commit exceeds reserved bytes")
	}

	return nil
}

// Release returns n reserved bytes, flooring the reservation at zero so
// a duplicate release cannot drive it negative.
func (r *UserRepo) Release(ctx context.Context, userID string, n int64) error {
	result := r.db.WithContext(ctx).Model(&UserPO{}).
		Where("id = ?", userID).
		UpdateColumn("reserved_bytes", gorm.Expr("GREATEST(reserved_bytes - ?, 0)", n))
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, userID); err != nil {
			return err
		}
	}

	return nil
}

func (r *UserRepo) toUser(po *UserPO) *biz.User {
	return &biz.User{
		ID:            po.ID,
		Name:          po.Name,
		Email:         po.Email,
		QuotaBytes:    po.QuotaBytes,
		UsedBytes:     po.UsedBytes,
		ReservedBytes: po.ReservedBytes,
		CreatedAt:     po.CreatedAt,
		UpdatedAt:     po.UpdatedAt,
	}
}
