package biz

import (
	"context"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

// User represents the domain model
type User struct {
	ID            string
	Name          string
	Email         string
	QuotaBytes    int64
	UsedBytes     int64
	ReservedBytes int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AvailableBytes returns how much of the quota is neither used nor reserved
func (u *User) AvailableBytes() int64 {
	avail := u.QuotaBytes - u.UsedBytes - u.ReservedBytes
	if avail < 0 {
		return 0
	}
	return avail
}

// UserRepo defines the interface for user data operations
type UserRepo interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error

	// Reserve atomically adds n bytes to the user's reservation,
	// guarded so used + reserved + n never exceeds the quota.
	// It returns ErrQuotaExceeded when the guard fails.
	Reserve(ctx context.Context, userID string, n int64) error
	// Commit atomically moves n bytes from reserved to used. It
	// returns ErrConsistency when fewer than n bytes are reserved.
	Commit(ctx context.Context, userID string, n int64) error
	// Release atomically returns n bytes of reservation, flooring
	// the reservation at zero.
	Release(ctx context.Context, userID string, n int64) error
}

// UserUseCase contains business logic for user operations
type UserUseCase struct {
	repo   UserRepo
	logger *zap.Logger
}

func NewUserUseCase(repo UserRepo, logger *zap.Logger) *UserUseCase {
	return &UserUseCase{repo: repo, logger: logger}
}

func (uc *UserUseCase) CreateUser(ctx context.Context, name, email string, quotaBytes int64) (*User, error) {
	if quotaBytes <= 0 {
		return nil, apperrors.New(apperrors.ErrInvalidParams, "quota must be positive")
	}

	user := &User{
		Name:       name,
		Email:      email,
		QuotaBytes: quotaBytes,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*User, error) {
	return uc.repo.GetByID(ctx, id)
}

// QuotaReport describes a user's storage consumption
type QuotaReport struct {
	QuotaBytes     int64
	UsedBytes      int64
	ReservedBytes  int64
	AvailableBytes int64
}

func (uc *UserUseCase) GetQuota(ctx context.Context, id string) (*QuotaReport, error) {
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &QuotaReport{
		QuotaBytes:     user.QuotaBytes,
		UsedBytes:      user.UsedBytes,
		ReservedBytes:  user.ReservedBytes,
		AvailableBytes: user.AvailableBytes(),
	}, nil
}

// AccountingUseCase manages quota reservations across the upload
// lifecycle. Reservations are taken before presigned URLs are issued,
// committed when an upload is confirmed successful, and released when
// an upload fails or is abandoned.
type AccountingUseCase struct {
	repo   UserRepo
	logger *zap.Logger
}

func NewAccountingUseCase(repo UserRepo, logger *zap.Logger) *AccountingUseCase {
	return &AccountingUseCase{repo: repo, logger: logger}
}

// Reserve claims n bytes of a user's quota ahead of an upload
func (uc *AccountingUseCase) Reserve(ctx context.Context, userID string, n int64) error {
	if n <= 0 {
		return apperrors.New(apperrors.ErrInvalidParams, "reservation size must be positive")
	}

	if err := uc.repo.Reserve(ctx, userID, n); err != nil {
		return err
	}

	uc.logger.Debug("quota reserved",
		zap.String("user_id", userID),
		zap.Int64("bytes", n))
	return nil
}

// Commit converts a reservation into used quota after a confirmed upload
func (uc *AccountingUseCase) Commit(ctx context.Context, userID string, n int64) error {
	if n <= 0 {
		return apperrors.New(apperrors.ErrInvalidParams, "commit size must be positive")
	}

	if err := uc.repo.Commit(ctx, userID, n); err != nil {
		return err
	}

	uc.logger.Debug("quota committed",
		zap.String("user_id", userID),
		zap.Int64("bytes", n))
	return nil
}

// Release returns a reservation to the user's available quota
func (uc *AccountingUseCase) Release(ctx context.Context, userID string, n int64) error {
	if n <= 0 {
		return apperrors.New(apperrors.ErrInvalidParams, "release size must be positive")
	}

	if err := uc.repo.Release(ctx, userID, n); err != nil {
		return err
	}

	uc.logger.Debug("quota released",
		zap.String("user_id", userID),
		zap.Int64("bytes", n))
	return nil
}
