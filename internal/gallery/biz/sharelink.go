package biz

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

// DownloadKind distinguishes the share-link download counters
type DownloadKind string

const (
	DownloadZip    DownloadKind = "zip"
	DownloadSingle DownloadKind = "single"
)

// ShareLink grants public access to a gallery through an opaque token
type ShareLink struct {
	ID              string
	GalleryID       string
	Token           string
	Views           int64
	ZipDownloads    int64
	SingleDownloads int64
	CreatedAt       time.Time
}

// ShareLinkRepo defines the interface for share link data operations
type ShareLinkRepo interface {
	Create(ctx context.Context, link *ShareLink) error
	GetByToken(ctx context.Context, token string) (*ShareLink, error)
	// IncrementViews / IncrementDownloads are atomic counter bumps
	IncrementViews(ctx context.Context, token string) error
	IncrementDownloads(ctx context.Context, token string, kind DownloadKind) error
}

// ShareLinkUseCase contains business logic for share links
type ShareLinkUseCase struct {
	links     ShareLinkRepo
	galleries GalleryRepo
	logger    *zap.Logger
}

func NewShareLinkUseCase(links ShareLinkRepo, galleries GalleryRepo, logger *zap.Logger) *ShareLinkUseCase {
	return &ShareLinkUseCase{links: links, galleries: galleries, logger: logger}
}

// CreateShareLink mints a new public token for an active gallery
func (uc *ShareLinkUseCase) CreateShareLink(ctx context.Context, requesterID, galleryID string) (*ShareLink, error) {
	gallery, err := uc.galleries.GetActiveByID(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	if requesterID != "" && gallery.OwnerID != requesterID {
		return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
	}

	link := &ShareLink{
		GalleryID: galleryID,
		Token:     strings.ReplaceAll(uuid.New().String(), "-", ""),
		CreatedAt: time.Now(),
	}

	if err := uc.links.Create(ctx, link); err != nil {
		return nil, err
	}

	return link, nil
}

// Resolve looks up a share link, verifies its gallery is still active
// and counts the view
func (uc *ShareLinkUseCase) Resolve(ctx context.Context, token string) (*ShareLink, *Gallery, error) {
	link, err := uc.links.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	gallery, err := uc.galleries.GetActiveByID(ctx, link.GalleryID)
	if err != nil {
		// the gallery is gone or being deleted; the link is dead
		return nil, nil, apperrors.New(apperrors.ErrShareLinkNotFound, "")
	}

	if err := uc.links.IncrementViews(ctx, token); err != nil {
		uc.logger.Warn("failed to count share link view",
			zap.String("token", token),
			zap.Error(err))
	}

	return link, gallery, nil
}

// RecordDownload counts a zip or single-photo download on a share link
func (uc *ShareLinkUseCase) RecordDownload(ctx context.Context, token string, kind DownloadKind) error {
	if kind != DownloadZip && kind != DownloadSingle {
		return apperrors.New(apperrors.ErrInvalidParams, "unknown download kind")
	}

	if _, err := uc.links.GetByToken(ctx, token); err != nil {
		return err
	}

	return uc.links.IncrementDownloads(ctx, token, kind)
}
