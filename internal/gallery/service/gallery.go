package service

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/framehaus/gallery-backend/internal/gallery/biz"
	"github.com/framehaus/gallery-backend/internal/pkg/response"
)

// OwnerHeader carries the authenticated user id injected by the edge
// layer
const OwnerHeader = "X-Owner-ID"

type GalleryService struct {
	galleries *biz.GalleryUseCase
	links     *biz.ShareLinkUseCase
	logger    *zap.Logger
}

func NewGalleryService(galleries *biz.GalleryUseCase, links *biz.ShareLinkUseCase, logger *zap.Logger) *GalleryService {
	return &GalleryService{
		galleries: galleries,
		links:     links,
		logger:    logger,
	}
}

type CreateGalleryRequest struct {
	Title string `json:"title" binding:"required"`
}

type GalleryResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type ShareLinkResponse struct {
	Token           string `json:"token"`
	GalleryID       string `json:"gallery_id"`
	Views           int64  `json:"views"`
	ZipDownloads    int64  `json:"zip_downloads"`
	SingleDownloads int64  `json:"single_downloads"`
}

type RecordDownloadRequest struct {
	Kind string `json:"kind" binding:"required,oneof=zip single"`
}

// CreateGallery handles POST /v1/galleries
func (s *GalleryService) CreateGallery(c *gin.Context) {
	var req CreateGalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	gallery, err := s.galleries.CreateGallery(c.Request.Context(), c.GetHeader(OwnerHeader), req.Title)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, s.toResponse(gallery))
}

// GetGallery handles GET /v1/galleries/:id
func (s *GalleryService) GetGallery(c *gin.Context) {
	gallery, err := s.galleries.GetGallery(c.Request.Context(), c.GetHeader(OwnerHeader), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, s.toResponse(gallery))
}

// DeleteGallery handles DELETE /v1/galleries/:id. The gallery is
// soft-deleted immediately; physical cleanup runs as a background job.
func (s *GalleryService) DeleteGallery(c *gin.Context) {
	if err := s.galleries.DeleteGallery(c.Request.Context(), c.GetHeader(OwnerHeader), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}

	response.Accepted(c, gin.H{"status": "deletion scheduled"})
}

// CreateShareLink handles POST /v1/galleries/:id/share-links
func (s *GalleryService) CreateShareLink(c *gin.Context) {
	link, err := s.links.CreateShareLink(c.Request.Context(), c.GetHeader(OwnerHeader), c.Param("id"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Created(c, s.toShareLinkResponse(link))
}

// ResolveShareLink handles GET /v1/share/:token and counts the view
func (s *GalleryService) ResolveShareLink(c *gin.Context) {
	link, gallery, err := s.links.Resolve(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, gin.H{
		"share_link": s.toShareLinkResponse(link),
		"gallery":    s.toResponse(gallery),
	})
}

// RecordDownload handles POST /v1/share/:token/downloads
func (s *GalleryService) RecordDownload(c *gin.Context) {
	var req RecordDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	err := s.links.RecordDownload(c.Request.Context(), c.Param("token"), biz.DownloadKind(req.Kind))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, nil)
}

func (s *GalleryService) toResponse(gallery *biz.Gallery) GalleryResponse {
	return GalleryResponse{
		ID:        gallery.ID,
		OwnerID:   gallery.OwnerID,
		Title:     gallery.Title,
		CreatedAt: gallery.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (s *GalleryService) toShareLinkResponse(link *biz.ShareLink) ShareLinkResponse {
	return ShareLinkResponse{
		Token:           link.Token,
		GalleryID:       link.GalleryID,
		Views:           link.Views,
		ZipDownloads:    link.ZipDownloads,
		SingleDownloads: link.SingleDownloads,
	}
}
