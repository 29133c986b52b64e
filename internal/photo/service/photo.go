package service

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/framehaus/gallery-backend/internal/photo/biz"
	"github.com/framehaus/gallery-backend/internal/pkg/response"
)

// OwnerHeader carries the authenticated user id injected by the edge
// layer; authentication itself is out of scope here.
const OwnerHeader = "X-Owner-ID"

type PhotoService struct {
	uploads *biz.UploadUseCase
	logger  *zap.Logger
}

func NewPhotoService(uploads *biz.UploadUseCase, logger *zap.Logger) *PhotoService {
	return &PhotoService{
		uploads: uploads,
		logger:  logger,
	}
}

type UploadFileRequest struct {
	Filename string `json:"filename" binding:"required"`
	FileSize int64  `json:"file_size" binding:"required,gt=0"`
}

type RequestUploadsRequest struct {
	Files []UploadFileRequest `json:"files" binding:"required,min=1,dive"`
}

type UploadGrantResponse struct {
	Filename  string `json:"filename"`
	PhotoID   string `json:"photo_id,omitempty"`
	UploadURL string `json:"upload_url,omitempty"`
	Granted   bool   `json:"granted"`
	Reason    string `json:"reason,omitempty"`
}

type ConfirmUploadsRequest struct {
	Items []ConfirmItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ConfirmItemRequest struct {
	PhotoID string `json:"photo_id" binding:"required"`
	Success *bool  `json:"success" binding:"required"`
}

type ConfirmAckResponse struct {
	PhotoID string `json:"photo_id"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type PhotoURLsResponse struct {
	Original  string `json:"original"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// RequestUploads handles POST /v1/galleries/:id/uploads
func (s *PhotoService) RequestUploads(c *gin.Context) {
	galleryID := c.Param("id")
	if galleryID == "" {
		response.BadRequest(c, "invalid gallery id")
		return
	}

	var req RequestUploadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	files := make([]biz.FileDescriptor, len(req.Files))
	for i, f := range req.Files {
		files[i] = biz.FileDescriptor{Filename: f.Filename, FileSize: f.FileSize}
	}

	grants, err := s.uploads.RequestUploads(c.Request.Context(), galleryID, c.GetHeader(OwnerHeader), files)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]UploadGrantResponse, len(grants))
	for i, g := range grants {
		out[i] = UploadGrantResponse{
			Filename:  g.Filename,
			PhotoID:   g.PhotoID,
			UploadURL: g.UploadURL,
			Granted:   g.Granted(),
			Reason:    g.Reason,
		}
	}

	response.Success(c, gin.H{"grants": out})
}

// ConfirmUploads handles POST /v1/uploads/confirm
func (s *PhotoService) ConfirmUploads(c *gin.Context) {
	var req ConfirmUploadsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	items := make([]biz.ConfirmItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = biz.ConfirmItem{PhotoID: item.PhotoID, Success: *item.Success}
	}

	acks, err := s.uploads.ConfirmUploads(c.Request.Context(), c.GetHeader(OwnerHeader), items)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	out := make([]ConfirmAckResponse, len(acks))
	for i, ack := range acks {
		out[i] = ConfirmAckResponse{
			PhotoID: ack.PhotoID,
			Status:  string(ack.Status),
			Reason:  ack.Reason,
		}
	}

	response.Success(c, gin.H{"items": out})
}

// GetPhotoURL handles GET /v1/photos/:id/url
func (s *PhotoService) GetPhotoURL(c *gin.Context) {
	photoID := c.Param("id")
	if photoID == "" {
		response.BadRequest(c, "invalid photo id")
		return
	}

	urls, err := s.uploads.GetPhotoURLs(c.Request.Context(), c.GetHeader(OwnerHeader), photoID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, PhotoURLsResponse{
		Original:  urls.Original,
		Thumbnail: urls.Thumbnail,
	})
}
