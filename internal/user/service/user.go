package service

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/framehaus/gallery-backend/internal/pkg/response"
	"github.com/framehaus/gallery-backend/internal/user/biz"
)

type UserService struct {
	uc     *biz.UserUseCase
	logger *zap.Logger
}

func NewUserService(uc *biz.UserUseCase, logger *zap.Logger) *UserService {
	return &UserService{
		uc:     uc,
		logger: logger,
	}
}

type CreateUserRequest struct {
	Name       string `json:"name" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	QuotaBytes int64  `json:"quota_bytes" binding:"required,gt=0"`
}

type UserResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	QuotaBytes int64  `json:"quota_bytes"`
	CreatedAt  string `json:"created_at"`
}

type QuotaResponse struct {
	QuotaBytes     int64 `json:"quota_bytes"`
	UsedBytes      int64 `json:"used_bytes"`
	ReservedBytes  int64 `json:"reserved_bytes"`
	AvailableBytes int64 `json:"available_bytes"`
}

func (s *UserService) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := s.uc.CreateUser(c.Request.Context(), req.Name, req.Email, req.QuotaBytes)
	if err != nil {
		s.logger.Error("failed to create user", zap.Error(err))
		response.HandleError(c, err)
		return
	}

	response.Created(c, s.toResponse(user))
}

func (s *UserService) GetUser(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "invalid user id")
		return
	}

	user, err := s.uc.GetUser(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, s.toResponse(user))
}

func (s *UserService) GetQuota(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, "invalid user id")
		return
	}

	report, err := s.uc.GetQuota(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, QuotaResponse{
		QuotaBytes:     report.QuotaBytes,
		UsedBytes:      report.UsedBytes,
		ReservedBytes:  report.ReservedBytes,
		AvailableBytes: report.AvailableBytes,
	})
}

func (s *UserService) toResponse(user *biz.User) UserResponse {
	return UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		QuotaBytes: user.QuotaBytes,
		CreatedAt:  user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
