package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/framehaus/gallery-backend/internal/conf"
	"github.com/framehaus/gallery-backend/internal/data"
	galleryservice "github.com/framehaus/gallery-backend/internal/gallery/service"
	photoservice "github.com/framehaus/gallery-backend/internal/photo/service"
	"github.com/framehaus/gallery-backend/internal/pkg/logger"
	userservice "github.com/framehaus/gallery-backend/internal/user/service"
	"go.uber.org/zap"
)

// HTTPServer hosts the REST API
type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	d *data.Data,
	userService *userservice.UserService,
	galleryService *galleryservice.GalleryService,
	photoService *photoservice.PhotoService,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLogger(log))

	router.GET("/health", healthHandler(d))

	v1 := router.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.POST("", userService.CreateUser)
			users.GET("/:id", userService.GetUser)
			users.GET("/:id/quota", userService.GetQuota)
		}

		galleries := v1.Group("/galleries")
		{
			galleries.POST("", galleryService.CreateGallery)
			galleries.GET("/:id", galleryService.GetGallery)
			galleries.DELETE("/:id", galleryService.DeleteGallery)
			galleries.POST("/:id/uploads", photoService.RequestUploads)
			galleries.POST("/:id/share-links", galleryService.CreateShareLink)
		}

		v1.POST("/uploads/confirm", photoService.ConfirmUploads)
		v1.GET("/photos/:id/url", photoService.GetPhotoURL)

		share := v1.Group("/share")
		{
			share.GET("/:token", galleryService.ResolveShareLink)
			share.POST("/:token/downloads", galleryService.RecordDownload)
		}
	}

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)

	return &HTTPServer{
		server: &http.Server{
			Addr:    addr,
			Handler: router,
		},
		logger: log,
	}
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports readiness of the backing services
func healthHandler(d *data.Data) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		checks := map[string]error{
			"database": d.DB.HealthCheck(ctx),
			"redis":    d.Redis.Ping(ctx),
			"storage":  d.MinIO.Ping(ctx),
		}

		status := http.StatusOK
		result := make(map[string]string, len(checks))
		for name, err := range checks {
			if err != nil {
				status = http.StatusServiceUnavailable
				result[name] = err.Error()
				continue
			}
			result[name] = "ok"
		}

		c.JSON(status, gin.H{
			"checks": result,
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}
