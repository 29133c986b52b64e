package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/framehaus/gallery-backend/internal/conf"
	"github.com/framehaus/gallery-backend/internal/data"
	gallerybiz "github.com/framehaus/gallery-backend/internal/gallery/biz"
	gallerydata "github.com/framehaus/gallery-backend/internal/gallery/data"
	galleryservice "github.com/framehaus/gallery-backend/internal/gallery/service"
	photobiz "github.com/framehaus/gallery-backend/internal/photo/biz"
	photodata "github.com/framehaus/gallery-backend/internal/photo/data"
	photoservice "github.com/framehaus/gallery-backend/internal/photo/service"
	pkgimaging "github.com/framehaus/gallery-backend/internal/pkg/imaging"
	"github.com/framehaus/gallery-backend/internal/pkg/logger"
	"github.com/framehaus/gallery-backend/internal/pkg/workerpool"
	"github.com/framehaus/gallery-backend/internal/server"
	"github.com/framehaus/gallery-backend/internal/storage"
	"github.com/framehaus/gallery-backend/internal/tasks"
	userbiz "github.com/framehaus/gallery-backend/internal/user/biz"
	userdata "github.com/framehaus/gallery-backend/internal/user/data"
	userservice "github.com/framehaus/gallery-backend/internal/user/service"
)

var (
	configFile = flag.String("config", "config.yaml", "config file path")
)

// galleryReader adapts the gallery use case to the admission checks
// the upload pipeline performs
type galleryReader struct {
	galleries *gallerybiz.GalleryUseCase
}

func (r *galleryReader) ActiveGallery(ctx context.Context, galleryID string) (*photobiz.GalleryRef, error) {
	gallery, err := r.galleries.GetActiveGallery(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	return &photobiz.GalleryRef{ID: gallery.ID, OwnerID: gallery.OwnerID}, nil
}

func main() {
	flag.Parse()

	config, err := conf.LoadConfig(*configFile)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logConfig := &logger.Config{
		Level:            config.Log.Level,
		Format:           config.Log.Format,
		Output:           config.Log.Output,
		EnableCaller:     config.Log.EnableCaller,
		EnableStacktrace: config.Log.EnableStacktrace,
		File: logger.FileConfig{
			Filename:   config.Log.File.Filename,
			MaxSize:    config.Log.File.MaxSize,
			MaxAge:     config.Log.File.MaxAge,
			MaxBackups: config.Log.File.MaxBackups,
			Compress:   config.Log.File.Compress,
		},
	}

	log, err := logger.New(logConfig)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	log.Info("config loaded successfully")

	d, cleanup, err := data.NewData(config, log)
	if err != nil {
		log.Fatal("failed to initialize data layer", zap.Error(err))
	}
	defer cleanup()

	// Repositories
	userRepo := userdata.NewUserRepo(d.DB.DB)
	photoRepo := photodata.NewPhotoRepo(d.DB.DB)
	galleryRepo := gallerydata.NewGalleryRepo(d.DB)
	shareLinkRepo := gallerydata.NewShareLinkRepo(d.DB)

	// Object storage gateway with the presigned URL cache
	urlCache := storage.NewURLCache(d.Redis, log.Logger)
	gateway := storage.NewGateway(d.MinIO, urlCache, storage.Config{
		Bucket:            config.MinIO.Bucket,
		PresignExpiry:     config.Storage.PresignExpiry,
		CacheSafetyBuffer: config.Storage.CacheSafetyBuffer,
		DeleteBatchSize:   config.Storage.DeleteBatchSize,
	}, log.Logger)

	// Task queue
	queue := tasks.NewQueue(d.Redis, log.Logger)

	// Use cases
	userUseCase := userbiz.NewUserUseCase(userRepo, log.Logger)
	accounting := userbiz.NewAccountingUseCase(userRepo, log.Logger)
	galleryUseCase := gallerybiz.NewGalleryUseCase(galleryRepo, queue, log.Logger)
	shareLinkUseCase := gallerybiz.NewShareLinkUseCase(shareLinkRepo, galleryRepo, log.Logger)
	deletionUseCase := gallerybiz.NewDeletionUseCase(galleryRepo, gateway, log.Logger)
	uploadUseCase := photobiz.NewUploadUseCase(
		photoRepo,
		gateway,
		&galleryReader{galleries: galleryUseCase},
		accounting,
		queue,
		config.Storage.MaxFileSize,
		log.Logger,
	)

	// Thumbnail worker pool
	pool, err := workerpool.New(&workerpool.Config{
		Workers: config.Worker.Count,
	}, log.Logger)
	if err != nil {
		log.Fatal("failed to create worker pool", zap.Error(err))
	}
	defer pool.Shutdown()

	processor := photobiz.NewProcessorUseCase(
		photoRepo,
		gateway,
		accounting,
		queue,
		pool,
		photobiz.ProcessorConfig{
			Thumbnail: pkgimaging.Options{
				MaxDimension: config.Storage.ThumbnailMaxDimension,
				JPEGQuality:  config.Storage.ThumbnailJPEGQuality,
			},
			ReconcileGrace:    config.Storage.ReconcileGrace,
			ReconcileBatchCap: config.Storage.ReconcileBatchCap,
			OrphanTimeout:     config.Storage.OrphanTimeout,
		},
		log.Logger,
	)

	// Background task worker
	worker := tasks.NewWorker(queue, processor, deletionUseCase, tasks.WorkerOptions{
		WorkerCount:  config.Worker.Count,
		PollInterval: config.Worker.PollInterval,
		MaxRetries:   config.Worker.MaxTaskRetries,
	}, log.Logger)

	if err := worker.Start(context.Background()); err != nil {
		log.Fatal("failed to start task worker", zap.Error(err))
	}
	defer worker.Stop()

	// Periodic reconciliation and orphan cleanup
	scheduler := tasks.NewScheduler(processor, tasks.SchedulerOptions{
		ReconcileInterval: config.Storage.ReconcileInterval,
		OrphanInterval:    config.Storage.OrphanInterval,
	}, log.Logger)

	if err := scheduler.Start(context.Background()); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer scheduler.Stop()

	// Services
	userService := userservice.NewUserService(userUseCase, log.Logger)
	galleryService := galleryservice.NewGalleryService(galleryUseCase, shareLinkUseCase, log.Logger)
	photoService := photoservice.NewPhotoService(uploadUseCase, log.Logger)

	httpServer := server.NewHTTPServer(config, log, d, userService, galleryService, photoService)

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	log.Info("server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Stop(ctx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}
