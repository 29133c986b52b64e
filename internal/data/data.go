package data

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/framehaus/gallery-backend/internal/conf"
	gallerydata "github.com/framehaus/gallery-backend/internal/gallery/data"
	photodata "github.com/framehaus/gallery-backend/internal/photo/data"
	"github.com/framehaus/gallery-backend/internal/pkg/database"
	"github.com/framehaus/gallery-backend/internal/pkg/logger"
	pkgminio "github.com/framehaus/gallery-backend/internal/pkg/minio"
	pkgredis "github.com/framehaus/gallery-backend/internal/pkg/redis"
	userdata "github.com/framehaus/gallery-backend/internal/user/data"
)

// Data holds the shared infrastructure resources
type Data struct {
	DB     *database.DB
	Redis  *pkgredis.Client
	MinIO  *pkgminio.Client
	Logger *logger.Logger
}

// NewData initializes the database, redis, and object storage clients
// and returns a cleanup function that releases them in reverse order
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	db, err := initDB(config, log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	redisClient, err := pkgredis.New(&pkgredis.Config{
		Addr:     config.Redis.Addr(),
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	}, log)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to init redis: %w", err)
	}

	minioClient, err := initMinIO(config, log)
	if err != nil {
		redisClient.Close()
		db.Close()
		return nil, nil, fmt.Errorf("failed to init minio: %w", err)
	}

	d := &Data{
		DB:     db,
		Redis:  redisClient,
		MinIO:  minioClient,
		Logger: log,
	}

	cleanup := func() {
		log.Info("cleaning up data resources")

		if err := minioClient.Close(); err != nil {
			log.Warn("failed to close minio client", zap.Error(err))
		}
		if err := redisClient.Close(); err != nil {
			log.Warn("failed to close redis client", zap.Error(err))
		}
		if err := db.Close(); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}

	return d, cleanup, nil
}

func initDB(config *conf.Config, log *logger.Logger) (*database.DB, error) {
	dbConfig := database.DefaultConfig()
	dbConfig.Host = config.Database.Host
	dbConfig.Port = config.Database.Port
	dbConfig.User = config.Database.User
	dbConfig.Password = config.Database.Password
	dbConfig.DBName = config.Database.DBName
	dbConfig.SSLMode = config.Database.SSLMode
	dbConfig.AutoMigrate = true

	db, err := database.New(dbConfig, log)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&userdata.UserPO{},
		&gallerydata.GalleryPO{},
		&gallerydata.ShareLinkPO{},
		&photodata.PhotoPO{},
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}

	return db, nil
}

func initMinIO(config *conf.Config, log *logger.Logger) (*pkgminio.Client, error) {
	client, err := pkgminio.NewClient(&pkgminio.Config{
		Endpoint:        config.MinIO.Endpoint,
		AccessKeyID:     config.MinIO.AccessKey,
		SecretAccessKey: config.MinIO.SecretKey,
		Region:          config.MinIO.Region,
		UseSSL:          config.MinIO.UseSSL,
	}, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, config.MinIO.Bucket)
	if err != nil {
		client.Close()
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, config.MinIO.Bucket, pkgminio.MakeBucketOptions{
			Region: config.MinIO.Region,
		}); err != nil {
			client.Close()
			return nil, err
		}
		log.Info("created storage bucket", zap.String("bucket", config.MinIO.Bucket))
	}

	return client, nil
}
