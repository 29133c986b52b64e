package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	photobiz "github.com/framehaus/gallery-backend/internal/photo/biz"
)

// ThumbnailProcessor handles thumbnail batch jobs
type ThumbnailProcessor interface {
	ProcessThumbnailBatch(ctx context.Context, items []photobiz.ThumbnailItem) (*photobiz.BatchSummary, error)
}

// GalleryDeleter handles gallery deletion jobs
type GalleryDeleter interface {
	DeleteGalleryData(ctx context.Context, galleryID string) (int, error)
}

// WorkerOptions configures the background worker
type WorkerOptions struct {
	WorkerCount  int
	PollInterval time.Duration
	MaxRetries   int
}

// Worker drains the task queue. Handlers are idempotent, so a task
// that fails is simply re-enqueued with a bumped retry counter until
// the retry budget runs out.
type Worker struct {
	backlog   Backlog
	processor ThumbnailProcessor
	deleter   GalleryDeleter
	opts      WorkerOptions
	logger    *zap.Logger

	wg      sync.WaitGroup
	stopCh  chan struct{}
	mu      sync.Mutex
	running bool
}

func NewWorker(
	backlog Backlog,
	processor ThumbnailProcessor,
	deleter GalleryDeleter,
	opts WorkerOptions,
	logger *zap.Logger,
) *Worker {
	if opts.WorkerCount <= 0 {
		opts.WorkerCount = 1
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}

	return &Worker{
		backlog:   backlog,
		processor: processor,
		deleter:   deleter,
		opts:      opts,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the worker goroutines
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("worker already running")
	}
	w.running = true

	w.logger.Info("starting storage task workers",
		zap.Int("worker_count", w.opts.WorkerCount))

	for i := 0; i < w.opts.WorkerCount; i++ {
		w.wg.Add(1)
		go w.processLoop(ctx, i)
	}

	return nil
}

// Stop signals the workers and waits for in-flight tasks to finish
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.logger.Info("stopping storage task workers")
	close(w.stopCh)
	w.wg.Wait()
	w.running = false
	w.logger.Info("all workers stopped")
}

func (w *Worker) processLoop(ctx context.Context, workerID int) {
	defer w.wg.Done()

	logger := w.logger.With(zap.Int("worker_id", workerID))
	logger.Info("worker started")

	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			logger.Info("worker stopping")
			return
		case <-ctx.Done():
			logger.Info("context cancelled, worker stopping")
			return
		case <-ticker.C:
			task, err := w.backlog.Dequeue(ctx)
			if err != nil || task == nil {
				continue
			}
			w.HandleTask(ctx, task)
		}
	}
}

// HandleTask dispatches one task and applies the retry policy
func (w *Worker) HandleTask(ctx context.Context, task *Task) {
	logger := w.logger.With(
		zap.String("task_id", task.ID),
		zap.String("type", task.Type))

	err := w.dispatch(ctx, task)
	w.backlog.Ack(ctx, task)

	if err == nil {
		logger.Debug("task completed")
		return
	}

	logger.Error("task failed",
		zap.Int("retry_count", task.RetryCount),
		zap.Error(err))

	if task.RetryCount < w.opts.MaxRetries {
		task.RetryCount++
		if reqErr := w.backlog.Enqueue(ctx, task); reqErr != nil {
			logger.Error("failed to re-enqueue task", zap.Error(reqErr))
			return
		}
		logger.Info("task re-enqueued for retry",
			zap.Int("retry_count", task.RetryCount))
		return
	}

	logger.Error("task abandoned after max retries")
}

func (w *Worker) dispatch(ctx context.Context, task *Task) error {
	switch task.Type {
	case TaskThumbnailBatch:
		var payload ThumbnailBatchPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			// malformed payloads never succeed on retry
			w.logger.Error("dropping malformed thumbnail batch", zap.Error(err))
			return nil
		}
		_, err := w.processor.ProcessThumbnailBatch(ctx, payload.Items)
		return err

	case TaskGalleryDeletion:
		var payload GalleryDeletionPayload
		if err := json.Unmarshal(task.Payload, &payload); err != nil {
			w.logger.Error("dropping malformed gallery deletion", zap.Error(err))
			return nil
		}
		_, err := w.deleter.DeleteGalleryData(ctx, payload.GalleryID)
		return err

	default:
		w.logger.Error("dropping task of unknown type", zap.String("type", task.Type))
		return nil
	}
}
