package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	photobiz "github.com/framehaus/gallery-backend/internal/photo/biz"
	pkgredis "github.com/framehaus/gallery-backend/internal/pkg/redis"
)

const (
	// StorageTaskQueue is the redis list backing the task queue
	StorageTaskQueue = "queue:storage:tasks"
	// ProcessingSet tracks task ids currently being handled
	ProcessingSet = "set:storage:processing"
)

// Task types dispatched through the queue
const (
	TaskThumbnailBatch  = "thumbnail-batch"
	TaskGalleryDeletion = "delete-gallery"
)

// Task is one unit of background work
type Task struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
}

// ThumbnailBatchPayload carries a thumbnail batch job
type ThumbnailBatchPayload struct {
	Items []photobiz.ThumbnailItem `json:"items"`
}

// GalleryDeletionPayload carries a gallery deletion job
type GalleryDeletionPayload struct {
	GalleryID string `json:"gallery_id"`
}

// Backlog is the queue surface the worker consumes
type Backlog interface {
	// Dequeue pops the next task, nil when the queue is empty
	Dequeue(ctx context.Context) (*Task, error)
	// Enqueue pushes a task, used both for new work and retries
	Enqueue(ctx context.Context, task *Task) error
	// Ack marks a task as no longer processing
	Ack(ctx context.Context, task *Task)
}

// Queue is the redis-list task queue. It satisfies the enqueuer
// interfaces the photo and gallery use cases depend on.
type Queue struct {
	redis  *pkgredis.Client
	logger *zap.Logger
}

func NewQueue(redis *pkgredis.Client, logger *zap.Logger) *Queue {
	return &Queue{redis: redis, logger: logger}
}

// Enqueue pushes a task onto the queue
func (q *Queue) Enqueue(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	taskJSON, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	if _, err := q.redis.LPush(ctx, StorageTaskQueue, string(taskJSON)); err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	q.logger.Debug("task enqueued",
		zap.String("task_id", task.ID),
		zap.String("type", task.Type))
	return nil
}

// Dequeue pops the oldest task. A drained queue returns (nil, nil).
func (q *Queue) Dequeue(ctx context.Context) (*Task, error) {
	taskJSON, err := q.redis.RPop(ctx, StorageTaskQueue)
	if err != nil {
		return nil, err
	}
	if taskJSON == "" {
		return nil, nil
	}

	var task Task
	if err := json.Unmarshal([]byte(taskJSON), &task); err != nil {
		q.logger.Error("dropping malformed task", zap.Error(err))
		return nil, nil
	}

	if _, err := q.redis.SAdd(ctx, ProcessingSet, task.ID); err != nil {
		q.logger.Warn("failed to mark task as processing",
			zap.String("task_id", task.ID),
			zap.Error(err))
	}

	return &task, nil
}

// Ack removes a task from the processing set
func (q *Queue) Ack(ctx context.Context, task *Task) {
	if _, err := q.redis.SRem(ctx, ProcessingSet, task.ID); err != nil {
		q.logger.Warn("failed to unmark processing task",
			zap.String("task_id", task.ID),
			zap.Error(err))
	}
}

// EnqueueThumbnailBatch schedules one thumbnail batch job. Implements
// the photo module's TaskEnqueuer.
func (q *Queue) EnqueueThumbnailBatch(ctx context.Context, items []photobiz.ThumbnailItem) error {
	if len(items) == 0 {
		return nil
	}

	payload, err := json.Marshal(ThumbnailBatchPayload{Items: items})
	if err != nil {
		return fmt.Errorf("failed to marshal thumbnail batch: %w", err)
	}

	return q.Enqueue(ctx, &Task{Type: TaskThumbnailBatch, Payload: payload})
}

// EnqueueGalleryDeletion schedules a gallery deletion job. Implements
// the gallery module's DeletionEnqueuer.
func (q *Queue) EnqueueGalleryDeletion(ctx context.Context, galleryID string) error {
	payload, err := json.Marshal(GalleryDeletionPayload{GalleryID: galleryID})
	if err != nil {
		return fmt.Errorf("failed to marshal gallery deletion: %w", err)
	}

	return q.Enqueue(ctx, &Task{Type: TaskGalleryDeletion, Payload: payload})
}

// Size returns the number of queued tasks
func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.redis.LLen(ctx, StorageTaskQueue)
}

// ProcessingCount returns the number of tasks currently being handled
func (q *Queue) ProcessingCount(ctx context.Context) (int64, error) {
	return q.redis.SCard(ctx, ProcessingSet)
}
