package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	photobiz "github.com/framehaus/gallery-backend/internal/photo/biz"
)

type fakeBacklog struct {
	mu    sync.Mutex
	tasks []*Task
	acked []string
}

func (f *fakeBacklog) Dequeue(ctx context.Context) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tasks) == 0 {
		return nil, nil
	}
	task := f.tasks[0]
	f.tasks = f.tasks[1:]
	return task, nil
}

func (f *fakeBacklog) Enqueue(ctx context.Context, task *Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeBacklog) Ack(ctx context.Context, task *Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, task.ID)
}

func (f *fakeBacklog) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tasks)
}

type fakeProcessor struct {
	mu      sync.Mutex
	batches [][]photobiz.ThumbnailItem
	err     error
}

func (f *fakeProcessor) ProcessThumbnailBatch(ctx context.Context, items []photobiz.ThumbnailItem) (*photobiz.BatchSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, items)
	return &photobiz.BatchSummary{Total: len(items), Successful: len(items)}, nil
}

type fakeDeleter struct {
	mu        sync.Mutex
	galleries []string
	err       error
}

func (f *fakeDeleter) DeleteGalleryData(ctx context.Context, galleryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.galleries = append(f.galleries, galleryID)
	return 1, nil
}

func newTestWorker(backlog Backlog, processor ThumbnailProcessor, deleter GalleryDeleter) *Worker {
	return NewWorker(backlog, processor, deleter, WorkerOptions{
		WorkerCount:  1,
		PollInterval: 10 * time.Millisecond,
		MaxRetries:   3,
	}, zap.NewNop())
}

func thumbnailTask(t *testing.T, items []photobiz.ThumbnailItem) *Task {
	t.Helper()
	payload, err := json.Marshal(ThumbnailBatchPayload{Items: items})
	require.NoError(t, err)
	return &Task{ID: "task-1", Type: TaskThumbnailBatch, Payload: payload}
}

func TestHandleTask_ThumbnailBatch(t *testing.T) {
	backlog := &fakeBacklog{}
	processor := &fakeProcessor{}
	worker := newTestWorker(backlog, processor, &fakeDeleter{})

	items := []photobiz.ThumbnailItem{{PhotoID: "p1", ObjectKey: "g1/p1.jpg"}}
	worker.HandleTask(context.Background(), thumbnailTask(t, items))

	require.Len(t, processor.batches, 1)
	assert.Equal(t, items, processor.batches[0])
	assert.Equal(t, []string{"task-1"}, backlog.acked)
	assert.Equal(t, 0, backlog.size())
}

func TestHandleTask_GalleryDeletion(t *testing.T) {
	backlog := &fakeBacklog{}
	deleter := &fakeDeleter{}
	worker := newTestWorker(backlog, &fakeProcessor{}, deleter)

	payload, err := json.Marshal(GalleryDeletionPayload{GalleryID: "g1"})
	require.NoError(t, err)
	worker.HandleTask(context.Background(), &Task{ID: "task-2", Type: TaskGalleryDeletion, Payload: payload})

	assert.Equal(t, []string{"g1"}, deleter.galleries)
}

func TestHandleTask_RetriesUpToBudget(t *testing.T) {
	backlog := &fakeBacklog{}
	processor := &fakeProcessor{err: fmt.Errorf("transient failure")}
	worker := newTestWorker(backlog, processor, &fakeDeleter{})
	ctx := context.Background()

	task := thumbnailTask(t, []photobiz.ThumbnailItem{{PhotoID: "p1", ObjectKey: "g1/p1.jpg"}})
	worker.HandleTask(ctx, task)

	// first failure re-enqueues with a bumped counter
	require.Equal(t, 1, backlog.size())
	requeued, err := backlog.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, requeued.RetryCount)

	// exhaust the budget
	requeued.RetryCount = 3
	worker.HandleTask(ctx, requeued)
	assert.Equal(t, 0, backlog.size())
}

func TestHandleTask_MalformedPayloadNotRetried(t *testing.T) {
	backlog := &fakeBacklog{}
	worker := newTestWorker(backlog, &fakeProcessor{}, &fakeDeleter{})

	worker.HandleTask(context.Background(), &Task{ID: "task-3", Type: TaskThumbnailBatch, Payload: []byte("{broken")})
	assert.Equal(t, 0, backlog.size())

	worker.HandleTask(context.Background(), &Task{ID: "task-4", Type: "unknown", Payload: []byte("{}")})
	assert.Equal(t, 0, backlog.size())
}

func TestWorker_DrainsQueue(t *testing.T) {
	backlog := &fakeBacklog{}
	processor := &fakeProcessor{}
	worker := newTestWorker(backlog, processor, &fakeDeleter{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		task := thumbnailTask(t, []photobiz.ThumbnailItem{{PhotoID: fmt.Sprintf("p%d", i), ObjectKey: "g1/x.jpg"}})
		task.ID = fmt.Sprintf("task-%d", i)
		require.NoError(t, backlog.Enqueue(ctx, task))
	}

	require.NoError(t, worker.Start(ctx))
	defer worker.Stop()

	require.Eventually(t, func() bool {
		processor.mu.Lock()
		defer processor.mu.Unlock()
		return len(processor.batches) == 3
	}, 5*time.Second, 10*time.Millisecond)
}

func TestWorker_StartTwiceFails(t *testing.T) {
	worker := newTestWorker(&fakeBacklog{}, &fakeProcessor{}, &fakeDeleter{})
	ctx := context.Background()

	require.NoError(t, worker.Start(ctx))
	assert.Error(t, worker.Start(ctx))
	worker.Stop()
}

type fakeSweeper struct {
	mu         sync.Mutex
	reconciles int
	cleanups   int
}

func (f *fakeSweeper) ReconcileSweep(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciles++
	return 0, nil
}

func (f *fakeSweeper) OrphanCleanup(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
	return 0, nil
}

func TestScheduler_RunsBothSweeps(t *testing.T) {
	sweeper := &fakeSweeper{}
	scheduler := NewScheduler(sweeper, SchedulerOptions{
		ReconcileInterval: 10 * time.Millisecond,
		OrphanInterval:    10 * time.Millisecond,
	}, zap.NewNop())

	require.NoError(t, scheduler.Start(context.Background()))
	defer scheduler.Stop()

	require.Eventually(t, func() bool {
		sweeper.mu.Lock()
		defer sweeper.mu.Unlock()
		return sweeper.reconciles > 0 && sweeper.cleanups > 0
	}, 5*time.Second, 10*time.Millisecond)
}
