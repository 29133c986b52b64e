package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

type fakeGalleryRepo struct {
	mu        sync.Mutex
	galleries map[string]*Gallery
	links     map[string][]string // gallery id -> link tokens
	photos    map[string]int      // gallery id -> photo row count
	nextID    int
}

func newFakeGalleryRepo() *fakeGalleryRepo {
	return &fakeGalleryRepo{
		galleries: make(map[string]*Gallery),
		links:     make(map[string][]string),
		photos:    make(map[string]int),
	}
}

func (f *fakeGalleryRepo) Create(ctx context.Context, gallery *Gallery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	gallery.ID = fmt.Sprintf("gallery-%d", f.nextID)
	cp := *gallery
	f.galleries[gallery.ID] = &cp
	return nil
}

func (f *fakeGalleryRepo) GetByID(ctx context.Context, id string) (*Gallery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.galleries[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGalleryRepo) GetActiveByID(ctx context.Context, id string) (*Gallery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.galleries[id]
	if !ok || g.IsDeleted {
		return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGalleryRepo) MarkDeleted(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.galleries[id]
	if !ok || g.IsDeleted {
		return false, nil
	}
	g.IsDeleted = true
	return true, nil
}

func (f *fakeGalleryRepo) DeleteCascade(ctx context.Context, galleryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.links, galleryID)
	delete(f.photos, galleryID)
	delete(f.galleries, galleryID)
	return nil
}

// fakeDeletionStore records DeleteBatch calls so tests can assert on
// chunking behavior.
type fakeDeletionStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	batchSize   int
	batchCalls  [][]string
	listErr     error
	invalidated []string
}

func newFakeDeletionStore(batchSize int) *fakeDeletionStore {
	return &fakeDeletionStore{
		objects:   make(map[string][]byte),
		batchSize: batchSize,
	}
}

func (f *fakeDeletionStore) ListByPrefix(ctx context.Context, prefix string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var keys []string
	for k := range f.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (f *fakeDeletionStore) DeleteBatch(ctx context.Context, keys []string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	deleted := 0
	for start := 0; start < len(keys); start += f.batchSize {
		end := start + f.batchSize
		if end > len(keys) {
			end = len(keys)
		}
		chunk := keys[start:end]
		f.batchCalls = append(f.batchCalls, chunk)
		for _, k := range chunk {
			if _, ok := f.objects[k]; ok {
				delete(f.objects, k)
				deleted++
			}
		}
	}
	return deleted, nil
}

func (f *fakeDeletionStore) InvalidateCachedURLs(ctx context.Context, prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, prefix)
}

type fakeDeletionEnqueuer struct {
	galleries []string
	fail      bool
}

func (f *fakeDeletionEnqueuer) EnqueueGalleryDeletion(ctx context.Context, galleryID string) error {
	if f.fail {
		return fmt.Errorf("queue unavailable")
	}
	f.galleries = append(f.galleries, galleryID)
	return nil
}

func TestDeleteGallery_SoftDeletesAndEnqueues(t *testing.T) {
	repo := newFakeGalleryRepo()
	enq := &fakeDeletionEnqueuer{}
	uc := NewGalleryUseCase(repo, enq, zap.NewNop())
	ctx := context.Background()

	gallery, err := uc.CreateGallery(ctx, "owner-1", "Holiday")
	require.NoError(t, err)

	require.NoError(t, uc.DeleteGallery(ctx, "owner-1", gallery.ID))

	assert.True(t, repo.galleries[gallery.ID].IsDeleted)
	assert.Equal(t, []string{gallery.ID}, enq.galleries)

	// a second delete must not enqueue a second job
	require.NoError(t, uc.DeleteGallery(ctx, "owner-1", gallery.ID))
	assert.Len(t, enq.galleries, 1)
}

func TestDeleteGallery_ForeignOwnerLooksMissing(t *testing.T) {
	repo := newFakeGalleryRepo()
	uc := NewGalleryUseCase(repo, &fakeDeletionEnqueuer{}, zap.NewNop())
	ctx := context.Background()

	gallery, err := uc.CreateGallery(ctx, "owner-1", "Holiday")
	require.NoError(t, err)

	err = uc.DeleteGallery(ctx, "intruder", gallery.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrGalleryNotFound))
}

func TestDeleteGalleryData_CascadesAndCounts(t *testing.T) {
	repo := newFakeGalleryRepo()
	store := newFakeDeletionStore(1000)
	uc := NewDeletionUseCase(repo, store, zap.NewNop())
	ctx := context.Background()

	gallery := &Gallery{OwnerID: "owner-1", Title: "Holiday"}
	require.NoError(t, repo.Create(ctx, gallery))
	repo.links[gallery.ID] = []string{"tok1"}
	repo.photos[gallery.ID] = 2

	// two photos, one of which has a distinct thumbnail
	store.objects[gallery.ID+"/a.jpg"] = []byte("a")
	store.objects[gallery.ID+"/b.jpg"] = []byte("b")
	store.objects[gallery.ID+"/thumbnails/a.jpg"] = []byte("ta")

	deleted, err := uc.DeleteGalleryData(ctx, gallery.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	_, hasGallery := repo.galleries[gallery.ID]
	assert.False(t, hasGallery)
	assert.NotContains(t, repo.links, gallery.ID)
	assert.NotContains(t, repo.photos, gallery.ID)
	assert.Empty(t, store.objects)
	assert.Contains(t, store.invalidated, gallery.ID+"/")
}

func TestDeleteGalleryData_ChunksLargeGalleries(t *testing.T) {
	repo := newFakeGalleryRepo()
	store := newFakeDeletionStore(1000)
	uc := NewDeletionUseCase(repo, store, zap.NewNop())
	ctx := context.Background()

	gallery := &Gallery{OwnerID: "owner-1", Title: "Big"}
	require.NoError(t, repo.Create(ctx, gallery))
	for i := 0; i < 1500; i++ {
		store.objects[fmt.Sprintf("%s/photo-%04d.jpg", gallery.ID, i)] = []byte("x")
	}

	deleted, err := uc.DeleteGalleryData(ctx, gallery.ID)
	require.NoError(t, err)
	assert.Equal(t, 1500, deleted)

	require.Len(t, store.batchCalls, 2)
	assert.Len(t, store.batchCalls[0], 1000)
	assert.Len(t, store.batchCalls[1], 500)
}

func TestDeleteGalleryData_ListFailurePropagates(t *testing.T) {
	repo := newFakeGalleryRepo()
	store := newFakeDeletionStore(1000)
	store.listErr = fmt.Errorf("backend down")
	uc := NewDeletionUseCase(repo, store, zap.NewNop())
	ctx := context.Background()

	gallery := &Gallery{OwnerID: "owner-1", Title: "Holiday"}
	require.NoError(t, repo.Create(ctx, gallery))

	_, err := uc.DeleteGalleryData(ctx, gallery.ID)
	assert.Error(t, err)

	// nothing was cascaded; the job can retry
	_, hasGallery := repo.galleries[gallery.ID]
	assert.True(t, hasGallery)
}

func TestDeleteGalleryData_RerunIsIdempotent(t *testing.T) {
	repo := newFakeGalleryRepo()
	store := newFakeDeletionStore(1000)
	uc := NewDeletionUseCase(repo, store, zap.NewNop())
	ctx := context.Background()

	gallery := &Gallery{OwnerID: "owner-1", Title: "Holiday"}
	require.NoError(t, repo.Create(ctx, gallery))
	store.objects[gallery.ID+"/a.jpg"] = []byte("a")

	deleted, err := uc.DeleteGalleryData(ctx, gallery.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = uc.DeleteGalleryData(ctx, gallery.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
}
