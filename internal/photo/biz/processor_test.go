package biz

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	pkgimaging "github.com/framehaus/gallery-backend/internal/pkg/imaging"
)

type processorFixture struct {
	repo       *fakePhotoRepo
	store      *fakeObjectStore
	accounting *fakeAccounting
	enqueuer   *fakeEnqueuer
	uc         *ProcessorUseCase
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()

	f := &processorFixture{
		repo:       newFakePhotoRepo(),
		store:      newFakeObjectStore(),
		accounting: newFakeAccounting(),
		enqueuer:   &fakeEnqueuer{},
	}
	f.accounting.quota[testOwner] = 1 << 40

	f.uc = NewProcessorUseCase(f.repo, f.store, f.accounting, f.enqueuer, nil, ProcessorConfig{
		Thumbnail:         pkgimaging.DefaultOptions(),
		ReconcileGrace:    5 * time.Minute,
		ReconcileBatchCap: 500,
		OrphanTimeout:     time.Hour,
	}, zap.NewNop())
	return f
}

func (f *processorFixture) addPhoto(t *testing.T, filename string, status Status, uploadedAt time.Time) *Photo {
	t.Helper()

	objectKey := testGallery + "/" + filename
	photo := &Photo{
		GalleryID:          testGallery,
		OwnerID:            testOwner,
		Filename:           filename,
		ObjectKey:          objectKey,
		ThumbnailObjectKey: objectKey,
		FileSize:           10,
		Status:             status,
		UploadedAt:         uploadedAt,
	}
	require.NoError(t, f.repo.Create(context.Background(), photo))
	return photo
}

func pngBytes(t *testing.T, width, height int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessThumbnailBatch_Success(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	photo := f.addPhoto(t, "photo.png", StatusSuccessful, time.Now())
	f.store.objects[photo.ObjectKey] = pngBytes(t, 1600, 800)

	summary, err := f.uc.ProcessThumbnailBatch(ctx, []ThumbnailItem{
		{PhotoID: photo.ID, ObjectKey: photo.ObjectKey},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 0, summary.Failed)

	got, err := f.repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.True(t, hasSuffix(got.ThumbnailObjectKey, "thumbnails/photo.png"))
	require.NotNil(t, got.Width)
	require.NotNil(t, got.Height)
	assert.Equal(t, 800, *got.Width)
	assert.Equal(t, 400, *got.Height)

	assert.True(t, f.store.has("gallery-1/thumbnails/photo.png"))
}

func TestProcessThumbnailBatch_MissingObjectSkips(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	photo := f.addPhoto(t, "photo.png", StatusSuccessful, time.Now())

	summary, err := f.uc.ProcessThumbnailBatch(ctx, []ThumbnailItem{
		{PhotoID: photo.ID, ObjectKey: photo.ObjectKey},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, ItemSkipped, summary.Items[0].Status)
	assert.Equal(t, "File not found in S3", summary.Items[0].Reason)

	// the row is untouched: still unprocessed
	got, err := f.repo.GetByID(ctx, photo.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ObjectKey, got.ThumbnailObjectKey)
	assert.Nil(t, got.Width)
}

func TestProcessThumbnailBatch_InvalidImageIsTerminal(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	photo := f.addPhoto(t, "garbage.png", StatusSuccessful, time.Now())
	f.store.objects[photo.ObjectKey] = []byte("this is not an image")

	summary, err := f.uc.ProcessThumbnailBatch(ctx, []ThumbnailItem{
		{PhotoID: photo.ID, ObjectKey: photo.ObjectKey},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Items, 1)
	assert.Equal(t, ItemError, summary.Items[0].Status)

	_, err = f.repo.GetByID(ctx, photo.ID)
	assert.Error(t, err)
	assert.False(t, f.store.has(photo.ObjectKey))
}

func TestProcessThumbnailBatch_PhotoDeletedBeforeBatch(t *testing.T) {
	f := newProcessorFixture(t)

	summary, err := f.uc.ProcessThumbnailBatch(context.Background(), []ThumbnailItem{
		{PhotoID: "gone", ObjectKey: "gallery-1/gone.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, "Photo deleted", summary.Items[0].Reason)
}

func TestProcessThumbnailBatch_PhotoDeletedDuringProcessing(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	photo := f.addPhoto(t, "photo.png", StatusSuccessful, time.Now())
	f.store.objects[photo.ObjectKey] = pngBytes(t, 100, 100)

	// the row vanishes between the existence precheck and the final
	// re-check
	f.store.getHook = func(key string) {
		_ = f.repo.Delete(ctx, photo.ID)
	}

	summary, err := f.uc.ProcessThumbnailBatch(ctx, []ThumbnailItem{
		{PhotoID: photo.ID, ObjectKey: photo.ObjectKey},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, "Photo deleted during processing", summary.Items[0].Reason)

	// the uploaded thumbnail was cleaned up
	assert.False(t, f.store.has("gallery-1/thumbnails/photo.png"))
}

func TestProcessThumbnailBatch_OneFailureDoesNotAbortBatch(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	good := f.addPhoto(t, "good.png", StatusSuccessful, time.Now())
	bad := f.addPhoto(t, "bad.png", StatusSuccessful, time.Now())
	f.store.objects[good.ObjectKey] = pngBytes(t, 100, 100)
	f.store.objects[bad.ObjectKey] = []byte("junk")

	summary, err := f.uc.ProcessThumbnailBatch(ctx, []ThumbnailItem{
		{PhotoID: good.ID, ObjectKey: good.ObjectKey},
		{PhotoID: bad.ID, ObjectKey: bad.ObjectKey},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
}

func TestProcessThumbnailBatch_BulkFailureFlipsSuccesses(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	photo := f.addPhoto(t, "photo.png", StatusSuccessful, time.Now())
	f.store.objects[photo.ObjectKey] = pngBytes(t, 100, 100)
	f.repo.failBulk = true

	summary, err := f.uc.ProcessThumbnailBatch(ctx, []ThumbnailItem{
		{PhotoID: photo.ID, ObjectKey: photo.ObjectKey},
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, ItemError, summary.Items[0].Status)
}

func TestReconcileSweep_CapsBatch(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	stale := time.Now().Add(-10 * time.Minute)
	for i := 0; i < 505; i++ {
		f.addPhoto(t, fmt.Sprintf("p%d.png", i), StatusSuccessful, stale)
	}

	requeued, err := f.uc.ReconcileSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 500, requeued)
	assert.Len(t, f.enqueuer.lastBatch(), 500)
}

func TestReconcileSweep_SteadyStateIsZero(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	// fresh photo inside the grace window
	f.addPhoto(t, "fresh.png", StatusSuccessful, time.Now())

	// processed photo outside the window
	done := f.addPhoto(t, "done.png", StatusSuccessful, time.Now().Add(-time.Hour))
	require.NoError(t, f.repo.BulkUpdateThumbnails(ctx, []ThumbnailUpdate{{
		PhotoID:            done.ID,
		ThumbnailObjectKey: "gallery-1/thumbnails/done.png",
		Width:              100,
		Height:             100,
	}}))

	requeued, err := f.uc.ReconcileSweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, requeued)
	assert.Nil(t, f.enqueuer.lastBatch())
}

func TestReconcileSweep_ExcludesDeletedGalleries(t *testing.T) {
	f := newProcessorFixture(t)

	f.addPhoto(t, "p.png", StatusSuccessful, time.Now().Add(-time.Hour))
	f.repo.deletedGalleries[testGallery] = true

	requeued, err := f.uc.ReconcileSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, requeued)
}

func TestOrphanCleanup_Boundary(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	young := f.addPhoto(t, "young.png", StatusPending, time.Now().Add(-30*time.Minute))
	old := f.addPhoto(t, "old.png", StatusPending, time.Now().Add(-2*time.Hour))
	f.accounting.reserved[testOwner] = 20

	deleted, err := f.uc.OrphanCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	_, err = f.repo.GetByID(ctx, young.ID)
	assert.NoError(t, err)
	_, err = f.repo.GetByID(ctx, old.ID)
	assert.Error(t, err)

	// only the deleted PENDING photo's reservation came back
	assert.Equal(t, int64(10), f.accounting.reserved[testOwner])
}

func TestOrphanCleanup_FailedRowsNotReleasedTwice(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	f.addPhoto(t, "failed.png", StatusFailed, time.Now().Add(-2*time.Hour))
	f.accounting.reserved[testOwner] = 0

	deleted, err := f.uc.OrphanCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, 0, f.accounting.releases)
}

func TestOrphanCleanup_ReleasesExactReservation(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	photo := f.addPhoto(t, "pending.png", StatusPending, time.Now().Add(-2*time.Hour))
	photo.FileSize = 100
	f.repo.photos[photo.ID].FileSize = 100
	f.accounting.used[testOwner] = 120
	f.accounting.reserved[testOwner] = 150

	deleted, err := f.uc.OrphanCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Equal(t, int64(50), f.accounting.reserved[testOwner])
	assert.Equal(t, int64(120), f.accounting.used[testOwner])
}

func TestOrphanCleanup_DeletesDistinctThumbnail(t *testing.T) {
	f := newProcessorFixture(t)
	ctx := context.Background()

	photo := f.addPhoto(t, "p.png", StatusFailed, time.Now().Add(-2*time.Hour))
	thumbKey := "gallery-1/thumbnails/p.png"
	f.repo.photos[photo.ID].ThumbnailObjectKey = thumbKey
	f.store.objects[photo.ObjectKey] = []byte("orig")
	f.store.objects[thumbKey] = []byte("thumb")

	deleted, err := f.uc.OrphanCleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.False(t, f.store.has(photo.ObjectKey))
	assert.False(t, f.store.has(thumbKey))
}
