package biz

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

type fakePhotoRepo struct {
	mu       sync.Mutex
	photos   map[string]*Photo
	nextID   int
	failBulk bool
	// galleries marked soft-deleted, checked by FindUnprocessed
	deletedGalleries map[string]bool
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{
		photos:           make(map[string]*Photo),
		deletedGalleries: make(map[string]bool),
	}
}

func (f *fakePhotoRepo) Create(ctx context.Context, photo *Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	photo.ID = fmt.Sprintf("photo-%d", f.nextID)
	cp := *photo
	f.photos[photo.ID] = &cp
	return nil
}

func (f *fakePhotoRepo) GetByID(ctx context.Context, id string) (*Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrPhotoNotFound, "")
	}
	cp := *p
	return &cp, nil
}

func (f *fakePhotoRepo) ListByGallery(ctx context.Context, galleryID string) ([]*Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Photo
	for _, p := range f.photos {
		if p.GalleryID == galleryID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.photos, id)
	return nil
}

func (f *fakePhotoRepo) TransitionStatus(ctx context.Context, id string, from, to Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	return true, nil
}

func (f *fakePhotoRepo) DeleteIfStatus(ctx context.Context, id string, status Status) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.photos[id]
	if !ok || p.Status != status {
		return false, nil
	}
	delete(f.photos, id)
	return true, nil
}

func (f *fakePhotoRepo) ExistingIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := f.photos[id]; ok {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

func (f *fakePhotoRepo) BulkUpdateThumbnails(ctx context.Context, updates []ThumbnailUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBulk {
		return fmt.Errorf("bulk update failed")
	}
	for _, u := range updates {
		if p, ok := f.photos[u.PhotoID]; ok {
			w, h := u.Width, u.Height
			p.ThumbnailObjectKey = u.ThumbnailObjectKey
			p.Width = &w
			p.Height = &h
		}
	}
	return nil
}

func (f *fakePhotoRepo) FindUnprocessed(ctx context.Context, before time.Time, limit int) ([]*Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Photo
	for _, p := range f.photos {
		if len(out) >= limit {
			break
		}
		if p.Status != StatusSuccessful || !p.UploadedAt.Before(before) {
			continue
		}
		if f.deletedGalleries[p.GalleryID] {
			continue
		}
		if p.Width == nil || p.Height == nil || p.ThumbnailObjectKey == p.ObjectKey {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) FindExpired(ctx context.Context, before time.Time) ([]*Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Photo
	for _, p := range f.photos {
		if (p.Status == StatusPending || p.Status == StatusFailed) && p.UploadedAt.Before(before) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// fakeObjectStore keeps objects in a map; hooks allow tests to inject
// races and failures.
type fakeObjectStore struct {
	mu          sync.Mutex
	objects     map[string][]byte
	presignFail map[string]bool
	getHook     func(key string)
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{
		objects:     make(map[string][]byte),
		presignFail: make(map[string]bool),
	}
}

func (f *fakeObjectStore) PresignUpload(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presignFail[key] {
		return "", apperrors.NewStorageError(fmt.Errorf("sign failure"))
	}
	return "https://store.example/put/" + key, nil
}

func (f *fakeObjectStore) PresignDownload(ctx context.Context, key string) (string, error) {
	return "https://store.example/get/" + key, nil
}

func (f *fakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.getHook != nil {
		f.getHook(key)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, apperrors.New(apperrors.ErrObjectNotFound, key)
	}
	return data, nil
}

func (f *fakeObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

func (f *fakeObjectStore) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}

// fakeAccounting mirrors the conditional-update semantics of the SQL
// accounting repo.
type fakeAccounting struct {
	mu       sync.Mutex
	quota    map[string]int64
	used     map[string]int64
	reserved map[string]int64
	commits  int
	releases int
}

func newFakeAccounting() *fakeAccounting {
	return &fakeAccounting{
		quota:    make(map[string]int64),
		used:     make(map[string]int64),
		reserved: make(map[string]int64),
	}
}

func (f *fakeAccounting) Reserve(ctx context.Context, userID string, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.used[userID]+f.reserved[userID]+n > f.quota[userID] {
		return apperrors.New(apperrors.ErrQuotaExceeded, "")
	}
	f.reserved[userID] += n
	return nil
}

func (f *fakeAccounting) Commit(ctx context.Context, userID string, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reserved[userID] < n {
		return apperrors.New(apperrors.ErrConsistency, "")
	}
	f.reserved[userID] -= n
	f.used[userID] += n
	f.commits++
	return nil
}

func (f *fakeAccounting) Release(ctx context.Context, userID string, n int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reserved[userID] -= n
	if f.reserved[userID] < 0 {
		f.reserved[userID] = 0
	}
	f.releases++
	return nil
}

type fakeGalleryReader struct {
	galleries map[string]*GalleryRef
}

func (f *fakeGalleryReader) ActiveGallery(ctx context.Context, galleryID string) (*GalleryRef, error) {
	g, ok := f.galleries[galleryID]
	if !ok {
		return nil, apperrors.New(apperrors.ErrGalleryNotFound, "")
	}
	return g, nil
}

type fakeEnqueuer struct {
	mu      sync.Mutex
	batches [][]ThumbnailItem
	fail    bool
}

func (f *fakeEnqueuer) EnqueueThumbnailBatch(ctx context.Context, items []ThumbnailItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("queue unavailable")
	}
	f.batches = append(f.batches, items)
	return nil
}

func (f *fakeEnqueuer) lastBatch() []ThumbnailItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		return nil
	}
	return f.batches[len(f.batches)-1]
}

func hasSuffix(s, suffix string) bool {
	return strings.HasSuffix(s, suffix)
}
