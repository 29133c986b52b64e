package biz

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/framehaus/gallery-backend/internal/pkg/errors"
)

type fakeShareLinkRepo struct {
	mu    sync.Mutex
	links map[string]*ShareLink
}

func newFakeShareLinkRepo() *fakeShareLinkRepo {
	return &fakeShareLinkRepo{links: make(map[string]*ShareLink)}
}

func (f *fakeShareLinkRepo) Create(ctx context.Context, link *ShareLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	link.ID = "link-" + link.Token[:8]
	cp := *link
	f.links[link.Token] = &cp
	return nil
}

func (f *fakeShareLinkRepo) GetByToken(ctx context.Context, token string) (*ShareLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[token]
	if !ok {
		return nil, apperrors.New(apperrors.ErrShareLinkNotFound, "")
	}
	cp := *l
	return &cp, nil
}

func (f *fakeShareLinkRepo) IncrementViews(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if l, ok := f.links[token]; ok {
		l.Views++
	}
	return nil
}

func (f *fakeShareLinkRepo) IncrementDownloads(ctx context.Context, token string, kind DownloadKind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.links[token]
	if !ok {
		return nil
	}
	if kind == DownloadZip {
		l.ZipDownloads++
	} else {
		l.SingleDownloads++
	}
	return nil
}

func newShareLinkFixture(t *testing.T) (*ShareLinkUseCase, *fakeGalleryRepo, *fakeShareLinkRepo, *Gallery) {
	t.Helper()

	galleries := newFakeGalleryRepo()
	links := newFakeShareLinkRepo()
	uc := NewShareLinkUseCase(links, galleries, zap.NewNop())

	gallery := &Gallery{OwnerID: "owner-1", Title: "Holiday"}
	require.NoError(t, galleries.Create(context.Background(), gallery))

	return uc, galleries, links, gallery
}

func TestShareLink_CreateAndResolve(t *testing.T) {
	uc, _, links, gallery := newShareLinkFixture(t)
	ctx := context.Background()

	link, err := uc.CreateShareLink(ctx, "owner-1", gallery.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, link.Token)

	resolved, g, err := uc.Resolve(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, gallery.ID, g.ID)
	assert.Equal(t, link.Token, resolved.Token)

	// views are counted per resolve
	_, _, err = uc.Resolve(ctx, link.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(2), links.links[link.Token].Views)
}

func TestShareLink_ResolveDeadGallery(t *testing.T) {
	uc, galleries, _, gallery := newShareLinkFixture(t)
	ctx := context.Background()

	link, err := uc.CreateShareLink(ctx, "owner-1", gallery.ID)
	require.NoError(t, err)

	_, err = galleries.MarkDeleted(ctx, gallery.ID)
	require.NoError(t, err)

	_, _, err = uc.Resolve(ctx, link.Token)
	assert.True(t, apperrors.Is(err, apperrors.ErrShareLinkNotFound))
}

func TestShareLink_RecordDownload(t *testing.T) {
	uc, _, links, gallery := newShareLinkFixture(t)
	ctx := context.Background()

	link, err := uc.CreateShareLink(ctx, "owner-1", gallery.ID)
	require.NoError(t, err)

	require.NoError(t, uc.RecordDownload(ctx, link.Token, DownloadZip))
	require.NoError(t, uc.RecordDownload(ctx, link.Token, DownloadSingle))
	require.NoError(t, uc.RecordDownload(ctx, link.Token, DownloadSingle))

	assert.Equal(t, int64(1), links.links[link.Token].ZipDownloads)
	assert.Equal(t, int64(2), links.links[link.Token].SingleDownloads)

	assert.Error(t, uc.RecordDownload(ctx, link.Token, DownloadKind("weird")))
	assert.Error(t, uc.RecordDownload(ctx, "missing", DownloadZip))
}

func TestShareLink_CreateForForeignGallery(t *testing.T) {
	uc, _, _, gallery := newShareLinkFixture(t)

	_, err := uc.CreateShareLink(context.Background(), "intruder", gallery.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrGalleryNotFound))
}
