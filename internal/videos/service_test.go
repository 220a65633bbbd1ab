package videos

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/notify"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
)

type memoryVideos struct {
	mu     sync.Mutex
	videos map[string]models.VideoRecord
	lists  int
}

func newMemoryVideos(videos ...models.VideoRecord) *memoryVideos {
	m := &memoryVideos{videos: make(map[string]models.VideoRecord)}
	for _, v := range videos {
		m.videos[v.ID] = v
	}
	return m
}

func (m *memoryVideos) Create(_ context.Context, v models.VideoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videos[v.ID] = v
	return nil
}

func (m *memoryVideos) Get(_ context.Context, ownerID, videoID string) (models.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok || v.OwnerID != ownerID {
		return models.VideoRecord{}, repositories.ErrNotFound
	}
	return v, nil
}

func (m *memoryVideos) GetPublic(_ context.Context, videoID string) (models.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok || !v.IsPublic {
		return models.VideoRecord{}, repositories.ErrNotFound
	}
	return v, nil
}

func (m *memoryVideos) List(_ context.Context, q models.VideoQuery) ([]models.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists++
	var out []models.VideoRecord
	for _, v := range m.videos {
		if q.OwnerID == "" && !v.IsPublic {
			continue
		}
		if q.OwnerID != "" && v.OwnerID != q.OwnerID {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *memoryVideos) ExistsByRemoteFile(context.Context, string, string) (bool, error) {
	return false, nil
}

func (m *memoryVideos) UpdateFolder(context.Context, string, string, *string) error { return nil }

func (m *memoryVideos) UpdateTitle(_ context.Context, ownerID, videoID, title string) error {
	return m.update(ownerID, videoID, func(v *models.VideoRecord) { v.Title = title })
}

func (m *memoryVideos) UpdateVisibility(_ context.Context, ownerID, videoID string, public bool) error {
	return m.update(ownerID, videoID, func(v *models.VideoRecord) { v.IsPublic = public })
}

func (m *memoryVideos) IncrementViews(_ context.Context, videoID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok || !v.IsPublic {
		return 0, repositories.ErrNotFound
	}
	v.ViewsCount++
	m.videos[videoID] = v
	return v.ViewsCount, nil
}

func (m *memoryVideos) ClearFolder(context.Context, string, string) (int64, error) { return 0, nil }

func (m *memoryVideos) Delete(_ context.Context, ownerID, videoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok || v.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	delete(m.videos, videoID)
	return nil
}

func (m *memoryVideos) update(ownerID, videoID string, fn func(*models.VideoRecord)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.videos[videoID]
	if !ok || v.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	fn(&v)
	m.videos[videoID] = v
	return nil
}

type deleteRecorder struct {
	remote.Store
	deleted []string
	err     error
}

func (d *deleteRecorder) Delete(_ context.Context, token, id string) error {
	d.deleted = append(d.deleted, token+":"+id)
	return d.err
}

type countingNotifier struct{ owners []string }

func (n *countingNotifier) VideosChanged(_ context.Context, ownerID string) error {
	n.owners = append(n.owners, ownerID)
	return nil
}

type serviceHarness struct {
	ctx      context.Context
	videos   *memoryVideos
	store    *deleteRecorder
	notifier *countingNotifier
	svc      *Service
}

func newHarness(t *testing.T, videos ...models.VideoRecord) *serviceHarness {
	t.Helper()
	tokens := auth.NewInMemoryTokenStore()
	ctx := auth.WithUserID(context.Background(), "owner")
	require.NoError(t, tokens.Save(ctx, "owner", auth.Token{AccessToken: "tok"}))

	h := &serviceHarness{
		ctx:      ctx,
		videos:   newMemoryVideos(videos...),
		store:    &deleteRecorder{},
		notifier: &countingNotifier{},
	}
	h.svc = NewService(auth.NewManager(tokens), h.store, h.videos, h.notifier, time.Minute)
	return h
}

func TestListScopesToCallerOrPublicFeed(t *testing.T) {
	h := newHarness(t,
		models.VideoRecord{ID: "mine-private", OwnerID: "owner"},
		models.VideoRecord{ID: "mine-public", OwnerID: "owner", IsPublic: true},
		models.VideoRecord{ID: "theirs-public", OwnerID: "other", IsPublic: true},
		models.VideoRecord{ID: "theirs-private", OwnerID: "other"},
	)

	mine, err := h.svc.List(h.ctx, ListOptions{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine-private", "mine-public"}, ids(mine))

	feed, err := h.svc.List(context.Background(), ListOptions{Public: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine-public", "theirs-public"}, ids(feed))

	_, err = h.svc.List(context.Background(), ListOptions{})
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
}

func TestRenameTrimsAndRejectsEmpty(t *testing.T) {
	h := newHarness(t, models.VideoRecord{ID: "v1", OwnerID: "owner", Title: "old"})

	require.ErrorIs(t, h.svc.Rename(h.ctx, "v1", "   "), ErrInvalidTitle)
	require.NoError(t, h.svc.Rename(h.ctx, "v1", "  Morning run  "))

	v, err := h.videos.Get(h.ctx, "owner", "v1")
	require.NoError(t, err)
	assert.Equal(t, "Morning run", v.Title)
	assert.Equal(t, []string{"owner"}, h.notifier.owners)

	assert.ErrorIs(t, h.svc.Rename(h.ctx, "missing", "x"), repositories.ErrNotFound)
}

func TestSetVisibilityRefreshesFeed(t *testing.T) {
	h := newHarness(t, models.VideoRecord{ID: "v1", OwnerID: "owner"})

	feed, err := h.svc.List(context.Background(), ListOptions{Public: true})
	require.NoError(t, err)
	assert.Empty(t, feed)

	require.NoError(t, h.svc.SetVisibility(h.ctx, "v1", true))

	feed, err = h.svc.List(context.Background(), ListOptions{Public: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"v1"}, ids(feed))
}

func TestRecordViewCountsOnlyPublicForeignViews(t *testing.T) {
	h := newHarness(t,
		models.VideoRecord{ID: "pub", OwnerID: "owner", IsPublic: true, ViewsCount: 4},
		models.VideoRecord{ID: "priv", OwnerID: "owner"},
	)

	views, err := h.svc.RecordView(context.Background(), "pub", "viewer")
	require.NoError(t, err)
	assert.EqualValues(t, 5, views)

	views, err = h.svc.RecordView(context.Background(), "pub", "owner")
	require.NoError(t, err)
	assert.EqualValues(t, 5, views)

	_, err = h.svc.RecordView(context.Background(), "priv", "viewer")
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	v, err := h.videos.Get(h.ctx, "owner", "priv")
	require.NoError(t, err)
	assert.Zero(t, v.ViewsCount)
}

func TestDeleteRemovesRemoteFileThenRecord(t *testing.T) {
	h := newHarness(t, models.VideoRecord{ID: "v1", OwnerID: "owner", RemoteFileID: "file-1"})

	require.NoError(t, h.svc.Delete(h.ctx, "v1"))
	assert.Equal(t, []string{"tok:file-1"}, h.store.deleted)

	_, err := h.videos.Get(h.ctx, "owner", "v1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDeleteKeepsGoingWhenRemoteFails(t *testing.T) {
	h := newHarness(t, models.VideoRecord{ID: "v1", OwnerID: "owner", RemoteFileID: "file-1"})
	h.store.err = errors.New("provider down")

	require.NoError(t, h.svc.Delete(h.ctx, "v1"))

	_, err := h.videos.Get(h.ctx, "owner", "v1")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestDeleteUnknownVideo(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.svc.Delete(h.ctx, "missing"), repositories.ErrNotFound)
	assert.Empty(t, h.store.deleted)
}

func ids(videos []models.VideoRecord) []string {
	out := make([]string, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.ID)
	}
	return out
}

func TestUploadRefreshDropsCachedFeed(t *testing.T) {
	h := newHarness(t)

	feed, err := h.svc.List(context.Background(), ListOptions{Public: true})
	require.NoError(t, err)
	assert.Empty(t, feed)

	require.NoError(t, h.videos.Create(h.ctx, models.VideoRecord{ID: "fresh", OwnerID: "owner", IsPublic: true}))
	refresh := notify.Fanout{h.notifier, h.svc}
	require.NoError(t, refresh.VideosChanged(h.ctx, "owner"))

	feed, err = h.svc.List(context.Background(), ListOptions{Public: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, ids(feed))
	assert.Equal(t, []string{"owner"}, h.notifier.owners)
}
