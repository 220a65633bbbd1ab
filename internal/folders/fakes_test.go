package folders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/OkeleyeVickkk/day-one-one-day/internal/auth"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/models"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/remote"
	"github.com/OkeleyeVickkk/day-one-one-day/internal/repositories"
)

type memoryFolders struct {
	mu        sync.Mutex
	rows      map[string]models.Folder
	createErr error
}

func newMemoryFolders() *memoryFolders { return &memoryFolders{rows: map[string]models.Folder{}} }

func (m *memoryFolders) Create(ctx context.Context, f models.Folder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.rows[f.ID]; ok {
		return repositories.ErrConflict
	}
	m.rows[f.ID] = f
	return nil
}

func (m *memoryFolders) Get(ctx context.Context, ownerID, id string) (models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok || f.UserID != ownerID {
		return models.Folder{}, repositories.ErrNotFound
	}
	return f, nil
}

func (m *memoryFolders) List(ctx context.Context, ownerID string) ([]models.Folder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Folder
	for _, f := range m.rows {
		if f.UserID == ownerID {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryFolders) ExistsByRemoteFolder(ctx context.Context, ownerID, remoteID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.rows {
		if f.UserID == ownerID && f.RemoteFolderID == remoteID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryFolders) SetDefault(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.rows[id]
	if !ok || target.UserID != ownerID {
		return repositories.ErrNotFound
	}
	for k, f := range m.rows {
		if f.UserID == ownerID {
			f.IsDefault = k == id
			m.rows[k] = f
		}
	}
	return nil
}

func (m *memoryFolders) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.rows[id]
	if !ok || f.UserID != ownerID {
		return repositories.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

func (m *memoryFolders) defaults(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.rows {
		if f.UserID == ownerID && f.IsDefault {
			n++
		}
	}
	return n
}

type memoryVideos struct {
	mu        sync.Mutex
	rows      map[string]models.VideoRecord
	createErr error
}

func newMemoryVideos() *memoryVideos { return &memoryVideos{rows: map[string]models.VideoRecord{}} }

func (m *memoryVideos) Get(ctx context.Context, ownerID, id string) (models.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok || v.OwnerID != ownerID {
		return models.VideoRecord{}, repositories.ErrNotFound
	}
	return v, nil
}

func (m *memoryVideos) List(ctx context.Context, q models.VideoQuery) ([]models.VideoRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.VideoRecord
	for _, v := range m.rows {
		if v.OwnerID == q.OwnerID && v.InFolder(q.FolderID) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *memoryVideos) UpdateFolder(ctx context.Context, ownerID, id string, folderID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok || v.OwnerID != ownerID {
		return repositories.ErrNotFound
	}
	v.FolderID = folderID
	m.rows[id] = v
	return nil
}

func (m *memoryVideos) ClearFolder(ctx context.Context, ownerID, folderID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, v := range m.rows {
		if v.OwnerID == ownerID && v.FolderID != nil && *v.FolderID == folderID {
			v.FolderID = nil
			m.rows[k] = v
			n++
		}
	}
	return n, nil
}

func (m *memoryVideos) Create(ctx context.Context, v models.VideoRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}
	m.rows[v.ID] = v
	return nil
}

func (m *memoryVideos) ExistsByRemoteFile(ctx context.Context, ownerID, remoteID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.rows {
		if v.OwnerID == ownerID && v.RemoteFileID == remoteID {
			return true, nil
		}
	}
	return false, nil
}

type memoryIntents struct {
	mu   sync.Mutex
	rows map[string]*models.Intent
}

func newMemoryIntents() *memoryIntents { return &memoryIntents{rows: map[string]*models.Intent{}} }

func (m *memoryIntents) Create(ctx context.Context, i models.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i.Status == "" {
		i.Status = models.IntentPending
	}
	m.rows[i.ID] = &i
	return nil
}

func (m *memoryIntents) AttachRemote(ctx context.Context, id, remoteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[id].RemoteID = remoteID
	m.rows[id].Status = models.IntentPending
	return nil
}

func (m *memoryIntents) SetStatus(ctx context.Context, id string, status models.IntentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.rows[id]
	if !ok {
		return repositories.ErrNotFound
	}
	i.Status = status
	return nil
}

func (m *memoryIntents) ListPending(ctx context.Context, limit int) ([]models.Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Intent
	for _, i := range m.rows {
		if i.Status == models.IntentPending {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (m *memoryIntents) byKind(kind models.IntentKind) []models.Intent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Intent
	for _, i := range m.rows {
		if i.Kind == kind {
			out = append(out, *i)
		}
	}
	return out
}

type moveCall struct{ fileID, from, to string }

type fakeRemote struct {
	mu        sync.Mutex
	nextID    int
	createErr error
	deleteErr error
	moveErr   error
	created   []string
	deleted   []string
	moves     []moveCall
}

func (f *fakeRemote) UploadFile(context.Context, string, remote.File) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeRemote) CreateFolder(ctx context.Context, token, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	f.created = append(f.created, name)
	if f.nextID == 1 {
		return "drv123", nil
	}
	return fmt.Sprintf("drv%d", 122+f.nextID), nil
}

func (f *fakeRemote) Delete(ctx context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeRemote) Move(ctx context.Context, token, fileID, from, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, moveCall{fileID, from, to})
	return f.moveErr
}

type harness struct {
	ctx     context.Context
	tokens  *auth.InMemoryTokenStore
	remote  *fakeRemote
	folders *memoryFolders
	videos  *memoryVideos
	intents *memoryIntents
	service *Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		ctx:     auth.WithUserID(context.Background(), "user-1"),
		tokens:  auth.NewInMemoryTokenStore(),
		remote:  &fakeRemote{},
		folders: newMemoryFolders(),
		videos:  newMemoryVideos(),
		intents: newMemoryIntents(),
	}
	require.NoError(t, h.tokens.Save(h.ctx, "user-1", auth.Token{AccessToken: "tok"}))
	h.service = NewService(auth.NewManager(h.tokens), h.remote, h.folders, h.videos, h.intents, nil)
	return h
}

func (h *harness) addVideo(id, remoteID string, folderID *string) {
	h.videos.rows[id] = models.VideoRecord{
		ID: id, OwnerID: "user-1", FolderID: folderID, RemoteFileID: remoteID, Status: models.VideoStatusCompleted,
	}
}
