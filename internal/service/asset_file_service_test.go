package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mansoorceksport/assetfiles/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryAssetFileRepo struct {
	mu    sync.Mutex
	files []*domain.AssetFile
}

func (m *memoryAssetFileRepo) Create(ctx context.Context, file *domain.AssetFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files = append(m.files, file)
	return nil
}

func (m *memoryAssetFileRepo) GetByUID(ctx context.Context, assetUID, uid string) (*domain.AssetFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.AssetUID == assetUID && f.UID == uid && f.DeletedAt == nil {
			return f, nil
		}
	}
	return nil, domain.ErrAssetFileNotFound
}

func (m *memoryAssetFileRepo) ListByAsset(ctx context.Context, assetUID string, fileType domain.FileType) ([]*domain.AssetFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AssetFile
	for _, f := range m.files {
		if f.AssetUID == assetUID && f.DeletedAt == nil && (fileType == "" || f.FileType == fileType) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DateCreated.After(out[j].DateCreated) })
	return out, nil
}

func (m *memoryAssetFileRepo) SoftDelete(ctx context.Context, assetUID, uid string) error {
	f, err := m.GetByUID(ctx, assetUID, uid)
	if err != nil {
		return err
	}
	now := time.Now()
	m.mu.Lock()
	f.DeletedAt = &now
	m.mu.Unlock()
	return nil
}

func (m *memoryAssetFileRepo) ExistsDuplicate(ctx context.Context, assetUID, filename string, fileType domain.FileType) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range m.files {
		if f.AssetUID == assetUID && f.FileType == fileType && f.Filename() == filename && f.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

type memoryContentRepo struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newMemoryContentRepo() *memoryContentRepo {
	return &memoryContentRepo{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *memoryContentRepo) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	return nil
}

func (m *memoryContentRepo) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func newTestService(content domain.ContentRepository) (*AssetFileServiceImpl, *memoryAssetFileRepo) {
	repo := &memoryAssetFileRepo{}
	validator := NewAttachmentValidator(DefaultPolicyTable(), NewMimeGuesser(), repo)
	return NewAssetFileService(validator, repo, content), repo
}

func binaryInput(assetUID, filename string, data []byte) domain.CreateAssetFileInput {
	return domain.CreateAssetFileInput{
		AssetUID:    assetUID,
		UserID:      "user-1",
		Description: "site photo",
		Request: &domain.AttachmentRequest{
			FileType: domain.FileTypeFormMedia,
			Content:  &domain.UploadedContent{Filename: filename, Data: data},
		},
	}
}

func TestAssetFileService_CreateBinary(t *testing.T) {
	content := newMemoryContentRepo()
	svc, _ := newTestService(content)
	ctx := context.Background()

	file, err := svc.Create(ctx, binaryInput("asset-1", "photo one.jpg", []byte("jpeg-bytes")))
	require.NoError(t, err)

	assert.Len(t, file.UID, 26)
	assert.Equal(t, "asset-1", file.AssetUID)
	assert.Equal(t, "user-1", file.UserID)
	assert.Equal(t, "image/jpeg", file.ContentType)
	assert.Equal(t, int64(len("jpeg-bytes")), file.Size)
	assert.Equal(t, "photo one.jpg", file.Filename())
	assert.Equal(t, "asset_files/asset-1/"+file.UID+"/photo%20one.jpg", file.ContentKey)
	assert.Equal(t, []byte("jpeg-bytes"), content.objects[file.ContentKey])
	assert.Equal(t, "image/jpeg", content.types[file.ContentKey])

	// Same filename on the same asset is now a duplicate
	_, err = svc.Create(ctx, binaryInput("asset-1", "photo one.jpg", []byte("other")))
	assert.ErrorIs(t, err, domain.ErrDuplicateFilename)

	// Other assets are unaffected
	_, err = svc.Create(ctx, binaryInput("asset-2", "photo one.jpg", []byte("other")))
	assert.NoError(t, err)
}

func TestAssetFileService_CreateRedirect(t *testing.T) {
	// Remote files never touch the object store
	svc, _ := newTestService(nil)

	file, err := svc.Create(context.Background(), domain.CreateAssetFileInput{
		AssetUID:    "asset-1",
		Description: "remote",
		Request: &domain.AttachmentRequest{
			FileType: domain.FileTypeFormMedia,
			Metadata: `{"redirect_url": "https://cdn.example.com/a/clip.mp4"}`,
		},
	})
	require.NoError(t, err)
	assert.Empty(t, file.ContentKey)
	assert.Equal(t, "clip.mp4", file.Filename())
	assert.Equal(t, "https://cdn.example.com/a/clip.mp4", file.RedirectURL())
	assert.Equal(t, "video/mp4", file.ContentType)

	fc, err := svc.Content(context.Background(), "asset-1", file.UID)
	require.NoError(t, err)
	assert.Nil(t, fc.Body)
	assert.Equal(t, "https://cdn.example.com/a/clip.mp4", fc.RedirectURL)
}

func TestAssetFileService_CreateRejections(t *testing.T) {
	svc, repo := newTestService(newMemoryContentRepo())

	tests := []struct {
		name   string
		mutate func(*domain.CreateAssetFileInput)
		want   error
	}{
		{name: "blank description", mutate: func(in *domain.CreateAssetFileInput) { in.Description = "  " }, want: domain.ErrMissingDescription},
		{name: "unknown file type", mutate: func(in *domain.CreateAssetFileInput) { in.Request.FileType = "map_layer" }, want: domain.ErrInvalidFileType},
		{name: "validation error", mutate: func(in *domain.CreateAssetFileInput) { in.Request.Content = nil }, want: domain.ErrMissingContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := binaryInput("asset-1", "a.jpg", []byte("x"))
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.Create(context.Background(), domain.CreateAssetFileInput{AssetUID: "asset-1", Description: "x"})
	assert.Error(t, err)

	assert.Empty(t, repo.files)
}

func TestAssetFileService_StorageUnavailable(t *testing.T) {
	t.Run("no store configured", func(t *testing.T) {
		svc, repo := newTestService(nil)
		_, err := svc.Create(context.Background(), binaryInput("asset-1", "a.jpg", []byte("x")))
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
		assert.Empty(t, repo.files)
	})

	t.Run("upload fails", func(t *testing.T) {
		content := newMemoryContentRepo()
		content.err = errors.New("bucket gone")
		svc, repo := newTestService(content)

		_, err := svc.Create(context.Background(), binaryInput("asset-1", "a.jpg", []byte("x")))
		assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
		assert.Empty(t, repo.files)
	})
}

func TestAssetFileService_ListGetDeleteContent(t *testing.T) {
	content := newMemoryContentRepo()
	svc, _ := newTestService(content)
	ctx := context.Background()

	photo, err := svc.Create(ctx, binaryInput("asset-1", "a.jpg", []byte("jpeg")))
	require.NoError(t, err)

	layer, err := svc.Create(ctx, domain.CreateAssetFileInput{
		AssetUID:    "asset-1",
		Description: "layer",
		Request: &domain.AttachmentRequest{
			FileType:      domain.FileTypeMediaLayer,
			Base64Encoded: strPtr("data:text/csv;base64,YSxiCg=="),
			Metadata:      map[string]interface{}{"filename": "points.csv"},
		},
	})
	require.NoError(t, err)

	all, err := svc.List(ctx, "asset-1", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	layers, err := svc.List(ctx, "asset-1", domain.FileTypeMediaLayer)
	require.NoError(t, err)
	require.Len(t, layers, 1)
	assert.Equal(t, layer.UID, layers[0].UID)

	_, err = svc.List(ctx, "asset-1", "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidFileType)

	got, err := svc.Get(ctx, "asset-1", layer.UID)
	require.NoError(t, err)
	assert.Equal(t, "points.csv", got.Filename())

	fc, err := svc.Content(ctx, "asset-1", layer.UID)
	require.NoError(t, err)
	body, err := io.ReadAll(fc.Body)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(body))
	assert.Equal(t, "text/csv", fc.ContentType)
	assert.Equal(t, "points.csv", fc.Filename)

	require.NoError(t, svc.Delete(ctx, "asset-1", photo.UID))
	_, err = svc.Get(ctx, "asset-1", photo.UID)
	assert.ErrorIs(t, err, domain.ErrAssetFileNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "asset-1", photo.UID), domain.ErrAssetFileNotFound)

	// A deleted filename can be attached again
	_, err = svc.Create(ctx, binaryInput("asset-1", "a.jpg", []byte("jpeg")))
	assert.NoError(t, err)

	content.err = errors.New("timeout")
	_, err = svc.Content(ctx, "asset-1", layer.UID)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.True(t, strings.Contains(err.Error(), "timeout"))
}
