package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/mansoorceksport/assetfiles/internal/domain"
	"github.com/oklog/ulid/v2"
)

// AssetFileServiceImpl implements domain.AssetFileService
type AssetFileServiceImpl struct {
	validator  domain.AttachmentValidator
	repository domain.AssetFileRepository
	content    domain.ContentRepository
}

// NewAssetFileService creates a new asset file service. content may be nil when
// no object store is configured; uploads then fail with ErrStorageUnavailable.
func NewAssetFileService(
	validator domain.AttachmentValidator,
	repository domain.AssetFileRepository,
	content domain.ContentRepository,
) *AssetFileServiceImpl {
	return &AssetFileServiceImpl{
		validator:  validator,
		repository: repository,
		content:    content,
	}
}

// generateULID creates a new ULID string
func generateULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// contentKey is the object key of an uploaded file
func contentKey(assetUID, uid, filename string) string {
	return fmt.Sprintf("asset_files/%s/%s/%s", assetUID, uid, url.PathEscape(filename))
}

// Create validates the attach request, stores the bytes when there are any
// and persists the record
func (s *AssetFileServiceImpl) Create(ctx context.Context, input domain.CreateAssetFileInput) (*domain.AssetFile, error) {
	if input.Request == nil {
		return nil, errors.New("attach request is required")
	}
	if _, err := domain.ParseFileType(string(input.Request.FileType)); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, domain.ErrMissingDescription
	}

	descriptor, err := s.validator.Validate(ctx, input.AssetUID, input.Request)
	if err != nil {
		return nil, err
	}

	file := &domain.AssetFile{
		UID:         generateULID(),
		AssetUID:    input.AssetUID,
		UserID:      input.UserID,
		FileType:    descriptor.FileType,
		Description: input.Description,
		Metadata:    descriptor.Metadata,
		ContentType: descriptor.ContentType,
		DateCreated: time.Now(),
	}

	if descriptor.Content != nil {
		if s.content == nil {
			return nil, fmt.Errorf("%w: no content store configured", domain.ErrStorageUnavailable)
		}
		key := contentKey(input.AssetUID, file.UID, descriptor.Filename)
		if err := s.content.Put(ctx, key, descriptor.Content, descriptor.ContentType); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
		}
		file.ContentKey = key
		file.Size = int64(len(descriptor.Content))
	}

	if err := s.repository.Create(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to save asset file: %w", err)
	}

	return file, nil
}

// Get returns a single live file of the asset
func (s *AssetFileServiceImpl) Get(ctx context.Context, assetUID, uid string) (*domain.AssetFile, error) {
	return s.repository.GetByUID(ctx, assetUID, uid)
}

// List returns the live files of an asset, optionally limited to one category
func (s *AssetFileServiceImpl) List(ctx context.Context, assetUID string, fileType domain.FileType) ([]*domain.AssetFile, error) {
	if fileType != "" {
		if _, err := domain.ParseFileType(string(fileType)); err != nil {
			return nil, err
		}
	}
	return s.repository.ListByAsset(ctx, assetUID, fileType)
}

// Delete soft-deletes a file. Its stored bytes are kept.
func (s *AssetFileServiceImpl) Delete(ctx context.Context, assetUID, uid string) error {
	return s.repository.SoftDelete(ctx, assetUID, uid)
}

// Content resolves what the content endpoint should serve
func (s *AssetFileServiceImpl) Content(ctx context.Context, assetUID, uid string) (*domain.FileContent, error) {
	file, err := s.repository.GetByUID(ctx, assetUID, uid)
	if err != nil {
		return nil, err
	}

	result := &domain.FileContent{
		ContentType: file.ContentType,
		Filename:    file.Filename(),
		Size:        file.Size,
	}

	if file.ContentKey == "" {
		result.RedirectURL = file.RedirectURL()
		if result.RedirectURL == "" {
			return nil, domain.ErrAssetFileNotFound
		}
		return result, nil
	}

	if s.content == nil {
		return nil, fmt.Errorf("%w: no content store configured", domain.ErrStorageUnavailable)
	}
	body, err := s.content.Open(ctx, file.ContentKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStorageUnavailable, err)
	}
	result.Body = body
	return result, nil
}
