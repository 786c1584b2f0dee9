package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/assetfiles/internal/domain"
)

const (
	assetFileByUIDKeyPrefix = "asset_file:uid:"
	assetFileCacheTTL       = 5 * time.Minute
)

// CachedAssetFileRepository wraps an AssetFileRepository with Redis caching
// of single-file lookups. Duplicate lookups always hit the store.
type CachedAssetFileRepository struct {
	domain.AssetFileRepository
	cache *RedisCacheRepository
}

// NewCachedAssetFileRepository creates a new cached asset file repository
func NewCachedAssetFileRepository(repo domain.AssetFileRepository, cache *RedisCacheRepository) *CachedAssetFileRepository {
	return &CachedAssetFileRepository{
		AssetFileRepository: repo,
		cache:               cache,
	}
}

func assetFileKey(assetUID, uid string) string {
	return assetFileByUIDKeyPrefix + assetUID + ":" + uid
}

// cachedAssetFile carries the fields hidden from the JSON API
type cachedAssetFile struct {
	domain.AssetFile
	ContentKey string `json:"content_key"`
}

// GetByUID retrieves a file with caching
func (r *CachedAssetFileRepository) GetByUID(ctx context.Context, assetUID, uid string) (*domain.AssetFile, error) {
	key := assetFileKey(assetUID, uid)

	// Try cache first
	var cached cachedAssetFile
	if err := r.cache.Get(ctx, key, &cached); err == nil {
		file := cached.AssetFile
		file.ContentKey = cached.ContentKey
		return &file, nil
	}

	result, err := r.AssetFileRepository.GetByUID(ctx, assetUID, uid)
	if err != nil {
		return nil, err
	}

	// Store in cache (ignore cache errors)
	_ = r.cache.Set(ctx, key, cachedAssetFile{AssetFile: *result, ContentKey: result.ContentKey}, assetFileCacheTTL)

	return result, nil
}

// SoftDelete deletes the file and invalidates its cache entry
func (r *CachedAssetFileRepository) SoftDelete(ctx context.Context, assetUID, uid string) error {
	if err := r.AssetFileRepository.SoftDelete(ctx, assetUID, uid); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, assetFileKey(assetUID, uid))
	return nil
}
