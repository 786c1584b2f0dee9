package domain

import (
	"context"
	"io"
	"time"
)

// FileType is the category of an asset file. It selects the policy that
// applies to the attachment.
type FileType string

const (
	FileTypeFormMedia  FileType = "form_media"
	FileTypeMediaLayer FileType = "media_layer"
	FileTypeGeneric    FileType = "generic"
)

// FileTypes lists every accepted category in display order
var FileTypes = []FileType{FileTypeFormMedia, FileTypeMediaLayer, FileTypeGeneric}

// ParseFileType converts a raw request value into a FileType
func ParseFileType(raw string) (FileType, error) {
	for _, ft := range FileTypes {
		if string(ft) == raw {
			return ft, nil
		}
	}
	return "", ErrInvalidFileType
}

// Metadata keys understood by the attachment validator
const (
	MetadataKeyFilename    = "filename"
	MetadataKeyRedirectURL = "redirect_url"
	// MetadataKeyRedirectURLAlias is accepted from clients and folded onto redirect_url
	MetadataKeyRedirectURLAlias = "redirectUrl"
)

// AssetFile is an attachment stored against an asset
type AssetFile struct {
	ID          string                 `json:"-" bson:"_id,omitempty"`
	UID         string                 `json:"uid" bson:"uid"` // ULID
	AssetUID    string                 `json:"asset" bson:"asset_uid"`
	UserID      string                 `json:"user" bson:"user_id"`
	FileType    FileType               `json:"file_type" bson:"file_type"`
	Description string                 `json:"description" bson:"description"`
	Metadata    map[string]interface{} `json:"metadata" bson:"metadata"`
	ContentKey  string                 `json:"-" bson:"content_key,omitempty"` // object key, empty for remote files
	ContentType string                 `json:"content_type" bson:"content_type"`
	Size        int64                  `json:"size" bson:"size"`
	DateCreated time.Time              `json:"date_created" bson:"date_created"`
	DeletedAt   *time.Time             `json:"-" bson:"deleted_at,omitempty"` // Soft delete timestamp
}

// Filename returns the canonical filename stored in metadata
func (f *AssetFile) Filename() string {
	name, _ := f.Metadata[MetadataKeyFilename].(string)
	return name
}

// RedirectURL returns the remote URL for files attached by reference
func (f *AssetFile) RedirectURL() string {
	u, _ := f.Metadata[MetadataKeyRedirectURL].(string)
	return u
}

// AssetFileRepository handles persistence of asset file records
type AssetFileRepository interface {
	Create(ctx context.Context, file *AssetFile) error
	// GetByUID returns a non-deleted file belonging to the asset
	GetByUID(ctx context.Context, assetUID, uid string) (*AssetFile, error)
	// ListByAsset returns non-deleted files, optionally filtered by type (empty = all)
	ListByAsset(ctx context.Context, assetUID string, fileType FileType) ([]*AssetFile, error)
	// SoftDelete sets deleted_at instead of removing the record
	SoftDelete(ctx context.Context, assetUID, uid string) error
	DuplicateChecker
}

// ContentRepository stores and serves the bytes of uploaded files
type ContentRepository interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CreateAssetFileInput carries a parsed attach request
type CreateAssetFileInput struct {
	AssetUID    string
	UserID      string
	Description string
	Request     *AttachmentRequest
}

// FileContent is what the content endpoint serves: either a redirect or a stream
type FileContent struct {
	RedirectURL string
	ContentType string
	Filename    string
	Size        int64
	Body        io.ReadCloser
}

// AssetFileService defines the business logic around asset files
type AssetFileService interface {
	Create(ctx context.Context, input CreateAssetFileInput) (*AssetFile, error)
	Get(ctx context.Context, assetUID, uid string) (*AssetFile, error)
	List(ctx context.Context, assetUID string, fileType FileType) ([]*AssetFile, error)
	Delete(ctx context.Context, assetUID, uid string) error
	Content(ctx context.Context, assetUID, uid string) (*FileContent, error)
}
