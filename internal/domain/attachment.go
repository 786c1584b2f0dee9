package domain

import "context"

// UploadedContent is a binary upload together with the filename it was sent with
type UploadedContent struct {
	Filename string
	Data     []byte
}

// AttachmentRequest holds the already-parsed attributes of an attach request.
// Metadata may be nil, a map[string]interface{}, a JSON string, or raw JSON bytes.
type AttachmentRequest struct {
	FileType      FileType
	Content       *UploadedContent
	Base64Encoded *string
	Metadata      interface{}
}

// ContentMethod names the way a client supplied the file content
type ContentMethod string

const (
	ContentMethodBinary   ContentMethod = "content"
	ContentMethodBase64   ContentMethod = "base64Encoded"
	ContentMethodRedirect ContentMethod = "redirect_url"
)

// Field returns the request field errors about this method are reported on.
// The remote URL lives inside metadata.
func (m ContentMethod) Field() string {
	if m == ContentMethodRedirect {
		return FieldMetadata
	}
	return string(m)
}

// ContentShape is one of BinaryShape, Base64Shape or RedirectShape
type ContentShape interface {
	Method() ContentMethod
}

// BinaryShape is a raw file upload. Content is nil when the client sent nothing.
type BinaryShape struct {
	Content *UploadedContent
}

// Base64Shape is a payload embedded in the request body, e.g. "data:image/png;base64,..."
type Base64Shape struct {
	Encoded string
}

// RedirectShape references a remote file; the URL is fetched elsewhere
type RedirectShape struct {
	URL interface{}
}

func (BinaryShape) Method() ContentMethod   { return ContentMethodBinary }
func (Base64Shape) Method() ContentMethod   { return ContentMethodBase64 }
func (RedirectShape) Method() ContentMethod { return ContentMethodRedirect }

// AttachmentDescriptor is the normalized result of a successful validation
type AttachmentDescriptor struct {
	FileType    FileType
	Method      ContentMethod
	Filename    string
	Content     []byte // nil for remote files
	RedirectURL string
	ContentType string
	Metadata    map[string]interface{}
}

// DuplicateChecker looks for existing, non-deleted attachments
type DuplicateChecker interface {
	ExistsDuplicate(ctx context.Context, assetUID, filename string, fileType FileType) (bool, error)
}

// PolicyProvider returns the per-category restrictions. The boolean is false
// when the category has no restriction of that kind; the check is then skipped.
type PolicyProvider interface {
	AllowedExtensions(fileType FileType) ([]string, bool)
	AllowedMimeTypePrefixes(fileType FileType) ([]string, bool)
}

// MimeGuesser maps a filename or URL to a MIME type
type MimeGuesser interface {
	GuessMimeType(nameOrURL string) (string, bool)
}

// AttachmentValidator turns an AttachmentRequest into a descriptor or a single ValidationError
type AttachmentValidator interface {
	Validate(ctx context.Context, assetUID string, req *AttachmentRequest) (*AttachmentDescriptor, error)
}
