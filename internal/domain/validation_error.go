package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Request fields validation errors are attributed to
const (
	FieldMetadata      = "metadata"
	FieldContent       = "content"
	FieldBase64Encoded = "base64Encoded"
	FieldDetail        = "detail"
)

// ValidationKind identifies why an attach request was rejected
type ValidationKind string

const (
	KindInvalidMetadataFormat  ValidationKind = "invalid_metadata_format"
	KindAmbiguousContentMethod ValidationKind = "ambiguous_content_method"
	KindMissingContent         ValidationKind = "missing_content"
	KindMissingMetadata        ValidationKind = "missing_metadata"
	KindMissingFilename        ValidationKind = "missing_filename"
	KindMissingRedirectURL     ValidationKind = "missing_redirect_url"
	KindInvalidBase64Content   ValidationKind = "invalid_base64_content"
	KindInvalidRedirectURL     ValidationKind = "invalid_redirect_url"
	KindDisallowedExtension    ValidationKind = "disallowed_extension"
	KindDisallowedMimeType     ValidationKind = "disallowed_mime_type"
	KindDuplicateFilename      ValidationKind = "duplicate_filename"
)

// ValidationError is a terminal, field-attributed rejection of an attach request.
// Template placeholders look like {name} and are filled from Params; rendering
// for end users (translation) happens outside this package.
type ValidationError struct {
	Kind     ValidationKind
	Field    string
	Template string
	Params   map[string]string
}

// Sentinels for errors.Is; only Kind is compared
var (
	ErrInvalidMetadataFormat  = &ValidationError{Kind: KindInvalidMetadataFormat}
	ErrAmbiguousContentMethod = &ValidationError{Kind: KindAmbiguousContentMethod}
	ErrMissingContent         = &ValidationError{Kind: KindMissingContent}
	ErrMissingMetadata        = &ValidationError{Kind: KindMissingMetadata}
	ErrMissingFilename        = &ValidationError{Kind: KindMissingFilename}
	ErrMissingRedirectURL     = &ValidationError{Kind: KindMissingRedirectURL}
	ErrInvalidBase64Content   = &ValidationError{Kind: KindInvalidBase64Content}
	ErrInvalidRedirectURL     = &ValidationError{Kind: KindInvalidRedirectURL}
	ErrDisallowedExtension    = &ValidationError{Kind: KindDisallowedExtension}
	ErrDisallowedMimeType     = &ValidationError{Kind: KindDisallowedMimeType}
	ErrDuplicateFilename      = &ValidationError{Kind: KindDuplicateFilename}
)

// NewValidationError builds a ValidationError
func NewValidationError(kind ValidationKind, field, template string, params map[string]string) *ValidationError {
	return &ValidationError{
		Kind:     kind,
		Field:    field,
		Template: template,
		Params:   params,
	}
}

// Message renders the template with its parameters
func (e *ValidationError) Message() string {
	if len(e.Params) == 0 {
		return e.Template
	}

	keys := make([]string, 0, len(e.Params))
	for k := range e.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", e.Params[k])
	}
	return strings.NewReplacer(pairs...).Replace(e.Template)
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message())
}

// Is matches any ValidationError of the same kind
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Body is the JSON error body returned to clients: {"<field>": "<message>"}
func (e *ValidationError) Body() map[string]string {
	return map[string]string{e.Field: e.Message()}
}

// QuoteList joins values the way messages list them: `a`, `b`
func QuoteList(values []string) string {
	return strings.Join(values, "`, `")
}
