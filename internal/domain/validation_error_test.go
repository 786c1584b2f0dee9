package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "no params",
			err:  NewValidationError(KindMissingContent, FieldContent, "No files have been submitted", nil),
			want: "No files have been submitted",
		},
		{
			name: "single param",
			err: NewValidationError(KindDisallowedExtension, FieldContent, "Only `{extensions}` extensions are allowed",
				map[string]string{"extensions": QuoteList([]string{".csv", ".kml"})}),
			want: "Only `.csv`, `.kml` extensions are allowed",
		},
		{
			name: "unknown placeholder left alone",
			err:  NewValidationError(KindDisallowedMimeType, FieldContent, "{a} and {b}", map[string]string{"a": "x"}),
			want: "x and {b}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Message())
		})
	}
}

func TestValidationError_Is(t *testing.T) {
	err := NewValidationError(KindDuplicateFilename, FieldContent, "File already exists", nil)
	wrapped := fmt.Errorf("create: %w", err)

	assert.True(t, errors.Is(wrapped, ErrDuplicateFilename))
	assert.False(t, errors.Is(wrapped, ErrMissingFilename))
	assert.False(t, errors.Is(wrapped, ErrStorageUnavailable))

	var verr *ValidationError
	assert.True(t, errors.As(wrapped, &verr))
	assert.Equal(t, FieldContent, verr.Field)
}

func TestValidationError_Body(t *testing.T) {
	err := NewValidationError(KindMissingRedirectURL, FieldMetadata, "`redirect_url` is required", nil)

	assert.Equal(t, map[string]string{"metadata": "`redirect_url` is required"}, err.Body())
	assert.Equal(t, "metadata: `redirect_url` is required", err.Error())
}

func TestContentMethod_Field(t *testing.T) {
	assert.Equal(t, FieldContent, ContentMethodBinary.Field())
	assert.Equal(t, FieldBase64Encoded, ContentMethodBase64.Field())
	assert.Equal(t, FieldMetadata, ContentMethodRedirect.Field())
}

func TestParseFileType(t *testing.T) {
	for _, ft := range FileTypes {
		got, err := ParseFileType(string(ft))
		assert.NoError(t, err)
		assert.Equal(t, ft, got)
	}

	_, err := ParseFileType("map_layer")
	assert.ErrorIs(t, err, ErrInvalidFileType)
}

func TestAssetFile_Accessors(t *testing.T) {
	f := &AssetFile{Metadata: map[string]interface{}{
		"filename":     "a.jpg",
		"redirect_url": "https://example.com/a.jpg",
	}}
	assert.Equal(t, "a.jpg", f.Filename())
	assert.Equal(t, "https://example.com/a.jpg", f.RedirectURL())

	empty := &AssetFile{}
	assert.Empty(t, empty.Filename())
	assert.Empty(t, empty.RedirectURL())
}
