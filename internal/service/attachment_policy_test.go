package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mansoorceksport/assetfiles/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyTable_MissingEntrySkipsChecks(t *testing.T) {
	table := DefaultPolicyTable()

	_, ok := table.AllowedExtensions(domain.FileTypeGeneric)
	assert.False(t, ok)
	_, ok = table.AllowedMimeTypePrefixes(domain.FileTypeGeneric)
	assert.False(t, ok)

	// form_media restricts MIME types only
	_, ok = table.AllowedExtensions(domain.FileTypeFormMedia)
	assert.False(t, ok)
	prefixes, ok := table.AllowedMimeTypePrefixes(domain.FileTypeFormMedia)
	assert.True(t, ok)
	assert.Contains(t, prefixes, "image")
}

func TestPolicyTable_EmptyListRejectsEverything(t *testing.T) {
	table := PolicyTable{
		domain.FileTypeGeneric: {AllowedExtensions: []string{}},
	}

	err := checkPolicy(table, NewMimeGuesser(), domain.FileTypeGeneric, "a.csv", domain.ContentMethodBinary)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDisallowedExtension)
}

func TestLoadPolicyTable(t *testing.T) {
	t.Run("defaults without a file", func(t *testing.T) {
		table, err := LoadPolicyTable("")
		require.NoError(t, err)
		assert.Equal(t, DefaultPolicyTable(), table)
	})

	t.Run("from yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
file_types:
  form_media:
    allowed_mime_type_prefixes: [image]
  generic:
    allowed_extensions: [".txt"]
`), 0o600))

		table, err := LoadPolicyTable(path)
		require.NoError(t, err)

		prefixes, ok := table.AllowedMimeTypePrefixes(domain.FileTypeFormMedia)
		assert.True(t, ok)
		assert.Equal(t, []string{"image"}, prefixes)

		exts, ok := table.AllowedExtensions(domain.FileTypeGeneric)
		assert.True(t, ok)
		assert.Equal(t, []string{".txt"}, exts)

		// Types left out of the file are unrestricted
		_, ok = table.AllowedExtensions(domain.FileTypeMediaLayer)
		assert.False(t, ok)
	})

	t.Run("unknown file type", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte("file_types:\n  map_layer: {}\n"), 0o600))

		_, err := LoadPolicyTable(path)
		assert.ErrorIs(t, err, domain.ErrInvalidFileType)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadPolicyTable(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
