package service

import (
	"fmt"
	"strings"

	"github.com/mansoorceksport/assetfiles/internal/config"
	"github.com/mansoorceksport/assetfiles/internal/domain"
)

// Policy restricts the files accepted for one category. A nil list means the
// corresponding check does not run.
type Policy struct {
	AllowedExtensions       []string
	AllowedMimeTypePrefixes []string
}

// PolicyTable implements domain.PolicyProvider. Categories without an entry are unrestricted.
type PolicyTable map[domain.FileType]Policy

// DefaultPolicyTable is used when no policy file is configured
func DefaultPolicyTable() PolicyTable {
	return PolicyTable{
		domain.FileTypeFormMedia: {
			AllowedMimeTypePrefixes: []string{
				"image",
				"audio",
				"video",
				"text/csv",
				"application/xml",
				"application/zip",
			},
		},
		domain.FileTypeMediaLayer: {
			AllowedExtensions: []string{".csv", ".geojson", ".kml", ".kmz", ".wkt", ".json"},
			AllowedMimeTypePrefixes: []string{
				"text/csv",
				"application/geo+json",
				"application/vnd.google-earth.kml+xml",
				"application/vnd.google-earth.kmz",
				"application/wkt",
				"application/json",
			},
		},
	}
}

// LoadPolicyTable reads the YAML policy file, or returns the defaults when path is empty
func LoadPolicyTable(path string) (PolicyTable, error) {
	if path == "" {
		return DefaultPolicyTable(), nil
	}

	pf, err := config.LoadPolicyFile(path)
	if err != nil {
		return nil, err
	}

	table := PolicyTable{}
	for name, entry := range pf.FileTypes {
		fileType, err := domain.ParseFileType(name)
		if err != nil {
			return nil, fmt.Errorf("policy file: %w: %q", err, name)
		}
		table[fileType] = Policy{
			AllowedExtensions:       entry.AllowedExtensions,
			AllowedMimeTypePrefixes: entry.AllowedMimeTypePrefixes,
		}
	}
	return table, nil
}

func (t PolicyTable) AllowedExtensions(fileType domain.FileType) ([]string, bool) {
	p, ok := t[fileType]
	if !ok || p.AllowedExtensions == nil {
		return nil, false
	}
	return p.AllowedExtensions, true
}

func (t PolicyTable) AllowedMimeTypePrefixes(fileType domain.FileType) ([]string, bool) {
	p, ok := t[fileType]
	if !ok || p.AllowedMimeTypePrefixes == nil {
		return nil, false
	}
	return p.AllowedMimeTypePrefixes, true
}

// checkPolicy runs the extension check, then the MIME check. The first failure wins.
func checkPolicy(policies domain.PolicyProvider, guesser domain.MimeGuesser, fileType domain.FileType, filename string, method domain.ContentMethod) error {
	if allowed, ok := policies.AllowedExtensions(fileType); ok {
		ext := fileExtension(filename)
		if !containsString(allowed, ext) {
			return formatError(method, domain.KindDisallowedExtension,
				"Only `{extensions}` extensions are allowed",
				map[string]string{"extensions": domain.QuoteList(allowed)})
		}
	}

	if prefixes, ok := policies.AllowedMimeTypePrefixes(fileType); ok {
		mimeType, found := guesser.GuessMimeType(filename)
		if !found || !hasAnyPrefix(mimeType, prefixes) {
			return formatError(method, domain.KindDisallowedMimeType,
				"Only `{mime_types}` MIME types are allowed",
				map[string]string{"mime_types": domain.QuoteList(prefixes)})
		}
	}

	return nil
}

// formatError attributes a policy error to the field the content came from.
// Remote URLs live inside metadata, so the message names redirect_url.
func formatError(method domain.ContentMethod, kind domain.ValidationKind, template string, params map[string]string) *domain.ValidationError {
	if method == domain.ContentMethodRedirect {
		template = "`redirect_url`: " + template
	}
	return domain.NewValidationError(kind, method.Field(), template, params)
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
