package service

import (
	"encoding/base64"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/mansoorceksport/assetfiles/internal/domain"
)

const base64Marker = "base64"

var (
	hostLabelPattern = regexp.MustCompile(`^[\p{L}\p{N}]([\p{L}\p{N}-]{0,61}[\p{L}\p{N}])?$`)
	tldPattern       = regexp.MustCompile(`^(\p{L}{2,63}|xn--[a-z0-9]{1,59})$`)

	allowedURLSchemes = map[string]bool{"http": true, "https": true, "ftp": true, "ftps": true}
)

// extracted is what a shape extractor hands to the policy checks
type extracted struct {
	filename    string
	content     []byte
	redirectURL string
}

// extractBinary takes the filename from the upload itself; it overrides
// whatever filename the metadata carried.
func extractBinary(shape domain.BinaryShape, metadata map[string]interface{}) (*extracted, error) {
	if shape.Content == nil {
		return nil, domain.NewValidationError(domain.KindMissingContent, domain.FieldContent, "No files have been submitted", nil)
	}
	if shape.Content.Filename == "" {
		return nil, domain.NewValidationError(domain.KindMissingFilename, domain.FieldContent, "`filename` is required", nil)
	}

	metadata[domain.MetadataKeyFilename] = shape.Content.Filename

	data := make([]byte, len(shape.Content.Data))
	copy(data, shape.Content.Data)

	return &extracted{filename: shape.Content.Filename, content: data}, nil
}

// extractBase64 decodes a "<mime>;base64,<payload>" string. The filename
// cannot be derived from the payload and must come from metadata.
func extractBase64(shape domain.Base64Shape, metadata map[string]interface{}) (*extracted, error) {
	filename, err := requireMetadata(metadata)
	if err != nil {
		return nil, err
	}

	payload, ok := base64Payload(shape.Encoded)
	if !ok {
		return nil, invalidBase64Content()
	}

	data, err := base64.StdEncoding.DecodeString(stripASCIISpace(payload))
	if err != nil {
		return nil, invalidBase64Content()
	}

	return &extracted{filename: filename, content: data}, nil
}

// base64Payload returns everything after the "base64," marker. A marker that
// is not followed by a comma is rejected instead of slicing at a guess.
func base64Payload(encoded string) (string, bool) {
	idx := strings.Index(encoded, base64Marker)
	if idx < 0 {
		return "", false
	}
	sep := idx + len(base64Marker)
	if sep >= len(encoded) || encoded[sep] != ',' {
		return "", false
	}
	return encoded[sep+1:], true
}

func stripASCIISpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, s)
}

func invalidBase64Content() error {
	return domain.NewValidationError(domain.KindInvalidBase64Content, domain.FieldBase64Encoded, "Invalid content", nil)
}

// extractRedirect validates the remote URL syntax only; fetching is done elsewhere.
func extractRedirect(metadata map[string]interface{}) (*extracted, error) {
	raw, ok := metadata[domain.MetadataKeyRedirectURL]
	if !ok {
		return nil, domain.NewValidationError(domain.KindMissingRedirectURL, domain.FieldMetadata, "`redirect_url` is required", nil)
	}
	redirectURL, ok := raw.(string)
	if !ok {
		return nil, invalidRedirectURL()
	}

	if _, supplied := metadata[domain.MetadataKeyFilename]; !supplied {
		if name := filenameFromURL(redirectURL); name != "" {
			metadata[domain.MetadataKeyFilename] = name
		}
	}

	filename, err := requireMetadata(metadata)
	if err != nil {
		return nil, err
	}

	if !isValidRedirectURL(redirectURL) {
		return nil, invalidRedirectURL()
	}

	return &extracted{filename: filename, redirectURL: redirectURL}, nil
}

func invalidRedirectURL() error {
	return domain.NewValidationError(domain.KindInvalidRedirectURL, domain.FieldMetadata, "`redirect_url` is invalid", nil)
}

// requireMetadata is shared by the base64 and redirect extractors
func requireMetadata(metadata map[string]interface{}) (string, error) {
	if len(metadata) == 0 {
		return "", domain.NewValidationError(domain.KindMissingMetadata, domain.FieldMetadata, "This field is required", nil)
	}
	filename, ok := metadata[domain.MetadataKeyFilename].(string)
	if !ok || filename == "" {
		return "", domain.NewValidationError(domain.KindMissingFilename, domain.FieldMetadata, "`filename` is required", nil)
	}
	return filename, nil
}

// filenameFromURL returns the last path segment, ignoring query and fragment
func filenameFromURL(raw string) string {
	p := raw
	if u, err := url.Parse(raw); err == nil {
		p = u.Path
	} else {
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		if unescaped, err := url.PathUnescape(p); err == nil {
			p = unescaped
		}
	}
	return p[strings.LastIndex(p, "/")+1:]
}

// isValidRedirectURL accepts absolute http(s)/ftp(s) URLs with a real host
func isValidRedirectURL(raw string) bool {
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Opaque != "" {
		return false
	}
	if !allowedURLSchemes[strings.ToLower(u.Scheme)] {
		return false
	}

	host := u.Hostname()
	if host == "" {
		return false
	}
	if net.ParseIP(host) != nil || strings.EqualFold(host, "localhost") {
		return true
	}

	labels := strings.Split(strings.TrimSuffix(strings.ToLower(host), "."), ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !hostLabelPattern.MatchString(label) {
			return false
		}
	}
	return tldPattern.MatchString(labels[len(labels)-1])
}
