package service

import (
	"bytes"
	"encoding/json"

	"github.com/mansoorceksport/assetfiles/internal/domain"
)

// NormalizeMetadata turns the raw metadata attribute into a fresh mapping.
// Clients may send metadata as a JSON object or as a stringified JSON object;
// this is the only place that knows about both forms.
func NormalizeMetadata(raw interface{}) (map[string]interface{}, error) {
	var metadata map[string]interface{}

	switch v := raw.(type) {
	case nil:
		metadata = map[string]interface{}{}
	case map[string]interface{}:
		metadata = make(map[string]interface{}, len(v))
		for k, val := range v {
			metadata[k] = val
		}
	case map[string]string:
		metadata = make(map[string]interface{}, len(v))
		for k, val := range v {
			metadata[k] = val
		}
	case string:
		parsed, err := parseMetadataJSON([]byte(v))
		if err != nil {
			return nil, err
		}
		metadata = parsed
	case json.RawMessage:
		parsed, err := parseRawMetadata(v)
		if err != nil {
			return nil, err
		}
		metadata = parsed
	case []byte:
		parsed, err := parseRawMetadata(v)
		if err != nil {
			return nil, err
		}
		metadata = parsed
	default:
		return nil, invalidMetadataFormat()
	}

	if alias, ok := metadata[domain.MetadataKeyRedirectURLAlias]; ok {
		if _, exists := metadata[domain.MetadataKeyRedirectURL]; !exists {
			metadata[domain.MetadataKeyRedirectURL] = alias
		}
		delete(metadata, domain.MetadataKeyRedirectURLAlias)
	}

	return metadata, nil
}

// parseRawMetadata handles a JSON value taken verbatim from a request body:
// either an object or a string holding a stringified object.
func parseRawMetadata(raw []byte) (map[string]interface{}, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, invalidMetadataFormat()
		}
		return parseMetadataJSON([]byte(s))
	}
	return parseMetadataJSON(trimmed)
}

func parseMetadataJSON(data []byte) (map[string]interface{}, error) {
	var metadata map[string]interface{}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return nil, invalidMetadataFormat()
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return metadata, nil
}

func invalidMetadataFormat() error {
	return domain.NewValidationError(domain.KindInvalidMetadataFormat, domain.FieldMetadata, "JSON is invalid", nil)
}

// SelectShape decides which single content shape the client used. Binary is
// the fallback when nothing was supplied so that the missing content is
// reported by the binary extractor rather than as an ambiguity.
func SelectShape(req *domain.AttachmentRequest, metadata map[string]interface{}) (domain.ContentShape, error) {
	var shapes []domain.ContentShape

	if u, ok := metadata[domain.MetadataKeyRedirectURL]; ok {
		shapes = append(shapes, domain.RedirectShape{URL: u})
	}
	if req.Base64Encoded != nil {
		shapes = append(shapes, domain.Base64Shape{Encoded: *req.Base64Encoded})
	}
	if req.Content != nil || len(shapes) == 0 {
		shapes = append(shapes, domain.BinaryShape{Content: req.Content})
	}

	if len(shapes) == 1 {
		return shapes[0], nil
	}

	return nil, domain.NewValidationError(
		domain.KindAmbiguousContentMethod,
		domain.FieldDetail,
		"You cannot upload a media file in two different ways at the same time. "+
			"Please choose between binary upload, base64 or remote URL.",
		nil,
	)
}
