package service

import (
	"mime"
	"net/url"
	"strings"
)

// knownMimeTypes covers the formats attachments are usually sent in. The
// system mime tables differ between hosts, so these are resolved first.
var knownMimeTypes = map[string]string{
	".jpg":     "image/jpeg",
	".jpeg":    "image/jpeg",
	".png":     "image/png",
	".gif":     "image/gif",
	".bmp":     "image/bmp",
	".webp":    "image/webp",
	".svg":     "image/svg+xml",
	".tif":     "image/tiff",
	".tiff":    "image/tiff",
	".mp3":     "audio/mpeg",
	".wav":     "audio/x-wav",
	".ogg":     "audio/ogg",
	".m4a":     "audio/mp4",
	".aac":     "audio/aac",
	".amr":     "audio/amr",
	".mp4":     "video/mp4",
	".mpeg":    "video/mpeg",
	".mov":     "video/quicktime",
	".webm":    "video/webm",
	".3gp":     "video/3gpp",
	".avi":     "video/x-msvideo",
	".csv":     "text/csv",
	".txt":     "text/plain",
	".xml":     "application/xml",
	".zip":     "application/zip",
	".json":    "application/json",
	".geojson": "application/geo+json",
	".kml":     "application/vnd.google-earth.kml+xml",
	".kmz":     "application/vnd.google-earth.kmz",
	".wkt":     "application/wkt",
	".pdf":     "application/pdf",
}

// ExtensionMimeGuesser guesses MIME types from filenames, URLs and data URIs
type ExtensionMimeGuesser struct {
	types map[string]string
}

// NewMimeGuesser creates a guesser seeded with the known attachment types
func NewMimeGuesser() *ExtensionMimeGuesser {
	return &ExtensionMimeGuesser{types: knownMimeTypes}
}

// GuessMimeType returns the MIME type for a name, a URL or a "data:" URI
func (g *ExtensionMimeGuesser) GuessMimeType(nameOrURL string) (string, bool) {
	s := strings.TrimSpace(nameOrURL)
	if s == "" {
		return "", false
	}

	if len(s) > 5 && strings.EqualFold(s[:5], "data:") {
		return dataURIMimeType(s[5:])
	}

	// Query and fragment only exist on absolute URLs; "photo#1.jpg" is a filename
	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		s = u.Path
	}

	ext := fileExtension(s)
	if ext == "" {
		return "", false
	}
	if t, ok := g.types[ext]; ok {
		return t, true
	}
	if t, ok := g.types[strings.ToLower(ext)]; ok {
		return t, true
	}

	t := mime.TypeByExtension(strings.ToLower(ext))
	if t == "" {
		return "", false
	}
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		t = mediaType
	}
	return t, true
}

// dataURIMimeType reads the media type of an RFC 2397 data URI (without "data:")
func dataURIMimeType(rest string) (string, bool) {
	header, _, found := strings.Cut(rest, ",")
	if !found {
		return "", false
	}
	mediaType, _, _ := strings.Cut(header, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	if mediaType == "" {
		return "text/plain", true
	}
	if !strings.Contains(mediaType, "/") {
		return "", false
	}
	return mediaType, true
}

// fileExtension returns the suffix from the last dot of the base name, dot
// included. Leading dots do not start an extension (".bashrc" has none).
func fileExtension(name string) string {
	base := name[strings.LastIndex(name, "/")+1:]
	trimmed := strings.TrimLeft(base, ".")
	i := strings.LastIndex(trimmed, ".")
	if i < 0 {
		return ""
	}
	return trimmed[i:]
}
