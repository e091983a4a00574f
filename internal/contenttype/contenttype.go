// Package contenttype maps filename extensions to MIME types and media
// classes for the gallery catalog.
package contenttype

import (
	"path/filepath"
	"strings"
)

// FileType classifies a catalog entry by its extension.
type FileType string

const (
	TypeImage   FileType = "image"
	TypeVideo   FileType = "video"
	TypeUnknown FileType = "unknown"
)

// DefaultMIME is returned for missing or unrecognized extensions.
const DefaultMIME = "application/octet-stream"

var mimeTypes = map[string]string{
	// Images
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"heic": "image/heic",
	"heif": "image/heif",

	// Videos
	"mp4":  "video/mp4",
	"webm": "video/webm",
	"ogg":  "video/ogg",
	"avi":  "video/avi",
	"mov":  "video/quicktime",
	"wmv":  "video/x-ms-wmv",
	"flv":  "video/x-flv",
	"mkv":  "video/x-matroska",
}

var imageExts = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"heic": true, "heif": true, "bmp": true, "tiff": true, "svg": true,
}

var videoExts = map[string]bool{
	"mp4": true, "webm": true, "ogg": true, "avi": true, "mov": true,
	"wmv": true, "flv": true, "mkv": true,
}

// Resolve returns the MIME type for a filename. It always returns a value;
// unrecognized or missing extensions map to DefaultMIME.
func Resolve(filename string) string {
	if mime, ok := mimeTypes[Ext(filename)]; ok {
		return mime
	}
	return DefaultMIME
}

// Classify buckets a filename into image, video or unknown.
func Classify(filename string) FileType {
	ext := Ext(filename)
	switch {
	case imageExts[ext]:
		return TypeImage
	case videoExts[ext]:
		return TypeVideo
	default:
		return TypeUnknown
	}
}

// Ext returns the lower-cased extension of filename without the leading dot.
func Ext(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}

// IsHEIC reports whether the filename carries a HEIC/HEIF extension.
func IsHEIC(filename string) bool {
	ext := Ext(filename)
	return ext == "heic" || ext == "heif"
}

// IsHEICMIME reports whether a MIME type denotes HEIC/HEIF content.
func IsHEICMIME(mime string) bool {
	return mime == "image/heic" || mime == "image/heif"
}
