package oss

import (
	"mime"
	"path/filepath"
	"strings"
)

// Content types used when storing objects.
const (
	ContentTypeJSON        = "application/json"
	ContentTypeXML         = "application/xml"
	ContentTypeHTML        = "text/html"
	ContentTypePlain       = "text/plain"
	ContentTypeJPEG        = "image/jpeg"
	ContentTypePNG         = "image/png"
	ContentTypeOctetStream = "application/octet-stream"
	ContentTypePDF         = "application/pdf"
)

// ContentTypeFor guesses the MIME type from the extension of name, falling back
// to application/octet-stream.
func ContentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ContentTypeOctetStream
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return ContentTypeOctetStream
}
