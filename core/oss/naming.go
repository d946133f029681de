package oss

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// NameFunc produces the unique part of a stored object name.
type NameFunc func() string

// RandomName returns a dash-less UUIDv4, 32 lowercase hex characters.
func RandomName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// fileSuffix returns the extension of a local file name without the dot.
func fileSuffix(path string) string {
	return strings.TrimPrefix(filepath.Ext(filepath.Base(path)), ".")
}
