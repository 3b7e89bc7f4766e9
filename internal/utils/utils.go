// Package utils provides filename sanitization and unique naming for scratch files.
//
// Functions:
//   - SanitizeFilename: Returns a safe filename for storage.
//   - GenerateUUID: Returns a new UUID string.
//   - ScratchName: Returns a collision-free scratch filename for an upload.
//
// Used by the session and handler packages so concurrent uploads never share a path.
package utils

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const maxFilenameLen = 100

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = ""
	}
	safe := unsafeChars.ReplaceAllString(base, "_")
	if len(safe) > maxFilenameLen {
		safe = safe[:maxFilenameLen]
	}
	if strings.Trim(safe, "._") == "" {
		return "upload.pdf"
	}
	return safe
}

func GenerateUUID() string {
	return uuid.New().String()
}

// ScratchName prefixes the sanitized original name with a fresh UUID.
func ScratchName(original string) string {
	return GenerateUUID() + "-" + SanitizeFilename(original)
}
