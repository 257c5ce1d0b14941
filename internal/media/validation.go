package media

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Images and documents the CMS accepts for upload.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
}

var allowedMimeTypes = map[string]bool{
	"image/jpeg":         true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain": true,
}

var (
	ErrInvalidFilename    = errors.New("invalid filename")
	ErrUnsupportedType    = errors.New("file type not allowed")
	ErrPathTraversal      = errors.New("path traversal detected")
	ErrInvalidContentType = errors.New("content type required")
)

// ValidateOriginalName checks the client-supplied name for safety and an
// allow-listed extension.
func ValidateOriginalName(filename string) error {
	if filename == "" {
		return ErrInvalidFilename
	}

	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return ErrPathTraversal
	}

	if len(filename) > 255 {
		return ErrInvalidFilename
	}

	if !utf8.ValidString(filename) {
		return ErrInvalidFilename
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ErrInvalidFilename
	}
	if !allowedExtensions[ext] {
		return ErrUnsupportedType
	}

	if len(strings.TrimSuffix(filename, ext)) == 0 {
		return ErrInvalidFilename
	}

	return nil
}

// ValidateContentType checks the declared MIME type against the allow-list.
func ValidateContentType(contentType string) error {
	if contentType == "" {
		return ErrInvalidContentType
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ErrInvalidContentType
	}

	if !allowedMimeTypes[mediaType] {
		return ErrUnsupportedType
	}

	return nil
}

// SanitizeFilename strips path separators and control characters from a
// client-supplied name.
func SanitizeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, "..", "")
	filename = strings.ReplaceAll(filename, "/", "")
	filename = strings.ReplaceAll(filename, "\\", "")

	var builder strings.Builder
	for _, r := range filename {
		if r >= 32 && r != 127 {
			builder.WriteRune(r)
		}
	}

	return builder.String()
}

// EscapeFilename escapes a name for use inside a quoted HTTP header value.
func EscapeFilename(filename string) string {
	filename = strings.ReplaceAll(filename, `\`, `\\`)
	filename = strings.ReplaceAll(filename, `"`, `\"`)
	return filename
}
