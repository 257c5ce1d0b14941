package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOriginalName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		wantErr  error
	}{
		{"image", "photo.jpg", nil},
		{"document", "report.PDF", nil},
		{"webp", "banner.webp", nil},
		{"executable", "setup.exe", ErrUnsupportedType},
		{"script", "run.sh", ErrUnsupportedType},
		{"empty", "", ErrInvalidFilename},
		{"no extension", "photo", ErrInvalidFilename},
		{"only extension", ".png", ErrInvalidFilename},
		{"traversal", "../etc/passwd.txt", ErrPathTraversal},
		{"slash", "a/b.png", ErrPathTraversal},
		{"backslash", `a\b.png`, ErrPathTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOriginalName(tt.filename)
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateContentType(t *testing.T) {
	require.NoError(t, ValidateContentType("image/png"))
	require.NoError(t, ValidateContentType("text/plain; charset=utf-8"))
	require.NoError(t, ValidateContentType("application/pdf"))

	require.ErrorIs(t, ValidateContentType("application/x-msdownload"), ErrUnsupportedType)
	require.ErrorIs(t, ValidateContentType("video/mp4"), ErrUnsupportedType)
	require.ErrorIs(t, ValidateContentType(""), ErrInvalidContentType)
	require.ErrorIs(t, ValidateContentType("not a mime"), ErrInvalidContentType)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "etcpasswd.txt", SanitizeFilename("../etc/passwd.txt"))
	assert.Equal(t, "clean.png", SanitizeFilename("clean.png"))
	assert.Equal(t, "ab.png", SanitizeFilename("a\x00b.png"))
}

func TestEscapeFilename(t *testing.T) {
	assert.Equal(t, `she said \"hi\".png`, EscapeFilename(`she said "hi".png`))
	assert.Equal(t, `back\\slash.png`, EscapeFilename(`back\slash.png`))
}

func TestSizeFormatted(t *testing.T) {
	assert.Equal(t, "0 Bytes", SizeFormatted(0))
	assert.Equal(t, "512.00 Bytes", SizeFormatted(512))
	assert.Equal(t, "1.00 KB", SizeFormatted(1024))
	assert.Equal(t, "1.50 MB", SizeFormatted(1572864))
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("image/png"))
	assert.False(t, IsImage("application/pdf"))
}
