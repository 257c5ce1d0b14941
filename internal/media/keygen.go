package media

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateFilename produces the storage filename for an upload:
// millisecond timestamp, a uuid-derived random suffix, and the original
// extension. The suffix carries enough entropy that collisions are not
// retried; a duplicate-key insert is treated as a hard failure of that
// upload.
func GenerateFilename(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("%d-%s%s", time.Now().UnixMilli(), suffix, ext)
}
