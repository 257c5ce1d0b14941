package media

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record describes one stored file. The blob id points into the chunk
// store and is never serialized to clients.
type Record struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"originalName" json:"originalName"`
	URL          string             `bson:"url" json:"url"`
	Size         int64              `bson:"size" json:"size"`
	MimeType     string             `bson:"mimeType" json:"mimeType"`
	Alt          string             `bson:"alt" json:"alt"`
	Caption      string             `bson:"caption" json:"caption"`
	UploadedBy   primitive.ObjectID `bson:"uploadedBy,omitempty" json:"uploadedBy,omitempty"`
	BlobID       string             `bson:"blobId" json:"-"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// IsImage reports whether the record holds an image payload.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(mimeType, "image/")
}

// SizeFormatted renders a byte count in a human readable unit.
func SizeFormatted(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	size := float64(bytes)
	i := 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return fmt.Sprintf("%.2f %s", size, units[i])
}

// FileURL derives the public serving path for a storage filename.
func FileURL(filename string) string {
	return "/media/file/" + filename
}
