package media

import (
	"context"
	"errors"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrBlobNotFound = errors.New("blob not found")

// BlobMeta mirrors the descriptive fields next to the raw chunks. It is
// kept for redundancy and debugging; the record collection stays
// authoritative.
type BlobMeta struct {
	OriginalName string
	MimeType     string
	Alt          string
	Caption      string
	UploadedBy   string
}

// BlobInfo is the low-level view the store keeps of a blob.
type BlobInfo struct {
	Length     int64     `json:"length"`
	ChunkSize  int32     `json:"chunkSize,omitempty"`
	UploadDate time.Time `json:"uploadDate"`
}

// WriteHandle accepts bytes for one blob. Commit yields the blob id once
// the store has acknowledged the full write; Abort discards any chunks
// written so far. A handle must not be shared between writers.
type WriteHandle interface {
	io.Writer
	Commit() (blobID string, err error)
	Abort() error
}

// ChunkStore is the blob backend. Concurrent reads of one blob are safe;
// concurrent writes to one key are not supported.
type ChunkStore interface {
	OpenWrite(ctx context.Context, key string, meta BlobMeta) (WriteHandle, error)
	OpenRead(ctx context.Context, blobID string) (io.ReadCloser, error)
	Stat(ctx context.Context, blobID string) (BlobInfo, error)
	Delete(ctx context.Context, blobID string) error
}

type gridFSStore struct {
	bucket *gridfs.Bucket
}

// NewGridFSStore opens a chunk store over a GridFS bucket of the given
// database.
func NewGridFSStore(db *mongo.Database, bucketName string) (ChunkStore, error) {
	bucket, err := gridfs.NewBucket(db, options.GridFSBucket().SetName(bucketName))
	if err != nil {
		return nil, err
	}
	return &gridFSStore{bucket: bucket}, nil
}

func (s *gridFSStore) OpenWrite(ctx context.Context, key string, meta BlobMeta) (WriteHandle, error) {
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"originalName": meta.OriginalName,
		"mimeType":     meta.MimeType,
		"alt":          meta.Alt,
		"caption":      meta.Caption,
		"uploadedBy":   meta.UploadedBy,
	})

	stream, err := s.bucket.OpenUploadStream(key, opts)
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetWriteDeadline(deadline)
	}
	return &gridFSWriteHandle{stream: stream}, nil
}

type gridFSWriteHandle struct {
	stream *gridfs.UploadStream
}

func (h *gridFSWriteHandle) Write(p []byte) (int, error) {
	return h.stream.Write(p)
}

func (h *gridFSWriteHandle) Commit() (string, error) {
	if err := h.stream.Close(); err != nil {
		return "", err
	}
	id, ok := h.stream.FileID.(primitive.ObjectID)
	if !ok {
		return "", errors.New("unexpected gridfs file id type")
	}
	return id.Hex(), nil
}

func (h *gridFSWriteHandle) Abort() error {
	return h.stream.Abort()
}

func (s *gridFSStore) OpenRead(ctx context.Context, blobID string) (io.ReadCloser, error) {
	id, err := primitive.ObjectIDFromHex(blobID)
	if err != nil {
		return nil, ErrBlobNotFound
	}

	stream, err := s.bucket.OpenDownloadStream(id)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = stream.SetReadDeadline(deadline)
	}
	return stream, nil
}

func (s *gridFSStore) Stat(ctx context.Context, blobID string) (BlobInfo, error) {
	id, err := primitive.ObjectIDFromHex(blobID)
	if err != nil {
		return BlobInfo{}, ErrBlobNotFound
	}

	cur, err := s.bucket.Find(bson.M{"_id": id})
	if err != nil {
		return BlobInfo{}, err
	}
	defer cur.Close(ctx)

	var file struct {
		Length     int64     `bson:"length"`
		ChunkSize  int32     `bson:"chunkSize"`
		UploadDate time.Time `bson:"uploadDate"`
	}
	if !cur.Next(ctx) {
		if err := cur.Err(); err != nil {
			return BlobInfo{}, err
		}
		return BlobInfo{}, ErrBlobNotFound
	}
	if err := cur.Decode(&file); err != nil {
		return BlobInfo{}, err
	}

	return BlobInfo{
		Length:     file.Length,
		ChunkSize:  file.ChunkSize,
		UploadDate: file.UploadDate,
	}, nil
}

func (s *gridFSStore) Delete(ctx context.Context, blobID string) error {
	id, err := primitive.ObjectIDFromHex(blobID)
	if err != nil {
		return ErrBlobNotFound
	}
	if err := s.bucket.Delete(id); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return ErrBlobNotFound
		}
		return err
	}
	return nil
}
