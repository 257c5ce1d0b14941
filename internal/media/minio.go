package media

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type minioStore struct {
	client     *minio.Client
	bucketName string
}

// NewMinioStore opens a chunk store backed by a MinIO bucket. Object
// stores do not expose chunking, so Stat reports no chunk size.
func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (ChunkStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	exists, errBucket := client.BucketExists(ctx, bucket)
	if errBucket != nil {
		return nil, errBucket
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return &minioStore{client: client, bucketName: bucket}, nil
}

func (s *minioStore) OpenWrite(ctx context.Context, key string, meta BlobMeta) (WriteHandle, error) {
	objectKey := "media/" + key
	pr, pw := io.Pipe()

	handle := &minioWriteHandle{
		pw:   pw,
		key:  objectKey,
		done: make(chan error, 1),
	}

	go func() {
		_, err := s.client.PutObject(ctx, s.bucketName, objectKey, pr, -1, minio.PutObjectOptions{
			ContentType: meta.MimeType,
			UserMetadata: map[string]string{
				"originalName": meta.OriginalName,
				"alt":          meta.Alt,
				"caption":      meta.Caption,
				"uploadedBy":   meta.UploadedBy,
			},
		})
		if err != nil {
			// Unblock a writer stuck in Write.
			_ = pr.CloseWithError(err)
		}
		handle.done <- err
	}()

	return handle, nil
}

type minioWriteHandle struct {
	pw   *io.PipeWriter
	key  string
	done chan error
}

func (h *minioWriteHandle) Write(p []byte) (int, error) {
	return h.pw.Write(p)
}

func (h *minioWriteHandle) Commit() (string, error) {
	if err := h.pw.Close(); err != nil {
		return "", err
	}
	if err := <-h.done; err != nil {
		return "", err
	}
	return h.key, nil
}

func (h *minioWriteHandle) Abort() error {
	_ = h.pw.CloseWithError(io.ErrClosedPipe)
	<-h.done
	return nil
}

func (s *minioStore) OpenRead(ctx context.Context, blobID string) (io.ReadCloser, error) {
	// GetObject is lazy, so stat first to surface missing objects here.
	if _, err := s.statObject(ctx, blobID); err != nil {
		return nil, err
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, blobID, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (s *minioStore) Stat(ctx context.Context, blobID string) (BlobInfo, error) {
	info, err := s.statObject(ctx, blobID)
	if err != nil {
		return BlobInfo{}, err
	}
	return BlobInfo{
		Length:     info.Size,
		UploadDate: info.LastModified,
	}, nil
}

func (s *minioStore) Delete(ctx context.Context, blobID string) error {
	// RemoveObject succeeds on absent keys, so probe first to keep the
	// not-found contract.
	if _, err := s.statObject(ctx, blobID); err != nil {
		return err
	}
	return s.client.RemoveObject(ctx, s.bucketName, blobID, minio.RemoveObjectOptions{})
}

func (s *minioStore) statObject(ctx context.Context, key string) (minio.ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			return minio.ObjectInfo{}, ErrBlobNotFound
		}
		return minio.ObjectInfo{}, err
	}
	return info, nil
}
