package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/Yonsn76/api-zoomTV/internal/users"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleAuthor Role = "author"
)

// Principal is the authenticated actor supplied by the auth collaborator.
type Principal struct {
	UserID string
	Role   Role
}

var (
	ErrForbidden    = errors.New("forbidden")
	ErrFileTooLarge = errors.New("file too large")
	ErrEmptyContent = errors.New("file content required")
	ErrStoreWrite   = errors.New("blob store write failed")
	ErrStoreRead    = errors.New("blob store read failed")
)

// UploadInput is one file payload. Size is the declared length in bytes;
// it is checked against the limit before any store I/O and against the
// bytes actually written after.
type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64
	Content      io.Reader
	Alt          string
	Caption      string
	UploadedBy   string
}

// UploadOutcome reports one file of a batch. Exactly one of Record and
// Err is meaningful.
type UploadOutcome struct {
	OriginalName string
	Record       Record
	Err          error
}

// FileInfo joins a record with uploader identity and store diagnostics.
// Uploader and Blob are nil when the respective lookup found nothing.
type FileInfo struct {
	Record   Record
	Uploader *users.User
	Blob     *BlobInfo
}

type Service interface {
	Upload(ctx context.Context, input UploadInput) (Record, error)
	UploadBatch(ctx context.Context, inputs []UploadInput) []UploadOutcome
	List(ctx context.Context, query ListQuery) (ListResult, error)
	Meta(ctx context.Context, filename string) (Record, error)
	Info(ctx context.Context, filename string) (FileInfo, error)
	Serve(ctx context.Context, filename string) (Record, io.ReadCloser, error)
	Update(ctx context.Context, filename string, update DetailsUpdate, requester Principal) (Record, error)
	Delete(ctx context.Context, filename string, requester Principal) error
}

type service struct {
	repo    Repository
	store   ChunkStore
	users   users.Directory
	maxSize int64
	logger  *zap.Logger
}

func NewService(repo Repository, store ChunkStore, directory users.Directory, maxSize int64, logger *zap.Logger) Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &service{
		repo:    repo,
		store:   store,
		users:   directory,
		maxSize: maxSize,
		logger:  logger,
	}
}

func (s *service) Upload(ctx context.Context, input UploadInput) (Record, error) {
	input.OriginalName = SanitizeFilename(input.OriginalName)
	if err := s.validate(input); err != nil {
		return Record{}, err
	}

	filename := GenerateFilename(input.OriginalName)

	handle, err := s.store.OpenWrite(ctx, filename, BlobMeta{
		OriginalName: input.OriginalName,
		MimeType:     input.ContentType,
		Alt:          input.Alt,
		Caption:      input.Caption,
		UploadedBy:   input.UploadedBy,
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	written, err := io.Copy(handle, io.LimitReader(input.Content, s.maxSize+1))
	if err != nil {
		s.abort(handle, filename)
		return Record{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}
	if written > s.maxSize {
		s.abort(handle, filename)
		return Record{}, ErrFileTooLarge
	}
	if written == 0 {
		s.abort(handle, filename)
		return Record{}, ErrEmptyContent
	}
	if input.Size > 0 && written != input.Size {
		s.abort(handle, filename)
		return Record{}, fmt.Errorf("%w: wrote %d of %d declared bytes", ErrStoreWrite, written, input.Size)
	}

	blobID, err := handle.Commit()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	record := Record{
		Filename:     filename,
		OriginalName: input.OriginalName,
		URL:          FileURL(filename),
		Size:         written,
		MimeType:     input.ContentType,
		Alt:          input.Alt,
		Caption:      input.Caption,
		BlobID:       blobID,
		IsActive:     true,
	}
	if input.UploadedBy != "" {
		if ownerID, err := primitive.ObjectIDFromHex(input.UploadedBy); err == nil {
			record.UploadedBy = ownerID
		}
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		// The blob is committed but unreferenced; remove it so the
		// failed upload leaves nothing behind.
		s.deleteBlobBestEffort(blobID, filename)
		if errors.Is(err, ErrDuplicateFilename) {
			return Record{}, fmt.Errorf("%w: %v", ErrStoreWrite, err)
		}
		return Record{}, err
	}

	return created, nil
}

// UploadBatch processes files independently and sequentially. One file's
// failure does not roll back previously committed siblings.
func (s *service) UploadBatch(ctx context.Context, inputs []UploadInput) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(inputs))
	for _, input := range inputs {
		record, err := s.Upload(ctx, input)
		outcomes = append(outcomes, UploadOutcome{
			OriginalName: input.OriginalName,
			Record:       record,
			Err:          err,
		})
	}
	return outcomes
}

func (s *service) List(ctx context.Context, query ListQuery) (ListResult, error) {
	return s.repo.List(ctx, query)
}

func (s *service) Meta(ctx context.Context, filename string) (Record, error) {
	return s.repo.FindByFilename(ctx, filename, true)
}

func (s *service) Info(ctx context.Context, filename string) (FileInfo, error) {
	record, err := s.repo.FindByFilename(ctx, filename, true)
	if err != nil {
		return FileInfo{}, err
	}

	info := FileInfo{Record: record}

	if s.users != nil && !record.UploadedBy.IsZero() {
		if user, err := s.users.FindByID(ctx, record.UploadedBy.Hex()); err == nil {
			info.Uploader = &user
		} else if !errors.Is(err, users.ErrNotFound) {
			return FileInfo{}, err
		}
	}

	if blob, err := s.store.Stat(ctx, record.BlobID); err == nil {
		info.Blob = &blob
	} else if !errors.Is(err, ErrBlobNotFound) {
		return FileInfo{}, err
	}

	return info, nil
}

func (s *service) Serve(ctx context.Context, filename string) (Record, io.ReadCloser, error) {
	record, err := s.repo.FindByFilename(ctx, filename, true)
	if err != nil {
		return Record{}, nil, err
	}

	stream, err := s.store.OpenRead(ctx, record.BlobID)
	if err != nil {
		if errors.Is(err, ErrBlobNotFound) {
			s.logger.Warn("record points at a missing blob",
				zap.String("filename", record.Filename),
				zap.String("blobId", record.BlobID))
			return Record{}, nil, err
		}
		return Record{}, nil, fmt.Errorf("%w: %v", ErrStoreRead, err)
	}

	return record, stream, nil
}

func (s *service) Update(ctx context.Context, filename string, update DetailsUpdate, requester Principal) (Record, error) {
	record, err := s.repo.FindByFilename(ctx, filename, false)
	if err != nil {
		return Record{}, err
	}

	if !canManage(requester, record) {
		return Record{}, ErrForbidden
	}

	return s.repo.UpdateDetails(ctx, record.ID, update)
}

// Delete removes the blob first, best effort, then the record. A blob
// failure other than not-found is logged and the record is still removed
// so clients never keep seeing a file that cannot be cleaned up.
func (s *service) Delete(ctx context.Context, filename string, requester Principal) error {
	record, err := s.repo.FindByFilename(ctx, filename, true)
	if err != nil {
		return err
	}

	if !canManage(requester, record) {
		return ErrForbidden
	}

	if record.BlobID != "" {
		if err := s.store.Delete(ctx, record.BlobID); err != nil && !errors.Is(err, ErrBlobNotFound) {
			s.logger.Error("blob delete failed, removing record anyway",
				zap.String("filename", record.Filename),
				zap.String("blobId", record.BlobID),
				zap.Error(err))
		}
	}

	return s.repo.Delete(ctx, record.ID)
}

func (s *service) validate(input UploadInput) error {
	if err := ValidateOriginalName(input.OriginalName); err != nil {
		return err
	}
	if err := ValidateContentType(input.ContentType); err != nil {
		return err
	}
	if input.Content == nil {
		return ErrEmptyContent
	}
	if input.Size > s.maxSize {
		return ErrFileTooLarge
	}
	return nil
}

func (s *service) abort(handle WriteHandle, filename string) {
	if err := handle.Abort(); err != nil {
		s.logger.Warn("upload abort left orphaned chunks",
			zap.String("filename", filename),
			zap.Error(err))
	}
}

func (s *service) deleteBlobBestEffort(blobID, filename string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.Delete(ctx, blobID); err != nil && !errors.Is(err, ErrBlobNotFound) {
		s.logger.Error("orphaned blob after failed record create",
			zap.String("filename", filename),
			zap.String("blobId", blobID),
			zap.Error(err))
	}
}

func canManage(requester Principal, record Record) bool {
	if requester.Role == RoleAdmin {
		return true
	}
	return !record.UploadedBy.IsZero() && record.UploadedBy.Hex() == requester.UserID
}
