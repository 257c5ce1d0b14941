package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Yonsn76/api-zoomTV/internal/users"
)

// memChunkStore keeps blobs in memory behind the same operations as the
// GridFS adapter.
type memChunkStore struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	meta      map[string]BlobMeta
	uploaded  map[string]time.Time
	seq       int
	failWrite bool
	opens     int
}

func newMemChunkStore() *memChunkStore {
	return &memChunkStore{
		blobs:    make(map[string][]byte),
		meta:     make(map[string]BlobMeta),
		uploaded: make(map[string]time.Time),
	}
}

func (s *memChunkStore) OpenWrite(ctx context.Context, key string, meta BlobMeta) (WriteHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	return &memWriteHandle{store: s, meta: meta}, nil
}

type memWriteHandle struct {
	store   *memChunkStore
	meta    BlobMeta
	buf     bytes.Buffer
	aborted bool
}

func (h *memWriteHandle) Write(p []byte) (int, error) {
	return h.buf.Write(p)
}

func (h *memWriteHandle) Commit() (string, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if h.store.failWrite {
		return "", fmt.Errorf("injected write failure")
	}
	if h.aborted {
		return "", fmt.Errorf("handle aborted")
	}
	h.store.seq++
	id := fmt.Sprintf("blob-%d", h.store.seq)
	h.store.blobs[id] = append([]byte(nil), h.buf.Bytes()...)
	h.store.meta[id] = h.meta
	h.store.uploaded[id] = time.Now()
	return id, nil
}

func (h *memWriteHandle) Abort() error {
	h.aborted = true
	return nil
}

func (s *memChunkStore) OpenRead(ctx context.Context, blobID string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[blobID]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memChunkStore) Stat(ctx context.Context, blobID string) (BlobInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[blobID]
	if !ok {
		return BlobInfo{}, ErrBlobNotFound
	}
	return BlobInfo{
		Length:     int64(len(data)),
		ChunkSize:  255 * 1024,
		UploadDate: s.uploaded[blobID],
	}, nil
}

func (s *memChunkStore) Delete(ctx context.Context, blobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[blobID]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, blobID)
	delete(s.meta, blobID)
	delete(s.uploaded, blobID)
	return nil
}

func (s *memChunkStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}

// memRepository is an in-memory Repository with the same filtering
// semantics as the Mongo implementation.
type memRepository struct {
	mu      sync.Mutex
	records map[string]Record
	clock   time.Time
}

func newMemRepository() *memRepository {
	return &memRepository{
		records: make(map[string]Record),
		clock:   time.Now().Add(-time.Hour),
	}
}

func (r *memRepository) EnsureIndexes(ctx context.Context) error { return nil }

func (r *memRepository) Create(ctx context.Context, record Record) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.Filename]; exists {
		return Record{}, ErrDuplicateFilename
	}
	record.ID = primitive.NewObjectID()
	// Monotonic timestamps keep the createdAt ordering deterministic.
	r.clock = r.clock.Add(time.Second)
	record.CreatedAt = r.clock
	record.UpdatedAt = r.clock
	r.records[record.Filename] = record
	return record, nil
}

func (r *memRepository) FindByFilename(ctx context.Context, filename string, activeOnly bool) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[filename]
	if !ok || (activeOnly && !record.IsActive) {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (r *memRepository) List(ctx context.Context, query ListQuery) (ListResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []Record
	var stats Stats
	for _, record := range r.records {
		if !record.IsActive {
			continue
		}

		stats.TotalFiles++
		stats.TotalSize += record.Size
		if IsImage(record.MimeType) {
			stats.ImageCount++
		}
		if strings.HasPrefix(record.MimeType, "application/") || strings.HasPrefix(record.MimeType, "text/") {
			stats.DocumentCount++
		}

		if query.Search != "" {
			needle := strings.ToLower(query.Search)
			if !strings.Contains(strings.ToLower(record.OriginalName), needle) &&
				!strings.Contains(strings.ToLower(record.Alt), needle) &&
				!strings.Contains(strings.ToLower(record.Caption), needle) {
				continue
			}
		}
		switch query.Type {
		case "image":
			if !strings.HasPrefix(record.MimeType, "image/") {
				continue
			}
		case "document":
			if !strings.HasPrefix(record.MimeType, "application/") && !strings.HasPrefix(record.MimeType, "text/") {
				continue
			}
		}
		matched = append(matched, record)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))

	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = 20
	}
	start := (page - 1) * limit
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}

	return ListResult{Records: matched[start:end], Total: total, Stats: stats}, nil
}

func (r *memRepository) UpdateDetails(ctx context.Context, id primitive.ObjectID, update DetailsUpdate) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for filename, record := range r.records {
		if record.ID != id {
			continue
		}
		if update.Alt != nil {
			record.Alt = *update.Alt
		}
		if update.Caption != nil {
			record.Caption = *update.Caption
		}
		if update.IsActive != nil {
			record.IsActive = *update.IsActive
		}
		record.UpdatedAt = time.Now()
		r.records[filename] = record
		return record, nil
	}
	return Record{}, ErrNotFound
}

func (r *memRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for filename, record := range r.records {
		if record.ID == id {
			delete(r.records, filename)
			return nil
		}
	}
	return ErrNotFound
}

func (r *memRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

type memDirectory struct {
	users map[string]users.User
}

func newMemDirectory() *memDirectory {
	return &memDirectory{users: make(map[string]users.User)}
}

func (d *memDirectory) add(user users.User) {
	d.users[user.ID.Hex()] = user
}

func (d *memDirectory) FindByID(ctx context.Context, id string) (users.User, error) {
	user, ok := d.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return user, nil
}
