package media

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Yonsn76/api-zoomTV/internal/dto"
	"github.com/Yonsn76/api-zoomTV/internal/users"
)

type Handler struct {
	service  Service
	auth     *Authorizer
	maxSize  int64
	maxBatch int
	logger   *zap.Logger
}

func NewHandler(service Service, auth *Authorizer, maxSize int64, maxBatch int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:  service,
		auth:     auth,
		maxSize:  maxSize,
		maxBatch: maxBatch,
		logger:   logger,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.Response{Success: true, Message: "ok"})
	})

	mux.HandleFunc("/media", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.List(w, r)
	})

	mux.HandleFunc("/media/upload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.Upload(w, r)
	})

	mux.HandleFunc("/media/upload-multiple", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.UploadMultiple(w, r)
	})

	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/media/file/"):
			if r.Method != http.MethodGet {
				h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			h.ServeFile(w, r)
		case strings.HasPrefix(r.URL.Path, "/media/info/"):
			if r.Method != http.MethodGet {
				h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
				return
			}
			h.FileInfo(w, r)
		default:
			switch r.Method {
			case http.MethodGet:
				h.Meta(w, r)
			case http.MethodDelete:
				h.Delete(w, r)
			case http.MethodPatch:
				h.Update(w, r)
			default:
				h.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			}
		}
	})

	return mux
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authorize(r); err != nil {
		h.writeServiceError(w, err)
		return
	}

	query := ListQuery{
		Search: r.URL.Query().Get("search"),
		Type:   r.URL.Query().Get("type"),
		Page:   1,
		Limit:  20,
	}
	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page > 0 {
		query.Page = page
	}
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit > 0 {
		query.Limit = limit
	}

	result, err := h.service.List(r.Context(), query)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	data := make([]dto.MediaResponse, 0, len(result.Records))
	for _, record := range result.Records {
		data = append(data, mapRecord(record))
	}

	pages := result.Total / int64(query.Limit)
	if result.Total%int64(query.Limit) != 0 {
		pages++
	}

	writeJSON(w, http.StatusOK, dto.Response{
		Success: true,
		Data:    data,
		Pagination: &dto.Pagination{
			Page:  query.Page,
			Limit: query.Limit,
			Total: result.Total,
			Pages: pages,
		},
		Stats: result.Stats,
	})
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authorize(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			h.writeError(w, http.StatusBadRequest, "expected multipart/form-data")
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer cleanupMultipart(r)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	input := h.uploadInput(r, file, fileHeader, principal)

	record, err := h.service.Upload(r.Context(), input)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	data := mapRecord(record)
	writeJSON(w, http.StatusCreated, dto.Response{
		Success: true,
		Message: "file uploaded",
		Data:    data,
	})
}

func (h *Handler) UploadMultiple(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authorize(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			h.writeError(w, http.StatusBadRequest, "expected multipart/form-data")
			return
		}
		h.writeError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer cleanupMultipart(r)

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		h.writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) > h.maxBatch {
		h.writeError(w, http.StatusBadRequest, "too many files in one batch")
		return
	}

	inputs := make([]UploadInput, 0, len(headers))
	var open []multipart.File
	defer func() {
		for _, f := range open {
			f.Close()
		}
	}()

	for _, fileHeader := range headers {
		file, err := fileHeader.Open()
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "failed to read uploaded file")
			return
		}
		open = append(open, file)
		inputs = append(inputs, h.uploadInput(r, file, fileHeader, principal))
	}

	outcomes := h.service.UploadBatch(r.Context(), inputs)

	items := make([]dto.BatchItemResponse, 0, len(outcomes))
	for _, outcome := range outcomes {
		item := dto.BatchItemResponse{OriginalName: outcome.OriginalName}
		if outcome.Err != nil {
			item.Error = outcome.Err.Error()
		} else {
			item.Success = true
			data := mapRecord(outcome.Record)
			item.Data = &data
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusCreated, dto.Response{
		Success: true,
		Message: "batch processed",
		Data:    items,
	})
}

func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/media/file/")
	if filename == "" {
		h.writeError(w, http.StatusBadRequest, "filename required")
		return
	}

	record, stream, err := h.service.Serve(r.Context(), filename)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	defer stream.Close()

	// The blob id changes whenever the underlying bytes do, so it is a
	// stable ETag.
	etag := `"` + record.BlobID + `"`
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", record.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(record.Size, 10))
	w.Header().Set("Content-Disposition", `inline; filename="`+EscapeFilename(record.OriginalName)+`"`)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, stream); err != nil {
		h.logger.Error("file stream aborted mid-transfer",
			zap.String("filename", record.Filename),
			zap.Error(err))
		// Headers and some bytes are already out; kill the connection
		// instead of silently truncating.
		panic(http.ErrAbortHandler)
	}
}

func (h *Handler) FileInfo(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/media/info/")
	if filename == "" {
		h.writeError(w, http.StatusBadRequest, "filename required")
		return
	}

	info, err := h.service.Info(r.Context(), filename)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	resp := dto.FileInfoResponse{MediaResponse: mapRecord(info.Record)}
	if info.Uploader != nil {
		resp.Uploader = &dto.UploaderResponse{
			ID:          info.Uploader.ID.Hex(),
			Username:    info.Uploader.Username,
			Email:       info.Uploader.Email,
			DisplayName: users.DisplayName(*info.Uploader),
		}
	}
	if info.Blob != nil {
		resp.Store = &dto.StoreInfo{
			ChunkSize:  info.Blob.ChunkSize,
			Length:     info.Blob.Length,
			UploadDate: info.Blob.UploadDate,
		}
	}

	writeJSON(w, http.StatusOK, dto.Response{Success: true, Data: resp})
}

func (h *Handler) Meta(w http.ResponseWriter, r *http.Request) {
	filename := strings.TrimPrefix(r.URL.Path, "/media/")
	if filename == "" {
		h.writeError(w, http.StatusBadRequest, "filename required")
		return
	}

	record, err := h.service.Meta(r.Context(), filename)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.Response{Success: true, Data: mapRecord(record)})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authorize(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/media/")
	if filename == "" {
		h.writeError(w, http.StatusBadRequest, "filename required")
		return
	}

	if err := h.service.Delete(r.Context(), filename, principal); err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.Response{Success: true, Message: "file deleted"})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	principal, err := h.authorize(r)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/media/")
	if filename == "" {
		h.writeError(w, http.StatusBadRequest, "filename required")
		return
	}

	var req dto.UpdateMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	update := DetailsUpdate{Alt: req.Alt, Caption: req.Caption, IsActive: req.IsActive}
	record, err := h.service.Update(r.Context(), filename, update, principal)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.Response{Success: true, Message: "file updated", Data: mapRecord(record)})
}

func (h *Handler) authorize(r *http.Request) (Principal, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return Principal{}, err
	}
	return h.auth.Authorize(r.Context(), token)
}

func (h *Handler) uploadInput(r *http.Request, file multipart.File, fileHeader *multipart.FileHeader, principal Principal) UploadInput {
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return UploadInput{
		OriginalName: fileHeader.Filename,
		ContentType:  contentType,
		Size:         fileHeader.Size,
		Content:      file,
		Alt:          strings.TrimSpace(r.FormValue("alt")),
		Caption:      strings.TrimSpace(r.FormValue("caption")),
		UploadedBy:   principal.UserID,
	}
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, ErrForbidden):
		h.writeError(w, http.StatusForbidden, "you do not have permission for this file")
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrBlobNotFound), errors.Is(err, users.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "file not found")
	case errors.Is(err, ErrFileTooLarge):
		h.writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrInvalidContentType):
		h.writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, ErrInvalidFilename), errors.Is(err, ErrPathTraversal), errors.Is(err, ErrEmptyContent), errors.Is(err, ErrDuplicateFilename):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.Response{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func mapRecord(record Record) dto.MediaResponse {
	resp := dto.MediaResponse{
		ID:            record.ID.Hex(),
		Filename:      record.Filename,
		OriginalName:  record.OriginalName,
		URL:           record.URL,
		Size:          record.Size,
		SizeFormatted: SizeFormatted(record.Size),
		MimeType:      record.MimeType,
		IsImage:       IsImage(record.MimeType),
		Alt:           record.Alt,
		Caption:       record.Caption,
		IsActive:      record.IsActive,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
	if !record.UploadedBy.IsZero() {
		resp.UploadedBy = record.UploadedBy.Hex()
	}
	return resp
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
