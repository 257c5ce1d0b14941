package dto

import "time"

// Response is the JSON envelope every endpoint answers with.
type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Errors     []string    `json:"errors,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Stats      interface{} `json:"stats,omitempty"`
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// MediaResponse is the public view of a record. The blob id never
// appears here.
type MediaResponse struct {
	ID            string    `json:"id"`
	Filename      string    `json:"filename"`
	OriginalName  string    `json:"originalName"`
	URL           string    `json:"url"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"sizeFormatted"`
	MimeType      string    `json:"mimeType"`
	IsImage       bool      `json:"isImage"`
	Alt           string    `json:"alt"`
	Caption       string    `json:"caption"`
	UploadedBy    string    `json:"uploadedBy,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type UploaderResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// StoreInfo exposes chunk-store diagnostics on the info endpoint.
type StoreInfo struct {
	ChunkSize  int32     `json:"chunkSize,omitempty"`
	Length     int64     `json:"length"`
	UploadDate time.Time `json:"uploadDate"`
}

type FileInfoResponse struct {
	MediaResponse
	Uploader *UploaderResponse `json:"uploader,omitempty"`
	Store    *StoreInfo        `json:"store,omitempty"`
}

// BatchItemResponse reports one file of a multi-file upload.
type BatchItemResponse struct {
	OriginalName string         `json:"originalName"`
	Success      bool           `json:"success"`
	Data         *MediaResponse `json:"data,omitempty"`
	Error        string         `json:"error,omitempty"`
}

type UpdateMediaRequest struct {
	Alt      *string `json:"alt"`
	Caption  *string `json:"caption"`
	IsActive *bool   `json:"isActive"`
}
