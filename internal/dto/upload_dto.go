package dto

import (
	"time"

	"github.com/noah-isme/homefix-api/internal/models"
)

// Upload purposes recorded alongside upload metadata.
const (
	UploadPurposeGeneric    = "generic"
	UploadPurposePhoto      = "photo"
	UploadPurposePastWork   = "past_work"
	UploadPurposeAttachment = "attachment"
)

// UploadResponse describes the stored asset metadata returned to the client.
type UploadResponse struct {
	URL       string    `json:"url"`
	SizeBytes int64     `json:"size_bytes"`
	MimeType  string    `json:"mime_type"`
	Checksum  string    `json:"checksum"`
	FileName  string    `json:"file_name"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUploadResponse converts an upload record into a DTO.
func NewUploadResponse(record models.UploadRecord) UploadResponse {
	return UploadResponse{
		URL:       record.URL,
		SizeBytes: record.SizeBytes,
		MimeType:  record.MimeType,
		Checksum:  record.Checksum,
		FileName:  record.FileName,
		Purpose:   record.Purpose,
		CreatedAt: record.CreatedAt,
	}
}
