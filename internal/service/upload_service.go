package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/observability"
	"github.com/noah-isme/homefix-api/internal/repository"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the MIME type is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrStorageUnavailable indicates no file storage is configured.
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

// FileStorage abstracts upload destinations. purpose selects the folder.
type FileStorage interface {
	Upload(ctx context.Context, purpose, name string, reader io.Reader) (string, error)
}

// UploadService validates, stores and records uploaded files.
type UploadService interface {
	Upload(ctx context.Context, file *multipart.FileHeader, userID *string, purpose string) (dto.UploadResponse, error)
	List(ctx context.Context, userID, purpose string, limit int) ([]dto.UploadResponse, error)
}

type uploadService struct {
	storage FileStorage
	repo    repository.UploadRepository
	logger  zerolog.Logger
	maxSize int64
	tracer  trace.Tracer
}

// NewUploadService constructs an upload service. storage may be nil, in which
// case every upload fails with ErrStorageUnavailable.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage: storage,
		repo:    repo,
		logger:  logger.With().Str("component", "upload_service").Logger(),
		maxSize: int64(maxSizeMB) * 1024 * 1024,
		tracer:  observability.Tracer("service/upload"),
	}
}

// purposeKinds lists the media kinds each upload purpose accepts. A kind is
// the part of the MIME type before the slash, or the full type for documents.
var purposeKinds = map[string][]string{
	dto.UploadPurposePhoto:      {"image"},
	dto.UploadPurposePastWork:   {"image", "video"},
	dto.UploadPurposeAttachment: {"image", "video", "application/pdf"},
	dto.UploadPurposeGeneric:    {"image", "video", "application/pdf"},
}

var allowedVideoTypes = map[string]struct{}{
	"video/mp4":       {},
	"video/quicktime": {},
	"video/webm":      {},
}

func (s *uploadService) Upload(ctx context.Context, file *multipart.FileHeader, userID *string, purpose string) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	purpose = normalizePurpose(purpose)
	span.SetAttributes(
		attribute.Int64("upload.max_bytes", s.maxSize),
		attribute.String("upload.purpose", purpose),
	)

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	reject := func(reason string, err error) (dto.UploadResponse, error) {
		observability.UploadRejected().WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return dto.UploadResponse{}, err
	}

	if file == nil {
		return reject("missing", ErrUploadMissing)
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(file.Filename)),
		attribute.Int64("upload.request_size", file.Size),
	)

	if s.storage == nil {
		return reject("storage", ErrStorageUnavailable)
	}
	if file.Size > s.maxSize {
		return reject("size", ErrUploadTooLarge)
	}

	content, err := s.readLimited(file)
	if err != nil {
		if errors.Is(err, ErrUploadTooLarge) {
			return reject("size", err)
		}
		return reject("read", err)
	}

	mimeType := normalizeMime(mimetype.Detect(content).String())
	span.SetAttributes(attribute.String("upload.detected_mime", mimeType))
	if !purposeAccepts(purpose, mimeType) {
		s.logger.Debug().Str("purpose", purpose).Str("mime", mimeType).Msg("upload type rejected")
		return reject("type", ErrUploadTypeNotAllowed)
	}

	checksum := sha256.Sum256(content)
	name := sanitizeFileName(file.Filename)

	url, err := s.storage.Upload(ctx, purpose, name, bytes.NewReader(content))
	if err != nil {
		s.logger.Warn().Err(err).Str("purpose", purpose).Str("file", name).Msg("storage rejected upload")
		return reject("storage", err)
	}

	record := models.UploadRecord{
		Purpose:   purpose,
		FileName:  name,
		URL:       url,
		MimeType:  mimeType,
		SizeBytes: int64(len(content)),
		Checksum:  hex.EncodeToString(checksum[:]),
	}
	if userID != nil && *userID != "" {
		record.UserID = userID
	}

	if err := s.repo.Create(ctx, &record); err != nil {
		return reject("persistence", err)
	}

	observability.UploadRequests().WithLabelValues(mediaKind(mimeType)).Inc()
	span.SetStatus(codes.Ok, "stored")

	return dto.NewUploadResponse(record), nil
}

// List returns the caller's most recent uploads, newest first. An empty
// purpose lists every purpose; an unknown one lists nothing.
func (s *uploadService) List(ctx context.Context, userID, purpose string, limit int) ([]dto.UploadResponse, error) {
	purpose = strings.ToLower(strings.TrimSpace(purpose))
	if purpose != "" {
		if _, ok := purposeKinds[purpose]; !ok {
			return []dto.UploadResponse{}, nil
		}
	}

	records, err := s.repo.ListByUser(ctx, userID, purpose, limit)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UploadResponse, 0, len(records))
	for _, record := range records {
		out = append(out, dto.NewUploadResponse(record))
	}
	return out, nil
}

// readLimited reads at most maxSize bytes; multipart headers can under-report.
func (s *uploadService) readLimited(file *multipart.FileHeader) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	content, err := io.ReadAll(io.LimitReader(handle, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(content)) > s.maxSize {
		return nil, ErrUploadTooLarge
	}
	return content, nil
}

func normalizePurpose(purpose string) string {
	normalized := strings.ToLower(strings.TrimSpace(purpose))
	if _, ok := purposeKinds[normalized]; ok {
		return normalized
	}
	return dto.UploadPurposeGeneric
}

func purposeAccepts(purpose, mimeType string) bool {
	kind := mediaKind(mimeType)
	if kind == "video" {
		if _, ok := allowedVideoTypes[mimeType]; !ok {
			return false
		}
	}
	for _, allowed := range purposeKinds[purpose] {
		if allowed == kind {
			return true
		}
	}
	return false
}

func mediaKind(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	default:
		return mimeType
	}
}

func sanitizeFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	base = strings.ToLower(base)
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r == '-' || r == '_' {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if i := strings.Index(lower, ";"); i >= 0 {
		lower = strings.TrimSpace(lower[:i])
	}
	return lower
}
