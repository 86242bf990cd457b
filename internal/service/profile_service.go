package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/observability"
	"github.com/noah-isme/homefix-api/internal/repository"
)

const maxPastWorkFiles = 10

var (
	// ErrProfileNotFound indicates the professional has no profile yet.
	ErrProfileNotFound = errors.New("professional profile not found")
	// ErrTooManyPastWorkFiles indicates the portfolio upload exceeded its limit.
	ErrTooManyPastWorkFiles = fmt.Errorf("at most %d past work files per update", maxPastWorkFiles)
)

// ProfileUpdate bundles the multipart payload of a profile update.
type ProfileUpdate struct {
	Fields   dto.ProfileUpdateRequest
	Photo    *multipart.FileHeader
	PastWork []*multipart.FileHeader
}

// ProfileService manages professional profiles and their media.
type ProfileService interface {
	Get(ctx context.Context, userID string) (dto.ProfileResponse, error)
	Update(ctx context.Context, userID string, update ProfileUpdate) (dto.ProfileUpdateResponse, error)
}

type profileService struct {
	profiles  repository.ProfileRepository
	users     repository.UserRepository
	uploads   UploadService
	presence  PresenceService
	validator *validator.Validate
	strict    *bluemonday.Policy
	rich      *bluemonday.Policy
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewProfileService constructs the profile service.
func NewProfileService(profiles repository.ProfileRepository, users repository.UserRepository, uploads UploadService, presence PresenceService, validate *validator.Validate, logger zerolog.Logger) ProfileService {
	return &profileService{
		profiles:  profiles,
		users:     users,
		uploads:   uploads,
		presence:  presence,
		validator: validate,
		strict:    bluemonday.StrictPolicy(),
		rich:      bluemonday.UGCPolicy(),
		logger:    logger.With().Str("component", "profile_service").Logger(),
		tracer:    observability.Tracer("service/profile"),
	}
}

func (s *profileService) Get(ctx context.Context, userID string) (dto.ProfileResponse, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileResponse{}, ErrProfileNotFound
		}
		return dto.ProfileResponse{}, err
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ProfileResponse{}, err
	}

	return dto.NewProfileResponse(profile, user), nil
}

// Update saves the profile fields first, then uploads media. Upload failures
// are reported as warnings and never undo the saved fields.
func (s *profileService) Update(ctx context.Context, userID string, update ProfileUpdate) (dto.ProfileUpdateResponse, error) {
	if err := s.validator.Struct(update.Fields); err != nil {
		return dto.ProfileUpdateResponse{}, err
	}
	if len(update.PastWork) > maxPastWorkFiles {
		return dto.ProfileUpdateResponse{}, ErrTooManyPastWorkFiles
	}

	ctx, span := s.tracer.Start(ctx, "profile.update", trace.WithAttributes(
		attribute.String("profile.user_id", userID),
		attribute.Bool("profile.photo", update.Photo != nil),
		attribute.Int("profile.past_work", len(update.PastWork)),
	))
	defer span.End()

	if _, err := s.users.Get(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProfileUpdateResponse{}, ErrUserNotFound
		}
		return dto.ProfileUpdateResponse{}, err
	}

	fields := update.Fields
	profile := models.ProfessionalProfile{
		UserID:     userID,
		Headline:   plainText(s.strict, fields.Headline),
		Bio:        strings.TrimSpace(s.rich.Sanitize(fields.Bio)),
		City:       plainText(s.strict, fields.City),
		HourlyRate: fields.HourlyRate,
	}
	if err := s.profiles.Save(ctx, &profile); err != nil {
		span.RecordError(err)
		return dto.ProfileUpdateResponse{}, err
	}

	userChanged := false
	if name := plainText(s.strict, fields.DisplayName); name != "" {
		if err := s.users.UpdateDisplayName(ctx, userID, name); err != nil {
			return dto.ProfileUpdateResponse{}, err
		}
		userChanged = true
	}

	warnings := make([]string, 0)

	if update.Photo != nil {
		if err := s.storePhoto(ctx, userID, update.Photo); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("profile photo upload failed")
			warnings = append(warnings, fmt.Sprintf("photo: %v", err))
		} else {
			userChanged = true
		}
	}

	for _, file := range update.PastWork {
		if err := s.storePastWork(ctx, userID, file); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Str("file", file.Filename).Msg("past work upload failed")
			warnings = append(warnings, fmt.Sprintf("past work %s: %v", file.Filename, err))
		}
	}

	if userChanged && s.presence != nil {
		if err := s.presence.Invalidate(ctx, userID); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("failed to announce profile change")
		}
	}
	span.SetAttributes(attribute.Int("profile.warnings", len(warnings)))

	saved, err := s.Get(ctx, userID)
	if err != nil {
		return dto.ProfileUpdateResponse{}, err
	}
	return dto.ProfileUpdateResponse{Profile: saved, Warnings: warnings}, nil
}

func (s *profileService) storePhoto(ctx context.Context, userID string, file *multipart.FileHeader) error {
	uploaded, err := s.uploads.Upload(ctx, file, &userID, dto.UploadPurposePhoto)
	if err != nil {
		return err
	}
	if err := s.profiles.UpdatePhoto(ctx, userID, uploaded.URL); err != nil {
		return err
	}
	return s.users.UpdateAvatar(ctx, userID, uploaded.URL)
}

func (s *profileService) storePastWork(ctx context.Context, userID string, file *multipart.FileHeader) error {
	uploaded, err := s.uploads.Upload(ctx, file, &userID, dto.UploadPurposePastWork)
	if err != nil {
		return err
	}
	return s.profiles.AddPastWork(ctx, &models.PastWork{
		UserID:   userID,
		URL:      uploaded.URL,
		MimeType: uploaded.MimeType,
		FileName: uploaded.FileName,
	})
}
