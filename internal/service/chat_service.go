package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
	"github.com/noah-isme/homefix-api/internal/observability"
	"github.com/noah-isme/homefix-api/internal/realtime"
	"github.com/noah-isme/homefix-api/internal/repository"
	"github.com/noah-isme/homefix-api/internal/utils"
)

const attachmentPreviewText = "[attachment]"

var (
	// ErrChatNotAuthorised indicates the user is not a participant of the thread.
	ErrChatNotAuthorised = errors.New("user is not a participant of this thread")
	// ErrThreadNotFound indicates the thread has not been created yet.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrEmptyMessage indicates a message without text or attachments.
	ErrEmptyMessage = errors.New("message must contain text or an attachment")
	// ErrParticipantRequired indicates a missing participant ID.
	ErrParticipantRequired = errors.New("both participant ids are required")
	// ErrSelfChat indicates a user tried to open a thread with themselves.
	ErrSelfChat = errors.New("cannot start a chat with yourself")
	// ErrThreadIDMismatch indicates a thread ID not derived from its participants.
	ErrThreadIDMismatch = errors.New("thread id does not match participants")
	// ErrInvalidUserID indicates a user ID that cannot form a thread ID.
	ErrInvalidUserID = errors.New("user id contains unsupported characters")
	// ErrThreadParticipantsConflict indicates a stored thread owned by another pair.
	ErrThreadParticipantsConflict = errors.New("thread belongs to a different pair of users")
)

// ChatService owns two-party threads, their messages and live views of both.
type ChatService interface {
	StartChat(ctx context.Context, userID, otherUserID string) (dto.ThreadResponse, error)
	EnsureThread(ctx context.Context, threadID string, participants []models.ThreadParticipant) (models.Thread, bool, error)
	ListThreads(ctx context.Context, userID string) ([]dto.ThreadResponse, error)
	SubscribeThreads(ctx context.Context, userID string, callback func([]dto.ThreadResponse)) (func(), error)
	Messages(ctx context.Context, threadID, viewerID string) ([]dto.MessageView, error)
	SubscribeMessages(ctx context.Context, threadID, viewerID string, callback func([]dto.MessageView)) (func(), error)
	SendMessage(ctx context.Context, req dto.SendMessageRequest) (dto.MessageResponse, error)
}

type chatService struct {
	threads   repository.ThreadRepository
	messages  repository.MessageRepository
	presence  PresenceService
	hub       realtime.Hub
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	avatars   []avatarLookup
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewChatService constructs the chat service.
func NewChatService(threads repository.ThreadRepository, messages repository.MessageRepository, presence PresenceService, hub realtime.Hub, validate *validator.Validate, logger zerolog.Logger) ChatService {
	return &chatService{
		threads:   threads,
		messages:  messages,
		presence:  presence,
		hub:       hub,
		validator: validate,
		sanitizer: bluemonday.StrictPolicy(),
		avatars:   []avatarLookup{threadMetadataAvatar, presenceAvatar(presence)},
		logger:    logger.With().Str("component", "chat_service").Logger(),
		tracer:    observability.Tracer("service/chat"),
	}
}

func (s *chatService) StartChat(ctx context.Context, userID, otherUserID string) (dto.ThreadResponse, error) {
	userID = strings.TrimSpace(userID)
	otherUserID = strings.TrimSpace(otherUserID)
	if userID == "" || otherUserID == "" {
		return dto.ThreadResponse{}, ErrParticipantRequired
	}
	if !utils.ValidUserID(userID) || !utils.ValidUserID(otherUserID) {
		return dto.ThreadResponse{}, ErrInvalidUserID
	}
	if userID == otherUserID {
		return dto.ThreadResponse{}, ErrSelfChat
	}

	other, err := s.presence.Lookup(ctx, otherUserID)
	if err != nil {
		return dto.ThreadResponse{}, err
	}

	self, err := s.presence.Lookup(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return dto.ThreadResponse{}, err
		}
		// Callers authenticated without a profile row still get a thread.
		self = dto.PresenceRecord{UserID: userID}
	}

	participants := []models.ThreadParticipant{
		{UserID: self.UserID, DisplayName: self.DisplayName, AvatarURL: self.AvatarURL},
		{UserID: other.UserID, DisplayName: other.DisplayName, AvatarURL: other.AvatarURL},
	}

	thread, _, err := s.EnsureThread(ctx, utils.DeriveThreadID(userID, otherUserID), participants)
	if err != nil {
		return dto.ThreadResponse{}, err
	}

	return dto.NewThreadResponse(thread), nil
}

func (s *chatService) EnsureThread(ctx context.Context, threadID string, participants []models.ThreadParticipant) (models.Thread, bool, error) {
	if len(participants) != 2 {
		return models.Thread{}, false, ErrParticipantRequired
	}
	for i := range participants {
		participants[i].UserID = strings.TrimSpace(participants[i].UserID)
		if participants[i].UserID == "" {
			return models.Thread{}, false, ErrParticipantRequired
		}
		if !utils.ValidUserID(participants[i].UserID) {
			return models.Thread{}, false, ErrInvalidUserID
		}
	}
	if participants[0].UserID == participants[1].UserID {
		return models.Thread{}, false, ErrSelfChat
	}
	if threadID != utils.DeriveThreadID(participants[0].UserID, participants[1].UserID) {
		return models.Thread{}, false, ErrThreadIDMismatch
	}

	ctx, span := s.tracer.Start(ctx, "chat.ensure_thread", trace.WithAttributes(attribute.String("chat.thread_id", threadID)))
	defer span.End()

	now := time.Now().UTC()
	created, err := s.threads.EnsureThread(ctx, &models.Thread{
		ID:           threadID,
		Participants: participants,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ensure failed")
		return models.Thread{}, false, fmt.Errorf("ensure thread: %w", err)
	}

	outcome := "existing"
	if created {
		outcome = "created"
		for _, p := range participants {
			s.publish(ctx, realtime.UserThreadsKey(p.UserID), realtime.KindThreadChanged, map[string]string{"thread_id": threadID})
		}
	}
	observability.ChatThreadsEnsured().WithLabelValues(outcome).Inc()
	span.SetAttributes(attribute.Bool("chat.thread_created", created))

	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return models.Thread{}, false, err
	}
	if !thread.HasParticipant(participants[0].UserID) || !thread.HasParticipant(participants[1].UserID) || len(thread.Participants) != 2 {
		s.logger.Error().Str("thread_id", threadID).Strs("stored", thread.ParticipantIDs()).Msg("thread participants do not match its id")
		return models.Thread{}, false, ErrThreadParticipantsConflict
	}

	return thread, created, nil
}

func (s *chatService) ListThreads(ctx context.Context, userID string) ([]dto.ThreadResponse, error) {
	threads, err := s.threads.ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewThreadResponseSlice(threads), nil
}

func (s *chatService) SubscribeThreads(ctx context.Context, userID string, callback func([]dto.ThreadResponse)) (func(), error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrParticipantRequired
	}

	query := liveQuery{
		hub:    s.hub,
		keys:   []string{realtime.UserThreadsKey(userID)},
		kind:   "threads",
		logger: s.logger,
		load: func(ctx context.Context) error {
			threads, err := s.ListThreads(ctx, userID)
			if err != nil {
				return err
			}
			callback(threads)
			return nil
		},
	}
	return query.subscribe(ctx)
}

func (s *chatService) Messages(ctx context.Context, threadID, viewerID string) ([]dto.MessageView, error) {
	thread, err := s.authorisedThread(ctx, threadID, viewerID)
	if err != nil {
		return nil, err
	}
	return s.messageViews(ctx, thread, viewerID)
}

func (s *chatService) SubscribeMessages(ctx context.Context, threadID, viewerID string, callback func([]dto.MessageView)) (func(), error) {
	thread, err := s.authorisedThread(ctx, threadID, viewerID)
	if err != nil {
		return nil, err
	}

	// Participant changes re-render avatars resolved through presence.
	keys := []string{realtime.ThreadKey(thread.ID)}
	for _, userID := range thread.ParticipantIDs() {
		keys = append(keys, realtime.UserKey(userID))
	}

	query := liveQuery{
		hub:    s.hub,
		keys:   keys,
		kind:   "messages",
		logger: s.logger,
		load: func(ctx context.Context) error {
			views, err := s.messageViews(ctx, thread, viewerID)
			if err != nil {
				return err
			}
			callback(views)
			return nil
		},
	}
	return query.subscribe(ctx)
}

func (s *chatService) SendMessage(ctx context.Context, req dto.SendMessageRequest) (dto.MessageResponse, error) {
	req.ThreadID = strings.TrimSpace(req.ThreadID)
	req.SenderID = strings.TrimSpace(req.SenderID)

	if strings.TrimSpace(req.Text) == "" && len(req.Attachments) == 0 {
		observability.ChatSendFailures().WithLabelValues("empty").Inc()
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	if err := s.validator.Struct(req); err != nil {
		observability.ChatSendFailures().WithLabelValues("validation").Inc()
		return dto.MessageResponse{}, err
	}

	thread, err := s.loadThread(ctx, req.ThreadID)
	if err != nil {
		observability.ChatSendFailures().WithLabelValues("thread").Inc()
		return dto.MessageResponse{}, err
	}
	if !thread.HasParticipant(req.SenderID) {
		observability.ChatSendFailures().WithLabelValues("forbidden").Inc()
		return dto.MessageResponse{}, ErrChatNotAuthorised
	}
	receiver, _ := thread.OtherParticipant(req.SenderID)

	clean := plainText(s.sanitizer, req.Text)
	if clean == "" && len(req.Attachments) == 0 {
		observability.ChatSendFailures().WithLabelValues("empty").Inc()
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	kind := "text"
	if len(req.Attachments) > 0 {
		kind = "attachment"
	}

	ctx, span := s.tracer.Start(ctx, "chat.send", trace.WithAttributes(
		attribute.String("chat.thread_id", thread.ID),
		attribute.String("chat.sender_id", req.SenderID),
		attribute.String("chat.kind", kind),
	))
	defer span.End()

	message := models.Message{
		ThreadID:   thread.ID,
		SenderID:   req.SenderID,
		ReceiverID: receiver.UserID,
		Text:       clean,
		CreatedAt:  time.Now().UTC(),
	}
	attachments := make([]models.MessageAttachment, 0, len(req.Attachments))
	for _, item := range req.Attachments {
		attachments = append(attachments, models.MessageAttachment{URL: item.URL, MimeType: item.MimeType, Name: item.Name})
	}
	if err := message.SetAttachments(attachments); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	if err := s.messages.Create(ctx, &message); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		observability.ChatSendFailures().WithLabelValues("store").Inc()
		return dto.MessageResponse{}, fmt.Errorf("store message: %w", err)
	}

	preview := clean
	if preview == "" {
		preview = attachmentPreviewText
	}
	if err := s.threads.TouchLastMessage(ctx, thread.ID, preview, req.SenderID, message.CreatedAt); err != nil {
		s.logger.Warn().Err(err).Str("thread_id", thread.ID).Msg("failed to update thread last message")
	}

	response := dto.NewMessageResponse(message)
	s.publish(ctx, realtime.ThreadKey(thread.ID), realtime.KindMessageCreated, response)
	for _, userID := range thread.ParticipantIDs() {
		s.publish(ctx, realtime.UserThreadsKey(userID), realtime.KindThreadChanged, map[string]string{"thread_id": thread.ID})
	}

	observability.ChatMessagesSent().WithLabelValues(kind).Inc()
	span.SetStatus(codes.Ok, "sent")

	return response, nil
}

func (s *chatService) loadThread(ctx context.Context, threadID string) (models.Thread, error) {
	if !utils.ValidThreadID(threadID) {
		return models.Thread{}, ErrThreadNotFound
	}

	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Thread{}, ErrThreadNotFound
		}
		return models.Thread{}, err
	}
	return thread, nil
}

func (s *chatService) authorisedThread(ctx context.Context, threadID, viewerID string) (models.Thread, error) {
	thread, err := s.loadThread(ctx, strings.TrimSpace(threadID))
	if err != nil {
		return models.Thread{}, err
	}
	if !thread.HasParticipant(strings.TrimSpace(viewerID)) {
		return models.Thread{}, ErrChatNotAuthorised
	}
	return thread, nil
}

func (s *chatService) messageViews(ctx context.Context, thread models.Thread, viewerID string) ([]dto.MessageView, error) {
	messages, err := s.messages.ListByThread(ctx, thread.ID)
	if err != nil {
		return nil, err
	}
	return buildMessageViews(ctx, thread, messages, viewerID, s.avatars), nil
}

func (s *chatService) publish(ctx context.Context, key, kind string, payload interface{}) {
	if err := s.hub.Publish(ctx, key, kind, payload); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to publish chat event")
	}
}
