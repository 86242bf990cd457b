package service

import (
	"context"
	"time"

	"github.com/noah-isme/homefix-api/internal/dto"
	"github.com/noah-isme/homefix-api/internal/models"
)

// avatarLookup returns the avatar of userID within thread, or "" to defer to
// the next lookup in the chain.
type avatarLookup func(ctx context.Context, thread models.Thread, userID string) string

func threadMetadataAvatar(_ context.Context, thread models.Thread, userID string) string {
	participant, ok := thread.Participant(userID)
	if !ok {
		return ""
	}
	return participant.AvatarURL
}

func presenceAvatar(presence PresenceService) avatarLookup {
	return func(ctx context.Context, _ models.Thread, userID string) string {
		if presence == nil {
			return ""
		}
		record, err := presence.Lookup(ctx, userID)
		if err != nil {
			return ""
		}
		return record.AvatarURL
	}
}

// avatarResolver evaluates the lookups in order and memoises per user, so one
// render asks the presence cache at most once per sender.
type avatarResolver struct {
	chain    []avatarLookup
	thread   models.Thread
	resolved map[string]string
}

func newAvatarResolver(thread models.Thread, chain []avatarLookup) *avatarResolver {
	return &avatarResolver{chain: chain, thread: thread, resolved: make(map[string]string, 2)}
}

func (r *avatarResolver) resolve(ctx context.Context, userID string) string {
	if url, ok := r.resolved[userID]; ok {
		return url
	}

	url := ""
	for _, lookup := range r.chain {
		if candidate := lookup(ctx, r.thread, userID); candidate != "" {
			url = candidate
			break
		}
	}
	r.resolved[userID] = url
	return url
}

// buildMessageViews maps stored messages to view-models for viewerID,
// keeping the input order.
func buildMessageViews(ctx context.Context, thread models.Thread, messages []models.Message, viewerID string, chain []avatarLookup) []dto.MessageView {
	resolver := newAvatarResolver(thread, chain)

	views := make([]dto.MessageView, 0, len(messages))
	for _, message := range messages {
		sender := dto.SenderOther
		if message.SenderID == viewerID {
			sender = dto.SenderSelf
		}

		views = append(views, dto.MessageView{
			ID:          message.ID,
			Text:        message.Text,
			Sender:      sender,
			AvatarURL:   resolver.resolve(ctx, message.SenderID),
			Timestamp:   message.CreatedAt.UTC().Format(time.RFC3339),
			Attachments: dto.MessageAttachments(message),
		})
	}
	return views
}
