package dto

import (
	"time"

	"github.com/noah-isme/homefix-api/internal/models"
)

// Sender labels used by message view-models.
const (
	SenderSelf  = "self"
	SenderOther = "other"
)

// StartChatRequest opens (or reopens) the thread with another user.
type StartChatRequest struct {
	OtherUserID string `json:"other_user_id" validate:"required,max=64"`
}

// AttachmentPayload references an uploaded file carried by a message.
type AttachmentPayload struct {
	URL      string `json:"url" validate:"required,url,max=512"`
	MimeType string `json:"mime_type,omitempty" validate:"omitempty,max=128"`
	Name     string `json:"name,omitempty" validate:"omitempty,max=255"`
}

// SendMessageRequest is the payload for posting into a thread.
type SendMessageRequest struct {
	ThreadID    string              `json:"thread_id" validate:"required,max=256"`
	SenderID    string              `json:"-" validate:"required,max=64"`
	Text        string              `json:"text" validate:"max=4000"`
	Attachments []AttachmentPayload `json:"attachments" validate:"max=10,dive"`
}

// ThreadParticipantResponse is the display metadata stored for a participant.
type ThreadParticipantResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
}

// ThreadResponse is the serialized representation of a chat thread.
type ThreadResponse struct {
	ID                  string                      `json:"id"`
	ParticipantIDs      []string                    `json:"participant_ids"`
	Participants        []ThreadParticipantResponse `json:"participants"`
	LastMessageText     string                      `json:"last_message_text"`
	LastMessageSenderID string                      `json:"last_message_sender_id"`
	CreatedAt           time.Time                   `json:"created_at"`
	UpdatedAt           time.Time                   `json:"updated_at"`
}

// NewThreadResponse converts a thread model into a DTO.
func NewThreadResponse(thread models.Thread) ThreadResponse {
	participants := make([]ThreadParticipantResponse, 0, len(thread.Participants))
	for _, p := range thread.Participants {
		participants = append(participants, ThreadParticipantResponse{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
		})
	}

	return ThreadResponse{
		ID:                  thread.ID,
		ParticipantIDs:      thread.ParticipantIDs(),
		Participants:        participants,
		LastMessageText:     thread.LastMessageText,
		LastMessageSenderID: thread.LastMessageSenderID,
		CreatedAt:           thread.CreatedAt,
		UpdatedAt:           thread.UpdatedAt,
	}
}

// NewThreadResponseSlice converts thread models into DTOs.
func NewThreadResponseSlice(threads []models.Thread) []ThreadResponse {
	out := make([]ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		out = append(out, NewThreadResponse(thread))
	}
	return out
}

// MessageResponse is the stored form of a message, returned after a send.
type MessageResponse struct {
	ID          uint                `json:"id"`
	ThreadID    string              `json:"thread_id"`
	SenderID    string              `json:"sender_id"`
	ReceiverID  string              `json:"receiver_id"`
	Text        string              `json:"text"`
	Attachments []AttachmentPayload `json:"attachments"`
	CreatedAt   time.Time           `json:"created_at"`
}

// NewMessageResponse converts a message model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:          message.ID,
		ThreadID:    message.ThreadID,
		SenderID:    message.SenderID,
		ReceiverID:  message.ReceiverID,
		Text:        message.Text,
		Attachments: MessageAttachments(message),
		CreatedAt:   message.CreatedAt,
	}
}

// MessageView is a message as rendered for one viewer.
type MessageView struct {
	ID          uint                `json:"id"`
	Text        string              `json:"text"`
	Sender      string              `json:"sender"`
	AvatarURL   string              `json:"avatar_url"`
	Timestamp   string              `json:"timestamp"`
	Attachments []AttachmentPayload `json:"attachments"`
}

// ChatSocketFrame is an inbound websocket frame carrying a message to send.
type ChatSocketFrame struct {
	Text        string              `json:"text"`
	Attachments []AttachmentPayload `json:"attachments"`
}

// ChatSocketEvent is an outbound websocket frame.
type ChatSocketEvent struct {
	Type     string           `json:"type"`
	Messages []MessageView    `json:"messages,omitempty"`
	Message  *MessageResponse `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Websocket event types.
const (
	ChatEventSnapshot = "messages"
	ChatEventAck      = "ack"
	ChatEventError    = "error"
)

// MessageAttachments decodes the attachments of a stored message. Undecodable
// payloads render as no attachments.
func MessageAttachments(message models.Message) []AttachmentPayload {
	items, err := message.AttachmentList()
	if err != nil || len(items) == 0 {
		return []AttachmentPayload{}
	}

	out := make([]AttachmentPayload, 0, len(items))
	for _, item := range items {
		out = append(out, AttachmentPayload{URL: item.URL, MimeType: item.MimeType, Name: item.Name})
	}
	return out
}
