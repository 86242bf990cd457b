package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Message is an immutable chat entry inside a thread.
type Message struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ThreadID    string         `gorm:"size:160;index:idx_messages_thread_created,priority:1;not null" json:"thread_id"`
	SenderID    string         `gorm:"size:64;index;not null" json:"sender_id"`
	ReceiverID  string         `gorm:"size:64;index" json:"receiver_id"`
	Text        string         `gorm:"type:text" json:"text"`
	Attachments datatypes.JSON `json:"attachments"`
	CreatedAt   time.Time      `gorm:"index:idx_messages_thread_created,priority:2" json:"created_at"`
}

// MessageAttachment references an uploaded file carried by a message.
type MessageAttachment struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type,omitempty"`
	Name     string `json:"name,omitempty"`
}

// AttachmentList decodes the stored attachment references.
func (m Message) AttachmentList() ([]MessageAttachment, error) {
	if len(m.Attachments) == 0 {
		return nil, nil
	}
	var out []MessageAttachment
	if err := json.Unmarshal(m.Attachments, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetAttachments encodes attachment references onto the message.
func (m *Message) SetAttachments(items []MessageAttachment) error {
	if len(items) == 0 {
		m.Attachments = nil
		return nil
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	m.Attachments = datatypes.JSON(raw)
	return nil
}
