package models

import "time"

// Thread is a conversation between exactly two users. Its ID is derived from
// the participant IDs, so starting a chat twice lands on the same row.
type Thread struct {
	ID                  string              `gorm:"primaryKey;size:160" json:"id"`
	Participants        []ThreadParticipant `gorm:"foreignKey:ThreadID;references:ID" json:"participants"`
	LastMessageText     string              `gorm:"type:text" json:"last_message_text"`
	LastMessageSenderID string              `gorm:"size:64" json:"last_message_sender_id"`
	CreatedAt           time.Time           `json:"created_at"`
	UpdatedAt           time.Time           `gorm:"index" json:"updated_at"`
}

// ThreadParticipant stores membership plus the display metadata captured when
// the thread was created.
type ThreadParticipant struct {
	ThreadID    string    `gorm:"primaryKey;size:160" json:"thread_id"`
	UserID      string    `gorm:"primaryKey;size:64;index" json:"user_id"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	AvatarURL   string    `gorm:"size:512" json:"avatar_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// ParticipantIDs returns the participant user IDs in stored order.
func (t Thread) ParticipantIDs() []string {
	ids := make([]string, 0, len(t.Participants))
	for _, p := range t.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

// Participant returns the participant row for userID, if any.
func (t Thread) Participant(userID string) (ThreadParticipant, bool) {
	for _, p := range t.Participants {
		if p.UserID == userID {
			return p, true
		}
	}
	return ThreadParticipant{}, false
}

// HasParticipant reports whether userID belongs to the thread.
func (t Thread) HasParticipant(userID string) bool {
	_, ok := t.Participant(userID)
	return ok
}

// OtherParticipant returns the participant that is not userID.
func (t Thread) OtherParticipant(userID string) (ThreadParticipant, bool) {
	for _, p := range t.Participants {
		if p.UserID != userID {
			return p, true
		}
	}
	return ThreadParticipant{}, false
}
