package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/homefix-api/internal/models"
)

// MessageRepository persists chat messages.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	ListByThread(ctx context.Context, threadID string) ([]models.Message, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// ListByThread returns every message of the thread, oldest first.
func (r *messageRepository) ListByThread(ctx context.Context, threadID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

