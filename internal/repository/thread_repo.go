package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/homefix-api/internal/models"
)

// ThreadRepository persists two-party chat threads.
type ThreadRepository interface {
	EnsureThread(ctx context.Context, thread *models.Thread) (bool, error)
	Get(ctx context.Context, id string) (models.Thread, error)
	ListByParticipant(ctx context.Context, userID string) ([]models.Thread, error)
	TouchLastMessage(ctx context.Context, id, text, senderID string, at time.Time) error
}

type threadRepository struct {
	db *gorm.DB
}

// NewThreadRepository constructs a thread repository backed by GORM.
func NewThreadRepository(db *gorm.DB) ThreadRepository {
	return &threadRepository{db: db}
}

// EnsureThread inserts the thread and its participants unless a thread with
// the same ID already exists. It reports whether this call created the row.
func (r *threadRepository) EnsureThread(ctx context.Context, thread *models.Thread) (bool, error) {
	created := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Thread{
			ID:        thread.ID,
			CreatedAt: thread.CreatedAt,
			UpdatedAt: thread.UpdatedAt,
		}

		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(&row)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		created = true

		if len(thread.Participants) == 0 {
			return nil
		}

		participants := make([]models.ThreadParticipant, 0, len(thread.Participants))
		for _, p := range thread.Participants {
			p.ThreadID = thread.ID
			participants = append(participants, p)
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participants).Error
	})
	if err != nil {
		return false, err
	}

	return created, nil
}

func (r *threadRepository) Get(ctx context.Context, id string) (models.Thread, error) {
	var thread models.Thread
	err := r.db.WithContext(ctx).
		Preload("Participants", orderParticipants).
		Where("id = ?", id).
		First(&thread).Error
	if err != nil {
		return models.Thread{}, err
	}
	return thread, nil
}

func (r *threadRepository) ListByParticipant(ctx context.Context, userID string) ([]models.Thread, error) {
	var threads []models.Thread
	err := r.db.WithContext(ctx).
		Joins("JOIN thread_participants tp ON tp.thread_id = threads.id").
		Where("tp.user_id = ?", userID).
		Preload("Participants", orderParticipants).
		Order("threads.updated_at DESC").
		Order("threads.id ASC").
		Find(&threads).Error
	if err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *threadRepository) TouchLastMessage(ctx context.Context, id, text, senderID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.Thread{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_text":      text,
			"last_message_sender_id": senderID,
			"updated_at":             at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func orderParticipants(db *gorm.DB) *gorm.DB {
	return db.Order("user_id ASC")
}
