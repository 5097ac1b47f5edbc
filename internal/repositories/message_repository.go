package repositories

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/egi-ims/messages-backend/internal/models"
)

// MessageRepository defines the interface for message storage operations.
// Batch writes are atomic: either every record in the batch is committed or
// none are.
type MessageRepository interface {
	Insert(ctx context.Context, message *models.Message) error
	InsertBatch(ctx context.Context, messages []*models.Message) error
	Find(ctx context.Context, id uint) (*models.Message, error)
	FindPage(ctx context.Context, checkinUserID string, before time.Time, limit int) ([]models.Message, error)
	FindUnread(ctx context.Context, checkinUserID string) ([]models.Message, error)
	CountUnread(ctx context.Context, checkinUserID string) (int64, error)
	UpdateBatch(ctx context.Context, messages []*models.Message) error
}

// PostgresMessageRepository implements MessageRepository on GORM
type PostgresMessageRepository struct {
	db *gorm.DB
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// Insert stores a single message
func (r *PostgresMessageRepository) Insert(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

// InsertBatch stores all messages in one transaction
func (r *PostgresMessageRepository) InsertBatch(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(messages).Error
	})
}

// Find retrieves a message by ID, returning nil when it does not exist
func (r *PostgresMessageRepository) Find(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).First(&message, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// FindPage retrieves messages sent before the given instant, newest first
func (r *PostgresMessageRepository) FindPage(ctx context.Context, checkinUserID string, before time.Time, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("checkin_user_id = ? AND sent_on < ?", checkinUserID, before).
		Order("sent_on DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// FindUnread retrieves all unread messages of a recipient
func (r *PostgresMessageRepository) FindUnread(ctx context.Context, checkinUserID string) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("checkin_user_id = ? AND was_read = ?", checkinUserID, false).
		Find(&messages).Error
	return messages, err
}

// CountUnread counts the unread messages of a recipient
func (r *PostgresMessageRepository) CountUnread(ctx context.Context, checkinUserID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("checkin_user_id = ? AND was_read = ?", checkinUserID, false).
		Count(&count).Error
	return count, err
}

// UpdateBatch persists all changed messages in one transaction
func (r *PostgresMessageRepository) UpdateBatch(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, message := range messages {
			if err := tx.Save(message).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
