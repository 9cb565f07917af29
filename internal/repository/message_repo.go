package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// MessageRepository persists the append-only conversational log. No update
// or delete is exposed; rows die with their listing.
type MessageRepository interface {
	Append(ctx context.Context, message *models.Message) error
	ListByListing(ctx context.Context, listingID uint) ([]models.Message, error)
	FindByClientToken(ctx context.Context, listingID uint, fromID, token string) (models.Message, bool, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository constructs a message repository backed by GORM.
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Append(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *messageRepository) ListByListing(ctx context.Context, listingID uint) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// FindByClientToken looks up a previously persisted send by its idempotency
// token so duplicate submissions return the original row.
func (r *messageRepository) FindByClientToken(ctx context.Context, listingID uint, fromID, token string) (models.Message, bool, error) {
	if token == "" {
		return models.Message{}, false, nil
	}

	var message models.Message
	err := r.db.WithContext(ctx).
		Where("listing_id = ? AND from_id = ? AND client_token = ?", listingID, fromID, token).
		First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Message{}, false, nil
	}
	if err != nil {
		return models.Message{}, false, err
	}
	return message, true, nil
}
