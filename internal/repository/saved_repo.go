package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// SavedRepository persists favorite relations between users and listings.
type SavedRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.SavedListing, error)
	Exists(ctx context.Context, userID string, listingID uint) (bool, error)
	Save(ctx context.Context, userID string, listingID uint) error
	Remove(ctx context.Context, userID string, listingID uint) (bool, error)
}

type savedRepository struct {
	db *gorm.DB
}

// NewSavedRepository constructs a saved-listing repository backed by GORM.
func NewSavedRepository(db *gorm.DB) SavedRepository {
	return &savedRepository{db: db}
}

func (r *savedRepository) ListByUser(ctx context.Context, userID string) ([]models.SavedListing, error) {
	var items []models.SavedListing
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *savedRepository) Exists(ctx context.Context, userID string, listingID uint) (bool, error) {
	var item models.SavedListing
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *savedRepository) Save(ctx context.Context, userID string, listingID uint) error {
	return r.db.WithContext(ctx).Create(&models.SavedListing{UserID: userID, ListingID: listingID}).Error
}

// Remove deletes the relation and reports whether a row actually existed.
func (r *savedRepository) Remove(ctx context.Context, userID string, listingID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.SavedListing{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
