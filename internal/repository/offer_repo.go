package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// OfferRepository persists price offers attached to listings.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	Get(ctx context.Context, listingID, offerID uint) (models.Offer, error)
	ListByListing(ctx context.Context, listingID uint) ([]models.Offer, error)
	UpdateStatus(ctx context.Context, listingID, offerID uint, status string) error
}

type offerRepository struct {
	db *gorm.DB
}

// NewOfferRepository constructs an offer repository backed by GORM.
func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *offerRepository) Get(ctx context.Context, listingID, offerID uint) (models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		First(&offer, offerID).Error
	if err != nil {
		return models.Offer{}, err
	}
	return offer, nil
}

func (r *offerRepository) ListByListing(ctx context.Context, listingID uint) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.WithContext(ctx).
		Where("listing_id = ?", listingID).
		Order("id ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *offerRepository) UpdateStatus(ctx context.Context, listingID, offerID uint, status string) error {
	return r.db.WithContext(ctx).Model(&models.Offer{}).
		Where("id = ? AND listing_id = ?", offerID, listingID).
		Update("status", status).Error
}
