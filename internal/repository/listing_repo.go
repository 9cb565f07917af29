package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// ListingFilter narrows the public listing index.
type ListingFilter struct {
	CategoryID int
	ZoneID     int
	Status     string
	SellerID   string
	Search     string
}

// ListingRepository persists marketplace listings and their counters.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	Get(ctx context.Context, id uint) (models.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]models.Listing, error)
	Update(ctx context.Context, listing *models.Listing) error
	Delete(ctx context.Context, id uint) error
	IncrementMetric(ctx context.Context, id uint, metric string) error
	DecrementSaves(ctx context.Context, id uint) error
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository constructs a listing repository backed by GORM.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *listingRepository) Get(ctx context.Context, id uint) (models.Listing, error) {
	var listing models.Listing
	err := r.db.WithContext(ctx).
		Preload("Offers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&listing, id).Error
	if err != nil {
		return models.Listing{}, err
	}
	return listing, nil
}

func (r *listingRepository) List(ctx context.Context, filter ListingFilter) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).Model(&models.Listing{}).
		Preload("Offers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })

	if filter.CategoryID > 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.ZoneID > 0 {
		query = query.Where("zone_id = ?", filter.ZoneID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SellerID != "" {
		query = query.Where("seller_id = ?", filter.SellerID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}

	var listings []models.Listing
	if err := query.Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *listingRepository) Update(ctx context.Context, listing *models.Listing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *listingRepository) Delete(ctx context.Context, id uint) error {
	// The conversational log and offers share the listing's lifecycle.
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("listing_id = ?", id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", id).Delete(&models.Offer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("listing_id = ?", id).Delete(&models.SavedListing{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Listing{}, id).Error
	})
}

// IncrementMetric applies an atomic SQL increment so concurrent bumps never
// lose updates.
func (r *listingRepository) IncrementMetric(ctx context.Context, id uint, metric string) error {
	column, ok := metricColumn(metric)
	if !ok {
		return gorm.ErrInvalidField
	}
	return r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

func (r *listingRepository) DecrementSaves(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND saves > 0", id).
		UpdateColumn("saves", gorm.Expr("saves - 1")).Error
}

func metricColumn(metric string) (string, bool) {
	switch metric {
	case "views":
		return "views", true
	case "saves":
		return "saves", true
	case "chats":
		return "chats", true
	default:
		return "", false
	}
}
