package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/repository"
)

// SavedService manages favorites. Saving is idempotent; the (user, listing)
// pair is unique.
type SavedService interface {
	List(ctx context.Context, userID string) ([]dto.SavedListingResponse, error)
	Save(ctx context.Context, userID string, listingID uint) (dto.SavedListingResponse, error)
	Remove(ctx context.Context, userID string, listingID uint) error
}

type savedService struct {
	saved    repository.SavedRepository
	listings repository.ListingRepository
	logger   zerolog.Logger
}

// NewSavedService constructs the favorites service.
func NewSavedService(saved repository.SavedRepository, listings repository.ListingRepository, logger zerolog.Logger) SavedService {
	return &savedService{
		saved:    saved,
		listings: listings,
		logger:   logger.With().Str("component", "saved_service").Logger(),
	}
}

func (s *savedService) List(ctx context.Context, userID string) ([]dto.SavedListingResponse, error) {
	items, err := s.saved.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewSavedListingResponseSlice(items), nil
}

func (s *savedService) Save(ctx context.Context, userID string, listingID uint) (dto.SavedListingResponse, error) {
	if _, err := s.listings.Get(ctx, listingID); errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.SavedListingResponse{}, ErrListingNotFound
	} else if err != nil {
		return dto.SavedListingResponse{}, err
	}

	exists, err := s.saved.Exists(ctx, userID, listingID)
	if err != nil {
		return dto.SavedListingResponse{}, err
	}
	if !exists {
		if err := s.saved.Save(ctx, userID, listingID); err != nil {
			return dto.SavedListingResponse{}, err
		}
		if err := s.listings.IncrementMetric(ctx, listingID, "saves"); err != nil {
			s.logger.Warn().Err(err).Uint("listing_id", listingID).Msg("failed to increment saves metric")
		}
	}
	return dto.SavedListingResponse{ListingID: listingID}, nil
}

func (s *savedService) Remove(ctx context.Context, userID string, listingID uint) error {
	if _, err := s.listings.Get(ctx, listingID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrListingNotFound
	} else if err != nil {
		return err
	}

	removed, err := s.saved.Remove(ctx, userID, listingID)
	if err != nil {
		return err
	}
	if removed {
		if err := s.listings.DecrementSaves(ctx, listingID); err != nil {
			s.logger.Warn().Err(err).Uint("listing_id", listingID).Msg("failed to decrement saves metric")
		}
	}
	return nil
}
