package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/models"
	"github.com/campusmarket/campus-market-api/internal/repository"
)

// ErrListingNotAuthorised indicates the actor is neither the seller nor an
// admin for a mutation.
var ErrListingNotAuthorised = errors.New("only the seller or an admin can modify this listing")

const placeholderImage = "https://images.unsplash.com/photo-1518779578993-ec3579fee39f"

// ListingService owns listing lifecycle: the messaging core only reads
// listings through the repository, it never mutates them beyond counters.
type ListingService interface {
	Create(ctx context.Context, actor Identity, payload dto.ListingCreateRequest) (dto.ListingResponse, error)
	Get(ctx context.Context, viewerID string, id uint) (dto.ListingResponse, error)
	List(ctx context.Context, viewerID string, query dto.ListingListQuery) ([]dto.ListingResponse, error)
	Update(ctx context.Context, actor Identity, id uint, payload dto.ListingUpdateRequest) (dto.ListingResponse, error)
	Delete(ctx context.Context, actor Identity, id uint) error
	IncrementMetric(ctx context.Context, id uint, payload dto.MetricIncrementRequest) (dto.ListingMetrics, error)
}

type listingService struct {
	listings  repository.ListingRepository
	saved     repository.SavedRepository
	realtime  RealtimeService
	validator *validator.Validate
	logger    zerolog.Logger
	sanitizer *bluemonday.Policy
}

// NewListingService constructs the listing service. realtime may be nil;
// lifecycle broadcasts are then skipped.
func NewListingService(listings repository.ListingRepository, saved repository.SavedRepository, realtime RealtimeService, validate *validator.Validate, logger zerolog.Logger) ListingService {
	return &listingService{
		listings:  listings,
		saved:     saved,
		realtime:  realtime,
		validator: validate,
		logger:    logger.With().Str("component", "listing_service").Logger(),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

// broadcast pushes a listing lifecycle event to viewers joined to the
// listing's presence room. Conversations never flow through here, only
// listing state everyone is allowed to see.
func (s *listingService) broadcast(event RealtimeEvent) {
	if s.realtime == nil {
		return
	}
	s.realtime.EmitToListing(event)
}

func (s *listingService) Create(ctx context.Context, actor Identity, payload dto.ListingCreateRequest) (dto.ListingResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ListingResponse{}, err
	}

	images := payload.Images
	if len(images) == 0 {
		images = []string{placeholderImage}
	}
	encoded, err := json.Marshal(images)
	if err != nil {
		return dto.ListingResponse{}, err
	}

	condition := payload.Condition
	if condition == "" {
		condition = "Good"
	}

	listing := models.Listing{
		Title:       strings.TrimSpace(s.sanitizer.Sanitize(payload.Title)),
		Description: strings.TrimSpace(s.sanitizer.Sanitize(payload.Description)),
		Price:       payload.Price,
		CategoryID:  payload.CategoryID,
		Condition:   condition,
		ZoneID:      payload.ZoneID,
		PickupNote:  strings.TrimSpace(s.sanitizer.Sanitize(payload.PickupNote)),
		Images:      datatypes.JSON(encoded),
		SellerID:    actor.ID,
		SellerName:  actor.Name,
		Status:      models.ListingStatusActive,
	}
	if err := s.listings.Create(ctx, &listing); err != nil {
		return dto.ListingResponse{}, err
	}

	s.logger.Info().Uint("listing_id", listing.ID).Str("seller_id", actor.ID).Msg("listing created")
	return dto.NewListingResponse(listing), nil
}

func (s *listingService) Get(ctx context.Context, viewerID string, id uint) (dto.ListingResponse, error) {
	listing, err := s.listings.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ListingResponse{}, ErrListingNotFound
	}
	if err != nil {
		return dto.ListingResponse{}, err
	}

	response := dto.NewListingResponse(listing)
	if viewerID != "" {
		if saved, err := s.saved.Exists(ctx, viewerID, id); err == nil {
			response.Favorite = saved
		}
	}
	return response, nil
}

func (s *listingService) List(ctx context.Context, viewerID string, query dto.ListingListQuery) ([]dto.ListingResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	listings, err := s.listings.List(ctx, repository.ListingFilter{
		CategoryID: query.CategoryID,
		ZoneID:     query.ZoneID,
		Status:     query.Status,
		SellerID:   query.SellerID,
		Search:     query.Search,
	})
	if err != nil {
		return nil, err
	}

	responses := dto.NewListingResponseSlice(listings)
	if viewerID != "" {
		if saved, err := s.saved.ListByUser(ctx, viewerID); err == nil {
			savedSet := make(map[uint]struct{}, len(saved))
			for _, item := range saved {
				savedSet[item.ListingID] = struct{}{}
			}
			for i := range responses {
				_, responses[i].Favorite = savedSet[responses[i].ID]
			}
		}
	}
	return responses, nil
}

func (s *listingService) Update(ctx context.Context, actor Identity, id uint, payload dto.ListingUpdateRequest) (dto.ListingResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ListingResponse{}, err
	}

	listing, err := s.listings.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ListingResponse{}, ErrListingNotFound
	}
	if err != nil {
		return dto.ListingResponse{}, err
	}

	if listing.SellerID != actor.ID && !actor.IsAdmin() {
		return dto.ListingResponse{}, ErrListingNotAuthorised
	}

	if payload.Title != nil {
		listing.Title = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Title))
	}
	if payload.Description != nil {
		listing.Description = strings.TrimSpace(s.sanitizer.Sanitize(*payload.Description))
	}
	if payload.Price != nil {
		listing.Price = *payload.Price
	}
	if payload.CategoryID != nil {
		listing.CategoryID = *payload.CategoryID
	}
	if payload.Condition != nil {
		listing.Condition = *payload.Condition
	}
	if payload.ZoneID != nil {
		listing.ZoneID = *payload.ZoneID
	}
	if payload.PickupNote != nil {
		listing.PickupNote = strings.TrimSpace(s.sanitizer.Sanitize(*payload.PickupNote))
	}
	if payload.Status != nil {
		listing.Status = *payload.Status
	}
	if payload.Images != nil {
		encoded, err := json.Marshal(*payload.Images)
		if err != nil {
			return dto.ListingResponse{}, err
		}
		listing.Images = datatypes.JSON(encoded)
	}

	if err := s.listings.Update(ctx, &listing); err != nil {
		return dto.ListingResponse{}, err
	}

	response := dto.NewListingResponse(listing)
	s.broadcast(RealtimeEvent{Event: EventListingUpdated, ListingID: id, Listing: &response})
	return response, nil
}

func (s *listingService) Delete(ctx context.Context, actor Identity, id uint) error {
	listing, err := s.listings.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrListingNotFound
	}
	if err != nil {
		return err
	}

	if listing.SellerID != actor.ID && !actor.IsAdmin() {
		return ErrListingNotAuthorised
	}

	if err := s.listings.Delete(ctx, id); err != nil {
		return err
	}

	s.broadcast(RealtimeEvent{Event: EventListingRemoved, ListingID: id})
	s.logger.Info().Uint("listing_id", id).Str("actor_id", actor.ID).Msg("listing deleted")
	return nil
}

func (s *listingService) IncrementMetric(ctx context.Context, id uint, payload dto.MetricIncrementRequest) (dto.ListingMetrics, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ListingMetrics{}, err
	}

	if _, err := s.listings.Get(ctx, id); errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.ListingMetrics{}, ErrListingNotFound
	} else if err != nil {
		return dto.ListingMetrics{}, err
	}

	if err := s.listings.IncrementMetric(ctx, id, payload.Metric); err != nil {
		return dto.ListingMetrics{}, err
	}

	listing, err := s.listings.Get(ctx, id)
	if err != nil {
		return dto.ListingMetrics{}, err
	}
	return dto.ListingMetrics{Views: listing.Views, Saves: listing.Saves, Chats: listing.Chats}, nil
}
