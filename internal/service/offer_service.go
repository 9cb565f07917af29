package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/models"
	"github.com/campusmarket/campus-market-api/internal/observability"
	"github.com/campusmarket/campus-market-api/internal/repository"
)

// ErrOfferNotFound indicates the referenced offer does not exist on the
// listing.
var ErrOfferNotFound = errors.New("offer not found")

// ErrOfferNotAuthorised indicates the actor may not mutate the offer. Only
// the listing's seller or an admin can change offer status.
var ErrOfferNotAuthorised = errors.New("not authorised to update offer")

// ErrSellerCannotOffer indicates a seller tried to bid on their own listing.
var ErrSellerCannotOffer = errors.New("sellers cannot make offers on their own listing")

// ErrOfferFinalized indicates a status change was attempted on an offer that
// already left the Pending state.
var ErrOfferFinalized = errors.New("offer status is final")

// OfferService tracks price negotiation per listing: Pending offers flip to
// Accepted or Declined exactly once.
type OfferService interface {
	Create(ctx context.Context, actor Identity, listingID uint, payload dto.OfferCreateRequest) ([]dto.OfferResponse, error)
	UpdateStatus(ctx context.Context, actor Identity, listingID, offerID uint, payload dto.OfferStatusUpdateRequest) ([]dto.OfferResponse, error)
}

type offerService struct {
	offers    repository.OfferRepository
	listings  repository.ListingRepository
	messaging MessagingService
	realtime  RealtimeService
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewOfferService constructs the offer service.
func NewOfferService(offers repository.OfferRepository, listings repository.ListingRepository, messaging MessagingService, realtime RealtimeService, validate *validator.Validate, logger zerolog.Logger) OfferService {
	return &offerService{
		offers:    offers,
		listings:  listings,
		messaging: messaging,
		realtime:  realtime,
		validator: validate,
		logger:    logger.With().Str("component", "offer_service").Logger(),
		tracer:    otel.Tracer("github.com/campusmarket/campus-market-api/internal/service/offer"),
	}
}

func (s *offerService) Create(ctx context.Context, actor Identity, listingID uint, payload dto.OfferCreateRequest) ([]dto.OfferResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	if actor.IsAdmin() {
		return nil, ErrAdminCannotParticipate
	}

	listing, err := s.listings.Get(ctx, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	if listing.SellerID == actor.ID {
		return nil, ErrSellerCannotOffer
	}

	spanCtx, span := s.tracer.Start(ctx, "offer.create", trace.WithAttributes(
		attribute.Int64("listing.id", int64(listingID)),
		attribute.String("offer.by", actor.ID),
		attribute.Float64("offer.price", payload.Price),
	))
	defer span.End()

	offer := models.Offer{
		ListingID: listingID,
		ByID:      actor.ID,
		ByName:    actor.Name,
		Price:     payload.Price,
		Status:    models.OfferStatusPending,
	}
	if err := s.offers.Create(spanCtx, &offer); err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.listings.IncrementMetric(spanCtx, listingID, "chats"); err != nil {
		s.logger.Warn().Err(err).Uint("listing_id", listingID).Msg("failed to increment chats metric")
	}

	response := dto.NewOfferResponse(offer)
	if s.realtime != nil {
		s.realtime.EmitToUsers(RealtimeEvent{Event: EventOfferNew, ListingID: listingID, Offer: &response}, listing.SellerID)
	}
	observability.OffersTotal().WithLabelValues("created").Inc()

	return s.listResponses(spanCtx, listingID)
}

func (s *offerService) UpdateStatus(ctx context.Context, actor Identity, listingID, offerID uint, payload dto.OfferStatusUpdateRequest) ([]dto.OfferResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, err
	}

	listing, err := s.listings.Get(ctx, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	if listing.SellerID != actor.ID && !actor.IsAdmin() {
		return nil, ErrOfferNotAuthorised
	}

	offer, err := s.offers.Get(ctx, listingID, offerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}

	if offer.Status != models.OfferStatusPending {
		return nil, ErrOfferFinalized
	}
	if payload.Status == models.OfferStatusPending {
		// No-op transition; nothing to persist or announce.
		return s.listResponses(ctx, listingID)
	}

	if err := s.offers.UpdateStatus(ctx, listingID, offerID, payload.Status); err != nil {
		return nil, err
	}
	offer.Status = payload.Status

	response := dto.NewOfferResponse(offer)
	if s.realtime != nil {
		s.realtime.EmitToUsers(RealtimeEvent{Event: EventOfferUpdated, ListingID: listingID, Offer: &response}, offer.ByID)
	}
	observability.OffersTotal().WithLabelValues("updated").Inc()

	if s.messaging != nil {
		text := fmt.Sprintf("Offer of %.2f %s", offer.Price, statusVerb(payload.Status))
		if status, err := s.messaging.AppendStatus(ctx, listingID, text, offer.ByID); err != nil {
			s.logger.Warn().Err(err).Uint("listing_id", listingID).Msg("failed to append offer status entry")
		} else if s.realtime != nil {
			s.realtime.EmitToUsers(RealtimeEvent{Event: EventMessageNew, ListingID: listingID, Message: &status}, offer.ByID, listing.SellerID)
		}
	}

	return s.listResponses(ctx, listingID)
}

func (s *offerService) listResponses(ctx context.Context, listingID uint) ([]dto.OfferResponse, error) {
	offers, err := s.offers.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	return dto.NewOfferResponseSlice(offers), nil
}

func statusVerb(status string) string {
	switch status {
	case models.OfferStatusAccepted:
		return "accepted"
	case models.OfferStatusDeclined:
		return "declined"
	default:
		return "updated"
	}
}
