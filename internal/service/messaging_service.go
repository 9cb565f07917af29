package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
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

// ErrListingNotFound indicates the referenced listing does not exist.
var ErrListingNotFound = errors.New("listing not found")

// ErrRecipientRequired indicates a seller tried to send without naming a
// buyer. A seller with zero inbound contact has no one to write to.
var ErrRecipientRequired = errors.New("recipient required")

// ErrAdminCannotParticipate indicates an administrator attempted to act as a
// marketplace buyer or seller.
var ErrAdminCannotParticipate = errors.New("administrators cannot participate in conversations")

// ErrEmptyMessage indicates the text was empty after sanitization.
var ErrEmptyMessage = errors.New("message text empty after sanitization")

// Identity is the verified acting account, as established by the auth
// middleware. Verification itself is enforced before requests reach the
// services.
type Identity struct {
	ID       string
	Name     string
	Role     string
	Verified bool
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return strings.EqualFold(i.Role, models.RoleAdmin)
}

// MessagingService threads buyer↔seller conversations per listing and
// enforces who may message whom.
type MessagingService interface {
	Send(ctx context.Context, actor Identity, listingID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error)
	List(ctx context.Context, actor Identity, listingID uint, query dto.MessageListQuery) ([]dto.MessageResponse, error)
	Threads(ctx context.Context, actor Identity, listingID uint) ([]dto.ThreadResponse, error)
	AppendStatus(ctx context.Context, listingID uint, text, to string) (dto.MessageResponse, error)
}

type messagingService struct {
	messages  repository.MessageRepository
	listings  repository.ListingRepository
	realtime  RealtimeService
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
}

// NewMessagingService constructs the messaging service.
func NewMessagingService(messages repository.MessageRepository, listings repository.ListingRepository, realtime RealtimeService, validate *validator.Validate, logger zerolog.Logger) MessagingService {
	return &messagingService{
		messages:  messages,
		listings:  listings,
		realtime:  realtime,
		validator: validate,
		logger:    logger.With().Str("component", "messaging_service").Logger(),
		tracer:    otel.Tracer("github.com/campusmarket/campus-market-api/internal/service/messaging"),
		sanitizer: bluemonday.StrictPolicy(),
	}
}

func (s *messagingService) Send(ctx context.Context, actor Identity, listingID uint, payload dto.MessageSendRequest) (dto.MessageResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.MessageResponse{}, err
	}

	if actor.IsAdmin() {
		return dto.MessageResponse{}, ErrAdminCannotParticipate
	}

	listing, err := s.listings.Get(ctx, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.MessageResponse{}, ErrListingNotFound
	}
	if err != nil {
		return dto.MessageResponse{}, err
	}

	// Duplicate submissions carrying the same idempotency token return the
	// original entry without re-notifying anyone.
	if existing, found, err := s.messages.FindByClientToken(ctx, listingID, actor.ID, payload.ClientToken); err != nil {
		return dto.MessageResponse{}, err
	} else if found {
		return dto.NewMessageResponse(existing), nil
	}

	isSeller := listing.SellerID == actor.ID
	recipient := strings.TrimSpace(payload.To)
	if isSeller {
		if recipient == "" {
			// A lone existing thread makes the recipient unambiguous; with
			// zero or several buyers the seller has to name one.
			log, err := s.messages.ListByListing(ctx, listingID)
			if err != nil {
				return dto.MessageResponse{}, err
			}
			counterparties := Counterparties(log, listing.SellerID)
			if len(counterparties) != 1 {
				return dto.MessageResponse{}, ErrRecipientRequired
			}
			recipient = counterparties[0]
		}
	} else {
		// Buyers only ever talk to the seller. Ignoring a supplied
		// recipient keeps a sender from planting threads under ids that
		// never took part in the conversation.
		recipient = listing.SellerID
	}

	clean := strings.TrimSpace(s.sanitizer.Sanitize(payload.Text))
	if clean == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	spanCtx, span := s.tracer.Start(ctx, "messaging.send", trace.WithAttributes(
		attribute.Int64("listing.id", int64(listingID)),
		attribute.String("message.from", actor.ID),
		attribute.String("message.to", recipient),
	))
	defer span.End()

	message := models.Message{
		ListingID:   listingID,
		FromID:      actor.ID,
		ToID:        recipient,
		FromName:    actor.Name,
		Text:        clean,
		Type:        models.MessageTypeMessage,
		ClientToken: payload.ClientToken,
	}
	if err := s.messages.Append(spanCtx, &message); err != nil {
		span.RecordError(err)
		return dto.MessageResponse{}, err
	}

	// The chats counter is a side effect; a send never fails because the
	// increment did.
	if err := s.listings.IncrementMetric(spanCtx, listingID, "chats"); err != nil {
		s.logger.Warn().Err(err).Uint("listing_id", listingID).Msg("failed to increment chats metric")
	}

	response := dto.NewMessageResponse(message)
	s.notify(RealtimeEvent{Event: EventMessageNew, ListingID: listingID, Message: &response}, actor.ID, recipient)
	observability.MessagesSentTotal().WithLabelValues(models.MessageTypeMessage).Inc()

	return response, nil
}

func (s *messagingService) List(ctx context.Context, actor Identity, listingID uint, query dto.MessageListQuery) ([]dto.MessageResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	listing, err := s.listings.Get(ctx, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	log, err := s.messages.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	if listing.SellerID == actor.ID {
		if buyerID := strings.TrimSpace(query.BuyerID); buyerID != "" {
			return dto.NewMessageResponseSlice(VisibleMessages(log, listing.SellerID, buyerID)), nil
		}
		// The seller without a buyer filter sees the full log: it is their
		// listing and every thread is theirs.
		return dto.NewMessageResponseSlice(log), nil
	}

	return dto.NewMessageResponseSlice(VisibleMessages(log, listing.SellerID, actor.ID)), nil
}

func (s *messagingService) Threads(ctx context.Context, actor Identity, listingID uint) ([]dto.ThreadResponse, error) {
	listing, err := s.listings.Get(ctx, listingID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, err
	}

	log, err := s.messages.ListByListing(ctx, listingID)
	if err != nil {
		return nil, err
	}

	return DeriveThreads(log, listingID, actor.ID, listing.SellerID), nil
}

// AppendStatus records a server-generated status entry in the listing's log.
// Status entries never bump the chats counter.
func (s *messagingService) AppendStatus(ctx context.Context, listingID uint, text, to string) (dto.MessageResponse, error) {
	message := models.Message{
		ListingID: listingID,
		FromID:    models.SystemSender,
		ToID:      strings.TrimSpace(to),
		Text:      strings.TrimSpace(text),
		Type:      models.MessageTypeStatus,
	}
	if message.Text == "" {
		return dto.MessageResponse{}, ErrEmptyMessage
	}

	if err := s.messages.Append(ctx, &message); err != nil {
		return dto.MessageResponse{}, err
	}

	response := dto.NewMessageResponse(message)
	observability.MessagesSentTotal().WithLabelValues(models.MessageTypeStatus).Inc()
	return response, nil
}

func (s *messagingService) notify(event RealtimeEvent, userIDs ...string) {
	if s.realtime == nil {
		return
	}
	s.realtime.EmitToUsers(event, userIDs...)
}
