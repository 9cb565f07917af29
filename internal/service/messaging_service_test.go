package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/models"
	"github.com/campusmarket/campus-market-api/internal/repository"
)

type stubMessageRepo struct {
	messages []models.Message
	nextID   uint
}

func (s *stubMessageRepo) Append(ctx context.Context, message *models.Message) error {
	s.nextID++
	message.ID = s.nextID
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, *message)
	return nil
}

func (s *stubMessageRepo) ListByListing(ctx context.Context, listingID uint) ([]models.Message, error) {
	var out []models.Message
	for _, message := range s.messages {
		if message.ListingID == listingID {
			out = append(out, message)
		}
	}
	return out, nil
}

func (s *stubMessageRepo) FindByClientToken(ctx context.Context, listingID uint, fromID, token string) (models.Message, bool, error) {
	if token == "" {
		return models.Message{}, false, nil
	}
	for _, message := range s.messages {
		if message.ListingID == listingID && message.FromID == fromID && message.ClientToken == token {
			return message, true, nil
		}
	}
	return models.Message{}, false, nil
}

type stubListingRepo struct {
	listing    models.Listing
	missing    bool
	increments []string
}

func (s *stubListingRepo) Create(ctx context.Context, listing *models.Listing) error {
	listing.ID = 1
	s.listing = *listing
	return nil
}

func (s *stubListingRepo) Get(ctx context.Context, id uint) (models.Listing, error) {
	if s.missing || s.listing.ID != id {
		return models.Listing{}, gorm.ErrRecordNotFound
	}
	return s.listing, nil
}

func (s *stubListingRepo) List(ctx context.Context, filter repository.ListingFilter) ([]models.Listing, error) {
	return []models.Listing{s.listing}, nil
}

func (s *stubListingRepo) Update(ctx context.Context, listing *models.Listing) error {
	s.listing = *listing
	return nil
}

func (s *stubListingRepo) Delete(ctx context.Context, id uint) error { return nil }

func (s *stubListingRepo) IncrementMetric(ctx context.Context, id uint, metric string) error {
	s.increments = append(s.increments, metric)
	return nil
}

func (s *stubListingRepo) DecrementSaves(ctx context.Context, id uint) error { return nil }

type recordedEmit struct {
	event   RealtimeEvent
	userIDs []string
}

type stubRealtime struct {
	emits        []recordedEmit
	listingEmits []RealtimeEvent
}

func (s *stubRealtime) ServeConnection(conn *websocket.Conn, identity ConnectionIdentity) {}

func (s *stubRealtime) EmitToUsers(event RealtimeEvent, userIDs ...string) {
	s.emits = append(s.emits, recordedEmit{event: event, userIDs: userIDs})
}

func (s *stubRealtime) EmitToListing(event RealtimeEvent) {
	s.listingEmits = append(s.listingEmits, event)
}

func (s *stubRealtime) Start(ctx context.Context) {}

func testListing(sellerID string) models.Listing {
	return models.Listing{ID: 7, Title: "Desk lamp", SellerID: sellerID, SellerName: "Sam", Status: models.ListingStatusActive}
}

func newMessagingFixture(sellerID string) (*stubMessageRepo, *stubListingRepo, *stubRealtime, MessagingService) {
	messages := &stubMessageRepo{}
	listings := &stubListingRepo{listing: testListing(sellerID)}
	realtime := &stubRealtime{}
	svc := NewMessagingService(messages, listings, realtime, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	return messages, listings, realtime, svc
}

func TestSendDefaultsRecipientToSeller(t *testing.T) {
	_, listings, realtime, svc := newMessagingFixture("seller")

	message, err := svc.Send(context.Background(), Identity{ID: "buyer-1", Name: "Bea", Verified: true}, 7, dto.MessageSendRequest{Text: "Is this available?"})
	require.NoError(t, err)
	require.Equal(t, "seller", message.To)
	require.Equal(t, "buyer-1", message.From)
	require.NotZero(t, message.ID)

	require.Equal(t, []string{"chats"}, listings.increments)
	require.Len(t, realtime.emits, 1)
	require.Equal(t, EventMessageNew, realtime.emits[0].event.Event)
	require.ElementsMatch(t, []string{"buyer-1", "seller"}, realtime.emits[0].userIDs)
}

func TestSendSellerColdRequiresRecipient(t *testing.T) {
	_, _, _, svc := newMessagingFixture("seller")

	_, err := svc.Send(context.Background(), Identity{ID: "seller", Verified: true}, 7, dto.MessageSendRequest{Text: "Anyone interested?"})
	require.ErrorIs(t, err, ErrRecipientRequired)
}

func TestSendSellerDerivesLoneCounterparty(t *testing.T) {
	messages, _, _, svc := newMessagingFixture("seller")
	messages.messages = []models.Message{{ID: 1, ListingID: 7, FromID: "buyer-1", ToID: "seller", Text: "hi", Type: models.MessageTypeMessage}}
	messages.nextID = 1

	message, err := svc.Send(context.Background(), Identity{ID: "seller", Verified: true}, 7, dto.MessageSendRequest{Text: "Still available."})
	require.NoError(t, err)
	require.Equal(t, "buyer-1", message.To)
}

func TestSendRejectsAdmin(t *testing.T) {
	_, _, _, svc := newMessagingFixture("seller")

	_, err := svc.Send(context.Background(), Identity{ID: "admin-1", Role: models.RoleAdmin, Verified: true}, 7, dto.MessageSendRequest{Text: "hello"})
	require.ErrorIs(t, err, ErrAdminCannotParticipate)
}

func TestSendUnknownListing(t *testing.T) {
	_, listings, _, svc := newMessagingFixture("seller")
	listings.missing = true

	_, err := svc.Send(context.Background(), Identity{ID: "buyer-1", Verified: true}, 7, dto.MessageSendRequest{Text: "hello"})
	require.ErrorIs(t, err, ErrListingNotFound)
}

func TestSendDuplicateTokenReturnsOriginal(t *testing.T) {
	_, listings, realtime, svc := newMessagingFixture("seller")
	actor := Identity{ID: "buyer-1", Verified: true}
	payload := dto.MessageSendRequest{Text: "Is this available?", ClientToken: "tok-1"}

	first, err := svc.Send(context.Background(), actor, 7, payload)
	require.NoError(t, err)

	second, err := svc.Send(context.Background(), actor, 7, payload)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// The retry neither bumps the counter nor re-notifies.
	require.Equal(t, []string{"chats"}, listings.increments)
	require.Len(t, realtime.emits, 1)
}

func TestSendSanitizesMarkup(t *testing.T) {
	_, _, _, svc := newMessagingFixture("seller")

	message, err := svc.Send(context.Background(), Identity{ID: "buyer-1", Verified: true}, 7, dto.MessageSendRequest{Text: "<script>alert(1)</script>hello"})
	require.NoError(t, err)
	require.Equal(t, "hello", message.Text)

	_, err = svc.Send(context.Background(), Identity{ID: "buyer-1", Verified: true}, 7, dto.MessageSendRequest{Text: "<script>alert(1)</script>"})
	require.ErrorIs(t, err, ErrEmptyMessage)
}

func TestSendValidatesLength(t *testing.T) {
	_, _, _, svc := newMessagingFixture("seller")

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'a'
	}
	_, err := svc.Send(context.Background(), Identity{ID: "buyer-1", Verified: true}, 7, dto.MessageSendRequest{Text: string(long)})
	require.Error(t, err)

	_, err = svc.Send(context.Background(), Identity{ID: "buyer-1", Verified: true}, 7, dto.MessageSendRequest{Text: ""})
	require.Error(t, err)
}

func TestListSellerFiltersByBuyer(t *testing.T) {
	messages, _, _, svc := newMessagingFixture("seller")
	messages.messages = []models.Message{
		{ID: 1, ListingID: 7, FromID: "buyer-1", ToID: "seller", Text: "from b1", Type: models.MessageTypeMessage},
		{ID: 2, ListingID: 7, FromID: "buyer-2", ToID: "seller", Text: "from b2", Type: models.MessageTypeMessage},
		{ID: 3, ListingID: 7, FromID: "seller", ToID: "buyer-2", Text: "to b2", Type: models.MessageTypeMessage},
	}

	asSeller, err := svc.List(context.Background(), Identity{ID: "seller", Verified: true}, 7, dto.MessageListQuery{BuyerID: "buyer-1"})
	require.NoError(t, err)
	require.Len(t, asSeller, 1)
	require.Equal(t, "from b1", asSeller[0].Text)

	full, err := svc.List(context.Background(), Identity{ID: "seller", Verified: true}, 7, dto.MessageListQuery{})
	require.NoError(t, err)
	require.Len(t, full, 3)
}

func TestListBuyerNeverSeesOtherBuyers(t *testing.T) {
	messages, _, _, svc := newMessagingFixture("seller")
	messages.messages = []models.Message{
		{ID: 1, ListingID: 7, FromID: "buyer-1", ToID: "seller", Text: "from b1", Type: models.MessageTypeMessage},
		{ID: 2, ListingID: 7, FromID: "buyer-2", ToID: "seller", Text: "from b2", Type: models.MessageTypeMessage},
	}

	visible, err := svc.List(context.Background(), Identity{ID: "buyer-1", Verified: true}, 7, dto.MessageListQuery{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, "from b1", visible[0].Text)
}

func TestAppendStatusSkipsChatsCounter(t *testing.T) {
	_, listings, _, svc := newMessagingFixture("seller")

	status, err := svc.AppendStatus(context.Background(), 7, "Offer of 40.00 accepted", "buyer-1")
	require.NoError(t, err)
	require.Equal(t, models.SystemSender, status.From)
	require.Equal(t, models.MessageTypeStatus, status.Type)
	require.Empty(t, listings.increments)
}

func TestSendIgnoresBuyerSuppliedRecipient(t *testing.T) {
	messages, _, realtime, svc := newMessagingFixture("seller")

	message, err := svc.Send(context.Background(), Identity{ID: "buyer-1", Name: "Bea", Verified: true}, 7, dto.MessageSendRequest{Text: "Still available?", To: "mallory"})
	require.NoError(t, err)
	require.Equal(t, "seller", message.To)

	require.Len(t, realtime.emits, 1)
	require.ElementsMatch(t, []string{"buyer-1", "seller"}, realtime.emits[0].userIDs)

	// The seller's thread view must not grow a thread for an id that never
	// took part in the conversation.
	threads := DeriveThreads(messages.messages, 7, "seller", "seller")
	require.Len(t, threads, 1)
	require.Equal(t, "buyer-1", threads[0].CounterpartyID)
}
