package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/observability"
)

const realtimeSendBufferSize = 32

// Realtime event names pushed to clients.
const (
	EventMessageNew     = "message:new"
	EventOfferNew       = "offer:new"
	EventOfferUpdated   = "offer:updated"
	EventListingUpdated = "listing:updated"
	EventListingRemoved = "listing:removed"
)

// RealtimeEvent is the envelope pushed to connected clients.
type RealtimeEvent struct {
	Event     string               `json:"event"`
	ListingID uint                 `json:"listing_id"`
	Message   *dto.MessageResponse `json:"message,omitempty"`
	Offer     *dto.OfferResponse   `json:"offer,omitempty"`
	Listing   *dto.ListingResponse `json:"listing,omitempty"`
}

// ConnectionIdentity wraps the authenticated identity established during the
// websocket handshake.
type ConnectionIdentity struct {
	UserID        string
	Name          string
	Role          string
	CorrelationID string
}

// RealtimeService owns the connection registry and fans marketplace events
// out to the relevant parties. Delivery is best-effort: slow consumers are
// dropped and clients recover missed events by re-fetching the message log.
type RealtimeService interface {
	ServeConnection(conn *websocket.Conn, identity ConnectionIdentity)
	EmitToUsers(event RealtimeEvent, userIDs ...string)
	EmitToListing(event RealtimeEvent)
	Start(ctx context.Context)
}

type realtimeService struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	logger      zerolog.Logger
	hub         *realtimeHub
	nodeID      string
}

// realtimeHub tracks active connections: one mailbox room per user id plus
// optional per-listing presence rooms joined at will.
type realtimeHub struct {
	mu        sync.RWMutex
	mailboxes map[string]map[*realtimeClient]struct{}
	listings  map[uint]map[*realtimeClient]struct{}
	log       zerolog.Logger
}

type realtimeClient struct {
	conn     *websocket.Conn
	send     chan RealtimeEvent
	identity ConnectionIdentity
	service  *realtimeService
	closed   chan struct{}
	once     sync.Once

	mu       sync.Mutex
	listings map[uint]struct{}
}

// realtimeSignal is the client-to-server control frame governing presence
// room membership.
type realtimeSignal struct {
	Action    string `json:"action"`
	ListingID uint   `json:"listing_id"`
}

// realtimeEnvelope mirrors events across nodes via redis/NATS. Targets is
// the set of mailbox rooms; a zero-length Targets means listing broadcast.
type realtimeEnvelope struct {
	Source  string        `json:"source"`
	Event   RealtimeEvent `json:"payload"`
	Targets []string      `json:"targets,omitempty"`
	SentAt  time.Time     `json:"sent_at"`
}

// NewRealtimeService creates the realtime notifier. redisClient and natsConn
// may be nil for single-node deployments.
func NewRealtimeService(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) RealtimeService {
	hub := &realtimeHub{
		mailboxes: make(map[string]map[*realtimeClient]struct{}),
		listings:  make(map[uint]map[*realtimeClient]struct{}),
		log:       logger.With().Str("component", "realtime_hub").Logger(),
	}

	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":realtime"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".realtime"
	}

	return &realtimeService{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		logger:      logger.With().Str("component", "realtime_service").Logger(),
		hub:         hub,
		nodeID:      uuid.NewString(),
	}
}

func (s *realtimeService) Start(ctx context.Context) {
	if s.redis != nil && s.redisStream != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
}

func (s *realtimeService) ServeConnection(conn *websocket.Conn, identity ConnectionIdentity) {
	client := &realtimeClient{
		conn:     conn,
		send:     make(chan RealtimeEvent, realtimeSendBufferSize),
		identity: identity,
		service:  s,
		closed:   make(chan struct{}),
		listings: make(map[uint]struct{}),
	}

	s.hub.register(client)
	observability.RealtimeConnectionsTotal().Inc()

	go client.writer()
	client.reader()
}

// EmitToUsers pushes an event to the mailbox rooms of the given users and
// mirrors it to sibling nodes.
func (s *realtimeService) EmitToUsers(event RealtimeEvent, userIDs ...string) {
	targets := dedupeIDs(userIDs)
	if len(targets) == 0 {
		return
	}

	s.hub.emitToMailboxes(targets, event)
	s.publish(event, targets)
	observability.RealtimeEventsTotal().WithLabelValues(event.Event).Inc()
}

// EmitToListing pushes an event to every viewer currently joined to the
// listing's presence room.
func (s *realtimeService) EmitToListing(event RealtimeEvent) {
	s.hub.emitToListing(event.ListingID, event)
	s.publish(event, nil)
	observability.RealtimeEventsTotal().WithLabelValues(event.Event).Inc()
}

func (s *realtimeService) publish(event RealtimeEvent, targets []string) {
	if (s.redis == nil || s.redisStream == "") && (s.nats == nil || s.natsSubject == "") {
		return
	}

	envelope := realtimeEnvelope{
		Source:  s.nodeID,
		Event:   event,
		Targets: targets,
		SentAt:  time.Now().UTC(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal realtime envelope")
		return
	}

	if s.redis != nil && s.redisStream != "" {
		if err := s.redis.Publish(context.Background(), s.redisStream, payload).Err(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish realtime event to redis")
		}
	}

	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish realtime event to nats")
		}
	}
}

func (s *realtimeService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisStream)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.logger.Error().Err(err).Msg("realtime redis subscription closed")
			return
		}
		s.handleEnvelope([]byte(msg.Payload))
	}
}

func (s *realtimeService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.QueueSubscribe(s.natsSubject, "market-realtime", func(msg *nats.Msg) {
		s.handleEnvelope(msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats realtime subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain realtime nats subscription")
		}
	}()
}

func (s *realtimeService) handleEnvelope(data []byte) {
	var envelope realtimeEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		s.logger.Warn().Err(err).Msg("invalid realtime envelope")
		return
	}

	if envelope.Source == s.nodeID {
		return
	}

	if len(envelope.Targets) > 0 {
		s.hub.emitToMailboxes(envelope.Targets, envelope.Event)
		return
	}
	s.hub.emitToListing(envelope.Event.ListingID, envelope.Event)
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (h *realtimeHub) register(client *realtimeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mailbox := client.identity.UserID
	if _, exists := h.mailboxes[mailbox]; !exists {
		h.mailboxes[mailbox] = make(map[*realtimeClient]struct{})
	}
	h.mailboxes[mailbox][client] = struct{}{}
	h.log.Debug().Str("user_id", mailbox).Msg("realtime client connected")
}

func (h *realtimeHub) unregister(client *realtimeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	mailbox := client.identity.UserID
	if clients, ok := h.mailboxes[mailbox]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.mailboxes, mailbox)
		}
	}

	client.mu.Lock()
	joined := make([]uint, 0, len(client.listings))
	for listingID := range client.listings {
		joined = append(joined, listingID)
	}
	client.mu.Unlock()

	for _, listingID := range joined {
		h.removeFromListingLocked(client, listingID)
	}
	h.log.Debug().Str("user_id", mailbox).Msg("realtime client disconnected")
}

func (h *realtimeHub) joinListing(client *realtimeClient, listingID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.listings[listingID]; !exists {
		h.listings[listingID] = make(map[*realtimeClient]struct{})
	}
	h.listings[listingID][client] = struct{}{}

	client.mu.Lock()
	client.listings[listingID] = struct{}{}
	client.mu.Unlock()
}

func (h *realtimeHub) leaveListing(client *realtimeClient, listingID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromListingLocked(client, listingID)

	client.mu.Lock()
	delete(client.listings, listingID)
	client.mu.Unlock()
}

func (h *realtimeHub) removeFromListingLocked(client *realtimeClient, listingID uint) {
	if clients, ok := h.listings[listingID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.listings, listingID)
		}
	}
}

func (h *realtimeHub) emitToMailboxes(userIDs []string, event RealtimeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, userID := range userIDs {
		for client := range h.mailboxes[userID] {
			client.deliver(event)
		}
	}
}

func (h *realtimeHub) emitToListing(listingID uint, event RealtimeEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.listings[listingID] {
		client.deliver(event)
	}
}

func (c *realtimeClient) deliver(event RealtimeEvent) {
	select {
	case c.send <- event:
	default:
		c.service.logger.Warn().
			Str("user_id", c.identity.UserID).
			Str("event", event.Event).
			Msg("dropping realtime event for slow client")
	}
}

func (c *realtimeClient) reader() {
	defer c.close()

	for {
		var signal realtimeSignal
		if err := c.conn.ReadJSON(&signal); err != nil {
			c.service.logger.Debug().Err(err).Msg("realtime read loop ended")
			return
		}

		if signal.ListingID == 0 {
			continue
		}

		switch signal.Action {
		case "join_listing":
			c.service.hub.joinListing(c, signal.ListingID)
		case "leave_listing":
			c.service.hub.leaveListing(c, signal.ListingID)
		}
	}
}

func (c *realtimeClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				c.service.logger.Debug().Err(err).Msg("realtime ping failed")
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *realtimeClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.service.hub.unregister(c)
		_ = c.conn.Close()
	})
}
