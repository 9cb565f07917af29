package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDedupeIDs(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, dedupeIDs([]string{"a", "b", "a", "", "  ", "b"}))
	require.Empty(t, dedupeIDs(nil))
}

func newHubClient(svc *realtimeService, userID string) *realtimeClient {
	client := &realtimeClient{
		send:     make(chan RealtimeEvent, realtimeSendBufferSize),
		identity: ConnectionIdentity{UserID: userID},
		service:  svc,
		closed:   make(chan struct{}),
		listings: make(map[uint]struct{}),
	}
	svc.hub.register(client)
	return client
}

func TestHubEmitsOnlyToTargetMailboxes(t *testing.T) {
	svc := NewRealtimeService(nil, "", nil, zerolog.Nop()).(*realtimeService)
	buyer := newHubClient(svc, "buyer-1")
	bystander := newHubClient(svc, "buyer-2")

	svc.EmitToUsers(RealtimeEvent{Event: EventMessageNew, ListingID: 7}, "buyer-1", "seller")

	select {
	case event := <-buyer.send:
		require.Equal(t, EventMessageNew, event.Event)
	default:
		t.Fatal("expected event in buyer mailbox")
	}
	require.Empty(t, bystander.send)
}

func TestHubListingRoomMembership(t *testing.T) {
	svc := NewRealtimeService(nil, "", nil, zerolog.Nop()).(*realtimeService)
	viewer := newHubClient(svc, "buyer-1")

	svc.hub.joinListing(viewer, 7)
	svc.EmitToListing(RealtimeEvent{Event: EventOfferNew, ListingID: 7})
	require.Len(t, viewer.send, 1)

	svc.hub.leaveListing(viewer, 7)
	svc.EmitToListing(RealtimeEvent{Event: EventOfferNew, ListingID: 7})
	require.Len(t, viewer.send, 1)
}

func TestHandleEnvelopeSuppressesOwnEvents(t *testing.T) {
	svc := NewRealtimeService(nil, "market", nil, zerolog.Nop()).(*realtimeService)
	client := newHubClient(svc, "buyer-1")

	payload, err := json.Marshal(realtimeEnvelope{
		Source:  svc.nodeID,
		Event:   RealtimeEvent{Event: EventMessageNew, ListingID: 7},
		Targets: []string{"buyer-1"},
	})
	require.NoError(t, err)

	svc.handleEnvelope(payload)
	require.Empty(t, client.send)

	// The same envelope from a sibling node is delivered.
	payload, err = json.Marshal(realtimeEnvelope{
		Source:  "other-node",
		Event:   RealtimeEvent{Event: EventMessageNew, ListingID: 7},
		Targets: []string{"buyer-1"},
	})
	require.NoError(t, err)

	svc.handleEnvelope(payload)
	require.Len(t, client.send, 1)
}

func TestRedisMirrorsEventsAcrossNodes(t *testing.T) {
	mr := miniredis.RunT(t)
	nodeA := NewRealtimeService(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "market", nil, zerolog.Nop()).(*realtimeService)
	nodeB := NewRealtimeService(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "market", nil, zerolog.Nop()).(*realtimeService)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	nodeB.Start(ctx)

	client := newHubClient(nodeB, "buyer-1")

	// Delivery is at-least-once; keep publishing until the subscriber is up
	// and the event lands.
	require.Eventually(t, func() bool {
		nodeA.EmitToUsers(RealtimeEvent{Event: EventMessageNew, ListingID: 7}, "buyer-1")
		select {
		case event := <-client.send:
			return event.Event == EventMessageNew
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)
}
