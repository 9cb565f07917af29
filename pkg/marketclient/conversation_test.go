package marketclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func envelopeResponse(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": status < 400,
		"data":    data,
		"message": message,
	})
}

func TestConversationSendConfirmsOptimisticEntry(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Text        string `json:"text"`
			ClientToken string `json:"client_token"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.NotEmpty(t, payload.ClientToken)
		envelopeResponse(w, http.StatusCreated, Message{
			ID:          42,
			ListingID:   7,
			From:        "buyer-1",
			To:          "seller",
			Text:        payload.Text,
			Type:        "message",
			ClientToken: payload.ClientToken,
			At:          time.Now(),
		}, "message sent")
	}))
	defer server.Close()

	conversation := NewConversation(New(server.URL, "token"), 7, "buyer-1")

	message, err := conversation.Send(context.Background(), "Is this available?", "")
	require.NoError(t, err)
	require.Equal(t, uint(42), message.ID)

	entries := conversation.Entries()
	require.Len(t, entries, 1)
	require.False(t, entries[0].Pending)
	require.Equal(t, uint(42), entries[0].Message.ID)
}

func TestConversationSendRollsBackOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelopeResponse(w, http.StatusForbidden, nil, "insufficient permissions")
	}))
	defer server.Close()

	conversation := NewConversation(New(server.URL, "token"), 7, "buyer-1")

	_, err := conversation.Send(context.Background(), "hello", "")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	require.Equal(t, "insufficient permissions", apiErr.Message)

	require.Empty(t, conversation.Entries())
}

func TestConversationApplyIsIdempotentByID(t *testing.T) {
	conversation := NewConversation(New("http://unused", "token"), 7, "buyer-1")

	event := Event{
		Event:     EventMessageNew,
		ListingID: 7,
		Message:   &Message{ID: 5, ListingID: 7, From: "seller", To: "buyer-1", Text: "Yes.", At: time.Now()},
	}

	conversation.Apply(event)
	conversation.Apply(event)
	require.Len(t, conversation.Entries(), 1)

	// Events for other listings are ignored.
	conversation.Apply(Event{Event: EventMessageNew, ListingID: 99, Message: &Message{ID: 6, ListingID: 99}})
	require.Len(t, conversation.Entries(), 1)
}

func TestConversationApplyConfirmsPendingByToken(t *testing.T) {
	conversation := NewConversation(New("http://unused", "token"), 7, "buyer-1")
	conversation.stage("tok-1", "Is this available?", "seller")

	conversation.Apply(Event{
		Event:     EventMessageNew,
		ListingID: 7,
		Message:   &Message{ID: 9, ListingID: 7, From: "buyer-1", To: "seller", Text: "Is this available?", ClientToken: "tok-1", At: time.Now()},
	})

	entries := conversation.Entries()
	require.Len(t, entries, 1)
	require.False(t, entries[0].Pending)
	require.Equal(t, uint(9), entries[0].Message.ID)
}

func TestConversationUnread(t *testing.T) {
	conversation := NewConversation(New("http://unused", "token"), 7, "buyer-1")

	require.False(t, conversation.Unread("seller"))

	conversation.Apply(Event{
		Event:     EventMessageNew,
		ListingID: 7,
		Message:   &Message{ID: 1, ListingID: 7, From: "seller", To: "buyer-1", Text: "Still here.", At: time.Now()},
	})
	require.True(t, conversation.Unread("seller"))

	conversation.MarkSeen("seller")
	require.False(t, conversation.Unread("seller"))
}

func TestConversationRefreshKeepsPendingEntries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelopeResponse(w, http.StatusOK, []Message{
			{ID: 1, ListingID: 7, From: "buyer-1", To: "seller", Text: "first", At: time.Now().Add(-time.Minute)},
		}, "messages")
	}))
	defer server.Close()

	conversation := NewConversation(New(server.URL, "token"), 7, "buyer-1")
	conversation.stage("tok-pending", "in flight", "seller")

	require.NoError(t, conversation.Refresh(context.Background(), ""))

	entries := conversation.Entries()
	require.Len(t, entries, 2)
	require.False(t, entries[0].Pending)
	require.True(t, entries[1].Pending)
	require.Equal(t, "in flight", entries[1].Message.Text)
}
