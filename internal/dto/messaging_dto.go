package dto

import (
	"time"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// MessageSendRequest is the payload for posting a message into a listing's
// conversation. ClientToken is a caller-generated idempotency token echoed
// back in the acknowledgement and the realtime event so optimistic client
// entries can be reconciled exactly.
type MessageSendRequest struct {
	Text        string `json:"text" validate:"required,min=1,max=500"`
	To          string `json:"to" validate:"omitempty,max=64"`
	ClientToken string `json:"client_token" validate:"omitempty,max=64"`
}

// MessageListQuery filters a listing's message log. BuyerID is only
// meaningful for the seller, who owns one thread per buyer.
type MessageListQuery struct {
	BuyerID string `query:"buyer_id" validate:"omitempty,max=64"`
}

// MessageResponse is the serialized representation of a conversation entry.
type MessageResponse struct {
	ID          uint      `json:"id"`
	ListingID   uint      `json:"listing_id"`
	From        string    `json:"from"`
	To          string    `json:"to,omitempty"`
	FromName    string    `json:"from_name,omitempty"`
	Text        string    `json:"text"`
	Type        string    `json:"type"`
	ClientToken string    `json:"client_token,omitempty"`
	At          time.Time `json:"at"`
}

// ThreadResponse is a derived conversation view between two parties about
// one listing. It is computed from the message log on every read and never
// persisted.
type ThreadResponse struct {
	ListingID      uint              `json:"listing_id"`
	CounterpartyID string            `json:"counterparty_id"`
	Messages       []MessageResponse `json:"messages"`
	LastActivity   time.Time         `json:"last_activity"`
}

// NewMessageResponse converts a model into a DTO.
func NewMessageResponse(message models.Message) MessageResponse {
	return MessageResponse{
		ID:          message.ID,
		ListingID:   message.ListingID,
		From:        message.FromID,
		To:          message.ToID,
		FromName:    message.FromName,
		Text:        message.Text,
		Type:        message.Type,
		ClientToken: message.ClientToken,
		At:          message.CreatedAt,
	}
}

// NewMessageResponseSlice converts a slice of models into DTOs.
func NewMessageResponseSlice(messages []models.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(messages))
	for _, message := range messages {
		out = append(out, NewMessageResponse(message))
	}
	return out
}
