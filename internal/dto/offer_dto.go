package dto

import (
	"time"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// OfferCreateRequest is the payload for placing a price offer on a listing.
type OfferCreateRequest struct {
	Price float64 `json:"price" validate:"required,gt=0"`
}

// OfferStatusUpdateRequest changes an offer's lifecycle state.
type OfferStatusUpdateRequest struct {
	Status string `json:"status" validate:"required,oneof=Pending Accepted Declined"`
}

// OfferResponse is the serialized representation of an offer.
type OfferResponse struct {
	ID        uint      `json:"id"`
	ListingID uint      `json:"listing_id"`
	By        string    `json:"by"`
	ByName    string    `json:"by_name,omitempty"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// NewOfferResponse converts a model into a DTO.
func NewOfferResponse(offer models.Offer) OfferResponse {
	return OfferResponse{
		ID:        offer.ID,
		ListingID: offer.ListingID,
		By:        offer.ByID,
		ByName:    offer.ByName,
		Price:     offer.Price,
		Status:    offer.Status,
		At:        offer.CreatedAt,
	}
}

// NewOfferResponseSlice converts a slice of models into DTOs.
func NewOfferResponseSlice(offers []models.Offer) []OfferResponse {
	out := make([]OfferResponse, 0, len(offers))
	for _, offer := range offers {
		out = append(out, NewOfferResponse(offer))
	}
	return out
}
