package dto

import (
	"encoding/json"
	"time"

	"github.com/campusmarket/campus-market-api/internal/models"
)

// ListingCreateRequest is the payload for posting a new listing.
type ListingCreateRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=255"`
	Description string   `json:"description" validate:"required,min=10"`
	Price       float64  `json:"price" validate:"required,gt=0"`
	CategoryID  int      `json:"category_id" validate:"required,gt=0"`
	Condition   string   `json:"condition" validate:"omitempty,oneof=New 'Like New' 'Very Good' Good Acceptable"`
	ZoneID      int      `json:"zone_id" validate:"required,gt=0"`
	PickupNote  string   `json:"pickup_note" validate:"omitempty,max=500"`
	Images      []string `json:"images" validate:"omitempty,dive,url"`
}

// ListingUpdateRequest carries the mutable listing fields; nil means
// untouched.
type ListingUpdateRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=3,max=255"`
	Description *string   `json:"description" validate:"omitempty,min=10"`
	Price       *float64  `json:"price" validate:"omitempty,gt=0"`
	CategoryID  *int      `json:"category_id" validate:"omitempty,gt=0"`
	Condition   *string   `json:"condition" validate:"omitempty,oneof=New 'Like New' 'Very Good' Good Acceptable"`
	ZoneID      *int      `json:"zone_id" validate:"omitempty,gt=0"`
	PickupNote  *string   `json:"pickup_note" validate:"omitempty,max=500"`
	Status      *string   `json:"status" validate:"omitempty,oneof=active reserved sold"`
	Images      *[]string `json:"images" validate:"omitempty,dive,url"`
}

// ListingListQuery filters the public listing index.
type ListingListQuery struct {
	CategoryID int    `query:"category_id" validate:"omitempty,gt=0"`
	ZoneID     int    `query:"zone_id" validate:"omitempty,gt=0"`
	Status     string `query:"status" validate:"omitempty,oneof=active reserved sold"`
	SellerID   string `query:"seller_id" validate:"omitempty,max=64"`
	Search     string `query:"q" validate:"omitempty,max=255"`
}

// MetricIncrementRequest bumps one of the listing counters.
type MetricIncrementRequest struct {
	Metric string `json:"metric" validate:"required,oneof=views saves chats"`
}

// ListingSeller is the seller snapshot embedded in listing payloads.
type ListingSeller struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ListingMetrics groups the engagement counters.
type ListingMetrics struct {
	Views int64 `json:"views"`
	Saves int64 `json:"saves"`
	Chats int64 `json:"chats"`
}

// ListingResponse is the serialized representation of a listing.
type ListingResponse struct {
	ID          uint            `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	CategoryID  int             `json:"category_id"`
	Condition   string          `json:"condition"`
	ZoneID      int             `json:"zone_id"`
	PickupNote  string          `json:"pickup_note,omitempty"`
	Images      []string        `json:"images"`
	Seller      ListingSeller   `json:"seller"`
	Status      string          `json:"status"`
	Metrics     ListingMetrics  `json:"metrics"`
	Offers      []OfferResponse `json:"offers"`
	Favorite    bool            `json:"favorite"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewListingResponse converts a model into a DTO.
func NewListingResponse(listing models.Listing) ListingResponse {
	images := []string{}
	if len(listing.Images) > 0 {
		// A malformed images column degrades to an empty slice rather than
		// failing the whole response.
		_ = json.Unmarshal(listing.Images, &images)
	}

	return ListingResponse{
		ID:          listing.ID,
		Title:       listing.Title,
		Description: listing.Description,
		Price:       listing.Price,
		CategoryID:  listing.CategoryID,
		Condition:   listing.Condition,
		ZoneID:      listing.ZoneID,
		PickupNote:  listing.PickupNote,
		Images:      images,
		Seller:      ListingSeller{ID: listing.SellerID, Name: listing.SellerName},
		Status:      listing.Status,
		Metrics:     ListingMetrics{Views: listing.Views, Saves: listing.Saves, Chats: listing.Chats},
		Offers:      NewOfferResponseSlice(listing.Offers),
		CreatedAt:   listing.CreatedAt,
		UpdatedAt:   listing.UpdatedAt,
	}
}

// NewListingResponseSlice converts a slice of models into DTOs.
func NewListingResponseSlice(listings []models.Listing) []ListingResponse {
	out := make([]ListingResponse, 0, len(listings))
	for _, listing := range listings {
		out = append(out, NewListingResponse(listing))
	}
	return out
}

// SavedListingResponse surfaces a favorite relation.
type SavedListingResponse struct {
	ListingID uint      `json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewSavedListingResponseSlice converts saved rows into DTOs.
func NewSavedListingResponseSlice(items []models.SavedListing) []SavedListingResponse {
	out := make([]SavedListingResponse, 0, len(items))
	for _, item := range items {
		out = append(out, SavedListingResponse{ListingID: item.ListingID, CreatedAt: item.CreatedAt})
	}
	return out
}

// UploadResponse is returned after a successful image upload.
type UploadResponse struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
}
