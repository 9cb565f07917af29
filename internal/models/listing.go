package models

import (
	"time"

	"gorm.io/datatypes"
)

// Listing statuses.
const (
	ListingStatusActive   = "active"
	ListingStatusReserved = "reserved"
	ListingStatusSold     = "sold"
)

// Offer statuses. Transitions are one-directional: Pending may become
// Accepted or Declined; nothing moves after that.
const (
	OfferStatusPending  = "Pending"
	OfferStatusAccepted = "Accepted"
	OfferStatusDeclined = "Declined"
)

// Listing is a marketplace item posted by a seller. Seller identity is
// snapshotted so listings stay renderable without a join against accounts.
type Listing struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Title       string         `gorm:"size:255;not null" json:"title"`
	Description string         `gorm:"type:text;not null" json:"description"`
	Price       float64        `gorm:"not null" json:"price"`
	CategoryID  int            `gorm:"index" json:"category_id"`
	Condition   string         `gorm:"size:32;default:Good" json:"condition"`
	ZoneID      int            `gorm:"index" json:"zone_id"`
	PickupNote  string         `gorm:"size:500" json:"pickup_note"`
	Images      datatypes.JSON `gorm:"type:json" json:"images"`
	SellerID    string         `gorm:"size:64;index;not null" json:"seller_id"`
	SellerName  string         `gorm:"size:255" json:"seller_name"`
	Status      string         `gorm:"size:32;default:active" json:"status"`
	Views       int64          `gorm:"not null;default:0" json:"views"`
	Saves       int64          `gorm:"not null;default:0" json:"saves"`
	Chats       int64          `gorm:"not null;default:0" json:"chats"`
	Offers      []Offer        `gorm:"foreignKey:ListingID" json:"offers"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Offer is a price proposal a buyer attaches to a listing. Offers are only
// ever appended or status-flipped; the row order (id asc) is the display
// order.
type Offer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ListingID uint      `gorm:"index;not null" json:"listing_id"`
	ByID      string    `gorm:"size:64;index;not null" json:"by_id"`
	ByName    string    `gorm:"size:255" json:"by_name"`
	Price     float64   `gorm:"not null" json:"price"`
	Status    string    `gorm:"size:32;default:Pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SavedListing records a user's favorite. The composite unique index is the
// whole point: saving twice is a no-op.
type SavedListing struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;uniqueIndex:idx_saved_user_listing;not null" json:"user_id"`
	ListingID uint      `gorm:"uniqueIndex:idx_saved_user_listing;not null" json:"listing_id"`
	CreatedAt time.Time `json:"created_at"`
}
