package models

import "time"

// SystemSender is the reserved sender identity for server-generated status
// entries. It never matches a real account id.
const SystemSender = "system"

// Message kinds.
const (
	MessageTypeMessage = "message"
	MessageTypeOffer   = "offer"
	MessageTypeStatus  = "status"
)

// Message is one entry in a listing's conversational log. The log is
// append-only: rows are never updated or deleted while the listing lives.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ListingID   uint      `gorm:"index;not null" json:"listing_id"`
	FromID      string    `gorm:"size:64;index;not null" json:"from_id"`
	ToID        string    `gorm:"size:64;index" json:"to_id"`
	FromName    string    `gorm:"size:255" json:"from_name"`
	Text        string    `gorm:"size:500;not null" json:"text"`
	Type        string    `gorm:"size:32;default:message" json:"type"`
	ClientToken string    `gorm:"size:64;index" json:"client_token"`
	CreatedAt   time.Time `json:"created_at"`
}
