package marketclient

import "time"

// Message is a single conversation entry as returned by the API.
type Message struct {
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

// Thread is a derived conversation between the viewer and one counterparty.
type Thread struct {
	ListingID      uint      `json:"listing_id"`
	CounterpartyID string    `json:"counterparty_id"`
	Messages       []Message `json:"messages"`
	LastActivity   time.Time `json:"last_activity"`
}

// Offer is a price proposal on a listing.
type Offer struct {
	ID        uint      `json:"id"`
	ListingID uint      `json:"listing_id"`
	By        string    `json:"by"`
	ByName    string    `json:"by_name,omitempty"`
	Price     float64   `json:"price"`
	Status    string    `json:"status"`
	At        time.Time `json:"at"`
}

// Realtime event names sent by the server.
const (
	EventMessageNew     = "message:new"
	EventOfferNew       = "offer:new"
	EventOfferUpdated   = "offer:updated"
	EventListingUpdated = "listing:updated"
	EventListingRemoved = "listing:removed"
)

// Listing is the subset of listing state pushed with lifecycle events.
type Listing struct {
	ID     uint    `json:"id"`
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Status string  `json:"status"`
}

// Event is one push notification from the realtime stream.
type Event struct {
	Event     string   `json:"event"`
	ListingID uint     `json:"listing_id"`
	Message   *Message `json:"message,omitempty"`
	Offer     *Offer   `json:"offer,omitempty"`
	Listing   *Listing `json:"listing,omitempty"`
}
