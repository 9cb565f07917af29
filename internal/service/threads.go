package service

import (
	"sort"
	"time"

	"github.com/campusmarket/campus-market-api/internal/dto"
	"github.com/campusmarket/campus-market-api/internal/models"
)

// NoCounterparty is the placeholder thread identity a seller sees on a
// listing before any buyer has made contact. It is reserved and never
// matches a real account id.
const NoCounterparty = "__none__"

// visibleTo reports whether a message belongs in the conversation between
// the listing's seller and one specific counterparty. System entries are
// visible in every thread.
func visibleTo(message models.Message, sellerID, counterpartyID string) bool {
	if message.FromID == models.SystemSender {
		return true
	}
	if message.FromID == counterpartyID {
		return true
	}
	if message.FromID == sellerID && (message.ToID == "" || message.ToID == counterpartyID) {
		return true
	}
	return false
}

// VisibleMessages filters a listing's log down to the entries the viewer may
// see in the thread with the given counterparty. Two buyers talking to the
// same seller about the same listing must never see each other's messages.
func VisibleMessages(messages []models.Message, sellerID, counterpartyID string) []models.Message {
	out := make([]models.Message, 0, len(messages))
	for _, message := range messages {
		if visibleTo(message, sellerID, counterpartyID) {
			out = append(out, message)
		}
	}
	return out
}

// Counterparties enumerates the distinct buyer identities present in a
// listing's log, scanning both sender and recipient fields and skipping the
// seller and the system sentinel. Order of first appearance is preserved.
func Counterparties(messages []models.Message, sellerID string) []string {
	seen := make(map[string]struct{})
	var out []string
	record := func(id string) {
		if id == "" || id == sellerID || id == models.SystemSender {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, message := range messages {
		record(message.FromID)
		record(message.ToID)
	}
	return out
}

// DeriveThreads computes the conversation views for one listing.
//
// A non-seller viewer gets exactly one thread, keyed by the seller. The
// seller gets one thread per distinct buyer, or a single empty placeholder
// thread when nobody has made contact yet. Threads are a read-time
// projection of the message log; nothing here is persisted.
func DeriveThreads(messages []models.Message, listingID uint, viewerID, sellerID string) []dto.ThreadResponse {
	if viewerID != sellerID {
		visible := VisibleMessages(messages, sellerID, viewerID)
		return []dto.ThreadResponse{newThread(listingID, sellerID, visible)}
	}

	counterparties := Counterparties(messages, sellerID)
	if len(counterparties) == 0 {
		return []dto.ThreadResponse{newThread(listingID, NoCounterparty, nil)}
	}

	threads := make([]dto.ThreadResponse, 0, len(counterparties))
	for _, counterparty := range counterparties {
		visible := VisibleMessages(messages, sellerID, counterparty)
		threads = append(threads, newThread(listingID, counterparty, visible))
	}

	sort.SliceStable(threads, func(i, j int) bool {
		return threads[i].LastActivity.After(threads[j].LastActivity)
	})
	return threads
}

func newThread(listingID uint, counterpartyID string, messages []models.Message) dto.ThreadResponse {
	var last time.Time
	if len(messages) > 0 {
		last = messages[len(messages)-1].CreatedAt
	}
	return dto.ThreadResponse{
		ListingID:      listingID,
		CounterpartyID: counterpartyID,
		Messages:       dto.NewMessageResponseSlice(messages),
		LastActivity:   last,
	}
}
