package marketclient

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry is one row in the rendered conversation. Pending entries are local
// optimistic writes not yet acknowledged by the server.
type Entry struct {
	Message Message
	Pending bool
}

// Conversation holds the optimistic local state for one user's view of one
// listing's conversation. It is safe for concurrent use; multiple sends may
// be in flight at once, each reconciled independently by its idempotency
// token.
type Conversation struct {
	client    *Client
	listingID uint
	selfID    string

	mu       sync.Mutex
	entries  []Entry
	lastSeen map[string]time.Time
}

// NewConversation creates the conversation state for a listing as seen by
// the user identified by selfID.
func NewConversation(client *Client, listingID uint, selfID string) *Conversation {
	return &Conversation{
		client:    client,
		listingID: listingID,
		selfID:    selfID,
		lastSeen:  make(map[string]time.Time),
	}
}

// Send appends an optimistic entry immediately, then persists the message.
// On success the provisional entry is replaced by the server-confirmed one,
// matched exactly by the idempotency token; on failure it is rolled back and
// the error returned. Callers that must not block can invoke Send from a
// goroutine.
func (c *Conversation) Send(ctx context.Context, text, to string) (Message, error) {
	token := uuid.NewString()
	c.stage(token, text, to)

	message, err := c.client.SendMessage(ctx, c.listingID, text, to, token)
	if err != nil {
		c.rollback(token)
		return Message{}, err
	}

	c.confirm(token, message)
	return message, nil
}

// Refresh replaces all confirmed entries with the server's message log.
// Pending optimistic entries survive the refresh: their sends are still in
// flight and will confirm or roll back on their own.
func (c *Conversation) Refresh(ctx context.Context, buyerID string) error {
	messages, err := c.client.ListMessages(ctx, c.listingID, buyerID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	pending := make([]Entry, 0, len(c.entries))
	for _, entry := range c.entries {
		if entry.Pending {
			pending = append(pending, entry)
		}
	}

	c.entries = c.entries[:0]
	for _, message := range messages {
		c.entries = append(c.entries, Entry{Message: message})
	}
	// Drop any pending entry the refetch already confirmed.
	for _, entry := range pending {
		if !c.hasTokenLocked(entry.Message.ClientToken) {
			c.entries = append(c.entries, entry)
		}
	}
	return nil
}

// Apply folds a realtime event into the local state. Duplicate deliveries
// are harmless: merging is idempotent by message id.
func (c *Conversation) Apply(event Event) {
	if event.Event != EventMessageNew || event.Message == nil || event.ListingID != c.listingID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	message := *event.Message
	if message.ClientToken != "" && c.confirmLocked(message.ClientToken, message) {
		return
	}
	for _, entry := range c.entries {
		if !entry.Pending && entry.Message.ID == message.ID {
			return
		}
	}
	c.entries = append(c.entries, Entry{Message: message})
}

// Entries returns a snapshot of the conversation ordered by timestamp, with
// still-pending entries last.
func (c *Conversation) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pending != out[j].Pending {
			return !out[i].Pending
		}
		return out[i].Message.At.Before(out[j].Message.At)
	})
	return out
}

// MarkSeen records that the viewer has read the thread with the given
// counterparty up to now.
func (c *Conversation) MarkSeen(counterpartyID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastSeen[counterpartyID] = time.Now()
}

// Unread reports whether the counterparty has sent anything newer than the
// viewer's last-seen mark for that thread.
func (c *Conversation) Unread(counterpartyID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := c.lastSeen[counterpartyID]
	for _, entry := range c.entries {
		if entry.Pending {
			continue
		}
		if entry.Message.From == counterpartyID && entry.Message.At.After(seen) {
			return true
		}
	}
	return false
}

func (c *Conversation) stage(token, text, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, Entry{
		Pending: true,
		Message: Message{
			ListingID:   c.listingID,
			From:        c.selfID,
			To:          to,
			Text:        text,
			Type:        "message",
			ClientToken: token,
			At:          time.Now(),
		},
	})
}

func (c *Conversation) confirm(token string, message Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// A no-op when the realtime stream already delivered the confirmed entry
	// before the HTTP acknowledgement arrived.
	_ = c.confirmLocked(token, message)
}

func (c *Conversation) confirmLocked(token string, message Message) bool {
	for i, entry := range c.entries {
		if entry.Pending && entry.Message.ClientToken == token {
			c.entries[i] = Entry{Message: message}
			return true
		}
	}
	return false
}

func (c *Conversation) rollback(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, entry := range c.entries {
		if entry.Pending && entry.Message.ClientToken == token {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

func (c *Conversation) hasTokenLocked(token string) bool {
	if token == "" {
		return false
	}
	for _, entry := range c.entries {
		if !entry.Pending && entry.Message.ClientToken == token {
			return true
		}
	}
	return false
}
