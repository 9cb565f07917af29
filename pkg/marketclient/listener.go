package marketclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
)

// Listener consumes the realtime event stream. Delivery from the server is
// at-least-once; handlers receive events as-is and rely on Conversation.Apply
// (or their own id-based merge) for deduplication.
type Listener struct {
	conn     *websocket.Conn
	handlers []func(Event)
}

type listenerSignal struct {
	Action    string `json:"action"`
	ListingID uint   `json:"listing_id"`
}

// Listen dials the realtime websocket endpoint with the session token. The
// server refuses the handshake for missing, invalid or suspended credentials
// without saying which.
func Listen(ctx context.Context, baseURL, token string) (*Listener, error) {
	endpoint, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	endpoint += "?token=" + url.QueryEscape(token)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("realtime handshake: %w", err)
	}
	return &Listener{conn: conn}, nil
}

// OnEvent registers a handler invoked for every event received. Handlers
// must be registered before Run is started.
func (l *Listener) OnEvent(handler func(Event)) {
	l.handlers = append(l.handlers, handler)
}

// JoinListing subscribes this connection to a listing's broadcast room.
func (l *Listener) JoinListing(listingID uint) error {
	return l.conn.WriteJSON(listenerSignal{Action: "join_listing", ListingID: listingID})
}

// LeaveListing unsubscribes this connection from a listing's broadcast room.
func (l *Listener) LeaveListing(listingID uint) error {
	return l.conn.WriteJSON(listenerSignal{Action: "leave_listing", ListingID: listingID})
}

// Run reads events until the connection drops or ctx is cancelled. After Run
// returns, the caller recovers missed events by refreshing the message log.
func (l *Listener) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			_ = l.conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			continue
		}
		for _, handler := range l.handlers {
			handler(event)
		}
	}
}

// Close tears the connection down.
func (l *Listener) Close() error {
	return l.conn.Close()
}

func websocketURL(baseURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	}
	parsed.Path += "/api/v1/realtime/ws"
	return parsed.String(), nil
}
