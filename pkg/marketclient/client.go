// Package marketclient is a small Go SDK for the campus market messaging API.
// It wraps the REST surface, the realtime websocket stream and the optimistic
// conversation state a frontend needs to render a thread view.
package marketclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx response from the server. Message carries the
// server-provided reason verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message"`
}

// Client talks to the campus market REST API on behalf of one user session.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient substitutes the underlying HTTP client, mainly for tests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// New creates a Client for the given API base URL (e.g.
// "https://market.example.edu") authenticated with a bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SendMessage posts a message into a listing's conversation. clientToken is
// the caller-generated idempotency token; retrying with the same token never
// creates a duplicate entry.
func (c *Client) SendMessage(ctx context.Context, listingID uint, text, to, clientToken string) (Message, error) {
	payload := map[string]string{"text": text, "client_token": clientToken}
	if to != "" {
		payload["to"] = to
	}

	var message Message
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/listings/%d/messages", listingID), payload, &message)
	return message, err
}

// ListMessages fetches the message log the viewer is allowed to see. buyerID
// narrows a seller's view to one buyer's thread and is ignored for buyers.
func (c *Client) ListMessages(ctx context.Context, listingID uint, buyerID string) ([]Message, error) {
	path := fmt.Sprintf("/api/v1/listings/%d/messages", listingID)
	if buyerID != "" {
		path += "?buyer_id=" + url.QueryEscape(buyerID)
	}

	var messages []Message
	err := c.do(ctx, http.MethodGet, path, nil, &messages)
	return messages, err
}

// Threads fetches the viewer's derived conversation threads for a listing.
func (c *Client) Threads(ctx context.Context, listingID uint) ([]Thread, error) {
	var threads []Thread
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/listings/%d/threads", listingID), nil, &threads)
	return threads, err
}

// CreateOffer submits a price proposal and returns the listing's full offer
// list, newest last.
func (c *Client) CreateOffer(ctx context.Context, listingID uint, price float64) ([]Offer, error) {
	var offers []Offer
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/v1/listings/%d/offers", listingID), map[string]float64{"price": price}, &offers)
	return offers, err
}

// UpdateOfferStatus accepts or declines a pending offer and returns the
// listing's full offer list.
func (c *Client) UpdateOfferStatus(ctx context.Context, listingID, offerID uint, status string) ([]Offer, error) {
	var offers []Offer
	err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/listings/%d/offers/%d", listingID, offerID), map[string]string{"status": status}, &offers)
	return offers, err
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}
	}
	return nil
}
