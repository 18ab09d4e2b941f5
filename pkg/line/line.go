// Package line is a minimal LINE Messaging API client: webhook payload
// types, the reply call and the per-message content fetch.
package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/natthaphol/sangbot/internal/httpc"
)

// Default Messaging API endpoints. Content lives on the data host.
const (
	DefaultReplyURL   = "https://api.line.me/v2/bot/message/reply"
	DefaultContentURL = "https://api-data.line.me/v2/bot/message/%s/content"
)

// Webhook event and message types handled by the bot.
const (
	EventTypeMessage = "message"

	MessageTypeText  = "text"
	MessageTypeAudio = "audio"
)

// Webhook is the JSON body of an inbound webhook POST.
type Webhook struct {
	Events []Event `json:"events"`
}

// Event is one entry of a webhook batch.
type Event struct {
	Type       string  `json:"type"`
	ReplyToken string  `json:"replyToken"`
	Message    Message `json:"message"`
}

// Message is the message attached to a message event. Text is set for text
// messages; audio messages carry only the ID used for the content fetch.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

type replyRequest struct {
	ReplyToken string         `json:"replyToken"`
	Messages   []replyMessage `json:"messages"`
}

type replyMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Client talks to the LINE Messaging API with channel-token bearer auth.
type Client struct {
	// ReplyURL and ContentURL can be pointed at a test server.
	ReplyURL   string
	ContentURL string

	token string
	http  *http.Client
}

// NewClient creates a Client using the shared HTTP client.
func NewClient(token string) *Client {
	return &Client{
		ReplyURL:   DefaultReplyURL,
		ContentURL: DefaultContentURL,
		token:      token,
		http:       httpc.Client,
	}
}

// Reply sends one text message against a reply token. A non-2xx status is a
// delivery failure; the caller decides whether that is fatal.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(replyRequest{
		ReplyToken: replyToken,
		Messages:   []replyMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("line: marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ReplyURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: build reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("line: send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("line: reply rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Content fetches the raw bytes of a media message, e.g. the m4a container
// of an audio message.
func (c *Client) Content(ctx context.Context, messageID string) ([]byte, error) {
	url := fmt.Sprintf(c.ContentURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("line: build content request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("line: fetch content: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("line: content fetch rejected with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("line: read content: %w", err)
	}
	return data, nil
}
