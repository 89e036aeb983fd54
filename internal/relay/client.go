// Package relay delivers announcements to students through the external
// messaging webhooks (one endpoint for direct messages, one for broadcasts).
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// IndividualPayload is posted to the individual webhook.
type IndividualPayload struct {
	StudentTelegramID string    `json:"studentTelegramId"`
	Title             string    `json:"title"`
	Message           string    `json:"message"`
	AnnouncementID    string    `json:"announcementId"`
	Urgent            bool      `json:"urgent"`
	Timestamp         time.Time `json:"timestamp"`
}

// BulkPayload is posted to the bulk webhook.
type BulkPayload struct {
	GroupChatID    string    `json:"groupChatId"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	AnnouncementID string    `json:"announcementId"`
	TargetAudience string    `json:"targetAudience"`
	TargetLevels   []string  `json:"targetLevels"`
	TargetStudents []string  `json:"targetStudents"`
	Urgent         bool      `json:"urgent"`
	Timestamp      time.Time `json:"timestamp"`
}

// Response is the webhook reply. Bodies that are empty or not JSON count as success.
type Response struct {
	Success           bool   `json:"success"`
	Message           string `json:"message,omitempty"`
	TelegramMessageID int64  `json:"telegramMessageId,omitempty"`
	TargetCount       int    `json:"targetCount,omitempty"`
	Error             string `json:"error,omitempty"`
}

// ErrRejected is returned when the webhook answers success=false.
var ErrRejected = errors.New("relay rejected the message")

// Client calls the relay webhooks.
type Client struct {
	IndividualURL string
	BulkURL       string
	GroupChatID   string
	HTTP          *http.Client
	Skip          bool

	now func() time.Time
}

// New creates a client with a bounded timeout. With skip set no request leaves the process.
func New(individualURL, bulkURL, groupChatID string, skip bool) *Client {
	return &Client{
		IndividualURL: individualURL,
		BulkURL:       bulkURL,
		GroupChatID:   groupChatID,
		Skip:          skip,
		HTTP:          &http.Client{Timeout: 15 * time.Second},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SendIndividual delivers one message to one student.
func (c *Client) SendIndividual(ctx context.Context, telegramID, title, message, announcementID string, urgent bool) (*Response, error) {
	if c.Skip {
		return &Response{Success: true, Message: "skipped"}, nil
	}
	if telegramID == "" {
		return nil, fmt.Errorf("recipient id required")
	}
	return c.post(ctx, c.IndividualURL, IndividualPayload{
		StudentTelegramID: telegramID,
		Title:             title,
		Message:           message,
		AnnouncementID:    announcementID,
		Urgent:            urgent,
		Timestamp:         c.now(),
	})
}

// SendBulk broadcasts one announcement to the group chat.
func (c *Client) SendBulk(ctx context.Context, p BulkPayload) (*Response, error) {
	if c.Skip {
		return &Response{Success: true, Message: "skipped", TargetCount: len(p.TargetStudents)}, nil
	}
	p.GroupChatID = c.GroupChatID
	if p.TargetLevels == nil {
		p.TargetLevels = []string{}
	}
	if p.TargetStudents == nil {
		p.TargetStudents = []string{}
	}
	p.Timestamp = c.now()
	return c.post(ctx, c.BulkURL, p)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relay request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("relay error %s: %s", resp.Status, string(raw))
	}

	out := Response{Success: true}
	if len(bytes.TrimSpace(raw)) > 0 {
		var decoded struct {
			Response
			Success *bool `json:"success"`
		}
		if json.Unmarshal(raw, &decoded) == nil {
			out = decoded.Response
			out.Success = decoded.Success == nil || *decoded.Success
		}
	}
	if !out.Success {
		msg := out.Error
		if msg == "" {
			msg = out.Message
		}
		return &out, fmt.Errorf("%w: %s", ErrRejected, msg)
	}
	return &out, nil
}

// Health checks that the relay host answers on /healthz.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	u, err := url.Parse(c.BulkURL)
	if err != nil {
		return fmt.Errorf("relay url invalid: %w", err)
	}
	u.Path, u.RawQuery = "/healthz", ""

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("relay unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("relay unhealthy: %s", resp.Status)
	}
	return nil
}
