package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/webhook/telegram/individual", srv.URL+"/webhook/telegram/bulk", "-100123", false)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC) }
	return c
}

func TestSendIndividualPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/telegram/individual", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var got map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, map[string]any{
			"studentTelegramId": "tg-1",
			"title":             "Exam",
			"message":           "Room 4",
			"announcementId":    "ann-1",
			"urgent":            true,
			"timestamp":         "2024-05-01T08:00:00Z",
		}, got)
		_, _ = w.Write([]byte(`{"success":true,"message":"sent","telegramMessageId":42}`))
	})

	resp, err := c.SendIndividual(context.Background(), "tg-1", "Exam", "Room 4", "ann-1", true)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.EqualValues(t, 42, resp.TelegramMessageID)
}

func TestSendBulkPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/webhook/telegram/bulk", r.URL.Path)
		var got BulkPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "-100123", got.GroupChatID)
		assert.Equal(t, "level", got.TargetAudience)
		assert.Equal(t, []string{"first-year"}, got.TargetLevels)
		assert.Equal(t, []string{}, got.TargetStudents)
		w.WriteHeader(http.StatusOK)
	})

	resp, err := c.SendBulk(context.Background(), BulkPayload{Title: "t", Message: "m", AnnouncementID: "a", TargetAudience: "level", TargetLevels: []string{"first-year"}})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestSendFailures(t *testing.T) {
	status, body := http.StatusBadGateway, "upstream down"
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	_, err := c.SendIndividual(context.Background(), "tg", "t", "m", "a", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")

	status, body = http.StatusOK, `{"success":false,"error":"chat not found"}`
	_, err = c.SendIndividual(context.Background(), "tg", "t", "m", "a", false)
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "chat not found")

	_, err = c.SendIndividual(context.Background(), "", "t", "m", "a", false)
	assert.Error(t, err)
}

func TestSkipModeSendsNothing(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })
	c.Skip = true

	_, err := c.SendIndividual(context.Background(), "tg", "t", "m", "a", false)
	require.NoError(t, err)
	resp, err := c.SendBulk(context.Background(), BulkPayload{TargetStudents: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TargetCount)
	assert.NoError(t, c.Health(context.Background()))
	assert.False(t, called)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	assert.NoError(t, c.Health(context.Background()))

	c.BulkURL = "http://127.0.0.1:1/webhook"
	assert.Error(t, c.Health(context.Background()))
}
