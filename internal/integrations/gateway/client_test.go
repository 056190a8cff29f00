package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

func TestSend(t *testing.T) {
	var got SendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":"msg-42","status":"queued"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second, 100, 1)
	id, err := c.Send(context.Background(), domain.OutboundMessage{
		Channel:   domain.ChannelSMS,
		Recipient: "+10000000000",
		Title:     "Time to leave",
		Body:      "Leave at 13:20",
		BookingID: 7,
		AlertID:   3,
	})

	require.NoError(t, err)
	assert.Equal(t, "msg-42", id)
	assert.Equal(t, "sms", got.Channel)
	assert.Equal(t, "+10000000000", got.Recipient)
	assert.Equal(t, "7", got.Metadata["booking_id"])
}

func TestSend_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second, 100, 1)
	_, err := c.Send(context.Background(), domain.OutboundMessage{Channel: domain.ChannelPush, Recipient: "tok"})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestSend_InAppIsNotDelivered(t *testing.T) {
	c := NewClient("http://unused", "", time.Second, 100, 1)
	_, err := c.Send(context.Background(), domain.OutboundMessage{Channel: domain.ChannelInApp})
	assert.ErrorIs(t, err, ErrUnsupportedChannel)
}

func TestSend_CancelledContextStopsAtLimiter(t *testing.T) {
	c := NewClient("http://unused", "", time.Second, 0.001, 1)
	// первый токен расходуется сразу, второй ждать слишком долго
	c.limiter.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := c.Send(ctx, domain.OutboundMessage{Channel: domain.ChannelPush, Recipient: "tok"})
	assert.ErrorIs(t, err, ErrInternal)
}
