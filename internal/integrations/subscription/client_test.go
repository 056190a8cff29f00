package subscription

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

func TestIsPremium(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/internal/salons/1/subscription":
			_, _ = w.Write([]byte(`{"salon_id":1,"tier":"premium","is_active":true}`))
		case "/internal/salons/2/subscription":
			_, _ = w.Write([]byte(`{"salon_id":2,"tier":"premium","is_active":false}`))
		case "/internal/salons/3/subscription":
			_, _ = w.Write([]byte(`{"salon_id":3,"tier":"basic","is_active":true}`))
		case "/internal/salons/4/subscription":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nopLogger{})
	ctx := context.Background()

	assert.True(t, c.IsPremium(ctx, 1))
	assert.False(t, c.IsPremium(ctx, 2))
	assert.False(t, c.IsPremium(ctx, 3))
	assert.False(t, c.IsPremium(ctx, 4))
	assert.False(t, c.IsPremium(ctx, 5))
}

func TestGetSubscription_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/internal/salons/1/subscription" {
			_, _ = w.Write([]byte(`not json`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nopLogger{})

	_, err := c.GetSubscription(context.Background(), 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)

	_, err = c.GetSubscription(context.Background(), 2)
	assert.ErrorIs(t, err, ErrSalonNotFound)
}

func TestGetSubscription_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", 100*time.Millisecond, nopLogger{})
	_, err := c.GetSubscription(context.Background(), 1)
	assert.ErrorIs(t, err, ErrInternal)
}
