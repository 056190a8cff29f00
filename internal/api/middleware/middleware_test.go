package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestAuth(t *testing.T) {
	var seen int64
	h := Auth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "42", status: http.StatusNoContent},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "not a number", header: "abc", status: http.StatusUnauthorized},
		{name: "non positive", header: "0", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(HeaderUserID, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	assert.Equal(t, int64(42), seen)
}

func TestGetUserIDWithoutAuth(t *testing.T) {
	_, ok := GetUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}

type recordedRequest struct {
	method, path, status string
}

type recordingMetrics struct {
	requests []recordedRequest
}

func (m *recordingMetrics) ObserveHTTP(method, path, status string, _ time.Duration) {
	m.requests = append(m.requests, recordedRequest{method: method, path: path, status: status})
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	m := &recordingMetrics{}
	r := mux.NewRouter()
	r.Use(MetricsMiddleware(m))
	r.HandleFunc("/bookings/{bookingId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/bookings/17", nil))

	assert.Equal(t, []recordedRequest{{method: "GET", path: "/bookings/{bookingId}", status: "404"}}, m.requests)
}
