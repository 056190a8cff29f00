package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client клиент сервиса подписок
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        Logger
}

// NewClient создает новый экземпляр клиента сервиса подписок
func NewClient(baseURL string, timeout time.Duration, log Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// GetSubscription получает подписку салона
func (c *Client) GetSubscription(ctx context.Context, salonID int64) (*Subscription, error) {
	url := fmt.Sprintf("%s/internal/salons/%d/subscription", c.baseURL, salonID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrSalonNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(body))
	}

	var sub Subscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}

	return &sub, nil
}

// IsPremium проверяет премиум-тариф салона с graceful degradation:
// при недоступности сервиса подписок салон считается обычным, ошибка только логируется
func (c *Client) IsPremium(ctx context.Context, salonID int64) bool {
	sub, err := c.GetSubscription(ctx, salonID)
	if err != nil {
		if errors.Is(err, ErrSalonNotFound) {
			c.log.Info("IsPremium: no subscription for salon_id=%d", salonID)
			return false
		}
		c.log.Error("IsPremium: subscription service unavailable, treating salon_id=%d as non-premium: %v", salonID, err)
		return false
	}

	return sub.IsPremium()
}
