package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/m04kA/SMC-QueueService/internal/domain"
)

// Client клиент шлюза push/SMS уведомлений
// Исходящие запросы ограничиваются rate limiter'ом
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient создает новый экземпляр клиента шлюза
func NewClient(baseURL, token string, timeout time.Duration, rps float64, burst int) *Client {
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Send отправляет сообщение через шлюз и возвращает идентификатор доставки
func (c *Client) Send(ctx context.Context, msg domain.OutboundMessage) (string, error) {
	if !msg.Channel.IsExternal() {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedChannel, msg.Channel)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: rate limiter: %v", ErrInternal, err)
	}

	payload := SendRequest{
		Channel:   string(msg.Channel),
		Recipient: msg.Recipient,
		Title:     msg.Title,
		Message:   msg.Body,
		Metadata: map[string]string{
			"booking_id": strconv.FormatInt(msg.BookingID, 10),
			"alert_id":   strconv.FormatInt(msg.AlertID, 10),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode request: %v", ErrInternal, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status code %d: %s", ErrRejected, resp.StatusCode, string(raw))
	}

	var out SendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: empty delivery id", ErrInvalidResponse)
	}

	return out.ID, nil
}

// LogGateway шлюз-заглушка: пишет сообщение в лог вместо отправки
// Используется, когда внешний шлюз отключён в конфигурации
type LogGateway struct {
	log Logger
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
}

// NewLogGateway создает шлюз-заглушку
func NewLogGateway(log Logger) *LogGateway {
	return &LogGateway{log: log}
}

// Send логирует сообщение и возвращает синтетический идентификатор
func (g *LogGateway) Send(_ context.Context, msg domain.OutboundMessage) (string, error) {
	g.log.Info("Gateway disabled, %s to %s: %s", msg.Channel, msg.Recipient, msg.Body)
	return fmt.Sprintf("log-%d-%d", msg.AlertID, time.Now().UnixNano()), nil
}
