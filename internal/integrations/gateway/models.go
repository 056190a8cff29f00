package gateway

// SendRequest тело запроса на отправку push/SMS
type SendRequest struct {
	Channel   string            `json:"channel"`
	Recipient string            `json:"recipient"`
	Title     string            `json:"title,omitempty"`
	Message   string            `json:"message"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SendResponse ответ шлюза с идентификатором доставки
type SendResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}
