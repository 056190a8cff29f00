package alerts

import "errors"

var (
	// ErrAlertNotFound возвращается, когда уведомление о выезде не найдено
	ErrAlertNotFound = errors.New("alerts.service: departure alert not found")

	// ErrAccessDenied возвращается, когда уведомление принадлежит другому клиенту
	ErrAccessDenied = errors.New("alerts.service: access denied")

	// ErrInvalidResponse возвращается при неизвестном ответе клиента
	ErrInvalidResponse = errors.New("alerts.service: invalid customer response")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("alerts.service: internal error")
)
