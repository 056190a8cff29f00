package subscription

import "errors"

var (
	// ErrSalonNotFound возвращается, когда сервис подписок не знает салон
	ErrSalonNotFound = errors.New("subscription client: salon not found")

	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("subscription client: internal error")

	// ErrInvalidResponse возвращается при некорректном ответе от сервиса
	ErrInvalidResponse = errors.New("subscription client: invalid response")
)
