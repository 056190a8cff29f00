package gateway

import "errors"

var (
	// ErrInternal возвращается при внутренних ошибках клиента
	ErrInternal = errors.New("gateway client: internal error")

	// ErrRejected возвращается, когда шлюз отклонил сообщение
	ErrRejected = errors.New("gateway client: message rejected")

	// ErrInvalidResponse возвращается при некорректном ответе от шлюза
	ErrInvalidResponse = errors.New("gateway client: invalid response")

	// ErrUnsupportedChannel возвращается для каналов, которые шлюз не доставляет
	ErrUnsupportedChannel = errors.New("gateway client: unsupported channel")
)
