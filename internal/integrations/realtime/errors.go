package realtime

import "errors"

var (
	// ErrPublish возвращается при ошибке публикации события
	ErrPublish = errors.New("realtime: failed to publish event")

	// ErrConnect возвращается, когда Redis недоступен при старте
	ErrConnect = errors.New("realtime: failed to connect to redis")
)
