package queuestatus

import "errors"

var (
	// ErrStatusNotFound возвращается, когда состояние очереди мастера на дату не сохранено
	ErrStatusNotFound = errors.New("queuestatus.repository: staff queue status not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("queuestatus.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("queuestatus.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("queuestatus.repository: failed to scan row")
)
