package analytics

import "errors"

var (
	// ErrServiceTimingNotFound возвращается, когда для слота (услуга, день недели, час) нет статистики
	ErrServiceTimingNotFound = errors.New("analytics.repository: service timing not found")

	// ErrStaffPatternNotFound возвращается, когда для мастера нет паттерна производительности
	ErrStaffPatternNotFound = errors.New("analytics.repository: staff performance pattern not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("analytics.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("analytics.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("analytics.repository: failed to scan row")
)
