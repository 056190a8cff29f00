package jobrecord

import "errors"

var (
	// ErrJobNotFound возвращается, когда запись о выполнении услуги не найдена
	ErrJobNotFound = errors.New("jobrecord.repository: job record not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("jobrecord.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("jobrecord.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("jobrecord.repository: failed to scan row")
)
