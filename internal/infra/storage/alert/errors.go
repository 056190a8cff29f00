package alert

import "errors"

var (
	// ErrAlertNotFound возвращается, когда уведомление о выезде не найдено
	ErrAlertNotFound = errors.New("alert.repository: departure alert not found")

	// ErrAlertExists возвращается при попытке создать второе уведомление на ту же бронь и дату
	ErrAlertExists = errors.New("alert.repository: departure alert already exists for booking and date")

	// ErrAlreadySent возвращается, когда уведомление уже помечено отправленным
	ErrAlreadySent = errors.New("alert.repository: departure alert already sent")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("alert.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("alert.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("alert.repository: failed to scan row")
)
