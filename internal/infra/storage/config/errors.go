package config

import "errors"

var (
	// ErrSettingsNotFound возвращается, когда у салона нет настроек уведомлений о выезде
	ErrSettingsNotFound = errors.New("config.repository: salon departure settings not found")

	// ErrPreferencesNotFound возвращается, когда у клиента нет настроек уведомлений о выезде
	ErrPreferencesNotFound = errors.New("config.repository: customer departure preferences not found")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("config.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("config.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("config.repository: failed to scan row")
)
