package scheduler

import "errors"

var (
	// ErrUnknownJob возвращается при запуске незарегистрированного джоба
	ErrUnknownJob = errors.New("scheduler: unknown job")

	// ErrJobInFlight возвращается, когда предыдущий запуск джоба ещё выполняется
	ErrJobInFlight = errors.New("scheduler: job is already running")

	// ErrJobPanic возвращается, когда джоб завершился паникой
	ErrJobPanic = errors.New("scheduler: job panicked")
)
