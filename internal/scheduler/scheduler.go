// Package scheduler запускает периодические джобы движка прогнозов.
// Каждый джоб защищён блокировкой: если предыдущий запуск ещё выполняется, тик пропускается.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-QueueService/internal/domain"
	"github.com/m04kA/SMC-QueueService/pkg/metrics"
)

// RunFunc один запуск джоба
type RunFunc func(ctx context.Context) (*domain.BatchResult, error)

// Job периодическая задача
type Job struct {
	Name     string
	Interval time.Duration
	Run      RunFunc
}

// Scheduler планировщик с фиксированными интервалами
type Scheduler struct {
	jobs    map[string]Job
	locker  Locker
	metrics Metrics
	logger  Logger
}

// New создает планировщик
func New(locker Locker, metrics Metrics, logger Logger) *Scheduler {
	return &Scheduler{
		jobs:    make(map[string]Job),
		locker:  locker,
		metrics: metrics,
		logger:  logger,
	}
}

// Register добавляет джоб; interval <= 0 означает запуск только вручную
func (s *Scheduler) Register(job Job) {
	s.jobs[job.Name] = job
}

// Jobs имена зарегистрированных джобов
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start запускает тикеры всех джобов и блокируется до отмены ctx
// Возвращается после завершения текущих запусков
func (s *Scheduler) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, name := range s.Jobs() {
		job := s.jobs[name]
		if job.Interval <= 0 {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.loop(ctx, job)
		}()
		s.logger.Info("Scheduler: job=%s every %s", job.Name, job.Interval)
	}

	<-ctx.Done()
	wg.Wait()
	s.logger.Info("Scheduler: stopped")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// пропущенный тик не ставится в очередь, следующий тик догонит
			_, _ = s.RunOnce(ctx, job.Name)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce выполняет один тик джоба под его блокировкой
// Если джоб уже выполняется, возвращает ErrJobInFlight
func (s *Scheduler) RunOnce(ctx context.Context, name string) (*domain.BatchResult, error) {
	job, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}

	release, ok, err := s.locker.TryLock(ctx, job.Name)
	if err != nil {
		s.logger.Error("Scheduler: job=%s lock error, tick skipped: %v", job.Name, err)
		s.metrics.ObserveJob(job.Name, metrics.OutcomeSkipped, 0)
		return nil, err
	}
	if !ok {
		s.logger.Warn("Scheduler: job=%s previous run still in flight, tick skipped", job.Name)
		s.metrics.ObserveJob(job.Name, metrics.OutcomeSkipped, 0)
		return nil, ErrJobInFlight
	}
	defer release()

	tick := uuid.NewString()
	start := time.Now()
	result, err := s.safeRun(ctx, job)
	elapsed := time.Since(start)

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailed
	case result != nil && result.Count(domain.EntityError) > 0:
		outcome = metrics.OutcomePartial
	}
	s.metrics.ObserveJob(job.Name, outcome, elapsed)

	if result != nil {
		result.Duration = elapsed
		s.metrics.AddJobEntities(job.Name, string(domain.EntityOK), result.Count(domain.EntityOK))
		s.metrics.AddJobEntities(job.Name, string(domain.EntitySkipped), result.Count(domain.EntitySkipped))
		s.metrics.AddJobEntities(job.Name, string(domain.EntityError), result.Count(domain.EntityError))
		for _, e := range result.Errors() {
			s.logger.Warn("Scheduler: job=%s tick=%s %s id=%d failed: %v", job.Name, tick, e.Kind, e.ID, e.Err)
		}
		s.logger.Info("Scheduler: job=%s tick=%s outcome=%s %s", job.Name, tick, outcome, result.Summary())
	}
	if err != nil {
		s.logger.Error("Scheduler: job=%s tick=%s failed after %s: %v", job.Name, tick, elapsed.Round(time.Millisecond), err)
	}
	return result, err
}

// safeRun паника джоба не должна останавливать планировщик
func (s *Scheduler) safeRun(ctx context.Context, job Job) (result *domain.BatchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%w: %s: %v", ErrJobPanic, job.Name, r)
		}
	}()
	return job.Run(ctx)
}
