package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"PriceSim/pkg/logger"
	"PriceSim/pkg/queue"
)

// Scheduler enqueues collect and simulate cycles on fixed intervals. The
// dispatcher runs one job at a time, so cycles never overlap in one process.
type Scheduler struct {
	dispatcher       queue.Dispatcher
	collectInterval  time.Duration
	simulateInterval time.Duration
	now              func() time.Time
	log              *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(d queue.Dispatcher, collectInterval, simulateInterval time.Duration, log *logger.Logger) *Scheduler {
	return &Scheduler{
		dispatcher:       d,
		collectInterval:  collectInterval,
		simulateInterval: simulateInterval,
		now:              time.Now,
		log:              log,
	}
}

// Start enqueues one collection immediately and then ticks until Stop.
// A non-positive interval disables that cycle.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	if s.collectInterval > 0 {
		s.trigger(ctx, JobTypeCollect)
		s.loop(ctx, JobTypeCollect, s.collectInterval)
	}
	if s.simulateInterval > 0 {
		s.loop(ctx, JobTypeSimulate, s.simulateInterval)
	}
	s.log.Info("scheduler started",
		logger.Duration("collect_interval_ms", s.collectInterval),
		logger.Duration("simulate_interval_ms", s.simulateInterval))
}

func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, jobType string, every time.Duration) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.trigger(ctx, jobType)
			}
		}
	}()
}

func (s *Scheduler) trigger(ctx context.Context, jobType string) {
	err := s.dispatcher.Enqueue(ctx, jobType, CyclePayload{At: s.now().Unix()})
	switch {
	case err == nil:
	case errors.Is(err, queue.ErrQueueFull):
		s.log.Warn("previous cycle still running, tick skipped", logger.String("job", jobType))
	default:
		s.log.Error("enqueue cycle", logger.String("job", jobType), logger.Error(err))
	}
}
