package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PriceSim/pkg/logger"
)

type inlineMsg struct {
	msgType string
	payload interface{}
}

// Inline runs jobs in-process on a single goroutine, so at most one job
// executes at a time. Each message type has at most one pending message;
// further enqueues of that type are rejected with ErrQueueFull until it runs.
type Inline struct {
	logger  *logger.Logger
	config  *QueueConfig
	mu      sync.Mutex
	jobs    map[string]Job
	pending map[string]bool
	ch      chan inlineMsg
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewInline(lgr *logger.Logger, config *QueueConfig) *Inline {
	if config == nil {
		config = &QueueConfig{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Inline{
		logger:  lgr,
		config:  config,
		jobs:    make(map[string]Job),
		pending: make(map[string]bool),
		ch:      make(chan inlineMsg, 16),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
}

func (q *Inline) RegisterJob(job Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs[job.Type()] = job
}

func (q *Inline) Enqueue(_ context.Context, msgType string, payload interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.running {
		return fmt.Errorf("queue not running")
	}
	if _, ok := q.jobs[msgType]; !ok {
		return fmt.Errorf("no job registered for type: %s", msgType)
	}
	if q.pending[msgType] {
		return fmt.Errorf("%w: %s", ErrQueueFull, msgType)
	}
	select {
	case q.ch <- inlineMsg{msgType: msgType, payload: payload}:
		q.pending[msgType] = true
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrQueueFull, msgType)
	}
}

func (q *Inline) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("queue already running")
	}
	q.running = true
	go q.loop()
	return nil
}

func (q *Inline) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout: %w", ctx.Err())
	}
}

func (q *Inline) loop() {
	defer close(q.done)
	for {
		select {
		case <-q.ctx.Done():
			return
		case m := <-q.ch:
			q.run(m)
		}
	}
}

func (q *Inline) run(m inlineMsg) {
	q.mu.Lock()
	job := q.jobs[m.msgType]
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		delete(q.pending, m.msgType)
		q.mu.Unlock()
	}()

	for attempt := 0; ; attempt++ {
		err := job.Handle(q.ctx, m.payload)
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		q.logger.Error("inline job failed",
			logger.String("job", job.Name()),
			logger.Int("attempt", attempt+1),
			logger.Error(err))
		if attempt >= q.config.RetryLimit {
			return
		}
		t := time.NewTimer(q.config.RetryDelay)
		select {
		case <-q.ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}
