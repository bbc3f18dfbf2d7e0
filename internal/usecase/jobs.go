package usecase

import (
	"context"
	"time"

	"PriceSim/pkg/queue"
)

const (
	JobTypeCollect  = "collect"
	JobTypeSimulate = "simulate"
)

// CyclePayload carries the cycle time through the queue.
type CyclePayload struct {
	At int64 `json:"at"` // epoch seconds
}

func (p CyclePayload) Time() time.Time {
	if p.At == 0 {
		return time.Now().UTC()
	}
	return time.Unix(p.At, 0).UTC()
}

// CollectJob runs an ingestion cycle for each queued message.
type CollectJob struct {
	collector *QuoteCollector
}

func NewCollectJob(c *QuoteCollector) *CollectJob { return &CollectJob{collector: c} }

func (j *CollectJob) Name() string { return "quote-collector" }
func (j *CollectJob) Type() string { return JobTypeCollect }

func (j *CollectJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[CyclePayload](payload)
	if err != nil {
		return err
	}
	_, err = j.collector.Collect(ctx, p.Time())
	return err
}

// SimulateJob runs a simulation cycle for each queued message.
type SimulateJob struct {
	cycle *SimulationCycle
}

func NewSimulateJob(c *SimulationCycle) *SimulateJob { return &SimulateJob{cycle: c} }

func (j *SimulateJob) Name() string { return "simulation-cycle" }
func (j *SimulateJob) Type() string { return JobTypeSimulate }

func (j *SimulateJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[CyclePayload](payload)
	if err != nil {
		return err
	}
	_, err = j.cycle.Run(ctx, p.Time())
	return err
}
