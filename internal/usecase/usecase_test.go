package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceSim/internal/domain/models"
	"PriceSim/internal/repository"
	"PriceSim/internal/services/simulator"
	"PriceSim/internal/services/stats"
	"PriceSim/pkg/logger"
	"PriceSim/pkg/metrics"
	"PriceSim/pkg/objstore"
	"PriceSim/pkg/queue"
)

var cycleTime = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu     sync.Mutex
	prices map[string]float64
	calls  map[string]int
}

func (f *fakeSource) Quote(ctx context.Context, asset string) (models.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[asset]++
	p, ok := f.prices[asset]
	if !ok {
		return models.Quote{}, fmt.Errorf("no quote for %s", asset)
	}
	return models.Quote{AssetID: asset, ObservedAt: cycleTime.Unix() + int64(f.calls[asset]*60), Price: p}, nil
}

type brokenHistory struct{}

func (brokenHistory) Load(context.Context) (*models.HistoryDocument, error) {
	return nil, errors.New("connection refused")
}
func (brokenHistory) Save(context.Context, *models.HistoryDocument) error { return nil }

// orderedStore wraps an artifact store and records the order of writes.
type orderedStore struct {
	*repository.BlobArtifactStore
	mu         sync.Mutex
	calls      []string
	failLatest bool
	failArch   bool
}

func (s *orderedStore) record(c string) {
	s.mu.Lock()
	s.calls = append(s.calls, c)
	s.mu.Unlock()
}

func (s *orderedStore) PutArchival(ctx context.Context, key string, a *models.SimulationArtifact) error {
	s.record("archival")
	if s.failArch {
		return errors.New("disk full")
	}
	return s.BlobArtifactStore.PutArchival(ctx, key, a)
}

func (s *orderedStore) PutLatest(ctx context.Context, a *models.SimulationArtifact) error {
	s.record("latest")
	if s.failLatest {
		return errors.New("timeout")
	}
	return s.BlobArtifactStore.PutLatest(ctx, a)
}

func (s *orderedStore) Published(_ context.Context, _ string, _ *models.SimulationArtifact) error {
	s.record("notify")
	return nil
}

type fixture struct {
	blob      *objstore.MemoryStore
	history   *repository.BlobHistoryRepository
	artifacts *orderedStore
	source    *fakeSource
	collector *QuoteCollector
	cycle     *SimulationCycle
}

func newFixture(t *testing.T, assets []string, prices map[string]float64) *fixture {
	t.Helper()
	blob := objstore.NewMemoryStore()
	f := &fixture{
		blob:      blob,
		history:   repository.NewBlobHistoryRepository(blob, "history.json"),
		artifacts: &orderedStore{BlobArtifactStore: repository.NewBlobArtifactStore(blob, "latest.json", "archive")},
		source:    &fakeSource{prices: prices},
	}
	log := logger.Nop()
	m := metrics.Nop{}
	f.collector = NewQuoteCollector(CollectorConfig{
		Assets:       assets,
		Capacity:     60,
		FetchTimeout: time.Second,
		Workers:      2,
	}, f.source, f.history, nil, nil, m, log)

	sim := simulator.New(simulator.Config{
		HorizonSteps:       60,
		StepDuration:       time.Minute,
		SampleInterval:     time.Minute,
		Amplification:      2,
		MaxStepFraction:    0.05,
		PriceFloorFraction: 0.5,
		PricePrecision:     2,
	})
	pub := NewPublisher(f.artifacts, nil, f.artifacts, m, log)
	f.cycle = NewSimulationCycle(CycleConfig{Assets: assets, Capacity: 60, Workers: 4},
		f.history, f.artifacts, stats.NewEstimator(0.02), sim, pub, m, log)
	return f
}

func TestCollectColdStartRecordsAndSaves(t *testing.T) {
	f := newFixture(t, []string{"AAPL", "MSFT", "NOPE"}, map[string]float64{"AAPL": 190.5, "MSFT": 410})

	res, err := f.collector.Collect(context.Background(), cycleTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, res.Recorded)
	assert.Contains(t, res.Failed, "NOPE")
	assert.Equal(t, 3, res.Readiness.TotalAssets)
	assert.False(t, res.Readiness.ReadyForSimulation)

	doc, err := f.history.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, doc.Assets["AAPL"].Points, 1)
	assert.InDelta(t, 190.5, doc.Assets["AAPL"].Points[0].Price, 1e-9)
	assert.NotContains(t, doc.Assets, "NOPE")
	assert.Equal(t, cycleTime, doc.LastUpdated)

	_, err = f.collector.Collect(context.Background(), cycleTime.Add(time.Minute))
	require.NoError(t, err)
	doc, err = f.history.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, doc.Assets["AAPL"].Points, 2)
	assert.Equal(t, cycleTime, doc.CreatedAt)
}

func TestCollectFailsWhenHistoryUnreadable(t *testing.T) {
	c := NewQuoteCollector(CollectorConfig{Assets: []string{"AAPL"}, Capacity: 60},
		&fakeSource{}, brokenHistory{}, nil, nil, metrics.Nop{}, logger.Nop())
	_, err := c.Collect(context.Background(), cycleTime)
	assert.ErrorIs(t, err, ErrLoadHistory)
}

func TestRunPublishesArchiveThenLatest(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, map[string]float64{"AAPL": 100})
	_, err := f.collector.Collect(context.Background(), cycleTime)
	require.NoError(t, err)

	res, err := f.cycle.Run(context.Background(), cycleTime)
	require.NoError(t, err)
	assert.Equal(t, []string{"archival", "latest", "notify"}, f.artifacts.calls)
	assert.Equal(t, "archive/2025-03-04/10-00-00_simulated_prices.json", res.Publish.ArchiveKey)
	assert.NoError(t, res.Publish.LatestErr)

	path, ok := res.Artifact.Path("AAPL")
	require.True(t, ok)
	assert.Len(t, path.Prices, 60)
	assert.InDelta(t, 100, path.StartPrice, 1e-9)
	require.NotNil(t, path.ReferencePrice)
	assert.InDelta(t, 100, *path.ReferencePrice, 1e-9)
	assert.Equal(t, 1, path.HistoryPoints)
	assert.True(t, res.Artifact.LowConfidence)
	assert.Equal(t, models.Resolution("1m"), res.Artifact.Resolution)
	assert.Equal(t, cycleTime.Add(time.Hour), res.Artifact.HorizonEnd)

	latest, err := f.artifacts.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.Artifact.ID, latest.ID)
}

func TestRunContinuesFromPreviousEndPrice(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, map[string]float64{"AAPL": 100})
	_, err := f.collector.Collect(context.Background(), cycleTime)
	require.NoError(t, err)

	first, err := f.cycle.Run(context.Background(), cycleTime)
	require.NoError(t, err)
	prev, _ := first.Artifact.Path("AAPL")

	f.source.prices["AAPL"] = 250
	_, err = f.collector.Collect(context.Background(), cycleTime.Add(time.Minute))
	require.NoError(t, err)

	second, err := f.cycle.Run(context.Background(), cycleTime.Add(time.Hour))
	require.NoError(t, err)
	next, ok := second.Artifact.Path("AAPL")
	require.True(t, ok)
	assert.Equal(t, prev.EndPrice, next.StartPrice)
	require.NotNil(t, next.ReferencePrice)
	assert.InDelta(t, 250, *next.ReferencePrice, 1e-9)
}

func TestRunMarksMissingAssetAbsent(t *testing.T) {
	f := newFixture(t, []string{"AAPL", "GHOST"}, map[string]float64{"AAPL": 100})
	_, err := f.collector.Collect(context.Background(), cycleTime)
	require.NoError(t, err)

	res, err := f.cycle.Run(context.Background(), cycleTime)
	require.NoError(t, err)

	assert.True(t, res.Artifact.Assets["AAPL"].IsPresent())
	ghost, ok := res.Artifact.Assets["GHOST"]
	require.True(t, ok)
	assert.False(t, ghost.IsPresent())
	assert.Equal(t, models.ReasonNoStartPrice, res.Artifact.Absent["GHOST"])

	raw, err := f.blob.Get(context.Background(), "latest.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"GHOST": null`)
}

func TestRunColdStartWithoutHistory(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, nil)
	res, err := f.cycle.Run(context.Background(), cycleTime)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Artifact.PresentCount())
	assert.Equal(t, 1, res.Artifact.AbsentCount())
}

func TestRunAbortsWhenHistoryUnreadable(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, nil)
	f.cycle.repo = brokenHistory{}
	_, err := f.cycle.Run(context.Background(), cycleTime)
	assert.ErrorIs(t, err, ErrLoadHistory)
	assert.Empty(t, f.artifacts.calls)
}

func TestRunAbortsOnArchivalFailure(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, map[string]float64{"AAPL": 100})
	_, err := f.collector.Collect(context.Background(), cycleTime)
	require.NoError(t, err)
	f.artifacts.failArch = true

	_, err = f.cycle.Run(context.Background(), cycleTime)
	assert.ErrorIs(t, err, ErrPublishArchive)
	assert.Equal(t, []string{"archival"}, f.artifacts.calls)
	_, err = f.artifacts.Latest(context.Background())
	assert.ErrorIs(t, err, objstore.ErrNotFound)
}

func TestRunReportsLatestFailureWithoutAborting(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, map[string]float64{"AAPL": 100})
	_, err := f.collector.Collect(context.Background(), cycleTime)
	require.NoError(t, err)
	f.artifacts.failLatest = true

	res, err := f.cycle.Run(context.Background(), cycleTime)
	require.NoError(t, err)
	assert.Error(t, res.Publish.LatestErr)
	assert.Equal(t, []string{"archival", "latest"}, f.artifacts.calls)

	ok, err := f.blob.Exists(context.Background(), res.Publish.ArchiveKey)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunIsReproducibleForSameCycle(t *testing.T) {
	a := newFixture(t, []string{"AAPL"}, map[string]float64{"AAPL": 100})
	b := newFixture(t, []string{"AAPL"}, map[string]float64{"AAPL": 100})
	for _, f := range []*fixture{a, b} {
		_, err := f.collector.Collect(context.Background(), cycleTime)
		require.NoError(t, err)
	}
	ra, err := a.cycle.Build(context.Background(), cycleTime)
	require.NoError(t, err)
	rb, err := b.cycle.Build(context.Background(), cycleTime)
	require.NoError(t, err)
	pa, _ := ra.Path("AAPL")
	pb, _ := rb.Path("AAPL")
	assert.Equal(t, pa.Prices, pb.Prices)
}

type countingDispatcher struct {
	mu   sync.Mutex
	got  map[string]int
	full bool
}

func (d *countingDispatcher) RegisterJob(queue.Job)      {}
func (d *countingDispatcher) Start() error               { return nil }
func (d *countingDispatcher) Stop(context.Context) error { return nil }

func (d *countingDispatcher) count(jobType string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.got[jobType]
}

func (d *countingDispatcher) Enqueue(_ context.Context, jobType string, _ interface{}) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.got == nil {
		d.got = make(map[string]int)
	}
	d.got[jobType]++
	if d.full {
		return queue.ErrQueueFull
	}
	return nil
}

func TestSchedulerEnqueuesCycles(t *testing.T) {
	d := &countingDispatcher{}
	s := NewScheduler(d, 10*time.Millisecond, 15*time.Millisecond, logger.Nop())
	s.Start(context.Background())
	assert.Eventually(t, func() bool {
		return d.count(JobTypeCollect) >= 3 && d.count(JobTypeSimulate) >= 2
	}, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	n := d.count(JobTypeCollect)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, d.count(JobTypeCollect))
}

func TestSchedulerSurvivesBusyDispatcher(t *testing.T) {
	d := &countingDispatcher{full: true}
	s := NewScheduler(d, 5*time.Millisecond, 0, logger.Nop())
	s.Start(context.Background())
	assert.Eventually(t, func() bool { return d.count(JobTypeCollect) >= 2 }, time.Second, 5*time.Millisecond)
	s.Stop()
	assert.Zero(t, d.count(JobTypeSimulate))
}

func TestJobsDecodePayload(t *testing.T) {
	f := newFixture(t, []string{"AAPL"}, map[string]float64{"AAPL": 100})
	require.NoError(t, NewCollectJob(f.collector).Handle(context.Background(), []byte(`{"at":1741082400}`)))
	require.NoError(t, NewSimulateJob(f.cycle).Handle(context.Background(), CyclePayload{At: cycleTime.Unix()}))

	latest, err := f.artifacts.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cycleTime, latest.GeneratedAt)
}
