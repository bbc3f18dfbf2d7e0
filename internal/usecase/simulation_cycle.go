package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"PriceSim/internal/domain/models"
	drepo "PriceSim/internal/domain/repository"
	"PriceSim/internal/services/history"
	"PriceSim/internal/services/simulator"
	"PriceSim/internal/services/stats"
	"PriceSim/pkg/logger"
	"PriceSim/pkg/objstore"
)

// CycleConfig tunes a simulation cycle. A zero ReadinessThreshold selects
// history.DefaultReadinessThreshold.
type CycleConfig struct {
	Assets             []string
	Capacity           int
	ReadinessThreshold float64
	Workers            int
}

// CycleResult summarises a simulation cycle.
type CycleResult struct {
	Artifact *models.SimulationArtifact
	Publish  *PublishResult
}

// SimulationCycle runs LOAD_HISTORY, per-asset ESTIMATE and SIMULATE,
// AGGREGATE and PUBLISH. Only history loading and the archival write abort
// the cycle; everything else degrades to an absent asset.
type SimulationCycle struct {
	cfg       CycleConfig
	repo      drepo.HistoryRepository
	artifacts drepo.ArtifactStore
	estimator stats.Estimator
	sim       *simulator.Simulator
	publisher *Publisher
	metrics   drepo.Metrics
	log       *logger.Logger
}

func NewSimulationCycle(cfg CycleConfig, repo drepo.HistoryRepository, artifacts drepo.ArtifactStore, estimator stats.Estimator, sim *simulator.Simulator, publisher *Publisher, metrics drepo.Metrics, log *logger.Logger) *SimulationCycle {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ReadinessThreshold <= 0 {
		cfg.ReadinessThreshold = history.DefaultReadinessThreshold
	}
	return &SimulationCycle{
		cfg:       cfg,
		repo:      repo,
		artifacts: artifacts,
		estimator: estimator,
		sim:       sim,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

// Run executes one cycle for the cycle time now.
func (c *SimulationCycle) Run(ctx context.Context, now time.Time) (*CycleResult, error) {
	started := time.Now()
	defer func() { c.metrics.RecordLatency("simulate", time.Since(started).Seconds()) }()

	art, err := c.Build(ctx, now)
	if err != nil {
		return nil, err
	}

	pub, err := c.publisher.Publish(ctx, art)
	if err != nil {
		return nil, err
	}
	return &CycleResult{Artifact: art, Publish: pub}, nil
}

// Build produces the artifact for now without publishing it.
func (c *SimulationCycle) Build(ctx context.Context, now time.Time) (*models.SimulationArtifact, error) {
	c.log.Debug("loading history")
	doc, err := c.repo.Load(ctx)
	switch {
	case errors.Is(err, objstore.ErrNotFound):
		c.log.Warn("no rolling history, simulating from previous paths only")
		doc = nil
	case err != nil:
		c.metrics.RecordError("history_load")
		return nil, fmt.Errorf("%w: %w", ErrLoadHistory, err)
	}
	store := history.FromDocument(doc, c.cfg.Capacity, history.WithReadinessThreshold(c.cfg.ReadinessThreshold))

	previous := c.previousArtifact(ctx)

	cfg := c.sim.Config()
	horizonStart := now.UTC().Truncate(cfg.StepDuration)
	readiness := store.Readiness(c.cfg.Assets)
	c.metrics.SetReadiness(readiness.TotalAssets, readiness.AssetsWithFullWindow, readiness.ReadyForSimulation)
	if !readiness.ReadyForSimulation {
		c.log.Warn("history not ready, parameters are low confidence",
			logger.Int("full_windows", readiness.AssetsWithFullWindow),
			logger.Int("total_assets", readiness.TotalAssets))
	}

	art := &models.SimulationArtifact{
		ID:            ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		GeneratedAt:   now.UTC(),
		HorizonStart:  horizonStart,
		HorizonEnd:    horizonStart.Add(time.Duration(cfg.HorizonSteps) * cfg.StepDuration),
		Resolution:    models.ResolutionOf(cfg.StepDuration),
		Assets:        make(map[string]models.AssetResult, len(c.cfg.Assets)),
		Readiness:     readiness,
		LowConfidence: !readiness.ReadyForSimulation,
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for _, asset := range c.cfg.Assets {
		asset := asset
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			r := c.simulateAsset(asset, store.Snapshot(asset), previous, horizonStart, now)
			mu.Lock()
			art.SetResult(asset, r)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c.log.Info("simulation built",
		logger.String("id", art.ID),
		logger.Int("present", art.PresentCount()),
		logger.Int("absent", art.AbsentCount()),
		logger.Bool("low_confidence", art.LowConfidence))
	return art, nil
}

// simulateAsset never fails the cycle; problems become an absent result.
func (c *SimulationCycle) simulateAsset(asset string, h models.RollingHistory, previous *models.SimulationArtifact, horizonStart, now time.Time) (res models.AssetResult) {
	defer func() {
		if rec := recover(); rec != nil {
			c.log.Error("simulation panicked", logger.String("asset", asset), logger.Any("panic", rec))
			res = models.Absent(models.ReasonSimulationFailed)
		}
		if res.IsPresent() {
			c.metrics.RecordAssetResult("present")
			c.metrics.RecordSimulatedPrice(asset, res.Path.EndPrice)
		} else {
			c.metrics.RecordAssetResult(res.Reason)
		}
	}()

	start, ok := startPrice(asset, h, previous)
	if !ok {
		c.log.Warn("asset skipped", logger.String("asset", asset), logger.String("reason", models.ReasonNoStartPrice))
		return models.Absent(models.ReasonNoStartPrice)
	}

	params := c.estimator.Estimate(h)
	seed := simulator.Seed(now, asset)
	prices, err := c.sim.Simulate(start, params, seed)
	if err != nil {
		reason := models.ReasonSimulationFailed
		if errors.Is(err, simulator.ErrInvalidStartPrice) {
			reason = models.ReasonInvalidStart
		}
		c.log.Warn("asset skipped", logger.String("asset", asset), logger.String("reason", reason), logger.Error(err))
		return models.Absent(reason)
	}

	path := c.sim.BuildPath(start, prices, params, horizonStart, seed)
	path.HistoryPoints = len(h.Points)
	if last, ok := h.Last(); ok {
		ref := simulator.RoundPrice(last.Price, c.sim.Config().PricePrecision)
		path.ReferencePrice = &ref
	}
	return models.Present(path)
}

// startPrice prefers the previous path's end price and falls back to the
// latest real quote.
func startPrice(asset string, h models.RollingHistory, previous *models.SimulationArtifact) (float64, bool) {
	if previous != nil {
		if p, ok := previous.Path(asset); ok {
			return p.EndPrice, true
		}
	}
	if last, ok := h.Last(); ok {
		return last.Price, true
	}
	return 0, false
}

func (c *SimulationCycle) previousArtifact(ctx context.Context) *models.SimulationArtifact {
	prev, err := c.artifacts.Latest(ctx)
	switch {
	case err == nil:
		return prev
	case errors.Is(err, objstore.ErrNotFound):
		return nil
	default:
		c.metrics.RecordError("latest_load")
		c.log.Warn("previous artifact unreadable, starting from real quotes", logger.Error(err))
		return nil
	}
}
