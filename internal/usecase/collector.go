package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"PriceSim/internal/domain/models"
	drepo "PriceSim/internal/domain/repository"
	"PriceSim/internal/service/ratelimit"
	"PriceSim/internal/services/history"
	"PriceSim/pkg/logger"
	"PriceSim/pkg/objstore"
)

// CollectorConfig tunes one ingestion cycle. A zero ReadinessThreshold
// selects history.DefaultReadinessThreshold.
type CollectorConfig struct {
	Assets             []string
	Capacity           int
	ReadinessThreshold float64
	FetchTimeout       time.Duration
	Workers            int
	// CallsPerMinute paces provider calls; 0 disables pacing.
	CallsPerMinute int
}

// CollectResult summarises an ingestion cycle.
type CollectResult struct {
	Recorded  []string          `json:"recorded"`
	Failed    map[string]string `json:"failed"`
	Readiness models.Readiness  `json:"readiness"`
}

// QuoteCollector runs the ingestion cycle: load the history once, fetch every
// tracked asset, record the successes and save the whole document.
type QuoteCollector struct {
	cfg     CollectorConfig
	source  drepo.QuoteSource
	repo    drepo.HistoryRepository
	archive drepo.QuoteArchive
	limiter *ratelimit.Limiter
	metrics drepo.Metrics
	log     *logger.Logger
}

// NewQuoteCollector creates a QuoteCollector. archive may be nil.
func NewQuoteCollector(cfg CollectorConfig, source drepo.QuoteSource, repo drepo.HistoryRepository, archive drepo.QuoteArchive, limiter *ratelimit.Limiter, metrics drepo.Metrics, log *logger.Logger) *QuoteCollector {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.ReadinessThreshold <= 0 {
		cfg.ReadinessThreshold = history.DefaultReadinessThreshold
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	return &QuoteCollector{cfg: cfg, source: source, repo: repo, archive: archive, limiter: limiter, metrics: metrics, log: log}
}

// Collect performs one ingestion cycle. A single asset's fetch failure is
// logged and counted; loading or saving the history is fatal.
func (c *QuoteCollector) Collect(ctx context.Context, now time.Time) (*CollectResult, error) {
	started := time.Now()
	defer func() { c.metrics.RecordLatency("collect", time.Since(started).Seconds()) }()

	doc, err := c.repo.Load(ctx)
	switch {
	case errors.Is(err, objstore.ErrNotFound):
		c.log.Info("no rolling history yet, starting empty")
		doc = nil
	case err != nil:
		c.metrics.RecordError("history_load")
		return nil, fmt.Errorf("%w: %w", ErrLoadHistory, err)
	}

	store := history.FromDocument(doc, c.cfg.Capacity, history.WithReadinessThreshold(c.cfg.ReadinessThreshold))

	capacity, refill := ratelimit.PerMinute(c.cfg.CallsPerMinute)
	res := &CollectResult{Failed: make(map[string]string)}

	var (
		mu       sync.Mutex
		accepted []models.Quote
	)
	fail := func(asset string, err error) {
		mu.Lock()
		res.Failed[asset] = err.Error()
		mu.Unlock()
		c.metrics.RecordError("fetch")
		c.log.Warn("quote fetch failed", logger.String("asset", asset), logger.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Workers)
	for _, asset := range c.cfg.Assets {
		asset := asset
		g.Go(func() error {
			if err := c.limiter.Wait(gctx, "finnhub", capacity, refill); err != nil {
				fail(asset, err)
				return nil
			}
			fctx, cancel := context.WithTimeout(gctx, c.cfg.FetchTimeout)
			q, err := c.source.Quote(fctx, asset)
			cancel()
			if err != nil {
				fail(asset, err)
				return nil
			}
			if err := store.Record(asset, q); err != nil {
				fail(asset, err)
				return nil
			}
			c.metrics.RecordLastPrice(asset, q.Price)
			mu.Lock()
			res.Recorded = append(res.Recorded, asset)
			accepted = append(accepted, q)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(res.Recorded)

	out := store.Document(c.cfg.Assets, now)
	res.Readiness = out.Stats
	c.metrics.SetReadiness(out.Stats.TotalAssets, out.Stats.AssetsWithFullWindow, out.Stats.ReadyForSimulation)

	if err := c.repo.Save(ctx, out); err != nil {
		c.metrics.RecordError("history_save")
		return nil, fmt.Errorf("save history: %w", err)
	}

	if c.archive != nil && len(accepted) > 0 {
		if err := c.archive.StoreQuotes(ctx, accepted); err != nil {
			c.metrics.RecordError("quote_archive")
			c.log.Warn("quote archive failed", logger.Error(err))
		}
	}

	c.log.Info("collection finished",
		logger.Int("recorded", len(res.Recorded)),
		logger.Int("failed", len(res.Failed)),
		logger.Int("full_windows", out.Stats.AssetsWithFullWindow),
		logger.Bool("ready", out.Stats.ReadyForSimulation))
	return res, nil
}
