package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PriceSim/internal/domain/models"
	"PriceSim/internal/domain/repository"
	"PriceSim/internal/usecase"
	"PriceSim/pkg/config"
	xhttp "PriceSim/pkg/http"
	"PriceSim/pkg/logger"
	"PriceSim/pkg/objstore"
	"PriceSim/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	collector  *usecase.QuoteCollector
	cycle      *usecase.SimulationCycle
	dispatcher queue.Dispatcher
	handler    xhttp.Handler
	history    repository.HistoryRepository
	now        func() time.Time
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.QuoteCollector,
	cycle *usecase.SimulationCycle,
	dispatcher queue.Dispatcher,
	handler xhttp.Handler,
	history repository.HistoryRepository,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		collector:  collector,
		cycle:      cycle,
		dispatcher: dispatcher,
		handler:    handler,
		history:    history,
		now:        time.Now,
	}
}

// Collect runs a single ingestion cycle.
func (a *App) Collect(ctx context.Context) (*usecase.CollectResult, error) {
	return a.collector.Collect(ctx, a.now().UTC())
}

// Simulate runs a single simulation cycle.
func (a *App) Simulate(ctx context.Context) (*usecase.CycleResult, error) {
	return a.cycle.Run(ctx, a.now().UTC())
}

// Readiness returns the readiness signal persisted by the last collection.
// Before the first collection every tracked asset counts as not full.
func (a *App) Readiness(ctx context.Context) (models.ReadinessView, error) {
	doc, err := a.history.Load(ctx)
	if errors.Is(err, objstore.ErrNotFound) {
		return models.ReadinessView{
			Readiness: models.Readiness{TotalAssets: len(a.cfg.Finnhub.Symbols)},
			Capacity:  a.cfg.History.Capacity,
		}, nil
	}
	if err != nil {
		return models.ReadinessView{}, err
	}
	return models.ReadinessView{Readiness: doc.Stats, LastUpdated: doc.LastUpdated, Capacity: doc.Capacity}, nil
}

// Serve starts the dispatcher, the scheduler and the read API and blocks
// until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	a.dispatcher.RegisterJob(usecase.NewCollectJob(a.collector))
	a.dispatcher.RegisterJob(usecase.NewSimulateJob(a.cycle))
	if err := a.dispatcher.Start(); err != nil {
		return fmt.Errorf("start dispatcher: %w", err)
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	httpServer := xhttp.NewServer(a.handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	if err := httpServer.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	sched := usecase.NewScheduler(a.dispatcher, a.cfg.Schedule.CollectInterval, a.cfg.Schedule.SimulateInterval, a.log)
	sched.Start(ctx)
	a.log.Info("service started", logger.Strings("assets", a.cfg.Finnhub.Symbols))

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown(sched, httpServer)
}

func (a *App) shutdown(sched *usecase.Scheduler, httpServer *xhttp.Server) error {
	sched.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
		errs = append(errs, err)
	}
	if err := a.dispatcher.Stop(ctx); err != nil {
		a.log.Warn("dispatcher stop error", logger.Error(err))
		errs = append(errs, err)
	}
	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
