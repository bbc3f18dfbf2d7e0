package di

import (
	"context"
	"fmt"
	"time"

	"PriceSim/internal/domain/repository"
	"PriceSim/internal/handler/api"
	internalrepo "PriceSim/internal/repository"
	"PriceSim/internal/service/finnhub"
	"PriceSim/internal/service/ratelimit"
	"PriceSim/internal/services/simulator"
	"PriceSim/internal/services/stats"
	"PriceSim/internal/usecase"
	pkgch "PriceSim/pkg/clickhouse"
	"PriceSim/pkg/config"
	xhttp "PriceSim/pkg/http"
	pkgkafka "PriceSim/pkg/kafka"
	"PriceSim/pkg/logger"
	"PriceSim/pkg/metrics"
	"PriceSim/pkg/objstore"
	"PriceSim/pkg/queue"
	"PriceSim/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideObjectStore creates the blob store selected by store.backend.
func ProvideObjectStore(cfg *config.Config, log *logger.Logger) (objstore.Store, func(), error) {
	if cfg.Store.Backend == "memory" {
		log.Warn("using in-memory store, nothing survives a restart")
		return objstore.NewMemoryStore(), func() {}, nil
	}
	rs, err := objstore.NewRedisStore(
		objstore.WithRedisAddr(cfg.Store.Redis.Addr),
		objstore.WithRedisPassword(cfg.Store.Redis.Password),
		objstore.WithRedisDB(cfg.Store.Redis.DB),
		objstore.WithRedisPrefix(cfg.Store.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("object store: %w", err)
	}
	cleanup := func() {
		if err := rs.Close(); err != nil {
			log.Warn("redis close error", logger.Error(err))
		}
	}
	return rs, cleanup, nil
}

// ProvideMetrics creates a Prometheus metrics recorder, or a no-op one when
// metrics are disabled.
func ProvideMetrics(cfg *config.Config) repository.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideHistoryRepository stores the rolling history under its fixed key.
func ProvideHistoryRepository(store objstore.Store, cfg *config.Config) repository.HistoryRepository {
	return internalrepo.NewBlobHistoryRepository(store, cfg.Store.Keys.History)
}

// ProvideArtifactStore stores archival copies and the latest pointer.
func ProvideArtifactStore(store objstore.Store, cfg *config.Config) repository.ArtifactStore {
	return internalrepo.NewBlobArtifactStore(store, cfg.Store.Keys.Latest, cfg.Store.Keys.ArchivePrefix)
}

// ProvideClickHouseArchive connects ClickHouse and prepares the archive
// tables. It returns nil when ClickHouse is disabled.
func ProvideClickHouseArchive(cfg *config.Config, log *logger.Logger) (*internalrepo.ClickHouseArchive, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.InitSchema(ctx, internalrepo.ClickHouseSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	log.Info("clickhouse archive ready", logger.String("database", cfg.ClickHouse.Database))

	cleanup := func() {
		if err := client.Close(); err != nil {
			log.Warn("clickhouse close error", logger.Error(err))
		}
	}
	return internalrepo.NewClickHouseArchive(client.DB(), cfg.ClickHouse.Database), cleanup, nil
}

// ProvideQuoteArchive exposes the ClickHouse archive as a QuoteArchive.
// A disabled archive stays a nil interface.
func ProvideQuoteArchive(ch *internalrepo.ClickHouseArchive) repository.QuoteArchive {
	if ch == nil {
		return nil
	}
	return ch
}

// ProvidePathArchive exposes the ClickHouse archive as a PathArchive.
func ProvidePathArchive(ch *internalrepo.ClickHouseArchive) repository.PathArchive {
	if ch == nil {
		return nil
	}
	return ch
}

// ProvideNotifier creates the Kafka publish notifier. It returns nil when no
// brokers are configured.
func ProvideNotifier(cfg *config.Config, log *logger.Logger) (repository.Notifier, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			log.Warn("kafka producer close error", logger.Error(err))
		}
	}
	return internalrepo.NewKafkaNotifier(producer, cfg.Kafka.Topic), cleanup, nil
}

// ProvideQuoteSource creates the Finnhub REST quote source.
func ProvideQuoteSource(cfg *config.Config) repository.QuoteSource {
	hc := xhttp.NewClient(
		xhttp.WithTimeout(cfg.Finnhub.Timeout),
		xhttp.WithUserAgent("pricesim/1.0"),
	)
	return finnhub.New(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL, finnhub.WithHTTPClient(hc))
}

// ProvideEstimator creates the statistics estimator.
func ProvideEstimator(cfg *config.Config) stats.Estimator {
	return stats.NewEstimator(cfg.Simulation.VolatilityFloor)
}

// ProvideSimulator creates the price-path simulator.
func ProvideSimulator(cfg *config.Config) *simulator.Simulator {
	s := cfg.Simulation
	return simulator.New(simulator.Config{
		HorizonSteps:       s.HorizonSteps,
		StepDuration:       s.StepDuration,
		SampleInterval:     cfg.History.SampleInterval,
		Amplification:      s.Amplification,
		MaxStepFraction:    s.MaxStepFraction,
		PriceFloorFraction: s.PriceFloorFraction,
		PricePrecision:     s.PricePrecision,
	})
}

// ProvideQuoteCollector creates the ingestion use case.
func ProvideQuoteCollector(
	cfg *config.Config,
	source repository.QuoteSource,
	history repository.HistoryRepository,
	archive repository.QuoteArchive,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.QuoteCollector {
	return usecase.NewQuoteCollector(usecase.CollectorConfig{
		Assets:             cfg.Finnhub.Symbols,
		Capacity:           cfg.History.Capacity,
		ReadinessThreshold: cfg.History.ReadinessThreshold,
		FetchTimeout:       cfg.Finnhub.Timeout,
		Workers:            cfg.Finnhub.FetchWorkers,
		CallsPerMinute:     cfg.Finnhub.CallsPerMinute,
	}, source, history, archive, ratelimit.New(), m, log)
}

// ProvidePublisher creates the artifact publisher.
func ProvidePublisher(
	store repository.ArtifactStore,
	paths repository.PathArchive,
	notifier repository.Notifier,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Publisher {
	return usecase.NewPublisher(store, paths, notifier, m, log)
}

// ProvideSimulationCycle creates the simulation use case.
func ProvideSimulationCycle(
	cfg *config.Config,
	history repository.HistoryRepository,
	artifacts repository.ArtifactStore,
	estimator stats.Estimator,
	sim *simulator.Simulator,
	publisher *usecase.Publisher,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.SimulationCycle {
	return usecase.NewSimulationCycle(usecase.CycleConfig{
		Assets:             cfg.Finnhub.Symbols,
		Capacity:           cfg.History.Capacity,
		ReadinessThreshold: cfg.History.ReadinessThreshold,
		Workers:            cfg.Simulation.Workers,
	}, history, artifacts, estimator, sim, publisher, m, log)
}

// ProvideDispatcher runs cycles through Redis when the queue is enabled and
// in-process otherwise. Both run a single job at a time.
func ProvideDispatcher(cfg *config.Config, store objstore.Store, log *logger.Logger) (queue.Dispatcher, error) {
	qc := &queue.QueueConfig{
		Workers:    cfg.Queue.Workers,
		RetryLimit: cfg.Queue.RetryLimit,
		RetryDelay: cfg.Queue.RetryDelay,
	}
	if !cfg.Queue.Enabled {
		return queue.NewInline(log, qc), nil
	}
	rs, ok := store.(*objstore.RedisStore)
	if !ok {
		return nil, fmt.Errorf("queue.enabled requires store.backend=redis")
	}
	return queue.NewRedisQueue(log, qc, rs.Client(), queue.WithKeyPrefix(cfg.Queue.KeyPrefix)), nil
}

// ProvideSimulationHandler creates the read API handler.
func ProvideSimulationHandler(
	cfg *config.Config,
	log *logger.Logger,
	artifacts repository.ArtifactStore,
	history repository.HistoryRepository,
) *api.SimulationEchoHandler {
	return api.NewSimulationEchoHandler(log, artifacts, history,
		cfg.Finnhub.Symbols, cfg.History.Capacity, cfg.Server.CacheTTL)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	collector *usecase.QuoteCollector,
	cycle *usecase.SimulationCycle,
	dispatcher queue.Dispatcher,
	handler *api.SimulationEchoHandler,
	history repository.HistoryRepository,
) *server.App {
	return server.New(cfg, log, collector, cycle, dispatcher, handler, history)
}
