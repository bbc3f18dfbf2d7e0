//go:build wireinject
// +build wireinject

package di

import (
	"PriceSim/pkg/config"
	"PriceSim/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideObjectStore,
		ProvideClickHouseArchive,
		ProvideNotifier,
		ProvideQuoteSource,
		ProvideDispatcher,

		// Repositories
		ProvideHistoryRepository,
		ProvideArtifactStore,
		ProvideQuoteArchive,
		ProvidePathArchive,

		// Domain services
		ProvideEstimator,
		ProvideSimulator,

		// Use cases
		ProvideQuoteCollector,
		ProvidePublisher,
		ProvideSimulationCycle,

		// HTTP
		ProvideSimulationHandler,

		// Application
		ProvideApp,
	)
	return nil, nil, nil
}
