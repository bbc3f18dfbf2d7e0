package repository

import (
	"context"
	"time"

	"PriceSim/internal/domain/models"
)

// QuoteSource fetches one spot quote for an asset from the market-data provider.
type QuoteSource interface {
	Quote(ctx context.Context, assetID string) (models.Quote, error)
}

// HistoryRepository loads and saves the whole rolling history as one unit.
// Load returns objstore.ErrNotFound-wrapped errors on cold start.
type HistoryRepository interface {
	Load(ctx context.Context) (*models.HistoryDocument, error)
	Save(ctx context.Context, doc *models.HistoryDocument) error
}

// ArtifactStore persists simulation artifacts. Archival copies are immutable;
// the latest pointer is the only mutable key.
type ArtifactStore interface {
	PutArchival(ctx context.Context, key string, a *models.SimulationArtifact) error
	PutLatest(ctx context.Context, a *models.SimulationArtifact) error
	Latest(ctx context.Context) (*models.SimulationArtifact, error)
	ArchivalKey(generatedAt time.Time) string
}

// QuoteArchive mirrors accepted quotes into an analytic store.
type QuoteArchive interface {
	StoreQuotes(ctx context.Context, quotes []models.Quote) error
}

// PathArchive mirrors published paths into an analytic store.
type PathArchive interface {
	StoreArtifact(ctx context.Context, a *models.SimulationArtifact) error
}

// Notifier announces a published artifact to downstream consumers.
type Notifier interface {
	Published(ctx context.Context, archiveKey string, a *models.SimulationArtifact) error
}

type Metrics interface {
	RecordError(kind string)
	RecordLastPrice(asset string, price float64)
	RecordSimulatedPrice(asset string, price float64)
	RecordLatency(op string, seconds float64)
	RecordAssetResult(outcome string)
	SetReadiness(total, full int, ready bool)
}
