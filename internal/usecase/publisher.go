package usecase

import (
	"context"
	"fmt"

	"PriceSim/internal/domain/models"
	drepo "PriceSim/internal/domain/repository"
	"PriceSim/pkg/logger"
)

// PublishResult reports what a publish call wrote.
type PublishResult struct {
	ArchiveKey string
	// LatestErr is set when the archival copy was written but the latest
	// pointer was not.
	LatestErr error
}

// Publisher writes the archival copy first and the latest pointer last, so a
// reader of latest always has archival data behind it.
type Publisher struct {
	store    drepo.ArtifactStore
	paths    drepo.PathArchive
	notifier drepo.Notifier
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewPublisher creates a Publisher. paths and notifier may be nil.
func NewPublisher(store drepo.ArtifactStore, paths drepo.PathArchive, notifier drepo.Notifier, metrics drepo.Metrics, log *logger.Logger) *Publisher {
	return &Publisher{store: store, paths: paths, notifier: notifier, metrics: metrics, log: log}
}

// Publish persists a. An archival failure is returned wrapped in
// ErrPublishArchive and nothing else is written. A latest failure is
// reported in the result and does not undo the archival write.
func (p *Publisher) Publish(ctx context.Context, a *models.SimulationArtifact) (*PublishResult, error) {
	key := p.store.ArchivalKey(a.GeneratedAt)
	if err := p.store.PutArchival(ctx, key, a); err != nil {
		p.metrics.RecordError("publish_archive")
		return nil, fmt.Errorf("%w: %s: %w", ErrPublishArchive, key, err)
	}
	p.log.Info("archival artifact written", logger.String("key", key), logger.String("id", a.ID))

	if p.paths != nil {
		if err := p.paths.StoreArtifact(ctx, a); err != nil {
			p.metrics.RecordError("path_archive")
			p.log.Warn("path archive failed", logger.Error(err))
		}
	}

	res := &PublishResult{ArchiveKey: key}
	if err := p.store.PutLatest(ctx, a); err != nil {
		p.metrics.RecordError("publish_latest")
		p.log.Error("latest pointer not updated",
			logger.String("archive_key", key),
			logger.Error(err))
		res.LatestErr = err
		return res, nil
	}
	p.log.Info("latest artifact updated", logger.String("id", a.ID))

	if p.notifier != nil {
		if err := p.notifier.Published(ctx, key, a); err != nil {
			p.metrics.RecordError("notify")
			p.log.Warn("publish notification failed", logger.Error(err))
		}
	}
	return res, nil
}
