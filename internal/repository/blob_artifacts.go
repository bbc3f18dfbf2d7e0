package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"PriceSim/internal/domain/models"
	"PriceSim/pkg/objstore"
)

// ErrArchiveExists is returned when an archival key was already written.
var ErrArchiveExists = errors.New("archival artifact already exists")

// BlobArtifactStore keeps immutable timestamped copies plus one latest pointer.
type BlobArtifactStore struct {
	store         objstore.Store
	latestKey     string
	archivePrefix string
}

func NewBlobArtifactStore(store objstore.Store, latestKey, archivePrefix string) *BlobArtifactStore {
	return &BlobArtifactStore{store: store, latestKey: latestKey, archivePrefix: archivePrefix}
}

// ArchivalKey is <prefix>/<YYYY-MM-DD>/<HH-MM-SS>_simulated_prices.json in UTC.
func (s *BlobArtifactStore) ArchivalKey(generatedAt time.Time) string {
	t := generatedAt.UTC()
	return fmt.Sprintf("%s/%s/%s_simulated_prices.json",
		s.archivePrefix, t.Format("2006-01-02"), t.Format("15-04-05"))
}

// PutArchival writes a. Existing archival keys are never overwritten, even
// when two workers race on the same key.
func (s *BlobArtifactStore) PutArchival(ctx context.Context, key string, a *models.SimulationArtifact) error {
	b, err := encodeArtifact(a)
	if err != nil {
		return err
	}
	wrote, err := s.store.PutIfAbsent(ctx, key, b)
	if err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	if !wrote {
		return fmt.Errorf("%w: %s", ErrArchiveExists, key)
	}
	return nil
}

func (s *BlobArtifactStore) PutLatest(ctx context.Context, a *models.SimulationArtifact) error {
	return s.put(ctx, s.latestKey, a)
}

// Latest returns an error wrapping objstore.ErrNotFound before the first publish.
func (s *BlobArtifactStore) Latest(ctx context.Context) (*models.SimulationArtifact, error) {
	b, err := s.store.Get(ctx, s.latestKey)
	if err != nil {
		return nil, fmt.Errorf("load latest artifact: %w", err)
	}
	var a models.SimulationArtifact
	if err := json.Unmarshal(b, &a); err != nil {
		return nil, fmt.Errorf("decode latest artifact: %w", err)
	}
	return &a, nil
}

func encodeArtifact(a *models.SimulationArtifact) ([]byte, error) {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return b, nil
}

func (s *BlobArtifactStore) put(ctx context.Context, key string, a *models.SimulationArtifact) error {
	b, err := encodeArtifact(a)
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, key, b); err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	return nil
}
