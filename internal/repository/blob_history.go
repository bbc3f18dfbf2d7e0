package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"PriceSim/internal/domain/models"
	"PriceSim/pkg/objstore"
)

// BlobHistoryRepository persists the rolling history document under one key.
type BlobHistoryRepository struct {
	store objstore.Store
	key   string
}

func NewBlobHistoryRepository(store objstore.Store, key string) *BlobHistoryRepository {
	return &BlobHistoryRepository{store: store, key: key}
}

// Load returns an error wrapping objstore.ErrNotFound when nothing was saved yet.
func (r *BlobHistoryRepository) Load(ctx context.Context) (*models.HistoryDocument, error) {
	b, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", r.key, err)
	}
	var doc models.HistoryDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", r.key, err)
	}
	return &doc, nil
}

func (r *BlobHistoryRepository) Save(ctx context.Context, doc *models.HistoryDocument) error {
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := r.store.Put(ctx, r.key, b); err != nil {
		return fmt.Errorf("save history %s: %w", r.key, err)
	}
	return nil
}
