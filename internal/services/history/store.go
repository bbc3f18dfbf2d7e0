package history

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"PriceSim/internal/domain/models"
)

var (
	ErrInvalidQuote = errors.New("history: invalid quote")
	ErrOutOfOrder   = errors.New("history: quote older than window tail")
)

const DefaultReadinessThreshold = 0.8

// Option configures a Store.
type Option func(*Store)

// WithReadinessThreshold sets the fraction of expected assets that must have
// a full window before the history counts as ready.
func WithReadinessThreshold(f float64) Option {
	return func(s *Store) {
		s.threshold = f
	}
}

// WithCreatedAt sets the creation time reported in documents.
func WithCreatedAt(t time.Time) Option {
	return func(s *Store) {
		s.createdAt = t
	}
}

// Store holds a bounded FIFO window of quotes per asset.
// It is safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	capacity  int
	threshold float64
	createdAt time.Time
	windows   map[string][]models.Quote
}

func New(capacity int, opts ...Option) *Store {
	if capacity < 1 {
		capacity = 1
	}
	s := &Store{
		capacity:  capacity,
		threshold: DefaultReadinessThreshold,
		windows:   make(map[string][]models.Quote),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromDocument rebuilds a store from its persisted form. The document's
// windows are replayed through Record so a changed capacity or a corrupt
// ordering is repaired on load.
func FromDocument(doc *models.HistoryDocument, capacity int, opts ...Option) *Store {
	s := New(capacity, opts...)
	if doc == nil {
		return s
	}
	if s.createdAt.IsZero() {
		s.createdAt = doc.CreatedAt
	}
	for id, h := range doc.Assets {
		for _, q := range h.Points {
			_ = s.Record(id, q)
		}
	}
	return s
}

func (s *Store) Capacity() int { return s.capacity }

// Record appends q to the asset's window, evicting the oldest point when the
// window is full. A quote with the same timestamp as the tail replaces it.
func (s *Store) Record(assetID string, q models.Quote) error {
	if assetID == "" {
		return fmt.Errorf("%w: empty asset id", ErrInvalidQuote)
	}
	if q.Price <= 0 || math.IsNaN(q.Price) || math.IsInf(q.Price, 0) {
		return fmt.Errorf("%w: %s price %v", ErrInvalidQuote, assetID, q.Price)
	}
	q.AssetID = assetID

	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.windows[assetID]
	if n := len(w); n > 0 {
		last := w[n-1]
		switch {
		case q.ObservedAt < last.ObservedAt:
			return fmt.Errorf("%w: %s at %d before %d", ErrOutOfOrder, assetID, q.ObservedAt, last.ObservedAt)
		case q.ObservedAt == last.ObservedAt:
			w[n-1] = q
			return nil
		}
	}

	w = append(w, q)
	if len(w) > s.capacity {
		w = append([]models.Quote(nil), w[len(w)-s.capacity:]...)
	}
	s.windows[assetID] = w
	return nil
}

// Snapshot returns a copy of the asset's window. Unknown assets yield an
// empty window.
func (s *Store) Snapshot(assetID string) models.RollingHistory {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := models.RollingHistory{AssetID: assetID, Capacity: s.capacity}
	if w := s.windows[assetID]; len(w) > 0 {
		h.Points = append([]models.Quote(nil), w...)
	}
	return h
}

// Assets returns every observed asset id, sorted.
func (s *Store) Assets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.windows))
	for id := range s.windows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Readiness reports how many expected assets have a full window and whether
// that meets the threshold.
func (s *Store) Readiness(expected []string) models.Readiness {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r := models.Readiness{TotalAssets: len(expected)}
	for _, id := range expected {
		if len(s.windows[id]) >= s.capacity {
			r.AssetsWithFullWindow++
		}
	}
	r.ReadyForSimulation = r.TotalAssets > 0 &&
		float64(r.AssetsWithFullWindow) >= s.threshold*float64(r.TotalAssets)
	return r
}

// Document serialises the full state for persistence.
func (s *Store) Document(expected []string, now time.Time) *models.HistoryDocument {
	stats := s.Readiness(expected)

	s.mu.RLock()
	defer s.mu.RUnlock()

	created := s.createdAt
	if created.IsZero() {
		created = now
	}
	doc := &models.HistoryDocument{
		CreatedAt:   created.UTC(),
		LastUpdated: now.UTC(),
		Capacity:    s.capacity,
		Assets:      make(map[string]models.RollingHistory, len(s.windows)),
		Stats:       stats,
	}
	for id, w := range s.windows {
		doc.Assets[id] = models.RollingHistory{
			AssetID:  id,
			Points:   append([]models.Quote(nil), w...),
			Capacity: s.capacity,
		}
	}
	return doc
}
