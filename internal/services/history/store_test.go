package history

import (
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceSim/internal/domain/models"
)

func quote(ts int64, price float64) models.Quote {
	return models.Quote{ObservedAt: ts, Price: price, High: price, Low: price, Open: price, PreviousClose: price}
}

func TestWindowFillAndEviction(t *testing.T) {
	s := New(60)
	for i := 0; i < 60; i++ {
		require.NoError(t, s.Record("X", quote(int64(i*60), 100+0.1*float64(i))))
	}
	snap := s.Snapshot("X")
	require.Len(t, snap.Points, 60)
	assert.InDelta(t, 100.0, snap.Points[0].Price, 1e-9)

	require.NoError(t, s.Record("X", quote(60*60, 200)))
	snap = s.Snapshot("X")
	require.Len(t, snap.Points, 60)
	assert.InDelta(t, 100.1, snap.Points[0].Price, 1e-9)
	assert.InDelta(t, 200.0, snap.Points[59].Price, 1e-9)
}

func TestCapacityAndOrderingInvariant(t *testing.T) {
	s := New(5)
	ts := []int64{10, 20, 15, 20, 30, 5, 40, 50, 60, 70, 70, 80}
	for i, x := range ts {
		_ = s.Record("A", quote(x, float64(i+1)))

		snap := s.Snapshot("A")
		assert.LessOrEqual(t, len(snap.Points), 5)
		assert.True(t, sort.SliceIsSorted(snap.Points, func(i, j int) bool {
			return snap.Points[i].ObservedAt < snap.Points[j].ObservedAt
		}))
	}
}

func TestRecordRejectsBadQuotes(t *testing.T) {
	s := New(3)
	assert.ErrorIs(t, s.Record("A", quote(1, 0)), ErrInvalidQuote)
	assert.ErrorIs(t, s.Record("A", quote(1, -5)), ErrInvalidQuote)
	assert.ErrorIs(t, s.Record("", quote(1, 5)), ErrInvalidQuote)

	require.NoError(t, s.Record("A", quote(10, 5)))
	assert.ErrorIs(t, s.Record("A", quote(9, 6)), ErrOutOfOrder)

	require.NoError(t, s.Record("A", quote(10, 7)))
	snap := s.Snapshot("A")
	require.Len(t, snap.Points, 1)
	assert.Equal(t, 7.0, snap.Points[0].Price)
	assert.Equal(t, "A", snap.Points[0].AssetID)
}

func TestSnapshotUnknownAssetIsEmpty(t *testing.T) {
	s := New(3)
	snap := s.Snapshot("nope")
	assert.Empty(t, snap.Points)
	assert.Equal(t, 3, snap.Capacity)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(3)
	require.NoError(t, s.Record("A", quote(1, 5)))
	snap := s.Snapshot("A")
	snap.Points[0].Price = 99
	assert.Equal(t, 5.0, s.Snapshot("A").Points[0].Price)
}

func TestFailedAssetDoesNotTouchOthers(t *testing.T) {
	s := New(3)
	require.NoError(t, s.Record("A", quote(1, 5)))
	require.Error(t, s.Record("B", quote(1, 0)))
	assert.Len(t, s.Snapshot("A").Points, 1)
	assert.Equal(t, []string{"A"}, s.Assets())
}

func TestReadiness(t *testing.T) {
	s := New(2, WithReadinessThreshold(0.8))
	expected := []string{"A", "B", "C", "D", "E"}
	for i, id := range expected {
		require.NoError(t, s.Record(id, quote(1, 1)))
		if i < 3 {
			require.NoError(t, s.Record(id, quote(2, 1)))
		}
	}
	r := s.Readiness(expected)
	assert.Equal(t, 5, r.TotalAssets)
	assert.Equal(t, 3, r.AssetsWithFullWindow)
	assert.False(t, r.ReadyForSimulation)

	require.NoError(t, s.Record("D", quote(2, 1)))
	assert.True(t, s.Readiness(expected).ReadyForSimulation)

	assert.False(t, s.Readiness(nil).ReadyForSimulation)
}

func TestDocumentRoundTrip(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(time.Hour)

	s := New(3, WithCreatedAt(created))
	for i := int64(1); i <= 4; i++ {
		require.NoError(t, s.Record("A", quote(i, float64(i))))
	}
	require.NoError(t, s.Record("B", quote(1, 10)))

	doc := s.Document([]string{"A", "B"}, now)
	assert.Equal(t, created, doc.CreatedAt)
	assert.Equal(t, now, doc.LastUpdated)
	assert.Equal(t, 1, doc.Stats.AssetsWithFullWindow)
	require.Len(t, doc.Assets["A"].Points, 3)

	back := FromDocument(doc, 2)
	assert.Equal(t, []float64{3, 4}, back.Snapshot("A").Prices())
	assert.Equal(t, []float64{10}, back.Snapshot("B").Prices())
	assert.Equal(t, created, back.Document(nil, now).CreatedAt)
}

func TestConcurrentRecord(t *testing.T) {
	s := New(10)
	var wg sync.WaitGroup
	for a := 0; a < 8; a++ {
		wg.Add(1)
		go func(a int) {
			defer wg.Done()
			id := fmt.Sprintf("A%d", a)
			for i := 0; i < 50; i++ {
				_ = s.Record(id, quote(int64(i), 1+float64(i)))
				_ = s.Snapshot(id)
			}
		}(a)
	}
	wg.Wait()
	for a := 0; a < 8; a++ {
		assert.Len(t, s.Snapshot(fmt.Sprintf("A%d", a)).Points, 10)
	}
}
