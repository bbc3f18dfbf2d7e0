package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceSim/internal/domain/models"
	"PriceSim/internal/repository"
	"PriceSim/pkg/logger"
	"PriceSim/pkg/objstore"
)

var generated = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func seed(t *testing.T, blob objstore.Store) {
	t.Helper()
	arts := repository.NewBlobArtifactStore(blob, "latest.json", "archive")
	a := &models.SimulationArtifact{
		ID:           "01JNMX0000000000000000000",
		GeneratedAt:  generated,
		HorizonStart: generated,
		HorizonEnd:   generated.Add(2 * time.Minute),
		Resolution:   "1m",
	}
	a.SetResult("AAPL", models.Present(models.SimulatedPath{
		StartTimestamp: generated.Unix(),
		StepSeconds:    60,
		StartPrice:     100,
		EndPrice:       102,
		Prices: []models.PricePoint{
			{StepIndex: 1, Timestamp: generated.Add(time.Minute).Unix(), Price: 101},
			{StepIndex: 2, Timestamp: generated.Add(2 * time.Minute).Unix(), Price: 102},
		},
	}))
	a.SetResult("GHOST", models.Absent(models.ReasonNoStartPrice))
	require.NoError(t, arts.PutLatest(context.Background(), a))

	hist := repository.NewBlobHistoryRepository(blob, "history.json")
	require.NoError(t, hist.Save(context.Background(), &models.HistoryDocument{
		LastUpdated: generated,
		Capacity:    60,
		Stats:       models.Readiness{TotalAssets: 2, AssetsWithFullWindow: 1},
	}))
}

func newTestEcho(blob objstore.Store) *echo.Echo {
	h := NewSimulationEchoHandler(logger.Nop(),
		repository.NewBlobArtifactStore(blob, "latest.json", "archive"),
		repository.NewBlobHistoryRepository(blob, "history.json"),
		[]string{"AAPL", "GHOST", "MSFT"}, 60,
		time.Minute)
	h.now = func() time.Time { return generated.Add(90 * time.Second) }
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func get(t *testing.T, e *echo.Echo, target string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec.Code, env
}

func TestLatestUnavailableBeforeFirstPublish(t *testing.T) {
	e := newTestEcho(objstore.NewMemoryStore())
	code, _ := get(t, e, "/api/simulation/latest")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestLatestReturnsArtifact(t *testing.T) {
	blob := objstore.NewMemoryStore()
	seed(t, blob)
	e := newTestEcho(blob)

	code, env := get(t, e, "/api/simulation/latest")
	require.Equal(t, http.StatusOK, code)
	var art models.SimulationArtifact
	require.NoError(t, json.Unmarshal(env.Data, &art))
	assert.Equal(t, "01JNMX0000000000000000000", art.ID)
	assert.True(t, art.Assets["AAPL"].IsPresent())
	assert.Equal(t, models.ReasonNoStartPrice, art.Assets["GHOST"].Reason)
}

func TestAssetView(t *testing.T) {
	blob := objstore.NewMemoryStore()
	seed(t, blob)
	e := newTestEcho(blob)

	code, env := get(t, e, "/api/simulation/GHOST")
	require.Equal(t, http.StatusOK, code)
	var v models.AssetView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.False(t, v.Present)
	assert.Nil(t, v.Path)
	assert.Equal(t, models.ReasonNoStartPrice, v.Reason)

	code, _ = get(t, e, "/api/simulation/TSLA")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPriceAt(t *testing.T) {
	blob := objstore.NewMemoryStore()
	seed(t, blob)
	e := newTestEcho(blob)

	cases := map[string]float64{
		"/api/simulation/AAPL/price":                                101,
		"/api/simulation/AAPL/price?at=2025-03-04T09:00:00Z":        100,
		"/api/simulation/AAPL/price?at=2025-03-04T10:02:00Z":        102,
		"/api/simulation/AAPL/price?at=1741082460":                  101,
		"/api/simulation/AAPL/price?at=2025-03-04T12:00:00%2B00:00": 102,
	}
	for target, want := range cases {
		code, env := get(t, e, target)
		require.Equal(t, http.StatusOK, code, target)
		var v models.PriceView
		require.NoError(t, json.Unmarshal(env.Data, &v))
		assert.InDelta(t, want, v.Price, 1e-9, target)
	}

	code, _ := get(t, e, "/api/simulation/AAPL/price?at=soon")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, e, "/api/simulation/GHOST/price")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestReadiness(t *testing.T) {
	blob := objstore.NewMemoryStore()
	seed(t, blob)
	e := newTestEcho(blob)

	code, env := get(t, e, "/api/history/readiness")
	require.Equal(t, http.StatusOK, code)
	var v models.ReadinessView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, 2, v.TotalAssets)
	assert.Equal(t, 1, v.AssetsWithFullWindow)
	assert.False(t, v.ReadyForSimulation)
	assert.Equal(t, 60, v.Capacity)
}

func TestReadinessBeforeFirstCollection(t *testing.T) {
	e := newTestEcho(objstore.NewMemoryStore())

	code, env := get(t, e, "/api/history/readiness")
	require.Equal(t, http.StatusOK, code)
	var v models.ReadinessView
	require.NoError(t, json.Unmarshal(env.Data, &v))
	assert.Equal(t, 3, v.TotalAssets)
	assert.Zero(t, v.AssetsWithFullWindow)
	assert.False(t, v.ReadyForSimulation)
	assert.Equal(t, 60, v.Capacity)
	assert.True(t, v.LastUpdated.IsZero())
}

func TestLatestIsCached(t *testing.T) {
	blob := objstore.NewMemoryStore()
	seed(t, blob)
	e := newTestEcho(blob)

	code, _ := get(t, e, "/api/simulation/latest")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, blob.Delete(context.Background(), "latest.json"))
	code, _ = get(t, e, "/api/simulation/latest")
	assert.Equal(t, http.StatusOK, code)
}

func TestHealth(t *testing.T) {
	e := newTestEcho(objstore.NewMemoryStore())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
