package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePath() SimulatedPath {
	return SimulatedPath{
		StartTimestamp: 1000,
		StepSeconds:    60,
		Prices: []PricePoint{
			{StepIndex: 1, Timestamp: 1060, Price: 101},
			{StepIndex: 2, Timestamp: 1120, Price: 102},
		},
		StartPrice: 100,
		EndPrice:   102,
	}
}

func TestArtifactAbsentAssetSerialisesAsNull(t *testing.T) {
	var a SimulationArtifact
	a.SetResult("AAPL", Present(samplePath()))
	a.SetResult("MSFT", Absent(ReasonNoStartPrice))

	b, err := json.Marshal(&a)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assets := raw["assets"].(map[string]any)
	assert.Nil(t, assets["MSFT"])
	assert.NotNil(t, assets["AAPL"])
	assert.Equal(t, map[string]any{"MSFT": ReasonNoStartPrice}, raw["absent"])

	var back SimulationArtifact
	require.NoError(t, json.Unmarshal(b, &back))
	assert.False(t, back.Assets["MSFT"].IsPresent())
	assert.Equal(t, ReasonNoStartPrice, back.Assets["MSFT"].Reason)
	p, ok := back.Path("AAPL")
	require.True(t, ok)
	assert.Equal(t, 102.0, p.EndPrice)
	assert.Equal(t, 1, back.PresentCount())
	assert.Equal(t, 1, back.AbsentCount())
	assert.Equal(t, []string{"AAPL", "MSFT"}, back.AssetIDs())
}

func TestSetResultClearsAbsence(t *testing.T) {
	var a SimulationArtifact
	a.SetResult("X", Absent(""))
	assert.Equal(t, ReasonUnknown, a.Absent["X"])

	a.SetResult("X", Present(samplePath()))
	assert.NotContains(t, a.Absent, "X")
}

func TestPathPriceAt(t *testing.T) {
	p := samplePath()
	assert.Equal(t, 100.0, p.PriceAt(time.Unix(1000, 0)))
	assert.Equal(t, 101.0, p.PriceAt(time.Unix(1060, 0)))
	assert.Equal(t, 101.0, p.PriceAt(time.Unix(1100, 0)))
	assert.Equal(t, 102.0, p.PriceAt(time.Unix(5000, 0)))
}

func TestResolution(t *testing.T) {
	assert.Equal(t, Resolution("1m"), ResolutionOf(time.Minute))
	assert.Equal(t, Resolution("2h"), ResolutionOf(2*time.Hour))
	assert.Equal(t, Resolution("30s"), ResolutionOf(30*time.Second))

	d, err := Resolution("5m").Duration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	_, err = Resolution("bogus").Duration()
	assert.Error(t, err)
}

func TestRollingHistoryHelpers(t *testing.T) {
	h := RollingHistory{AssetID: "X", Capacity: 2}
	_, ok := h.Last()
	assert.False(t, ok)
	assert.False(t, h.Full())

	h.Points = []Quote{{Price: 1, ObservedAt: 1}, {Price: 2, ObservedAt: 2}}
	last, ok := h.Last()
	require.True(t, ok)
	assert.Equal(t, 2.0, last.Price)
	assert.True(t, h.Full())
	assert.Equal(t, []float64{1, 2}, h.Prices())
	assert.Equal(t, time.Unix(2, 0).UTC(), last.Time())
}
