package models

import (
	"encoding/json"
	"sort"
	"time"
)

// Absence reasons recorded when an asset has no simulated path.
const (
	ReasonNoStartPrice     = "no_start_price"
	ReasonInvalidStart     = "invalid_start_price"
	ReasonSimulationFailed = "simulation_failed"
	ReasonUnknown          = "unknown"
)

// EstimatedParameters are derived from a history snapshot each cycle.
type EstimatedParameters struct {
	MeanReturn float64 `json:"mean_return"`
	Volatility float64 `json:"volatility"`
	Trend      float64 `json:"trend"`
}

// PricePoint is one simulated step.
type PricePoint struct {
	StepIndex int     `json:"step_index"`
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

// SimulatedPath is the generated horizon for one asset.
type SimulatedPath struct {
	StartTimestamp      int64               `json:"start_timestamp"`
	StepSeconds         int64               `json:"step_seconds"`
	Prices              []PricePoint        `json:"prices"`
	StartPrice          float64             `json:"start_price"`
	EndPrice            float64             `json:"end_price"`
	PeriodHigh          float64             `json:"period_high"`
	PeriodLow           float64             `json:"period_low"`
	PeriodChange        float64             `json:"period_change"`
	PeriodChangePercent float64             `json:"period_change_percent"`
	Basis               EstimatedParameters `json:"basis"`
	ReferencePrice      *float64            `json:"reference_price,omitempty"`
	HistoryPoints       int                 `json:"history_points"`
	Seed                uint64              `json:"seed"`
}

// PriceAt returns the price of the latest step at or before t. Times before
// the first step yield the start price and times after the horizon the end price.
func (p SimulatedPath) PriceAt(t time.Time) float64 {
	ts := t.Unix()
	price := p.StartPrice
	for _, pt := range p.Prices {
		if pt.Timestamp > ts {
			break
		}
		price = pt.Price
	}
	return price
}

// AssetResult is either a present path or an absence with a reason.
// It serialises to the path object or to JSON null.
type AssetResult struct {
	Path   *SimulatedPath
	Reason string
}

// Present wraps a simulated path.
func Present(p SimulatedPath) AssetResult {
	return AssetResult{Path: &p}
}

// Absent records that no path could be produced.
func Absent(reason string) AssetResult {
	if reason == "" {
		reason = ReasonUnknown
	}
	return AssetResult{Reason: reason}
}

func (r AssetResult) IsPresent() bool { return r.Path != nil }

func (r AssetResult) MarshalJSON() ([]byte, error) {
	if r.Path == nil {
		return []byte("null"), nil
	}
	return json.Marshal(r.Path)
}

func (r *AssetResult) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = Absent(ReasonUnknown)
		return nil
	}
	var p SimulatedPath
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*r = Present(p)
	return nil
}

// SimulationArtifact is the unit published once per simulation cycle.
type SimulationArtifact struct {
	ID            string                 `json:"id"`
	GeneratedAt   time.Time              `json:"generated_at"`
	HorizonStart  time.Time              `json:"horizon_start"`
	HorizonEnd    time.Time              `json:"horizon_end"`
	Resolution    Resolution             `json:"resolution"`
	Assets        map[string]AssetResult `json:"assets"`
	Absent        map[string]string      `json:"absent,omitempty"`
	Readiness     Readiness              `json:"readiness"`
	LowConfidence bool                   `json:"low_confidence"`
}

type artifactAlias SimulationArtifact

// UnmarshalJSON restores absence reasons from the absent map.
func (a *SimulationArtifact) UnmarshalJSON(b []byte) error {
	var raw artifactAlias
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for asset, reason := range raw.Absent {
		if r, ok := raw.Assets[asset]; ok && !r.IsPresent() {
			raw.Assets[asset] = Absent(reason)
		}
	}
	*a = SimulationArtifact(raw)
	return nil
}

// SetResult stores r for asset and keeps the absent map in sync.
func (a *SimulationArtifact) SetResult(asset string, r AssetResult) {
	if a.Assets == nil {
		a.Assets = make(map[string]AssetResult)
	}
	a.Assets[asset] = r
	if r.IsPresent() {
		delete(a.Absent, asset)
		return
	}
	if a.Absent == nil {
		a.Absent = make(map[string]string)
	}
	a.Absent[asset] = r.Reason
}

// Path returns the simulated path for asset if one is present.
func (a *SimulationArtifact) Path(asset string) (SimulatedPath, bool) {
	r, ok := a.Assets[asset]
	if !ok || !r.IsPresent() {
		return SimulatedPath{}, false
	}
	return *r.Path, true
}

// PresentCount returns the number of assets with a path.
func (a *SimulationArtifact) PresentCount() int {
	n := 0
	for _, r := range a.Assets {
		if r.IsPresent() {
			n++
		}
	}
	return n
}

// AbsentCount returns the number of assets without a path.
func (a *SimulationArtifact) AbsentCount() int {
	return len(a.Assets) - a.PresentCount()
}

// AssetIDs returns the artifact's assets sorted by id.
func (a *SimulationArtifact) AssetIDs() []string {
	ids := make([]string, 0, len(a.Assets))
	for id := range a.Assets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
