package models

import "time"

// Quote is one spot observation for an asset. Immutable once recorded.
type Quote struct {
	AssetID       string  `json:"asset_id"`
	ObservedAt    int64   `json:"observed_at"` // epoch seconds
	Price         float64 `json:"price"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Open          float64 `json:"open"`
	PreviousClose float64 `json:"previous_close"`
}

// Time returns ObservedAt as a UTC time.
func (q Quote) Time() time.Time {
	return time.Unix(q.ObservedAt, 0).UTC()
}

// RollingHistory is the bounded, chronologically ordered window for one asset.
type RollingHistory struct {
	AssetID  string  `json:"asset_id"`
	Points   []Quote `json:"points"`
	Capacity int     `json:"capacity"`
}

// Full reports whether the window holds Capacity points.
func (h RollingHistory) Full() bool {
	return h.Capacity > 0 && len(h.Points) >= h.Capacity
}

// Last returns the most recent point.
func (h RollingHistory) Last() (Quote, bool) {
	if len(h.Points) == 0 {
		return Quote{}, false
	}
	return h.Points[len(h.Points)-1], true
}

// Prices returns the point prices in window order.
func (h RollingHistory) Prices() []float64 {
	out := make([]float64, len(h.Points))
	for i, p := range h.Points {
		out[i] = p.Price
	}
	return out
}

// Readiness summarises how many tracked assets have a full window.
type Readiness struct {
	TotalAssets          int  `json:"total_assets"`
	AssetsWithFullWindow int  `json:"assets_with_full_window"`
	ReadyForSimulation   bool `json:"ready_for_simulation"`
}

// HistoryDocument is the persisted form of every asset's window. It is
// always loaded and saved as one unit.
type HistoryDocument struct {
	CreatedAt   time.Time                 `json:"created_at"`
	LastUpdated time.Time                 `json:"last_updated"`
	Capacity    int                       `json:"capacity"`
	Assets      map[string]RollingHistory `json:"assets"`
	Stats       Readiness                 `json:"stats"`
}
