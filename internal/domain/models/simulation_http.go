package models

import "time"

// Requests and views for the read API.

type AssetRequest struct {
	Asset string `param:"asset" json:"asset" validate:"required,max=64,printascii"`
}

type PriceRequest struct {
	Asset string `param:"asset" json:"asset" validate:"required,max=64,printascii"`
	At    string `query:"at" json:"at"`
}

// AssetView is one asset's entry in the latest artifact.
type AssetView struct {
	Asset         string         `json:"asset"`
	ArtifactID    string         `json:"artifact_id"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Present       bool           `json:"present"`
	Reason        string         `json:"reason,omitempty"`
	Path          *SimulatedPath `json:"path"`
	LowConfidence bool           `json:"low_confidence"`
}

// PriceView is the simulated price of an asset at a point in time.
type PriceView struct {
	Asset      string    `json:"asset"`
	At         time.Time `json:"at"`
	Price      float64   `json:"price"`
	ArtifactID string    `json:"artifact_id"`
	InHorizon  bool      `json:"in_horizon"`
}

// ReadinessView exposes the readiness signal with the history's age.
type ReadinessView struct {
	Readiness
	LastUpdated time.Time `json:"last_updated"`
	Capacity    int       `json:"capacity"`
}
