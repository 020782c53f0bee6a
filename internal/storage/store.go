package storage

import (
	"context"

	"proteus/internal/model"
)

// Store defines persistence operations for simulation artifacts: run
// records, wiring diagrams, windowed metrics, and exotype distributions.
type Store interface {
	Init(ctx context.Context) error
	SaveRunRecord(ctx context.Context, rec model.RunRecord) error
	GetRunRecord(ctx context.Context, runID string) (model.RunRecord, bool, error)
	ListRunIDs(ctx context.Context) ([]string, error)
	DeleteRun(ctx context.Context, runID string) error
	SaveWiring(ctx context.Context, rec model.WiringRecord) error
	GetWiring(ctx context.Context, id string) (model.WiringRecord, bool, error)
	ListWirings(ctx context.Context) ([]model.WiringRecord, error)
	SaveMetrics(ctx context.Context, runID string, windows []model.MetricsWindowRecord) error
	GetMetrics(ctx context.Context, runID string) ([]model.MetricsWindowRecord, bool, error)
	SaveDistribution(ctx context.Context, dist model.ExotypeDistribution) error
	GetDistribution(ctx context.Context, runID string) (model.ExotypeDistribution, bool, error)
}

// Resetter is implemented by backends that can drop all persisted state
// while staying usable.
type Resetter interface {
	Reset(ctx context.Context) error
}
