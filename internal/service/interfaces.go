// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/model"
)

// TransactionSource delivers raw transaction rows and describes which
// optional columns they carry.
type TransactionSource interface {
	Load(ctx context.Context) ([]model.RawTransaction, model.SourceSchema, error)
}

// RunStore defines the contract for the run history.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.RunSummary) error
	ListRuns(ctx context.Context, limit int) ([]model.RunSummary, error)
	GetRun(ctx context.Context, id string) (*model.RunSummary, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// TableSink receives the output tables of a run.
type TableSink interface {
	WriteTables(ctx context.Context, tables []model.Table) error
}
