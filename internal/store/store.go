// Package store persists a ledger of cross-validation runs and their
// per-fold summaries, so benchmark results survive the process and can be
// compared across methods.
package store

import (
	"context"
	"time"
)

// RunStatus tracks the lifecycle of one cross-validation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one recorded cross-validation invocation.
type Run struct {
	ID         string
	Method     string
	DatasetDir string
	FoldDir    string
	Status     RunStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// FoldResult is the scored summary of a single fold within a run.
type FoldResult struct {
	ID          string
	RunID       string
	FoldName    string
	Tested      int
	Unscoreable int
	MeanKm      float64
	MedianKm    float64
	CompletedAt time.Time
}

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Method string
	Status RunStatus
	Limit  int
}

// Store is the run-ledger persistence interface.
type Store interface {
	CreateRun(ctx context.Context, method, datasetDir, foldDir string) (*Run, error)
	FinishRun(ctx context.Context, runID string, status RunStatus) error
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	RecordFold(ctx context.Context, result *FoldResult) error
	FoldResults(ctx context.Context, runID string) ([]FoldResult, error)

	Migrate(ctx context.Context) error
	Close() error
}
