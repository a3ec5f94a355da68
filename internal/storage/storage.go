package storage

import (
	"context"

	"arbScope/internal/model"
)

// Sink receives evaluation reports.
type Sink interface {
	PutReports(ctx context.Context, reports []model.Report) error
}
