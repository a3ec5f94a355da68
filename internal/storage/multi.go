package storage

import (
	"context"
	"errors"

	"arbScope/internal/model"
)

// MultiSink forwards every batch to each sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) PutReports(ctx context.Context, reports []model.Report) error {
	var errs []error
	for _, sink := range m {
		if err := sink.PutReports(ctx, reports); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
