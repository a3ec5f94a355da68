package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"arbScope/internal/model"
)

// DedupeSink drops a report when the last report forwarded for the same
// route had the same outcome and final amount.
type DedupeSink struct {
	next Sink
	last *lru.Cache[string, string]
}

func NewDedupeSink(next Sink, size int) (*DedupeSink, error) {
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create dedupe cache: %w", err)
	}
	return &DedupeSink{next: next, last: cache}, nil
}

// PutReports forwards reports that differ from the last delivered one for
// their route. Routes are remembered only after next accepts the batch.
func (s *DedupeSink) PutReports(ctx context.Context, reports []model.Report) error {
	fresh := make([]model.Report, 0, len(reports))
	keys := make([]string, 0, len(reports))
	for _, r := range reports {
		key := r.Outcome + "|" + r.FinalAmount
		if prev, ok := s.last.Get(r.RouteID); ok && prev == key {
			continue
		}
		fresh = append(fresh, r)
		keys = append(keys, key)
	}
	if len(fresh) == 0 {
		return nil
	}
	if err := s.next.PutReports(ctx, fresh); err != nil {
		return err
	}
	for i, r := range fresh {
		s.last.Add(r.RouteID, keys[i])
	}
	return nil
}
