package storage

import (
	"context"

	"go.uber.org/zap"

	"arbScope/internal/model"
)

// LogSink writes reports to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// PutReports logs each report. Opportunities are logged at info, the rest at debug.
func (s *LogSink) PutReports(_ context.Context, reports []model.Report) error {
	for _, r := range reports {
		fields := []zap.Field{
			zap.String("route_id", r.RouteID),
			zap.String("outcome", r.Outcome),
			zap.String("path", r.Path),
			zap.String("trigger_pool", r.TriggerPool),
			zap.String("final_amount", r.FinalAmount),
			zap.String("profit", r.Profit),
		}
		if r.Error != "" {
			fields = append(fields, zap.String("error", r.Error))
		}
		if r.Outcome == "opportunity" {
			trace := make([]string, 0, len(r.Hops))
			for _, hop := range r.Hops {
				trace = append(trace, hop.Trace)
			}
			s.logger.Info("arbitrage opportunity", append(fields, zap.Strings("trace", trace))...)
			continue
		}
		s.logger.Debug("route evaluated", fields...)
	}
	return nil
}
