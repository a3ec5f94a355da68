package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"arbScope/internal/model"
)

// ReplayStats summarises a replay read.
type ReplayStats struct {
	Lines   int
	Updates int
	Skipped int
}

// ReadUpdates reads JSONL replay records from r and sends them to out in
// file order. Malformed lines are logged and skipped.
func ReadUpdates(ctx context.Context, r io.Reader, out chan<- model.ReserveUpdate, logger *zap.Logger) (ReplayStats, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var stats ReplayStats
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		update, err := parseReplayLine(line)
		if err != nil {
			stats.Skipped++
			logger.Warn("skip replay line", zap.Int("line", stats.Lines), zap.Error(err))
			continue
		}

		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case out <- update:
			stats.Updates++
		}
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan replay input: %w", err)
	}
	return stats, nil
}

func parseReplayLine(line string) (model.ReserveUpdate, error) {
	var rec model.ReplayRecord
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return model.ReserveUpdate{}, fmt.Errorf("unmarshal record: %w", err)
	}
	pool, err := model.ParseAddress(rec.Pool)
	if err != nil {
		return model.ReserveUpdate{}, err
	}
	r0, err := uint256.FromDecimal(rec.Reserve0)
	if err != nil {
		return model.ReserveUpdate{}, fmt.Errorf("reserve0 %q: %w", rec.Reserve0, err)
	}
	r1, err := uint256.FromDecimal(rec.Reserve1)
	if err != nil {
		return model.ReserveUpdate{}, fmt.Errorf("reserve1 %q: %w", rec.Reserve1, err)
	}
	return model.ReserveUpdate{
		Pool:        pool,
		Reserve0:    r0,
		Reserve1:    r1,
		BlockNumber: rec.BlockNumber,
		Source:      model.SourceReplay,
	}, nil
}
