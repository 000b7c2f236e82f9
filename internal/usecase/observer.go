package usecase

import (
	"go.uber.org/zap"

	"github.com/example/wardrobe-dedup/internal/engine"
)

// ZapObserver logs engine progress events with structured fields.
type ZapObserver struct {
	logger *zap.Logger
}

// NewZapObserver wraps a logger as an engine.Observer.
func NewZapObserver(logger *zap.Logger) *ZapObserver {
	return &ZapObserver{logger: logger.Named("detection")}
}

func (o *ZapObserver) RecordFailed(recordID string, err error) {
	o.logger.Warn("record excluded from grouping",
		zap.String("record_id", recordID),
		zap.Error(err))
}

func (o *ZapObserver) GroupFound(kind engine.GroupKind, size int) {
	o.logger.Info("duplicate group found",
		zap.String("kind", string(kind)),
		zap.Int("size", size))
}

func (o *ZapObserver) RunCompleted(result *engine.DetectionResult) {
	o.logger.Info("detection run completed",
		zap.String("mode", string(result.Mode)),
		zap.Float64("threshold", result.Threshold),
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("exact_groups", len(result.ExactGroups)),
		zap.Int("near_groups", len(result.NearGroups)))
}
