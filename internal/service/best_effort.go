package service

import (
	"go.uber.org/zap"
)

// bestEffort folds the failure of a side effect that must not abort its caller
// into a warning log and a counter. It reports whether op succeeded.
func bestEffort(logger *zap.Logger, metrics *MetricsService, op string, err error, fields ...zap.Field) bool {
	if err == nil {
		return true
	}
	if logger != nil {
		logger.Warn("best-effort operation failed", append([]zap.Field{zap.String("operation", op), zap.Error(err)}, fields...)...)
	}
	metrics.RecordBestEffortFailure(op)
	return false
}
