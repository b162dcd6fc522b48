package snapshot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Strategy is one rung of a fallback ladder
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// StrategyRecorder receives the outcome of every strategy attempt
type StrategyRecorder interface {
	RecordStrategy(stage, strategy string, success bool)
}

type nopRecorder struct{}

func (nopRecorder) RecordStrategy(string, string, bool) {}

// runChain tries strategies in order and returns the first success together with its name.
// Every failure is logged. When all fail the last failure is returned.
// A cancelled context stops the ladder before the next rung.
func runChain[T any](ctx context.Context, logger *zap.Logger, recorder StrategyRecorder, stage string, strategies []Strategy[T]) (T, string, error) {
	var zero T
	if len(strategies) == 0 {
		return zero, "", ErrNoStrategies
	}

	var lastErr error
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return zero, "", err
			}
			return zero, "", errors.Join(lastErr, err)
		}

		start := time.Now()
		result, err := s.Run(ctx)
		if err == nil {
			recorder.RecordStrategy(stage, s.Name, true)
			logger.Debug("Strategy succeeded",
				zap.String("stage", stage),
				zap.String("strategy", s.Name),
				zap.Duration("duration", time.Since(start)))
			return result, s.Name, nil
		}

		recorder.RecordStrategy(stage, s.Name, false)
		logger.Warn("Strategy failed",
			zap.String("stage", stage),
			zap.String("strategy", s.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		lastErr = err
	}

	return zero, "", lastErr
}
