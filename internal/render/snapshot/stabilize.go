package snapshot

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

const fontsReadyScript = `(async () => {
  if (!document.fonts || !document.fonts.ready) {
    return false;
  }
  await document.fonts.ready;
  return true;
})()`

// stabilize gives late content a chance to appear. Every wait is advisory.
func (r *Renderer) stabilize(ctx context.Context, sess Session, log *zap.Logger) {
	if err := sess.WaitForLifecycle(ctx, EventNetworkIdle, r.cfg.NetworkIdleTimeout); err != nil {
		log.Debug("Network idle not reached", zap.Duration("timeout", r.cfg.NetworkIdleTimeout), zap.Error(err))
	}

	if err := waitFonts(ctx, sess, r.cfg.FontsTimeout); err != nil {
		if errors.Is(err, ErrUnsupported) {
			log.Debug("Font loading API unavailable, skipping font wait")
		} else {
			log.Debug("Fonts not ready", zap.Duration("timeout", r.cfg.FontsTimeout), zap.Error(err))
		}
	}

	if err := sleepCtx(ctx, r.cfg.StabilizeSettle); err != nil {
		log.Debug("Settle interrupted", zap.Error(err))
	}

	if err := sess.WaitVisible(ctx, "body", r.cfg.VisibleTimeout); err != nil {
		log.Debug("Body not visible", zap.Duration("timeout", r.cfg.VisibleTimeout), zap.Error(err))
	}
}

func waitFonts(ctx context.Context, sess Session, timeout time.Duration) error {
	fontsCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var ready bool
	if err := sess.Evaluate(fontsCtx, fontsReadyScript, &ready); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrWaitTimeout
		}
		return err
	}
	if !ready {
		return ErrUnsupported
	}
	return nil
}

// readTitle returns the document title, or "" when it cannot be read within timeout
func readTitle(ctx context.Context, sess Session, timeout time.Duration, log *zap.Logger) string {
	titleCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	title, err := sess.Title(titleCtx)
	if err != nil {
		log.Debug("Title unavailable", zap.Error(err))
		return ""
	}
	return title
}

// sleepCtx waits d or until ctx is done
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
