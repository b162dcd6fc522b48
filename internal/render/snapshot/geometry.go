package snapshot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const cssPixelsPerInch = 96.0

const measureScript = `(() => {
  const d = document.documentElement;
  const b = document.body || d;
  return {
    width: Math.ceil(Math.max(d.scrollWidth, b.scrollWidth)),
    height: Math.ceil(Math.max(d.scrollHeight, b.scrollHeight))
  };
})()`

// ClampGeometry bounds a measured size to [minW, maxW] x [minH, maxH]
func ClampGeometry(width, height, minW, maxW, minH, maxH int) PageGeometry {
	return PageGeometry{
		WidthPx:  clamp(width, minW, maxW),
		HeightPx: clamp(height, minH, maxH),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WidthInches converts to print units at 96 CSS px per inch
func (g PageGeometry) WidthInches() float64 {
	return float64(g.WidthPx) / cssPixelsPerInch
}

func (g PageGeometry) HeightInches() float64 {
	return float64(g.HeightPx) / cssPixelsPerInch
}

func (g PageGeometry) String() string {
	return fmt.Sprintf("%dx%d", g.WidthPx, g.HeightPx)
}

// measureGeometry reads the document scroll size. On failure the minimum geometry is used.
func (r *Renderer) measureGeometry(ctx context.Context, sess Session, log *zap.Logger) PageGeometry {
	var size struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}

	measureCtx, cancel := context.WithTimeout(ctx, r.cfg.ScriptTimeout)
	defer cancel()

	if err := sess.Evaluate(measureCtx, measureScript, &size); err != nil {
		log.Warn("Geometry measurement failed, using minimum page size", zap.Error(err))
		size.Width, size.Height = 0, 0
	}

	return ClampGeometry(size.Width, size.Height,
		r.cfg.MinWidth, r.cfg.MaxWidth, r.cfg.MinHeight, r.cfg.MaxHeight)
}
