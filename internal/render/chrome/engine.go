package chrome

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/render/snapshot"
)

// Engine launches a dedicated headless Chrome per session
type Engine struct {
	execPath  string
	noSandbox bool
	logger    *zap.Logger
}

var _ snapshot.Engine = (*Engine)(nil)

// NewEngine creates an engine using the browser at execPath (empty: chromedp's own lookup)
func NewEngine(execPath string, config *Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		execPath:  execPath,
		noSandbox: config.NoSandbox,
		logger:    logger,
	}
}

func (e *Engine) allocatorOptions(vp snapshot.Viewport) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.WindowSize(vp.Width, vp.Height),
	)

	if e.noSandbox {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-setuid-sandbox", true))
	}
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}

	return opts
}

// Open starts a browser process, creates an isolated browser context with one tab
// and applies the viewport. Cancelling ctx while the browser starts aborts the launch.
func (e *Engine) Open(ctx context.Context, vp snapshot.Viewport) (snapshot.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), e.allocatorOptions(vp)...)

	stop := context.AfterFunc(ctx, allocCancel)
	defer stop()

	chromeLog := e.logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(chromeLog.Debugf),
		chromedp.WithLogf(chromeLog.Debugf))

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrBrowserStart, err)
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx, chromedp.WithNewBrowserContext())

	sess := &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		tabCtx:        tabCtx,
		tabCancel:     tabCancel,
		lifecycle:     newLifecycleTracker(),
		logger:        e.logger,
	}
	chromedp.ListenTarget(tabCtx, sess.onEvent)

	err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(vp.Width), int64(vp.Height), vp.DeviceScale, false))
	if err != nil {
		_ = sess.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: open tab: %v", ErrBrowserStart, err)
	}

	e.logger.Debug("Browser session opened",
		zap.Int("viewport_width", vp.Width),
		zap.Int("viewport_height", vp.Height),
		zap.Float64("device_scale", vp.DeviceScale))

	return sess, nil
}
