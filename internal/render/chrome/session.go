package chrome

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/telewebsaver/engine/internal/render/snapshot"
)

// Session is one browser process with one isolated browser context and one tab
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	tabCtx        context.Context
	tabCancel     context.CancelFunc

	lifecycle *lifecycleTracker
	logger    *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ snapshot.Session = (*Session)(nil)

func (s *Session) onEvent(ev interface{}) {
	if e, ok := ev.(*page.EventLifecycleEvent); ok {
		s.lifecycle.record(e.LoaderID, e.Name)
	}
}

// run executes actions on the tab. The caller's ctx and the optional timeout both bound it;
// a timeout is reported as snapshot.ErrWaitTimeout, caller cancellation as ctx.Err().
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}

	var (
		opCtx  context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		opCtx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		opCtx, cancel = context.WithCancel(s.tabCtx)
	}
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if timeout > 0 && errors.Is(opCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s", snapshot.ErrWaitTimeout, timeout)
	}
	return err
}

func (s *Session) Navigate(ctx context.Context, url string, event string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		_, loader, errorText, isDownload, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("%w: %s", ErrNavigateFailed, errorText)
		}
		if isDownload {
			return fmt.Errorf("%w: response is a download", ErrNavigateFailed)
		}

		s.lifecycle.setCurrent(loader)
		return s.lifecycle.wait(ctx, loader, event)
	}))
}

func (s *Session) WaitForLifecycle(ctx context.Context, event string, timeout time.Duration) error {
	loader, ok := s.lifecycle.latest()
	if !ok {
		return ErrNoNavigation
	}
	return s.run(ctx, timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		return s.lifecycle.wait(ctx, loader, event)
	}))
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

func (s *Session) Evaluate(ctx context.Context, script string, out interface{}) error {
	return s.run(ctx, 0, chromedp.Evaluate(script, out, awaitPromise))
}

func (s *Session) SetCookies(ctx context.Context, pageURL string, cookies []snapshot.Cookie) error {
	return s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			if err := network.SetCookie(c.Name, c.Value).WithURL(pageURL).Do(ctx); err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	}))
}

func (s *Session) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, 0, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (s *Session) PrintPDF(ctx context.Context, opts snapshot.PDFOptions) ([]byte, error) {
	var data []byte
	err := s.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		params := page.PrintToPDF().
			WithPaperWidth(opts.PaperWidth).
			WithPaperHeight(opts.PaperHeight).
			WithMarginTop(opts.MarginTop).
			WithMarginRight(opts.MarginRight).
			WithMarginBottom(opts.MarginBottom).
			WithMarginLeft(opts.MarginLeft).
			WithPrintBackground(opts.PrintBackground).
			WithPreferCSSPageSize(false)
		if opts.PageRanges != "" {
			params = params.WithPageRanges(opts.PageRanges)
		}

		buf, _, err := params.Do(ctx)
		if err != nil {
			return err
		}
		data = buf
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Close tears down the tab and its browser context, then the browser, then the process allocator.
// Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)

		var errs []error

		s.tabCancel()

		if err := chromedp.Cancel(s.browserCtx); err != nil && !errors.Is(err, context.Canceled) {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		s.browserCancel()
		s.allocCancel()

		s.closeErr = errors.Join(errs...)
		if s.closeErr != nil {
			s.logger.Debug("Browser session closed with errors", zap.Error(s.closeErr))
		}
	})
	return s.closeErr
}
