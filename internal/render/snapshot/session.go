package snapshot

import (
	"context"
	"time"
)

// Engine starts browser sessions. Each call returns a fresh, unshared session.
type Engine interface {
	Open(ctx context.Context, viewport Viewport) (Session, error)
}

// Session is one browser process, one isolated browser context and one page.
// It is used by a single render and must be closed on every exit path.
type Session interface {
	// Navigate loads url and blocks until the page reports event or timeout elapses
	Navigate(ctx context.Context, url string, event string, timeout time.Duration) error

	// WaitForLifecycle waits for event on the most recent navigation.
	// Returns immediately if the event already fired.
	WaitForLifecycle(ctx context.Context, event string, timeout time.Duration) error

	// Evaluate runs script in the page, awaiting a returned promise, and decodes the result into out (may be nil)
	Evaluate(ctx context.Context, script string, out interface{}) error

	SetCookies(ctx context.Context, pageURL string, cookies []Cookie) error

	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error

	Title(ctx context.Context) (string, error)

	PrintPDF(ctx context.Context, opts PDFOptions) ([]byte, error)

	// Close tears down the page and context first, then the browser process
	Close() error
}
