package chrome

import "errors"

// Session errors
var (
	ErrNavigateFailed = errors.New("navigation failed")
	ErrNoNavigation   = errors.New("no navigation in progress")
	ErrSessionClosed  = errors.New("browser session is closed")
)

// Launch errors
var (
	ErrBrowserNotFound = errors.New("chrome/chromium executable not found")
	ErrBrowserStart    = errors.New("failed to start browser")
)

// Pool errors. Both mean no render slot could be obtained.
var (
	ErrPoolShutdown  = errors.New("pool is shutting down")
	ErrPoolExhausted = errors.New("no render slot became available in time")
)

// IsPoolUnavailable reports whether err means the request was never given a render slot
func IsPoolUnavailable(err error) bool {
	return errors.Is(err, ErrPoolShutdown) || errors.Is(err, ErrPoolExhausted)
}
