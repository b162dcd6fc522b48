package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrNavigation matches every *NavigationError
	ErrNavigation = errors.New("page could not be brought to a renderable state")
	// ErrRender matches every *RenderError
	ErrRender = errors.New("pdf could not be produced")

	ErrEmptyPDF       = errors.New("pdf output is empty")
	ErrWaitTimeout    = errors.New("wait timeout exceeded")
	ErrUnsupported    = errors.New("not supported by this page")
	ErrNoStrategies   = errors.New("no strategies configured")
	ErrInvalidRequest = errors.New("snapshot request has no url")
)

// NavigationError is returned when every navigation strategy failed or no session could be opened
type NavigationError struct {
	URL   string
	Cause error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Cause)
}

func (e *NavigationError) Unwrap() error {
	return e.Cause
}

func (e *NavigationError) Is(target error) bool {
	return target == ErrNavigation
}

// RenderError is returned when no PDF could be written
type RenderError struct {
	URL   string
	Cause error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("rendering %s failed: %v", e.URL, e.Cause)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}

func (e *RenderError) Is(target error) bool {
	return target == ErrRender
}
