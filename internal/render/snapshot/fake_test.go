package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"
)

type pdfResult struct {
	data []byte
	err  error
}

// fakeSession scripts a browser page for renderer tests
type fakeSession struct {
	mu sync.Mutex

	navErrs      map[string]error
	evalErrs     map[string]error // keyed by a substring of the script
	cookieErr    error
	titleErr     error
	title        string
	width        int
	height       int
	fontsSupport bool
	pdfResults   []pdfResult
	hangScripts  bool // Evaluate and Title block until ctx is done, like a page with a stuck main thread

	navigations []string
	cookies     []Cookie
	pdfOptions  []PDFOptions
	closed      bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		title:        "Example Domain",
		width:        3000,
		height:       5000,
		fontsSupport: true,
		pdfResults:   []pdfResult{{data: []byte("%PDF-1.7 adaptive")}},
	}
}

func (s *fakeSession) Navigate(ctx context.Context, url, event string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, event)
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.navErrs[event]
}

func (s *fakeSession) WaitForLifecycle(ctx context.Context, event string, timeout time.Duration) error {
	return nil
}

func (s *fakeSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	if s.hangScripts {
		<-ctx.Done()
		return ctx.Err()
	}
	for marker, err := range s.evalErrs {
		if strings.Contains(script, marker) {
			return err
		}
	}

	var result interface{}
	switch {
	case strings.Contains(script, "scrollWidth"):
		result = map[string]int{"width": s.width, "height": s.height}
	case strings.Contains(script, "document.fonts"):
		result = s.fontsSupport
	case strings.Contains(script, "localStorage"):
		result = map[string]bool{"local": true, "session": true}
	case strings.Contains(script, "el.remove()"):
		result = 1
	default:
		result = true
	}

	if out == nil {
		return nil
	}
	raw, _ := json.Marshal(result)
	return json.Unmarshal(raw, out)
}

func (s *fakeSession) SetCookies(ctx context.Context, pageURL string, cookies []Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cookieErr != nil {
		return s.cookieErr
	}
	s.cookies = append(s.cookies, cookies...)
	return nil
}

func (s *fakeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}

func (s *fakeSession) Title(ctx context.Context) (string, error) {
	if s.hangScripts {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.titleErr != nil {
		return "", s.titleErr
	}
	return s.title, nil
}

func (s *fakeSession) PrintPDF(ctx context.Context, opts PDFOptions) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := len(s.pdfOptions)
	s.pdfOptions = append(s.pdfOptions, opts)
	if idx >= len(s.pdfResults) {
		return nil, errors.New("no scripted pdf result")
	}
	return s.pdfResults[idx].data, s.pdfResults[idx].err
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeEngine hands out pre-built sessions in order
type fakeEngine struct {
	mu       sync.Mutex
	sessions []*fakeSession
	openErr  error
	opened   int
	viewport Viewport
}

func (e *fakeEngine) Open(ctx context.Context, viewport Viewport) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.viewport = viewport
	if e.opened >= len(e.sessions) {
		e.sessions = append(e.sessions, newFakeSession())
	}
	sess := e.sessions[e.opened]
	e.opened++
	return sess, nil
}
